// Package normalisers provides implementations of the Normaliser interface
// for the supported document formats. Each normaliser knows how to extract
// text from the files with a specific set of extensions.
//
// Normalisers are registered with the Registry at startup. Supporting a new
// file kind means adding a normaliser package and registering it in
// RegisterDefaults; nothing else changes.
package normalisers
