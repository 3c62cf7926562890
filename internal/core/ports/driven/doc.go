// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Corpus: Lists, opens and stores files of the categorised document tree
//   - Normaliser: Parses one file kind into text sections
//   - NormaliserRegistry: Selects a normaliser by file extension
//   - Chunker: Splits documents into overlapping chunks
//   - EmbeddingService: Turns text into vectors
//   - VectorIndex: Stores chunk vectors and answers similarity queries
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Language model. Without it every answer reports the model as unavailable.
//   - PromptStore: Prompt templates. Without it the built-in templates are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
