package domain

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// versionSuffix matches "_v<digits>" at the end of a file stem.
var versionSuffix = regexp.MustCompile(`_v(\d+)$`)

// VersionKey groups chunks that are revisions of one logical document.
type VersionKey struct {
	// Origin is the file stem without any version suffix.
	Origin string

	// Category is the document category.
	Category string
}

// ResolveVersion returns the revision number encoded in a file name.
// "policy_v3.pdf" is 3 and "policy.pdf" is 1. It never fails: names without
// a suffix, or with a zero or overflowing number, are version 1.
func ResolveVersion(filename string) int {
	m := versionSuffix.FindStringSubmatch(stem(filename))
	if m == nil {
		return 1
	}
	v, err := strconv.Atoi(m[1])
	if err != nil || v < 1 {
		return 1
	}
	return v
}

// OriginName returns the logical document name of a path: the base name
// without extension and without a version suffix.
// "Leave/leave_v2.pdf" and "leave_v1.pdf" both give "leave".
func OriginName(path string) string {
	return versionSuffix.ReplaceAllString(stem(path), "")
}

// WithVersion rewrites a file name so that it carries the given version.
// An existing suffix is replaced.
func WithVersion(filename string, version int) string {
	ext := filepath.Ext(filename)
	base := OriginName(filename)
	return base + "_v" + strconv.Itoa(version) + ext
}

func stem(path string) string {
	base := filepath.Base(strings.ReplaceAll(path, "\\", "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
