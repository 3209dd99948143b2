// Package textgate classifies a blob as indexable text or binary/non-text.
package textgate

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// ScanWindow is the number of leading bytes inspected for a NUL byte.
const ScanWindow = 8192

// Classify reports whether blob should be indexed. A blob is indexable iff
// it is valid UTF-8 and contains no NUL byte within its first ScanWindow
// bytes. When ignoreUTF8Error is true, invalid UTF-8 is tolerated (the
// caller is expected to substitute replacement characters before
// tokenising) and only the NUL check applies.
func Classify(blob []byte, ignoreUTF8Error bool) bool {
	window := blob
	if len(window) > ScanWindow {
		window = window[:ScanWindow]
	}
	if bytes.IndexByte(window, 0) >= 0 {
		return false
	}
	if ignoreUTF8Error {
		return true
	}
	return utf8.Valid(blob)
}

// Sanitize replaces invalid UTF-8 sequences with the replacement
// character, for use when ignoreUTF8Error is set.
func Sanitize(blob []byte) []byte {
	if utf8.Valid(blob) {
		return blob
	}
	return []byte(strings.ToValidUTF8(string(blob), string(utf8.RuneError)))
}
