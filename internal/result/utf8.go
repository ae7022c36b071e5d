package result

import "unicode/utf8"

// ValidBoundary reports whether byte offset i of s sits on a UTF-8
// code-point boundary — i.e. i == 0, i == len(s), or s[i] is not a
// continuation byte. Used to enforce the chunk byte_start/byte_end
// invariant from spec.md §3 and §8 (property 4).
func ValidBoundary(s string, i int) bool {
	if i < 0 || i > len(s) {
		return false
	}
	if i == 0 || i == len(s) {
		return true
	}
	return utf8.RuneStart(s[i])
}

// PrevBoundary walks i backward to the nearest UTF-8 boundary at or
// before i. Used when a requested cut point lands mid-rune.
func PrevBoundary(s string, i int) int {
	if i > len(s) {
		i = len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// TruncateUTF8 truncates s to at most maxBytes bytes, backing off to
// the previous rune boundary so the result is always valid UTF-8. Used
// for the 4 KiB panic-message truncation (spec.md §7, §9).
func TruncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	return s[:PrevBoundary(s, maxBytes)]
}
