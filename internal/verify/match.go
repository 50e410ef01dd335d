package verify

import (
	"strings"
)

// wildcardLabel is the only wildcard form this package recognizes: the
// token occupying an entire leftmost label.
const wildcardLabel = "*"

// MatchHostname reports whether a certificate hostname pattern matches
// a target hostname.
//
// Comparison is case-insensitive over ASCII and label-aligned: both
// strings are split on ".", label counts must be equal, and an empty
// label on either side rejects the match. A "*" occupying the entire
// leftmost pattern label substitutes for exactly one non-empty target
// label, never zero and never more than one, so "*.bar.test" matches
// "a.bar.test" but neither "bar.test" nor "a.b.bar.test". A "*"
// embedded inside a label or appearing in any other position is not a
// wildcard and is compared literally.
//
// The target is expected to be already normalized by the caller: no
// trailing dot, no port, no scheme.
func MatchHostname(pattern, host string) bool {
	pattern = toLowerASCII(pattern)
	host = toLowerASCII(host)

	if pattern == "" || host == "" {
		return false
	}

	patternLabels := strings.Split(pattern, ".")
	hostLabels := strings.Split(host, ".")

	if len(patternLabels) != len(hostLabels) {
		return false
	}
	if hasEmptyLabel(patternLabels) || hasEmptyLabel(hostLabels) {
		return false
	}

	for i, label := range patternLabels {
		if i == 0 && label == wildcardLabel {
			continue
		}
		if label != hostLabels[i] {
			return false
		}
	}

	return true
}

// IsWildcardPattern reports whether pattern uses the recognized
// wildcard form (entire leftmost label is "*").
func IsWildcardPattern(pattern string) bool {
	return pattern == wildcardLabel || strings.HasPrefix(pattern, wildcardLabel+".")
}

// hasEmptyLabel reports whether any label in the sequence is empty.
func hasEmptyLabel(labels []string) bool {
	for _, label := range labels {
		if label == "" {
			return true
		}
	}
	return false
}

// toLowerASCII lower-cases the ASCII letters of s and leaves every
// other byte untouched. DNS labels are compared byte-wise; applying
// Unicode case mapping here could fold characters that the wire
// encoding never would.
func toLowerASCII(s string) string {
	lower := true
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			lower = false
			break
		}
	}
	if lower {
		return s
	}

	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
