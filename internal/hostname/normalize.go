// Package hostname prepares caller-supplied host strings for
// verification. The matching core assumes an already normalized
// target (no scheme, no port, no trailing dot); this package is the
// caller-side step that produces one.
//
// Internationalized domain handling is an explicit policy choice:
// Normalize compares bytes as given, NormalizeIDNA additionally maps
// Unicode labels to their punycode ASCII form. Pick one per
// deployment; the core never normalizes on its own.
package hostname

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// ErrEmptyHostname indicates that normalization produced no usable
// hostname.
var ErrEmptyHostname = errors.New("empty hostname")

// NormalizeFunc turns a raw host string into a matcher-ready target.
type NormalizeFunc func(host string) (string, error)

// ForPolicy returns the normalizer for the configured IDNA policy.
func ForPolicy(idnaEnabled bool) NormalizeFunc {
	if idnaEnabled {
		return NormalizeIDNA
	}
	return Normalize
}

// Normalize strips a port suffix, surrounding brackets, and a single
// trailing dot, and lower-cases ASCII letters. Non-ASCII bytes pass
// through untouched.
func Normalize(host string) (string, error) {
	if host == "" {
		return "", ErrEmptyHostname
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	if len(host) >= 2 && host[0] == '[' && host[len(host)-1] == ']' {
		host = host[1 : len(host)-1]
	}

	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", ErrEmptyHostname
	}

	return lowerASCII(host), nil
}

// NormalizeIDNA normalizes like Normalize and then maps the result to
// its ASCII (punycode) form using the lookup profile of RFC 5891.
func NormalizeIDNA(host string) (string, error) {
	h, err := Normalize(host)
	if err != nil {
		return "", err
	}

	ascii, err := idna.Lookup.ToASCII(h)
	if err != nil {
		return "", fmt.Errorf("idna mapping of %q failed: %w", h, err)
	}

	return ascii, nil
}

// lowerASCII folds ASCII upper-case letters only.
func lowerASCII(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
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
