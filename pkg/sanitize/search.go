// Package sanitize turns raw storefront query parameters into clean search
// tokens for analytics events.
package sanitize

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

var (
	// ErrSearchTermNotFound is returned when the query string has no value for the key.
	ErrSearchTermNotFound = errors.New("search term not found")
	// ErrMalformedSearchTerm is returned when the value cannot be decoded or
	// does not follow the "<prefix><separator><term><sentinel>" layout.
	ErrMalformedSearchTerm = errors.New("malformed search term")
)

// HasKey reports whether the raw query string carries an assignment for key.
func HasKey(rawQuery, key string) bool {
	return strings.Contains(rawQuery, key+"=")
}

// ExtractSearchTerm finds the value of key in rawQuery and normalizes it.
//
// The storefront double-encodes the value and composes it as a prefix and
// the actual term joined by separator, followed by one trailing sentinel
// character. The value is decoded twice, lowercased, split on separator,
// and the segment at index 1 is returned without its final character.
// When the key appears more than once the last occurrence wins.
func ExtractSearchTerm(rawQuery, key, separator string) (string, error) {
	var (
		raw   string
		found bool
	)
	for _, pair := range strings.Split(rawQuery, "&") {
		parts := strings.Split(pair, "=")
		if parts[0] != key || len(parts) < 2 {
			continue
		}
		raw, found = parts[1], true
	}
	if !found {
		return "", fmt.Errorf("%w: key %q", ErrSearchTermNotFound, key)
	}

	decoded := raw
	for i := 0; i < 2; i++ {
		var err error
		decoded, err = url.PathUnescape(decoded)
		if err != nil {
			return "", fmt.Errorf("%w: decode pass %d: %v", ErrMalformedSearchTerm, i+1, err)
		}
	}
	decoded = strings.ToLower(decoded)

	segments := strings.Split(decoded, separator)
	if len(segments) < 2 {
		return "", fmt.Errorf("%w: no %q separator in %q", ErrMalformedSearchTerm, separator, decoded)
	}
	return trimLast(segments[1]), nil
}

// Tokenize splits a search term on single spaces. Consecutive spaces yield
// empty tokens, matching how the storefront itself splits search words.
func Tokenize(term string) []string {
	return strings.Split(term, " ")
}

// trimLast drops the final rune of s.
func trimLast(s string) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}
