package utils

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyHex is returned when a hex string has no digits.
var ErrEmptyHex = errors.New("empty hex string")

// HasHexPrefix reports whether s starts with 0x or 0X.
func HasHexPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// StripHexPrefix removes a leading 0x or 0X if present.
func StripHexPrefix(s string) string {
	if HasHexPrefix(s) {
		return s[2:]
	}
	return s
}

// NormalizeHex returns s as lowercase hex with a 0x prefix. The input may
// carry a prefix or not; it must contain an even, non-zero number of hex digits.
func NormalizeHex(s string) (string, error) {
	digits := StripHexPrefix(strings.TrimSpace(s))
	if digits == "" {
		return "", ErrEmptyHex
	}
	if _, err := hex.DecodeString(digits); err != nil {
		return "", fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return "0x" + strings.ToLower(digits), nil
}
