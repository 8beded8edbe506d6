package domain

import "strings"

// IsHexAddress reports whether s is 0x followed by 40 hex digits.
func IsHexAddress(s string) bool {
	if len(s) != 42 || (s[:2] != "0x" && s[:2] != "0X") {
		return false
	}
	for i := 2; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// NormalizeAddress lowercases a well-formed hex address.
// Returns "" for anything else.
func NormalizeAddress(s string) string {
	s = strings.TrimSpace(s)
	if !IsHexAddress(s) {
		return ""
	}
	return "0x" + strings.ToLower(s[2:])
}
