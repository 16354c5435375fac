package mediflow

import (
	"strings"
)

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// IsAddress reports whether s is a 0x-prefixed 20-byte principal address.
func IsAddress(s string) bool {
	return len(s) == 42 && (s[:2] == "0x" || s[:2] == "0X") && isHex(s[2:])
}

// IsTxHash reports whether s is a 0x-prefixed 32-byte transaction hash.
func IsTxHash(s string) bool {
	return len(s) == 66 && (s[:2] == "0x" || s[:2] == "0X") && isHex(s[2:])
}

// NormalizeAddress lowercases a principal address. All ownership and
// self-grant comparisons go through this first.
func NormalizeAddress(s string) string {
	return strings.ToLower(s)
}

// SameAddress compares two principal addresses case-insensitively.
func SameAddress(a, b string) bool {
	return NormalizeAddress(a) == NormalizeAddress(b)
}

// FormatAddress shortens an address for display: 0x1234...5678.
func FormatAddress(address string) string {
	if len(address) < 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
