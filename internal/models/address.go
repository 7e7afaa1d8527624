package models

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// NormalizeAddress returns the lower-case 0x-prefixed form of an account address.
func NormalizeAddress(addr string) (string, error) {
	s := strings.TrimSpace(addr)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 40 {
		return "", fmt.Errorf("invalid address %q: expected 20 bytes", addr)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("invalid address %q: %w", addr, err)
	}
	return "0x" + strings.ToLower(s), nil
}

// SameAddress compares two addresses case-insensitively.
func SameAddress(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ChecksumAddress returns the EIP-55 mixed-case encoding of addr.
func ChecksumAddress(addr string) (string, error) {
	norm, err := NormalizeAddress(addr)
	if err != nil {
		return "", err
	}
	lower := norm[2:]

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] = c - 32
		}
	}
	return "0x" + string(out), nil
}

// ShortAddress renders 0x1234...abcd for display.
func ShortAddress(addr string) string {
	if len(addr) < 10 {
		if addr == "" {
			return "Unknown"
		}
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
