// Package hex wraps encoding/hex with shorter names and strict length
// checked decoders.
//
// The exact-length decoders reject over-long inputs before decoding so that
// buffer allocations are never proportional to attacker-controlled sizes.
package hex

import (
	"encoding/hex"
	"fmt"
)

// Enc encodes a byte slice as lowercase hexadecimal.
func Enc(b []byte) (s string) {
	return hex.EncodeToString(b)
}

// Dec decodes a hexadecimal string into a byte slice.
func Dec(s string) (b []byte, err error) {
	return hex.DecodeString(s)
}

// DecExact decodes a hexadecimal string that must encode exactly length
// bytes. The input size is checked before any allocation takes place.
func DecExact(s string, length int) (b []byte, err error) {
	if len(s) != length*2 {
		return nil, fmt.Errorf("invalid hex length: got %d expect %d",
			len(s), length*2)
	}
	return hex.DecodeString(s)
}

// Valid returns true if the string is valid hexadecimal with an even number
// of characters.
func Valid(s string) bool {
	if len(s)%2 != 0 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
