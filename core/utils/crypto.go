package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
)

// RandToken returns n random bytes encoded as unpadded URL-safe base64.
func RandToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ConstantTimeEquals compares secrets without leaking where they differ.
func ConstantTimeEquals(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
