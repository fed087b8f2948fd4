package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	saltLen             = 16
)

var ErrEmptyHash = errors.New("empty hash or salt")

type PasswordHash struct {
	Hash string
	Salt string
}

func deriveKey(password, pepper string, salt []byte) []byte {
	input := make([]byte, 0, len(password)+len(pepper))
	input = append(input, password...)
	input = append(input, pepper...)
	return argon2.IDKey(input, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// HashPassword derives an argon2id key over password+pepper with a random salt.
func HashPassword(password, pepper string) (*PasswordHash, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return &PasswordHash{
		Hash: base64.RawStdEncoding.EncodeToString(deriveKey(password, pepper, salt)),
		Salt: base64.RawStdEncoding.EncodeToString(salt),
	}, nil
}

func VerifyPassword(password, pepper string, stored *PasswordHash) (bool, error) {
	if stored == nil || stored.Hash == "" || stored.Salt == "" {
		return false, ErrEmptyHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(stored.Salt)
	if err != nil {
		return false, err
	}
	expected, err := base64.RawStdEncoding.DecodeString(stored.Hash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(deriveKey(password, pepper, salt), expected) == 1, nil
}

func MustHashPassword(password, pepper string) *PasswordHash {
	p, err := HashPassword(password, pepper)
	if err != nil {
		panic(err)
	}
	return p
}
