package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/base64"
	"strings"
)

var recoveryEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func GenerateRandomToken(size int) (string, error) {
	buffer := make([]byte, size)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// GenerateRecoveryKey returns 80 random bits as two dash-separated groups of
// eight base32 characters, e.g. "ABCDEFGH-IJKLMNOP".
func GenerateRecoveryKey() (string, error) {
	buffer := make([]byte, 10)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	encoded := recoveryEncoding.EncodeToString(buffer)
	return encoded[:8] + "-" + encoded[8:], nil
}

// NormalizeRecoveryKey accepts user-typed keys in any case, with or without
// the separator and surrounding spaces.
func NormalizeRecoveryKey(key string) string {
	key = strings.ToUpper(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, " ", "")
	key = strings.ReplaceAll(key, "-", "")
	if len(key) != 16 {
		return key
	}
	return key[:8] + "-" + key[8:]
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
