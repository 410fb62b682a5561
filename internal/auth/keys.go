// Package auth provides the credential primitives of the service: random key
// generation, key and password hashing, the password policy, and the Gate that
// answers whether a bearer key or a password is currently valid.
//
// Generated secrets (API keys, verification and reset keys) are high-entropy
// and short-lived, so they are stored as a SHA-256 digest. Passwords are
// human-chosen and stored with bcrypt.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// KeyLength is the number of random bytes in a generated key.
const KeyLength = 32

// BcryptCost is the cost factor for password hashes. Tests lower it.
var BcryptCost = 12

// Clock returns the current time in milliseconds since the Unix epoch.
type Clock func() int64

// SystemClock reads the wall clock.
func SystemClock() int64 { return time.Now().UnixMilli() }

// GenerateKey returns a new URL-safe random secret.
func GenerateKey() (string, error) {
	b := make([]byte, KeyLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// HashKey returns the stored form of a generated key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return base64.URLEncoding.EncodeToString(sum[:])
}

// MatchesKey reports whether key hashes to storedHash.
func MatchesKey(key, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashKey(key)), []byte(storedHash)) == 1
}

// HashPassword returns a salted bcrypt hash of phrase.
func HashPassword(phrase string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(phrase), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// MatchesPassword reports whether phrase matches a bcrypt hash. An empty hash
// never matches.
func MatchesPassword(phrase, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(phrase)) == nil
}

// ExtractAPIKeyFromHeader extracts the key from an Authorization header of the
// form "Bearer <key>".
func ExtractAPIKeyFromHeader(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header is empty")
	}

	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("authorization header must start with 'Bearer '")
	}

	key := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if key == "" {
		return "", errors.New("API key is empty after Bearer prefix")
	}

	return key, nil
}
