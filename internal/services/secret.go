package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// The join secret is stored as a SHA-256 digest and never returned by any
// projection. Verification compares digests in constant time so a wrong
// guess leaks nothing about the stored value.

func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func VerifySecret(storedHash, candidate string) bool {
	candidateHash := HashSecret(candidate)
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(candidateHash)) == 1
}
