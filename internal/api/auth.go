package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashAPIKey hashes a raw shared secret into the 64-lowercase-hex-char
// form stored as a client's api_key_hash (spec.md §3).
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// keysMatch compares two hashes in constant time, so presented-key
// timing cannot be used to guess a valid hash byte by byte.
func keysMatch(presentedHash, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(presentedHash), []byte(storedHash)) == 1
}
