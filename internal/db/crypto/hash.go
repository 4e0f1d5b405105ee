// Package crypto provides secret hashing for credentials at rest.
package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashSecret returns the hex SHA-256 digest of a secret. Secrets are never
// stored in clear text.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// VerifySecret compares a stored digest against a presented secret in
// constant time.
func VerifySecret(storedHash, secret string) bool {
	presented := HashSecret(secret)
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(presented)) == 1
}
