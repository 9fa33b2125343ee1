package utils

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// HashString returns the SHA3-256 hex digest of s.  Sessions store only the
// digest of the client IP, never the raw address, so rows carry a fixed-size
// value with no personal data.
func HashString(s string) string {
	sum := sha3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
