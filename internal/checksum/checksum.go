// Package checksum fingerprints entry content. The same digest is used
// as the If-Match token on writes and as the change detector when the
// index reconciles against the store.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the SHA-256 digest of data as lowercase hex.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SumString is Sum for canonical entry text, which the engine passes
// around as a string.
func SumString(s string) string {
	return Sum([]byte(s))
}
