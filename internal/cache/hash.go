package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// KeyPrefix namespaces evidence entries in shared backends.
const KeyPrefix = "evidence"

// NormalizeQuery trims surrounding whitespace and case-folds q.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// HashQuery returns the 64-character hex SHA-256 digest of the normalized
// query. Equal queries up to case and surrounding whitespace share a digest.
func HashQuery(q string) string {
	sum := sha256.Sum256([]byte(NormalizeQuery(q)))
	return hex.EncodeToString(sum[:])
}

// Key builds the cache key "evidence:<hash>:<source>".
func Key(query, source string) string {
	return KeyPrefix + ":" + HashQuery(query) + ":" + source
}
