// Package hashid derives short deterministic identifiers from record fields
package hashid

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Length is the number of hex characters kept from the digest
const Length = 16

// New hashes the joined parts and keeps the leading hex of the digest.
// The same parts always produce the same id, so records re-derived from
// identical flow and window fields collide on purpose
func New(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:Length]
}
