// Package encoding holds the content digests shared by catalogs, the index and the wire.
package encoding

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// SHA256Hex is the lowercase hex sha256 of b.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// JSONDigest hashes the JSON encoding of v. Struct fields encode in declaration order and map
// keys sorted, so equal values always hash the same.
func JSONDigest(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return SHA256Hex(b), nil
}
