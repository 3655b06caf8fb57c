package crypto

import (
	"fmt"

	"github.com/latticerun/detcore/pkg/canonicalize"
)

// Hasher provides deterministic hashing over canonically-encoded values.
type Hasher interface {
	Hash(v interface{}) (string, error)
}

// CanonicalHasher delegates to pkg/canonicalize's compact RFC 8785
// encoder, so a hash computed here always matches the one the Identity
// Kernel and Verifier independently re-derive from the same bytes.
type CanonicalHasher struct{}

func NewCanonicalHasher() *CanonicalHasher {
	return &CanonicalHasher{}
}

func (h *CanonicalHasher) Hash(v interface{}) (string, error) {
	data, err := canonicalize.EncodeCompact(v)
	if err != nil {
		return "", fmt.Errorf("crypto: canonical serialization failed: %w", err)
	}
	return canonicalize.Hash(data), nil
}
