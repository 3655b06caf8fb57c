// Package identity implements the Identity Kernel (SPEC_FULL §4.5): the
// pure-function chain from a snapshot-name-to-hash map to inputs_hash,
// and from inputs_hash to run_id.
package identity

import (
	"sort"
	"strings"

	"github.com/latticerun/detcore/pkg/canonicalize"
)

// ComputeInputsHash builds a map keyed by snapshot name from hashes,
// encodes it in the frozen compact canonical form, and hashes it. The
// map's key order never affects the result: canonicalize.EncodeCompact
// always sorts keys.
func ComputeInputsHash(hashes map[string]string) (string, error) {
	generic := make(map[string]interface{}, len(hashes))
	for name, hash := range hashes {
		generic[name] = hash
	}
	encoded, err := canonicalize.EncodeCompact(generic)
	if err != nil {
		return "", err
	}
	return canonicalize.Hash(encoded), nil
}

// DeriveRunID strips the "sha256:" prefix from inputsHash, takes the
// first 32 hex characters, and optionally appends "-"+suffix. The
// collision suffix (SPEC_FULL §4.6, §9) is a directory-naming concern
// only and never re-enters inputs_hash.
func DeriveRunID(inputsHash, suffix string) string {
	hex := strings.TrimPrefix(inputsHash, "sha256:")
	if len(hex) > 32 {
		hex = hex[:32]
	}
	if suffix == "" {
		return hex
	}
	return hex + "-" + suffix
}

// SortedNames returns the snapshot names of hashes in lexicographic
// order, used by callers that need deterministic iteration (e.g. when
// building input_snapshots for the manifest).
func SortedNames(hashes map[string]string) []string {
	names := make([]string, 0, len(hashes))
	for name := range hashes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
