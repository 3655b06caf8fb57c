//go:build property
// +build property

// Package identity_test contains property-based tests for inputs_hash
// and run_id derivation determinism.
package identity_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/latticerun/detcore/pkg/identity"
)

// TestComputeInputsHashDeterminism verifies hashing the same snapshot
// map twice always yields the same inputs_hash.
// Property: ComputeInputsHash(m) == ComputeInputsHash(m)
func TestComputeInputsHashDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("inputs_hash computation is deterministic", prop.ForAll(
		func(names []string, values []string) bool {
			hashes := make(map[string]string)
			for i := 0; i < len(names) && i < len(values); i++ {
				if names[i] != "" {
					hashes[names[i]] = "sha256:" + values[i]
				}
			}
			if len(hashes) == 0 {
				return true
			}

			first, err1 := identity.ComputeInputsHash(hashes)
			second, err2 := identity.ComputeInputsHash(hashes)
			if err1 != nil || err2 != nil {
				return err1 != nil && err2 != nil
			}
			return first == second
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// TestComputeInputsHashKeyOrderIndependence verifies the map iteration
// order never influences the result: insertion order must not leak into
// the hash.
// Property: ComputeInputsHash(m) == ComputeInputsHash(reordered(m))
func TestComputeInputsHashKeyOrderIndependence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("inputs_hash is independent of build order", prop.ForAll(
		func(a, b, c string) bool {
			forward := map[string]string{"brief": "sha256:" + a, "context": "sha256:" + b, "model_config": "sha256:" + c}

			backward := map[string]string{}
			backward["model_config"] = forward["model_config"]
			backward["context"] = forward["context"]
			backward["brief"] = forward["brief"]

			hashForward, err1 := identity.ComputeInputsHash(forward)
			hashBackward, err2 := identity.ComputeInputsHash(backward)
			if err1 != nil || err2 != nil {
				return false
			}
			return hashForward == hashBackward
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestDeriveRunIDLengthInvariant verifies DeriveRunID always yields a
// 32-hex-character base id regardless of suffix.
func TestDeriveRunIDLengthInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("run_id base is always 32 hex characters", prop.ForAll(
		func(seed string, suffix string) bool {
			sum := sha256.Sum256([]byte(seed))
			runID := identity.DeriveRunID("sha256:"+hex.EncodeToString(sum[:]), suffix)
			if suffix == "" {
				return len(runID) == 32
			}
			return len(runID) == 32+1+len(suffix)
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
