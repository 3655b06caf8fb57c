package migration

import (
	"encoding/json"
	"fmt"
)

// DeterminismPreserved enforces the §4.10 contract: job_id, run_id,
// inputs_hash, input_snapshots, doctrine.sha256, and artifacts must be
// byte-identical between before and after. Only schema_version,
// migration_history, and newly introduced optional fields may change.
func DeterminismPreserved(before, after map[string]interface{}) error {
	for _, field := range []string{"job_id", "run_id", "inputs_hash"} {
		if !jsonEqual(before[field], after[field]) {
			return fmt.Errorf("migration: field %q changed across transform", field)
		}
	}
	if beforeSnap, ok := before["input_snapshots"]; ok {
		if !jsonEqual(beforeSnap, after["input_snapshots"]) {
			return fmt.Errorf("migration: input_snapshots changed across transform")
		}
	}
	if beforeArtifacts, ok := before["artifacts"]; ok {
		if !jsonEqual(beforeArtifacts, after["artifacts"]) {
			return fmt.Errorf("migration: artifacts changed across transform")
		}
	}
	beforeDoctrine, _ := before["doctrine"].(map[string]interface{})
	afterDoctrine, _ := after["doctrine"].(map[string]interface{})
	if beforeDoctrine != nil {
		if afterDoctrine == nil || !jsonEqual(beforeDoctrine["sha256"], afterDoctrine["sha256"]) {
			return fmt.Errorf("migration: doctrine.sha256 changed across transform")
		}
	}
	return nil
}

func jsonEqual(a, b interface{}) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}

// BuiltinRegistry returns the registry of migrations this module ships
// with: a single hop from the pre-chaining schema (no input_snapshots,
// no chain_metadata) to the current version (SPEC_FULL §8 S5).
func BuiltinRegistry() *Registry {
	return NewRegistry([]Migration{
		{
			FromVersion: "1.0.0",
			ToVersion:   "1.2.0",
			ChangeList: []string{
				"add input_snapshots map (defaults to empty)",
				"add chain_metadata.is_chainable_stage (defaults to false)",
			},
			ValidateBefore: func(m map[string]interface{}) error {
				if v, _ := m["schema_version"].(string); v != "1.0.0" {
					return fmt.Errorf("migration: expected schema_version 1.0.0, got %q", v)
				}
				return nil
			},
			Transform: func(in map[string]interface{}) (map[string]interface{}, error) {
				out := make(map[string]interface{}, len(in)+2)
				for k, v := range in {
					out[k] = v
				}
				if _, ok := out["input_snapshots"]; !ok {
					out["input_snapshots"] = map[string]interface{}{}
				}
				if _, ok := out["chain_metadata"]; !ok {
					out["chain_metadata"] = map[string]interface{}{"is_chainable_stage": false}
				}
				return out, nil
			},
			ValidateAfter: func(before, after map[string]interface{}) error {
				if err := DeterminismPreserved(before, after); err != nil {
					return err
				}
				if _, ok := after["input_snapshots"]; !ok {
					return fmt.Errorf("migration: input_snapshots missing after transform")
				}
				return nil
			},
		},
	})
}
