package migration

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Spec is the on-disk YAML shape of one registered migration hop
// (SPEC_FULL §9, §11): a declarative generalization of the additive,
// set-a-default transform BuiltinRegistry hard-codes in Go. Each hop may
// only set defaults for fields absent from the pre-image, so every
// YAML-defined migration is additive by construction and automatically
// satisfies DeterminismPreserved.
type Spec struct {
	FromVersion string       `yaml:"from_version"`
	ToVersion   string       `yaml:"to_version"`
	ChangeList  []string     `yaml:"change_list"`
	SetDefaults []FieldSet   `yaml:"set_defaults"`
}

// FieldSet assigns Value to Field when Field is absent from the manifest
// map. Field supports one level of dotted nesting (e.g.
// "chain_metadata.is_chainable_stage"), matching the nesting depth
// BuiltinRegistry's hand-written transform already uses.
type FieldSet struct {
	Field string      `yaml:"field"`
	Value interface{} `yaml:"value"`
}

// RegistryFile is the top-level YAML document: a list of migration hops.
type RegistryFile struct {
	Migrations []Spec `yaml:"migrations"`
}

// LoadRegistryYAML parses a registry configuration file and builds the
// equivalent immutable Registry, so operators can add a migration hop
// without recompiling (SPEC_FULL §9 "Global state").
func LoadRegistryYAML(data []byte) (*Registry, error) {
	var file RegistryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("migration: parse registry yaml: %w", err)
	}

	migrations := make([]Migration, 0, len(file.Migrations))
	for _, spec := range file.Migrations {
		spec := spec
		if spec.FromVersion == "" || spec.ToVersion == "" {
			return nil, fmt.Errorf("migration: registry yaml entry missing from_version/to_version")
		}
		migrations = append(migrations, spec.toMigration())
	}
	return NewRegistry(migrations), nil
}

// LoadRegistryFile loads a registry from path, falling back to
// BuiltinRegistry when path does not exist so a deployment with no
// migrations.yaml configured yet still has the one hop this module
// ships with.
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return BuiltinRegistry(), nil
		}
		return nil, fmt.Errorf("migration: read registry file %s: %w", path, err)
	}
	return LoadRegistryYAML(data)
}

func (s Spec) toMigration() Migration {
	fromVersion := s.FromVersion
	return Migration{
		FromVersion: s.FromVersion,
		ToVersion:   s.ToVersion,
		ChangeList:  s.ChangeList,
		ValidateBefore: func(m map[string]interface{}) error {
			if v, _ := m["schema_version"].(string); v != fromVersion {
				return fmt.Errorf("migration: expected schema_version %s, got %q", fromVersion, v)
			}
			return nil
		},
		Transform: func(in map[string]interface{}) (map[string]interface{}, error) {
			out := make(map[string]interface{}, len(in)+len(s.SetDefaults))
			for k, v := range in {
				out[k] = v
			}
			for _, fs := range s.SetDefaults {
				setDottedDefault(out, fs.Field, fs.Value)
			}
			return out, nil
		},
		ValidateAfter: func(before, after map[string]interface{}) error {
			if err := DeterminismPreserved(before, after); err != nil {
				return err
			}
			for _, fs := range s.SetDefaults {
				if !hasDottedField(after, fs.Field) {
					return fmt.Errorf("migration: field %q missing after transform", fs.Field)
				}
			}
			return nil
		},
	}
}

// setDottedDefault sets m[path] = value only when path is absent,
// creating at most one intermediate nested map.
func setDottedDefault(m map[string]interface{}, path string, value interface{}) {
	parts := strings.SplitN(path, ".", 2)
	if len(parts) == 1 {
		if _, ok := m[parts[0]]; !ok {
			m[parts[0]] = value
		}
		return
	}
	nested, ok := m[parts[0]].(map[string]interface{})
	if !ok {
		nested = map[string]interface{}{}
		m[parts[0]] = nested
	}
	setDottedDefault(nested, parts[1], value)
}

func hasDottedField(m map[string]interface{}, path string) bool {
	parts := strings.SplitN(path, ".", 2)
	v, ok := m[parts[0]]
	if !ok {
		return false
	}
	if len(parts) == 1 {
		return true
	}
	nested, ok := v.(map[string]interface{})
	if !ok {
		return false
	}
	return hasDottedField(nested, parts[1])
}
