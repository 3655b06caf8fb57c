package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DoctrineConfig is the on-disk YAML shape of the Doctrine Store's
// immutable whitelist and candidate roots (SPEC_FULL §9 "Global state",
// §11), loaded once at process construction.
type DoctrineConfig struct {
	Whitelist      []string `yaml:"whitelist"`
	CandidateRoots []string `yaml:"candidate_roots"`
}

// LoadDoctrineConfig reads and parses a doctrine whitelist file. A
// missing file is not an error: it degrades to an empty whitelist, so a
// deployment with no doctrine templates configured yet still starts.
func LoadDoctrineConfig(path string) (*DoctrineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &DoctrineConfig{}, nil
		}
		return nil, fmt.Errorf("config: read doctrine config %s: %w", path, err)
	}
	var cfg DoctrineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse doctrine config %s: %w", path, err)
	}
	return &cfg, nil
}
