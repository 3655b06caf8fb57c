package engine

import (
	"encoding/json"
	"fmt"
	"sync"
)

// schemaHolder lazily compiles and caches a jsonschema.Schema so every
// execute_run call does not recompile it.
type schemaHolder struct {
	once sync.Once
	err  error
	val  interface {
		Validate(interface{}) error
	}
	name   string
	source string
}

var briefSchemaHolder = &schemaHolder{name: "brief_params", source: briefParamsSchemaJSON}
var modelSchemaHolder = &schemaHolder{name: "model_config", source: modelConfigSchemaJSON}

func (h *schemaHolder) get() (interface{ Validate(interface{}) error }, error) {
	h.once.Do(func() {
		compiled, err := compileSchema(h.name, h.source)
		h.err = err
		if err == nil {
			h.val = compiled
		}
	})
	return h.val, h.err
}

func toGenericMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("engine: marshal for validation: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("engine: unmarshal for validation: %w", err)
	}
	return out, nil
}

// ValidateBrief checks a Brief's required fields against the compiled-in
// brief schema (SPEC_FULL §11), before anything is snapshotted. The
// contents of Params are not checked against any job-specific schema.
func ValidateBrief(b Brief) error {
	schema, err := briefSchemaHolder.get()
	if err != nil {
		return err
	}
	generic, err := toGenericMap(b)
	if err != nil {
		return err
	}
	if err := schema.Validate(generic); err != nil {
		return fmt.Errorf("engine: brief failed schema validation: %w", err)
	}
	return nil
}

// ValidateModelConfig checks a ModelConfig against the compiled-in
// model_config schema (SPEC_FULL §11) before it is snapshotted.
func ValidateModelConfig(cfg ModelConfig) error {
	schema, err := modelSchemaHolder.get()
	if err != nil {
		return err
	}
	generic, err := toGenericMap(cfg)
	if err != nil {
		return err
	}
	if err := schema.Validate(generic); err != nil {
		return fmt.Errorf("engine: model_config failed schema validation: %w", err)
	}
	return nil
}
