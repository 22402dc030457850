// Package schema validates tool arguments against the JSON Schema documents
// the catalog advertises in tools/list, so a malformed call is rejected as
// invalid_params before it ever reaches a handler.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validator compiles and caches JSON Schema documents keyed by tool name so
// the same tool's schema is compiled once, not on every call.
type Validator struct {
	mu    sync.Mutex
	cache map[string]*jsonschema.Schema
}

func NewValidator() *Validator {
	return &Validator{cache: make(map[string]*jsonschema.Schema)}
}

// Validate checks args against the schema registered for name, compiling
// and caching it on first use. A nil or empty schema always passes.
func (v *Validator) Validate(name string, rawSchema map[string]interface{}, args map[string]interface{}) error {
	if len(rawSchema) == 0 {
		return nil
	}

	sch, err := v.compiled(name, rawSchema)
	if err != nil {
		return fmt.Errorf("compiling schema for %s: %w", name, err)
	}

	instance, err := toInstance(args)
	if err != nil {
		return fmt.Errorf("decoding arguments for %s: %w", name, err)
	}

	if err := sch.Validate(instance); err != nil {
		return err
	}
	return nil
}

func (v *Validator) compiled(name string, rawSchema map[string]interface{}) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if sch, ok := v.cache[name]; ok {
		return sch, nil
	}

	url := "mem://tools/" + name
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, rawSchema); err != nil {
		return nil, err
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, err
	}
	v.cache[name] = sch
	return sch, nil
}

// toInstance re-decodes args through jsonschema's own JSON decoder so
// numeric comparisons (minimum/maximum, integer-ness) behave per the JSON
// Schema spec rather than Go's float64-for-every-number json decoding.
func toInstance(args map[string]interface{}) (interface{}, error) {
	if args == nil {
		args = map[string]interface{}{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(raw))
}
