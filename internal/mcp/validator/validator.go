// Package validator implements an open-schema JSON-Schema walker: it
// validates required fields and coarse types while always permitting extra,
// unlisted fields, and degrades to a permissive pass-through validator when
// a schema is absent or malformed rather than rejecting registration.
package validator

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// FieldKind is the coarse type a schema field is mapped to.
type FieldKind string

const (
	KindText    FieldKind = "text"
	KindInteger FieldKind = "integer"
	KindReal    FieldKind = "real"
	KindBool    FieldKind = "bool"
	KindArray   FieldKind = "array"
	KindObject  FieldKind = "object"
)

// schemaTypeToKind maps a JSON-Schema "type" string to a FieldKind,
// defaulting unknown types to text.
func schemaTypeToKind(t string) FieldKind {
	switch t {
	case "string":
		return KindText
	case "integer":
		return KindInteger
	case "number":
		return KindReal
	case "boolean":
		return KindBool
	case "array":
		return KindArray
	case "object":
		return KindObject
	default:
		return KindText
	}
}

// field describes one validated property.
type field struct {
	name     string
	kind     FieldKind
	required bool
}

// Validator checks a tool-call argument map against a tool's input schema.
// It is always open: fields not named in the schema are permitted.
type Validator struct {
	fields     []field
	permissive bool
}

// Permissive returns a Validator that accepts any arguments, used when a
// tool's schema is absent or malformed.
func Permissive() *Validator {
	return &Validator{permissive: true}
}

// FromSchema builds a Validator from a JSON-Schema object. If raw is empty
// or cannot be parsed as an object schema, it returns a Permissive
// validator and ok=false so the caller can log a registration-time
// warning without rejecting the tool.
func FromSchema(raw json.RawMessage) (v *Validator, ok bool) {
	if len(raw) == 0 {
		return Permissive(), false
	}

	var schema struct {
		Type       string                     `json:"type"`
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	if err := json.Unmarshal(raw, &schema); err != nil {
		slog.Warn("mcp validator: malformed schema, falling back to permissive validator", "err", err)
		return Permissive(), false
	}

	required := make(map[string]bool, len(schema.Required))
	for _, r := range schema.Required {
		required[r] = true
	}

	fields := make([]field, 0, len(schema.Properties))
	for name, propRaw := range schema.Properties {
		var prop struct {
			Type string `json:"type"`
		}
		kind := KindText
		if err := json.Unmarshal(propRaw, &prop); err == nil && prop.Type != "" {
			kind = schemaTypeToKind(prop.Type)
		}
		fields = append(fields, field{name: name, kind: kind, required: required[name]})
	}

	return &Validator{fields: fields}, true
}

// Validate checks args against v's required fields and coarse types. Extra
// fields not present in the schema are always permitted (open schema).
func (v *Validator) Validate(args map[string]any) error {
	if v.permissive {
		return nil
	}

	var errs []error
	for _, f := range v.fields {
		val, present := args[f.name]
		if !present {
			if f.required {
				errs = append(errs, fmt.Errorf("missing required field %q", f.name))
			}
			continue
		}
		if !matchesKind(val, f.kind) {
			errs = append(errs, fmt.Errorf("field %q: expected %s", f.name, f.kind))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}

func matchesKind(val any, kind FieldKind) bool {
	switch kind {
	case KindText:
		_, ok := val.(string)
		return ok
	case KindInteger:
		switch val.(type) {
		case int, int32, int64, float64:
			return true
		}
		return false
	case KindReal:
		switch val.(type) {
		case float32, float64, int, int64:
			return true
		}
		return false
	case KindBool:
		_, ok := val.(bool)
		return ok
	case KindArray:
		_, ok := val.([]any)
		return ok
	case KindObject:
		_, ok := val.(map[string]any)
		return ok
	default:
		return true
	}
}
