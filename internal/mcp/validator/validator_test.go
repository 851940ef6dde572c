package validator

import (
	"encoding/json"
	"testing"
)

func TestFromSchemaRequiredField(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "object",
		"properties": {"path": {"type": "string"}},
		"required": ["path"]
	}`)

	v, ok := FromSchema(raw)
	if !ok {
		t.Fatal("expected schema to parse")
	}

	if err := v.Validate(map[string]any{}); err == nil {
		t.Fatal("expected error for missing required field")
	}
	if err := v.Validate(map[string]any{"path": "/tmp/x", "extra": 1}); err != nil {
		t.Fatalf("unexpected error, extra fields should be permitted: %v", err)
	}
}

func TestFromSchemaMalformedFallsBackPermissive(t *testing.T) {
	v, ok := FromSchema(json.RawMessage(`not json`))
	if ok {
		t.Fatal("expected ok=false for malformed schema")
	}
	if err := v.Validate(map[string]any{"anything": true}); err != nil {
		t.Fatalf("permissive validator should accept anything: %v", err)
	}
}

func TestFromSchemaEmptyIsPermissive(t *testing.T) {
	v, ok := FromSchema(nil)
	if ok {
		t.Fatal("expected ok=false for empty schema")
	}
	if err := v.Validate(map[string]any{"x": 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateWrongType(t *testing.T) {
	raw := json.RawMessage(`{"type":"object","properties":{"count":{"type":"integer"}}}`)
	v, _ := FromSchema(raw)
	if err := v.Validate(map[string]any{"count": "not a number"}); err == nil {
		t.Fatal("expected type mismatch error")
	}
}
