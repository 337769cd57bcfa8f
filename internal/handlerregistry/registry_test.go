package handlerregistry

import (
	"context"
	"testing"

	"github.com/ferro-labs/hailo-devmgr/internal/device"
)

type noopHandler struct{}

func (noopHandler) Load(context.Context, *device.Context, string, map[string]any) (any, error) {
	return nil, nil
}
func (noopHandler) Infer(context.Context, any, any) (any, error) { return nil, nil }
func (noopHandler) Unload(any) error                             { return nil }

func TestGetUnregisteredReturnsErrUnsupportedModel(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Get("nope"); err == nil {
		t.Fatalf("expected error for unregistered model_type")
	}
}

func TestValidateParamsSkippedWhenNoSchemaRegistered(t *testing.T) {
	reg := NewRegistry()
	reg.Register("vlm", noopHandler{})
	if err := reg.ValidateParams("vlm", map[string]any{"anything": "goes"}); err != nil {
		t.Fatalf("expected no validation without a registered schema, got %v", err)
	}
}

func TestValidateParamsEnforcesRegisteredSchema(t *testing.T) {
	reg := NewRegistry()
	reg.Register("ocr", noopHandler{})

	schema, err := CompileSchema("test-ocr-schema", `{
		"type": "object",
		"required": ["detection_hef_path"],
		"properties": {"detection_hef_path": {"type": "string"}}
	}`)
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}
	reg.RegisterParamsSchema("ocr", schema)

	if err := reg.ValidateParams("ocr", map[string]any{}); err == nil {
		t.Fatalf("expected validation error for missing required field")
	}
	if err := reg.ValidateParams("ocr", map[string]any{"detection_hef_path": "/tmp/det.hef"}); err != nil {
		t.Fatalf("expected valid params to pass, got %v", err)
	}
}
