package handlers

import (
	"context"
	"testing"

	"github.com/ferro-labs/hailo-devmgr/internal/handlerregistry"
	"github.com/ferro-labs/hailo-devmgr/internal/tensor"
)

func tensorInput(t *testing.T, shape []int, data []byte, dtype string) map[string]any {
	t.Helper()
	payload, err := tensor.Encode(tensor.Array{Dtype: tensor.Dtype(dtype), Shape: shape, Data: data})
	if err != nil {
		t.Fatalf("encode tensor: %v", err)
	}
	shapeAny := make([]any, len(payload.Shape))
	for i, d := range payload.Shape {
		shapeAny[i] = float64(d)
	}
	return map[string]any{
		"dtype":    payload.Dtype,
		"shape":    shapeAny,
		"data_b64": payload.DataB64,
	}
}

func TestRegisterAllCoversEveryModelType(t *testing.T) {
	reg := handlerregistry.NewRegistry()
	RegisterAll(reg)

	want := []string{"vlm", "vlm_chat", "clip", "whisper", "ocr", "depth", "pose", "scrfd", "piper"}
	for _, modelType := range want {
		if _, err := reg.Get(modelType); err != nil {
			t.Fatalf("expected handler registered for %s: %v", modelType, err)
		}
	}
}

func TestVLMChatRequiresPromptAndFrames(t *testing.T) {
	h := NewVLMChat()
	rt, err := h.Load(context.Background(), nil, "/tmp/model.hef", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := h.Infer(context.Background(), rt, map[string]any{}); err == nil {
		t.Fatalf("expected error for missing prompt/frames")
	}

	frame := tensorInput(t, []int{2, 2}, []byte{1, 2, 3, 4}, "uint8")
	result, err := h.Infer(context.Background(), rt, map[string]any{
		"prompt": "describe this",
		"frames": []any{frame},
	})
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	m, ok := result.(map[string]any)
	if !ok || m["num_frames"] != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestWhisperRequiresAudio(t *testing.T) {
	h := NewWhisper()
	rt, _ := h.Load(context.Background(), nil, "/tmp/model.hef", nil)
	if _, err := h.Infer(context.Background(), rt, map[string]any{}); err == nil {
		t.Fatalf("expected error for missing audio")
	}
	result, err := h.Infer(context.Background(), rt, map[string]any{"audio": []any{0.1, 0.2}, "language": "en", "task": "transcribe"})
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if _, ok := result.(map[string]any)["segments"]; !ok {
		t.Fatalf("expected segments in result: %+v", result)
	}
}

func TestOCRUnknownModeRejected(t *testing.T) {
	h := NewOCR()
	rt, err := h.Load(context.Background(), nil, "/tmp/model.hef", map[string]any{
		"detection_hef_path": "/tmp/det.hef",
		"recognition_hefs":   map[string]any{"en": "/tmp/rec-en.hef"},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := h.Infer(context.Background(), rt, map[string]any{"mode": "bogus"}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestPiperRequiresText(t *testing.T) {
	h := NewPiper()
	rt, _ := h.Load(context.Background(), nil, "/tmp/model.hef", nil)
	if _, err := h.Infer(context.Background(), rt, map[string]any{}); err == nil {
		t.Fatalf("expected error for missing text")
	}
	result, err := h.Infer(context.Background(), rt, map[string]any{"text": "hello"})
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if _, ok := result.(map[string]any)["audio"]; !ok {
		t.Fatalf("expected audio in result: %+v", result)
	}
}
