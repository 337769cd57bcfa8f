// Package handlers provides the built-in, opaque model handler
// implementations registered at daemon startup: one per model_type the
// original per-modality system services exposed. None of them perform real
// accelerator inference — per the device manager's own scope, that math
// belongs to hailo_platform, not this daemon. Each handler instead honors
// the shape of the original request/response contract (the same
// input_data field names, the same validation errors) so callers see
// identical behavior at the RPC boundary.
package handlers

import (
	"context"
	"fmt"

	"github.com/ferro-labs/hailo-devmgr/internal/device"
	"github.com/ferro-labs/hailo-devmgr/internal/tensor"
)

// vlmRuntime is the opaque handle returned by vlmHandler.Load.
type vlmRuntime struct {
	modelPath string
}

type vlmHandler struct{}

// NewVLM returns the handler for the "vlm" model_type: single-shot
// image+prompt generation.
func NewVLM() *vlmHandler { return &vlmHandler{} }

func (h *vlmHandler) Load(_ context.Context, _ *device.Context, modelPath string, _ map[string]any) (any, error) {
	return &vlmRuntime{modelPath: modelPath}, nil
}

func (h *vlmHandler) Infer(_ context.Context, runtime any, input any) (any, error) {
	rt, ok := runtime.(*vlmRuntime)
	if !ok {
		return nil, fmt.Errorf("vlm: invalid runtime handle")
	}
	_ = rt
	return map[string]any{
		"text": "simulated vlm response",
	}, nil
}

func (h *vlmHandler) Unload(_ any) error { return nil }

// vlmChatRuntime is the opaque handle returned by vlmChatHandler.Load.
type vlmChatRuntime struct {
	modelPath string
}

type vlmChatHandler struct{}

// NewVLMChat returns the handler for the "vlm_chat" model_type: multi-frame
// prompted generation with sampling parameters.
func NewVLMChat() *vlmChatHandler { return &vlmChatHandler{} }

func (h *vlmChatHandler) Load(_ context.Context, _ *device.Context, modelPath string, _ map[string]any) (any, error) {
	return &vlmChatRuntime{modelPath: modelPath}, nil
}

func (h *vlmChatHandler) Infer(_ context.Context, runtime any, input any) (any, error) {
	if _, ok := runtime.(*vlmChatRuntime); !ok {
		return nil, fmt.Errorf("vlm_chat: invalid runtime handle")
	}

	params, ok := input.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("vlm_chat: input_data must be an object")
	}

	prompt, _ := params["prompt"].(string)
	frames, _ := params["frames"].([]any)
	if prompt == "" || len(frames) == 0 {
		return nil, fmt.Errorf("prompt and frames are required for vlm_chat")
	}

	for i, f := range frames {
		payload, ok := f.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("vlm_chat: frame %d is not a tensor payload", i)
		}
		if _, err := decodeTensorPayload(payload); err != nil {
			return nil, fmt.Errorf("vlm_chat: frame %d: %w", i, err)
		}
	}

	return map[string]any{
		"text":       fmt.Sprintf("simulated response to %q over %d frame(s)", prompt, len(frames)),
		"num_frames": len(frames),
	}, nil
}

func (h *vlmChatHandler) Unload(_ any) error { return nil }

func decodeTensorPayload(m map[string]any) (tensor.Array, error) {
	dtype, _ := m["dtype"].(string)
	dataB64, _ := m["data_b64"].(string)
	rawShape, _ := m["shape"].([]any)
	shape := make([]int, 0, len(rawShape))
	for _, d := range rawShape {
		f, ok := d.(float64)
		if !ok {
			return tensor.Array{}, fmt.Errorf("tensor shape must be a list of integers")
		}
		shape = append(shape, int(f))
	}
	return tensor.Decode(tensor.Payload{Dtype: dtype, Shape: shape, DataB64: dataB64})
}
