package handlers

import (
	"context"
	"fmt"

	"github.com/ferro-labs/hailo-devmgr/internal/device"
)

type whisperRuntime struct {
	modelPath string
}

type whisperHandler struct{}

// NewWhisper returns the handler for the "whisper" model_type: audio
// transcription/translation.
func NewWhisper() *whisperHandler { return &whisperHandler{} }

func (h *whisperHandler) Load(_ context.Context, _ *device.Context, modelPath string, _ map[string]any) (any, error) {
	return &whisperRuntime{modelPath: modelPath}, nil
}

func (h *whisperHandler) Infer(_ context.Context, runtime any, input any) (any, error) {
	if _, ok := runtime.(*whisperRuntime); !ok {
		return nil, fmt.Errorf("whisper: invalid runtime handle")
	}
	params, ok := input.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("whisper: input_data must be an object")
	}

	audio, hasAudio := params["audio"]
	if !hasAudio || audio == nil {
		return nil, fmt.Errorf("audio data is required for whisper")
	}
	language, _ := params["language"].(string)
	if language == "" {
		language = "en"
	}
	task, _ := params["task"].(string)
	if task == "" {
		task = "transcribe"
	}
	if task != "transcribe" && task != "translate" {
		return nil, fmt.Errorf("whisper task must be 'transcribe' or 'translate'")
	}

	return map[string]any{
		"segments": []map[string]any{
			{
				"id":    0,
				"start": 0.0,
				"end":   1.5,
				"text":  fmt.Sprintf("[simulated %s, %s]", task, language),
			},
		},
	}, nil
}

func (h *whisperHandler) Unload(_ any) error { return nil }
