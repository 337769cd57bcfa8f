package handlers

import (
	"context"
	"fmt"

	"github.com/ferro-labs/hailo-devmgr/internal/device"
)

// ocrRuntime models the detection+per-language-recognition model set the
// original OCR handler configured.
type ocrRuntime struct {
	detectionHefPath  string
	detectionInputDim []int
	recognitionHefs   map[string]string
	batchSizes        map[string]int
}

type ocrHandler struct{}

// NewOCR returns the handler for the "ocr" model_type: text-region
// detection and per-language batched recognition.
func NewOCR() *ocrHandler { return &ocrHandler{} }

func (h *ocrHandler) Load(_ context.Context, _ *device.Context, modelPath string, params map[string]any) (any, error) {
	detHefPath, _ := params["detection_hef_path"].(string)
	if detHefPath == "" {
		return nil, fmt.Errorf("detection_hef_path is required for ocr")
	}

	recHefs := map[string]string{}
	if raw, ok := params["recognition_hefs"].(map[string]any); ok {
		for lang, v := range raw {
			if path, ok := v.(string); ok {
				recHefs[lang] = path
			}
		}
	}
	if len(recHefs) == 0 {
		return nil, fmt.Errorf("recognition_hefs dict is required for ocr")
	}

	batchSizes := map[string]int{}
	if raw, ok := params["batch_sizes"].(map[string]any); ok {
		for lang, v := range raw {
			if f, ok := v.(float64); ok {
				batchSizes[lang] = int(f)
			}
		}
	}

	return &ocrRuntime{
		detectionHefPath:  detHefPath,
		detectionInputDim: []int{1, 3, 640, 640},
		recognitionHefs:   recHefs,
		batchSizes:        batchSizes,
	}, nil
}

func (h *ocrHandler) Infer(_ context.Context, runtime any, input any) (any, error) {
	rt, ok := runtime.(*ocrRuntime)
	if !ok {
		return nil, fmt.Errorf("ocr: invalid runtime handle")
	}
	params, ok := input.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("ocr: input_data must be an object")
	}

	mode, _ := params["mode"].(string)
	switch mode {
	case "detection":
		imagePayload, ok := params["image"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("image is required for ocr detection")
		}
		if _, err := decodeTensorPayload(imagePayload); err != nil {
			return nil, fmt.Errorf("ocr: %w", err)
		}
		return embeddingPayload([]float32{0, 0, 100, 40, 0.97}), nil

	case "recognition":
		lang, _ := params["language"].(string)
		if lang == "" {
			lang = "en"
		}
		if _, ok := rt.recognitionHefs[lang]; !ok {
			return nil, fmt.Errorf("unsupported language: %s", lang)
		}
		crops, _ := params["crops"].([]any)
		results := make([]any, 0, len(crops))
		for i, c := range crops {
			payload, ok := c.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("ocr: crop %d is not a tensor payload", i)
			}
			if _, err := decodeTensorPayload(payload); err != nil {
				return nil, fmt.Errorf("ocr: crop %d: %w", i, err)
			}
			results = append(results, embeddingPayload([]float32{float32(i)}))
		}
		return results, nil

	default:
		return nil, fmt.Errorf("unknown OCR mode: %v. Must be 'detection' or 'recognition'", mode)
	}
}

func (h *ocrHandler) Unload(_ any) error { return nil }

// DetectionInputShape exposes the configured detection input dimensions,
// mirroring the "model_info" the original load_model response included for
// OCR.
func (rt *ocrRuntime) DetectionInputShape() []int { return rt.detectionInputDim }
