package handlers

import (
	"log/slog"

	"github.com/ferro-labs/hailo-devmgr/internal/handlerregistry"
)

// ocrParamsSchema is the JSON Schema load_model's model_params must satisfy
// for model_type "ocr": detection_hef_path and a non-empty recognition_hefs
// map are both required, mirroring ocrHandler.Load's own checks but caught
// before a handler call is even made.
const ocrParamsSchema = `{
	"type": "object",
	"properties": {
		"detection_hef_path": {"type": "string", "minLength": 1},
		"recognition_hefs": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {"type": "string", "minLength": 1}
		},
		"batch_sizes": {
			"type": "object",
			"additionalProperties": {"type": "number"}
		}
	},
	"required": ["detection_hef_path", "recognition_hefs"]
}`

// RegisterAll installs every built-in handler into reg under its
// model_type name, plus the optional load_model params schema for handlers
// whose configuration is rich enough to benefit from it. Called once at
// daemon startup.
func RegisterAll(reg *handlerregistry.Registry) {
	reg.Register("vlm", NewVLM())
	reg.Register("vlm_chat", NewVLMChat())
	reg.Register("clip", NewCLIP())
	reg.Register("whisper", NewWhisper())
	reg.Register("ocr", NewOCR())
	reg.Register("depth", NewDepth())
	reg.Register("pose", NewPose())
	reg.Register("scrfd", NewSCRFD())
	reg.Register("piper", NewPiper())

	if schema, err := handlerregistry.CompileSchema("ocr-load-params", ocrParamsSchema); err != nil {
		slog.Default().Warn("failed to compile ocr params schema; load_model validation will be skipped", "error", err)
	} else {
		reg.RegisterParamsSchema("ocr", schema)
	}
}
