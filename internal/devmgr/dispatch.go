package devmgr

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/ferro-labs/hailo-devmgr/internal/metrics"
	"github.com/ferro-labs/hailo-devmgr/internal/modeltable"
	"github.com/ferro-labs/hailo-devmgr/internal/requestlog"
)

// dispatch is the single entry point the worker goroutine calls for every
// request it pops off the queue. It must never be called concurrently.
func (m *Manager) dispatch(req Request) Response {
	start := time.Now()
	resp := m.route(req)
	duration := time.Since(start)
	outcome := "ok"
	if _, isErr := resp["error"]; isErr {
		outcome = "error"
		metrics.HandlerErrors.WithLabelValues(req.ModelType, req.Action).Inc()
	}
	metrics.RequestsTotal.WithLabelValues(req.Action, req.ModelType, outcome).Inc()
	metrics.DispatchDuration.WithLabelValues(req.Action, req.ModelType).Observe(duration.Seconds())
	metrics.QueueDepth.Set(float64(m.queue.Depth()))

	m.recordRequestLog(req, resp, duration)
	return resp
}

func (m *Manager) recordRequestLog(req Request, resp Response, duration time.Duration) {
	errMsg, _ := resp["error"].(string)
	entry := requestlog.Entry{
		RequestID:    req.RequestID,
		Action:       req.Action,
		ModelType:    req.ModelType,
		ModelPath:    req.ModelPath,
		OutcomeOK:    errMsg == "",
		ErrorMessage: errMsg,
		LatencyMS:    duration.Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := m.cfg.RequestLog.Write(context.Background(), entry); err != nil {
		m.logger.Debug("failed to persist request log entry", "error", err)
	}
}

func (m *Manager) route(req Request) Response {
	switch req.Action {
	case "ping", "status":
		return m.statusPayload()
	case "device_status":
		return m.deviceStatusPayload()
	case "load_model":
		return m.loadModel(req)
	case "infer":
		return m.infer(req)
	case "unload_model":
		return m.unloadModel(req)
	default:
		return errorResponse("Unknown action: %s", req.Action)
	}
}

func (m *Manager) statusPayload() Response {
	snapshot := m.models.Snapshot()
	models := make([]any, 0, len(snapshot))
	for _, entry := range snapshot {
		models = append(models, map[string]any{
			"model_type": entry.ModelType,
			"model_path": entry.ModelPath,
			"loaded_at":  entry.LoadedAt.Unix(),
			"last_used":  entry.LastUsed.Unix(),
		})
	}

	return Response{
		"status":         "ok",
		"device_id":      m.DeviceID(),
		"loaded_models":  models,
		"uptime_seconds": m.Uptime().Seconds(),
		"socket_path":    m.cfg.SocketPath,
		"queue_depth":    m.queue.Depth(),
	}
}

func (m *Manager) deviceStatusPayload() Response {
	deviceInfo := map[string]any{"device_id": m.DeviceID()}

	if board, err := m.dev.Identify(); err != nil {
		deviceInfo["identify_error"] = err.Error()
	} else {
		deviceInfo["architecture"] = board.Architecture
		deviceInfo["fw_version"] = board.FirmwareVersion
	}

	if temp, err := m.dev.Temperature(); err != nil {
		deviceInfo["temperature_celsius"] = nil
		deviceInfo["temperature_error"] = err.Error()
	} else {
		deviceInfo["temperature_celsius"] = roundTo1Decimal(temp)
	}

	snapshot := m.models.Snapshot()
	networks := make([]any, 0, len(snapshot))
	for _, entry := range snapshot {
		networks = append(networks, map[string]any{
			"name":       filepath.Base(entry.ModelPath),
			"model_type": entry.ModelType,
			"model_path": entry.ModelPath,
			"loaded_at":  entry.LoadedAt.Unix(),
			"last_used":  entry.LastUsed.Unix(),
		})
	}

	return Response{
		"status": "ok",
		"device": deviceInfo,
		"networks": map[string]any{
			"status":        "ok",
			"source":        "device_manager",
			"network_count": len(snapshot),
			"networks":      networks,
		},
		"uptime_seconds": m.Uptime().Seconds(),
		"queue_depth":    m.queue.Depth(),
	}
}

func roundTo1Decimal(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func (m *Manager) loadModel(req Request) Response {
	if req.ModelPath == "" {
		return errorResponse("model_path required")
	}
	modelType := req.ModelType
	if modelType == "" {
		modelType = "vlm"
	}

	if modelType != "clip" {
		if _, err := os.Stat(req.ModelPath); err != nil {
			return errorResponse("Model file not found: %s", req.ModelPath)
		}
	}

	key := modeltable.Key{ModelType: modelType, ModelPath: req.ModelPath}
	if entry, ok := m.models.Get(key); ok {
		resp := Response{
			"status":     "ok",
			"model_path": req.ModelPath,
			"model_type": modelType,
			"message":    "Model already loaded",
		}
		m.attachOCRInfo(resp, entry)
		return resp
	}

	handler, err := m.registry.Get(modelType)
	if err != nil {
		return errorResponse("Failed to load model: %s", err.Error())
	}

	if err := m.registry.ValidateParams(modelType, req.ModelParams); err != nil {
		return errorResponse("Failed to load model: %s", err.Error())
	}

	runtime, err := handler.Load(context.Background(), m.devCtx, req.ModelPath, req.ModelParams)
	if err != nil {
		m.logger.Error("failed to load model", "model_path", req.ModelPath, "error", err)
		return errorResponse("Failed to load model: %s", err.Error())
	}

	entry := m.models.Put(key, runtime)
	metrics.LoadedModels.Set(float64(m.models.Len()))
	m.logger.Info("model loaded", "model_path", req.ModelPath, "model_type", modelType)

	resp := Response{
		"status":     "ok",
		"model_path": req.ModelPath,
		"model_type": modelType,
		"message":    "Model loaded",
	}
	m.attachOCRInfo(resp, entry)
	return resp
}

func (m *Manager) attachOCRInfo(resp Response, entry modeltable.Entry) {
	if entry.ModelType != "ocr" {
		return
	}
	type shaped interface{ DetectionInputShape() []int }
	if rt, ok := entry.Runtime.(shaped); ok {
		resp["model_info"] = map[string]any{"detection_input_shape": rt.DetectionInputShape()}
	}
}

func (m *Manager) infer(req Request) Response {
	if req.ModelPath == "" || req.InputData == nil {
		return errorResponse("model_path and input_data required")
	}
	modelType := req.ModelType
	if modelType == "" {
		modelType = "vlm"
	}

	key := modeltable.Key{ModelType: modelType, ModelPath: req.ModelPath}
	entry, ok := m.models.Get(key)
	if !ok {
		loadResp := m.loadModel(Request{
			ModelPath:   req.ModelPath,
			ModelType:   modelType,
			ModelParams: req.ModelParams,
		})
		if _, isErr := loadResp["error"]; isErr {
			return loadResp
		}
		entry, _ = m.models.Get(key)
	}

	handler, err := m.registry.Get(modelType)
	if err != nil {
		return errorResponse("Inference failed: %s", err.Error())
	}

	m.logger.Info("running inference", "model_path", req.ModelPath, "model_type", modelType)
	start := time.Now()
	result, err := handler.Infer(context.Background(), entry.Runtime, req.InputData)
	if err != nil {
		m.logger.Error("inference failed", "error", err)
		return errorResponse("Inference failed: %s", err.Error())
	}
	inferenceMS := time.Since(start).Milliseconds()
	m.models.Touch(key)

	return Response{
		"status":            "ok",
		"result":            result,
		"inference_time_ms": inferenceMS,
	}
}

func (m *Manager) unloadModel(req Request) Response {
	if req.ModelPath == "" {
		return errorResponse("model_path required")
	}
	modelType := req.ModelType
	if modelType == "" {
		modelType = "vlm"
	}

	key := modeltable.Key{ModelType: modelType, ModelPath: req.ModelPath}
	entry, ok := m.models.Delete(key)
	if !ok {
		return Response{"status": "ok", "message": "Model was not loaded"}
	}

	if err := m.unload(entry); err != nil {
		m.logger.Error("failed to unload model", "error", err)
		return errorResponse("%s", err.Error())
	}
	metrics.LoadedModels.Set(float64(m.models.Len()))
	m.logger.Info("model unloaded", "model_path", req.ModelPath, "model_type", modelType)
	return Response{"status": "ok", "message": "Model unloaded"}
}
