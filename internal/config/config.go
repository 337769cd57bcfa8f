// Package config loads hailo-devmgrd's runtime configuration: the
// HAILO_DEVICE_* environment variables documented in spec.md §6, plus an
// optional YAML/JSON config file (HAILO_DEVICE_CONFIG) carrying static
// handler parameter defaults and logging level/format — the same shape as
// the teacher's GATEWAY_CONFIG file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ferro-labs/hailo-devmgr/internal/devmgr"
)

// File is the optional on-disk config: static handler defaults and
// ambient logging settings that env vars don't cover per-request.
type File struct {
	LogLevel         string                    `yaml:"log_level" json:"log_level"`
	LogFormat        string                    `yaml:"log_format" json:"log_format"`
	HandlerDefaults  map[string]map[string]any `yaml:"handler_defaults" json:"handler_defaults"`
	RequestLogDSN    string                    `yaml:"request_log_dsn" json:"request_log_dsn"`
	RequestLogDriver string                    `yaml:"request_log_driver" json:"request_log_driver"`
}

// LoadFile reads and parses a YAML or JSON config file. JSON is a strict
// subset of YAML 1.2, so a single yaml.Unmarshal call handles both.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &f, nil
}

// Load builds a devmgr.Config from the documented HAILO_DEVICE_* env vars,
// applying defaults from devmgr.DefaultConfig first. If HAILO_DEVICE_CONFIG
// is set, the referenced file is also loaded and returned alongside the
// daemon config (its handler defaults and logging settings are the
// caller's responsibility to apply — they aren't part of devmgr.Config).
func Load() (devmgr.Config, *File, error) {
	cfg := devmgr.DefaultConfig()

	if v := os.Getenv("HAILO_DEVICE_SOCKET"); v != "" {
		cfg.SocketPath = v
	}
	if v := os.Getenv("HAILO_DEVICE_SOCKET_GROUP"); v != "" {
		cfg.SocketGroup = v
	}
	if v := os.Getenv("HAILO_DEVICE_SOCKET_MODE"); v != "" {
		mode, err := strconv.ParseUint(v, 0, 32)
		if err != nil {
			return cfg, nil, fmt.Errorf("invalid HAILO_DEVICE_SOCKET_MODE %q: %w", v, err)
		}
		cfg.SocketMode = os.FileMode(mode)
	}
	if v := os.Getenv("HAILO_DEVICE_MAX_MESSAGE_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, nil, fmt.Errorf("invalid HAILO_DEVICE_MAX_MESSAGE_BYTES %q: %w", v, err)
		}
		cfg.MaxMessageBytes = n
	}
	if v, ok := os.LookupEnv("HAILO_DEVICE_HTTP_BIND"); ok {
		cfg.HTTPBind = v
	}
	if v := os.Getenv("HAILO_DEVICE_GROUP_ID"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, nil, fmt.Errorf("invalid HAILO_DEVICE_GROUP_ID %q: %w", v, err)
		}
		cfg.DeviceGroupID = n
	}
	if v := os.Getenv("HAILO_DEVICE_QUEUE_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, nil, fmt.Errorf("invalid HAILO_DEVICE_QUEUE_MAX %q: %w", v, err)
		}
		cfg.QueueMax = n
	}

	var file *File
	if path := os.Getenv("HAILO_DEVICE_CONFIG"); path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return cfg, nil, err
		}
		file = f
	}

	return cfg, file, nil
}

// HTTPDisableTokens lists the HAILO_DEVICE_HTTP_BIND values that turn the
// status sidecar off.
var HTTPDisableTokens = map[string]bool{
	"":         true,
	"0":        true,
	"off":      true,
	"false":    true,
	"none":     true,
	"disable":  true,
	"disabled": true,
}

// NormalizeHTTPBind expands a bare port ("5099") to "127.0.0.1:5099", the
// way spec.md §4.8 documents, and lowercases+trims for disable-token
// comparison. Returns ("", true) when bind is a disable token.
func NormalizeHTTPBind(bind string) (addr string, disabled bool) {
	trimmed := strings.TrimSpace(bind)
	if HTTPDisableTokens[strings.ToLower(trimmed)] {
		return "", true
	}
	if !strings.Contains(trimmed, ":") {
		return "127.0.0.1:" + trimmed, false
	}
	return trimmed, false
}
