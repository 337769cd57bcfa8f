package devmgr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ferro-labs/hailo-devmgr/internal/device"
	"github.com/ferro-labs/hailo-devmgr/internal/handlerregistry"
	"github.com/ferro-labs/hailo-devmgr/internal/metrics"
	"github.com/ferro-labs/hailo-devmgr/internal/modeltable"
	"github.com/ferro-labs/hailo-devmgr/internal/requestlog"
)

// Config carries every daemon-wide setting, populated from env vars and/or
// an optional config file by the caller (cmd/hailo-devmgrd).
type Config struct {
	SocketPath      string
	SocketMode      os.FileMode
	SocketGroup     string
	MaxMessageBytes int
	HTTPBind        string // empty/disabled tokens mean "sidecar off"
	QueueMax        int    // 0 = unbounded
	DeviceGroupID   int    // -1 = unset
	RequestLog      requestlog.Writer
}

// DefaultConfig returns the documented defaults (spec.md §6), before env
// var/config-file overrides are applied.
func DefaultConfig() Config {
	return Config{
		SocketPath:      "/run/hailo/device.sock",
		SocketMode:      0o660,
		MaxMessageBytes: 64 * 1024 * 1024,
		HTTPBind:        "127.0.0.1:5099",
		DeviceGroupID:   -1,
		RequestLog:      requestlog.NoopWriter{},
	}
}

// Manager owns the device context, the model table, and the request queue.
// Exactly one Manager runs per daemon process.
type Manager struct {
	cfg       Config
	logger    *slog.Logger
	dev       *device.Device
	devCtx    *device.Context
	models    *modeltable.Table
	registry  *handlerregistry.Registry
	queue     *Queue
	startTime time.Time
}

// New scans for and opens the single accelerator, creates the shared device
// context, and returns a Manager ready to Run. Registry must already have
// every handler registered the daemon intends to serve.
func New(cfg Config, registry *handlerregistry.Registry, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	devices, err := device.Scan()
	if err != nil {
		return nil, fmt.Errorf("scan devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no Hailo devices found")
	}
	logger.Info("found device(s)", "count", len(devices))

	dev, err := device.Open(devices)
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}
	logger.Info("opened device", "device_id", dev.DeviceID)

	devCtx, err := device.NewContext(cfg.DeviceGroupID)
	if err != nil {
		_ = dev.Release()
		return nil, fmt.Errorf("create device context: %w", err)
	}

	if cfg.RequestLog == nil {
		cfg.RequestLog = requestlog.NoopWriter{}
	}

	return &Manager{
		cfg:       cfg,
		logger:    logger,
		dev:       dev,
		devCtx:    devCtx,
		models:    modeltable.New(),
		registry:  registry,
		queue:     NewQueue(cfg.QueueMax),
		startTime: time.Now(),
	}, nil
}

// Run starts the worker goroutine and the Unix socket connection server,
// blocking until ctx is cancelled, then tears everything down in reverse
// order: stop accepting connections, drain/stop the worker, unload every
// model in reverse insertion order, release the device context, release the
// device, unlink the socket.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.prepareSocket(); err != nil {
		return err
	}

	listener, err := m.listen()
	if err != nil {
		return err
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		m.queue.Run(workerCtx, m.dispatch)
	}()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		m.acceptLoop(ctx, listener)
	}()

	<-ctx.Done()
	m.logger.Info("shutting down")

	_ = listener.Close()
	<-serverDone

	stopWorker()
	<-workerDone

	for _, entry := range m.models.DeleteAllReverseInsertionOrder() {
		if err := m.unload(entry); err != nil {
			m.logger.Warn("error during model cleanup", "model_type", entry.ModelType, "model_path", entry.ModelPath, "error", err)
		}
	}
	metrics.LoadedModels.Set(0)

	if err := m.devCtx.Release(); err != nil {
		m.logger.Warn("error releasing device context", "error", err)
	}
	if err := m.dev.Release(); err != nil {
		m.logger.Warn("error releasing device", "error", err)
	}

	if _, err := os.Stat(m.cfg.SocketPath); err == nil {
		if err := os.Remove(m.cfg.SocketPath); err != nil {
			m.logger.Warn("error cleaning socket", "error", err)
		} else {
			m.logger.Info("socket cleaned up", "path", m.cfg.SocketPath)
		}
	}

	m.logger.Info("shutdown complete")
	return nil
}

func (m *Manager) unload(entry modeltable.Entry) error {
	handler, err := m.registry.Get(entry.ModelType)
	if err != nil {
		return err
	}
	return handler.Unload(entry.Runtime)
}

func (m *Manager) prepareSocket() error {
	dir := filepath.Dir(m.cfg.SocketPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}
	if err := os.Chmod(dir, 0o755); err != nil {
		return fmt.Errorf("chmod socket directory: %w", err)
	}
	if _, err := os.Stat(m.cfg.SocketPath); err == nil {
		if err := os.Remove(m.cfg.SocketPath); err != nil {
			return fmt.Errorf("remove stale socket: %w", err)
		}
	}
	return nil
}

// ModelTable exposes the shared model table for the status sidecar.
func (m *Manager) ModelTable() *modeltable.Table { return m.models }

// QueueDepth exposes the live queue depth for the status sidecar.
func (m *Manager) QueueDepth() int64 { return m.queue.Depth() }

// DeviceID exposes the opened device's identity for the status sidecar.
func (m *Manager) DeviceID() string {
	if m.dev == nil {
		return ""
	}
	return m.dev.DeviceID
}

// Uptime returns the time elapsed since the manager started.
func (m *Manager) Uptime() time.Duration { return time.Since(m.startTime) }

// SocketPath returns the configured Unix socket path.
func (m *Manager) SocketPath() string { return m.cfg.SocketPath }

// Status returns the same payload the "status" RPC action returns, for the
// read-only HTTP sidecar.
func (m *Manager) Status() Response { return m.statusPayload() }

// DeviceStatus returns the same payload the "device_status" RPC action
// returns, for the read-only HTTP sidecar.
func (m *Manager) DeviceStatus() Response { return m.deviceStatusPayload() }

// RequestLogReader returns the configured request log as a Reader, if it
// supports listing (SQLWriter does; NoopWriter does not).
func (m *Manager) RequestLogReader() (requestlog.Reader, bool) {
	reader, ok := m.cfg.RequestLog.(requestlog.Reader)
	return reader, ok
}
