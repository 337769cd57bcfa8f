// Package client implements the device manager's RPC client: the library
// other services use to talk to hailo-devmgrd over its Unix socket instead
// of touching the accelerator directly.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ferro-labs/hailo-devmgr/internal/framing"
)

// DefaultSocketPath is used when callers don't override it and
// HAILO_DEVICE_SOCKET is unset.
const DefaultSocketPath = "/run/hailo/device.sock"

// DefaultMaxMessageBytes bounds both request and response frame sizes.
const DefaultMaxMessageBytes = 8 * 1024 * 1024

// DefaultTimeout bounds a single request/response round trip.
const DefaultTimeout = 30 * time.Second

const connectRetries = 3

// Client is a connection to hailo-devmgrd. It is safe for concurrent use:
// every request is serialized through an internal mutex, mirroring the
// daemon's own single-worker guarantee on the other end of the wire.
type Client struct {
	socketPath      string
	timeout         time.Duration
	maxMessageBytes int

	mu   sync.Mutex
	conn net.Conn
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMaxMessageBytes overrides DefaultMaxMessageBytes.
func WithMaxMessageBytes(n int) Option {
	return func(c *Client) { c.maxMessageBytes = n }
}

// New builds a Client for socketPath. An empty socketPath falls back to
// HAILO_DEVICE_SOCKET, then DefaultSocketPath.
func New(socketPath string, opts ...Option) *Client {
	if socketPath == "" {
		socketPath = os.Getenv("HAILO_DEVICE_SOCKET")
	}
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	c := &Client{
		socketPath:      socketPath,
		timeout:         DefaultTimeout,
		maxMessageBytes: DefaultMaxMessageBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the device manager socket, retrying a few times with
// backoff before giving up — the daemon may still be starting up.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= connectRetries; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
		conn, err := (&net.Dialer{}).DialContext(dialCtx, "unix", c.socketPath)
		cancel()
		if err == nil {
			c.conn = conn
			return nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("device manager socket not found at %s", c.socketPath)
		}
		lastErr = err
		if attempt < connectRetries {
			select {
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("failed to connect to device manager: %w", lastErr)
}

// Disconnect closes the underlying connection, if any. Safe to call
// multiple times.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnectLocked()
}

func (c *Client) disconnectLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// request/response wire shapes, mirroring internal/devmgr's Request/Response.
type wireRequest struct {
	Action      string         `json:"action"`
	RequestID   string         `json:"request_id,omitempty"`
	ModelPath   string         `json:"model_path,omitempty"`
	ModelType   string         `json:"model_type,omitempty"`
	ModelParams map[string]any `json:"model_params,omitempty"`
	InputData   any            `json:"input_data,omitempty"`
}

type wireResponse = map[string]any

// sendRequest serializes one request/response round trip: it holds the lock
// for the full exchange so two goroutines sharing a Client never interleave
// frames on the same connection.
func (c *Client) sendRequest(ctx context.Context, req wireRequest) (wireResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	if c.conn == nil {
		if err := c.connectLocked(ctx); err != nil {
			return nil, err
		}
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	} else {
		_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
	}
	defer c.conn.SetDeadline(time.Time{})

	if err := framing.WriteMessage(c.conn, c.maxMessageBytes, req); err != nil {
		_ = c.disconnectLocked()
		return nil, fmt.Errorf("request failed: %w", err)
	}

	var resp wireResponse
	if err := framing.ReadMessage(c.conn, c.maxMessageBytes, &resp); err != nil {
		_ = c.disconnectLocked()
		if errors.Is(err, io.EOF) {
			return nil, errConnectionClosed
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if got, _ := resp["request_id"].(string); got != req.RequestID {
		_ = c.disconnectLocked()
		return nil, errors.New("mismatched response request_id")
	}

	if errMsg, isErr := resp["error"]; isErr {
		return nil, fmt.Errorf("device manager error: %v", errMsg)
	}

	return resp, nil
}

var errConnectionClosed = errors.New("device manager connection closed")

// Ping verifies the connection is alive and the daemon is responsive.
func (c *Client) Ping(ctx context.Context) (map[string]any, error) {
	return c.sendRequest(ctx, wireRequest{Action: "ping"})
}

// Status returns the daemon's overall status payload.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	return c.sendRequest(ctx, wireRequest{Action: "status"})
}

// DeviceStatus returns accelerator identity, temperature, and the loaded
// model set.
func (c *Client) DeviceStatus(ctx context.Context) (map[string]any, error) {
	return c.sendRequest(ctx, wireRequest{Action: "device_status"})
}

// LoadModel loads modelPath as modelType, with optional handler-specific
// params. Loading an already-loaded model is a no-op success.
func (c *Client) LoadModel(ctx context.Context, modelPath, modelType string, params map[string]any) (map[string]any, error) {
	if modelType == "" {
		modelType = "vlm"
	}
	return c.sendRequest(ctx, wireRequest{
		Action:      "load_model",
		ModelPath:   modelPath,
		ModelType:   modelType,
		ModelParams: params,
	})
}

// Infer runs one inference call. The model is loaded automatically if it
// isn't already, using params for the implicit load.
func (c *Client) Infer(ctx context.Context, modelPath string, inputData any, modelType string, params map[string]any) (map[string]any, error) {
	if modelType == "" {
		modelType = "vlm"
	}
	return c.sendRequest(ctx, wireRequest{
		Action:      "infer",
		ModelPath:   modelPath,
		ModelType:   modelType,
		ModelParams: params,
		InputData:   inputData,
	})
}

// UnloadModel releases modelPath/modelType. Unloading a model that isn't
// loaded is a no-op success.
func (c *Client) UnloadModel(ctx context.Context, modelPath, modelType string) (map[string]any, error) {
	if modelType == "" {
		modelType = "vlm"
	}
	return c.sendRequest(ctx, wireRequest{
		Action:    "unload_model",
		ModelPath: modelPath,
		ModelType: modelType,
	})
}

// WithClient connects a Client, runs fn, and disconnects it afterward,
// regardless of whether fn returns an error — the scoped-acquisition
// counterpart to the Python client's async context manager.
func WithClient(ctx context.Context, socketPath string, fn func(*Client) error, opts ...Option) error {
	c := New(socketPath, opts...)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Disconnect()
	return fn(c)
}
