package sidecar

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/ferro-labs/hailo-devmgr/internal/requestlog"
)

type fakeSource struct {
	status       map[string]any
	deviceStatus map[string]any
	depth        int64
	reader       requestlog.Reader
}

func (f *fakeSource) Status() map[string]any       { return f.status }
func (f *fakeSource) DeviceStatus() map[string]any { return f.deviceStatus }
func (f *fakeSource) QueueDepth() int64            { return f.depth }
func (f *fakeSource) RequestLogReader() (requestlog.Reader, bool) {
	if f.reader == nil {
		return nil, false
	}
	return f.reader, true
}

type fakeReader struct {
	result requestlog.ListResult
}

func (f fakeReader) List(context.Context, requestlog.Query) (requestlog.ListResult, error) {
	return f.result, nil
}

func TestDeviceStatusEndpoint(t *testing.T) {
	src := &fakeSource{
		status:       map[string]any{"status": "ok"},
		deviceStatus: map[string]any{"status": "ok", "device": map[string]any{"device_id": "sim-0"}},
		depth:        0,
	}
	srv := New("127.0.0.1:18099", src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()
	waitForListener(t, "127.0.0.1:18099")

	resp, err := http.Get("http://127.0.0.1:18099/v1/device/status")
	if err != nil {
		t.Fatalf("GET device/status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	cancel()
	if err := <-runErr; err != nil {
		t.Fatalf("server run error: %v", err)
	}
}

func TestQueueEndpointIncludesRecentRequests(t *testing.T) {
	src := &fakeSource{
		status:       map[string]any{"status": "ok"},
		deviceStatus: map[string]any{"status": "ok"},
		depth:        3,
		reader: fakeReader{result: requestlog.ListResult{
			Data:  []requestlog.Entry{{Action: "infer", ModelType: "vlm"}},
			Total: 1,
		}},
	}
	srv := New("127.0.0.1:18100", src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()
	waitForListener(t, "127.0.0.1:18100")

	resp, err := http.Get("http://127.0.0.1:18100/v1/device/queue")
	if err != nil {
		t.Fatalf("GET device/queue: %v", err)
	}
	defer resp.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if int64(payload["queue_depth"].(float64)) != 3 {
		t.Fatalf("unexpected queue_depth: %+v", payload)
	}
	if payload["recent_requests_total"].(float64) != 1 {
		t.Fatalf("unexpected recent_requests_total: %+v", payload)
	}

	cancel()
	<-runErr
}

func TestNotFoundReturnsJSON(t *testing.T) {
	src := &fakeSource{status: map[string]any{}, deviceStatus: map[string]any{}}
	srv := New("127.0.0.1:18101", src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()
	waitForListener(t, "127.0.0.1:18101")

	resp, err := http.Get("http://127.0.0.1:18101/v1/unknown")
	if err != nil {
		t.Fatalf("GET unknown: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	cancel()
	<-runErr
}

func TestDisabledTokens(t *testing.T) {
	for _, tok := range []string{"", "off", "disabled", "none"} {
		if !Disabled(tok) {
			t.Fatalf("expected %q to be a disable token", tok)
		}
	}
	if Disabled("127.0.0.1:5099") {
		t.Fatalf("expected a real address to not be disabled")
	}
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("listener at %s never came up", addr)
}
