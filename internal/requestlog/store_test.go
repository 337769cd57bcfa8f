package requestlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteWriter_WriteAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.db")
	w, err := NewSQLiteWriter(path)
	if err != nil {
		t.Fatalf("new sqlite writer: %v", err)
	}
	t.Cleanup(func() {
		_ = w.Close()
	})

	now := time.Now().UTC()
	entries := []Entry{
		{
			RequestID: "req-1",
			Action:    "load_model",
			ModelType: "vlm",
			ModelPath: "/tmp/fake.hef",
			OutcomeOK: true,
			LatencyMS: 12,
			CreatedAt: now.Add(-2 * time.Hour),
		},
		{
			RequestID: "req-2",
			Action:    "infer",
			ModelType: "vlm",
			ModelPath: "/tmp/fake.hef",
			OutcomeOK: true,
			LatencyMS: 40,
			CreatedAt: now.Add(-1 * time.Hour),
		},
		{
			RequestID:    "req-3",
			Action:       "infer",
			ModelType:    "whisper",
			ModelPath:    "/tmp/other.hef",
			OutcomeOK:    false,
			ErrorMessage: "inference failed: boom",
			LatencyMS:    5,
			CreatedAt:    now,
		},
	}

	for _, entry := range entries {
		if err := w.Write(context.Background(), entry); err != nil {
			t.Fatalf("write request log entry: %v", err)
		}
	}

	result, err := w.List(context.Background(), Query{Limit: 10, Offset: 0})
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if result.Total != 3 || len(result.Data) != 3 {
		t.Fatalf("expected 3 logs, total=%d len=%d", result.Total, len(result.Data))
	}
	if result.Data[0].RequestID != "req-3" {
		t.Fatalf("expected most recent log first, got %s", result.Data[0].RequestID)
	}

	filtered, err := w.List(context.Background(), Query{Limit: 10, Offset: 0, ModelType: "whisper"})
	if err != nil {
		t.Fatalf("list filtered logs: %v", err)
	}
	if filtered.Total != 1 || len(filtered.Data) != 1 {
		t.Fatalf("expected 1 whisper log, total=%d len=%d", filtered.Total, len(filtered.Data))
	}
	if filtered.Data[0].RequestID != "req-3" {
		t.Fatalf("unexpected filtered request id: %s", filtered.Data[0].RequestID)
	}
	if filtered.Data[0].OutcomeOK {
		t.Fatalf("expected req-3 to be recorded as a failure")
	}

	byAction, err := w.List(context.Background(), Query{Limit: 10, Action: "load_model"})
	if err != nil {
		t.Fatalf("list by action: %v", err)
	}
	if byAction.Total != 1 || byAction.Data[0].RequestID != "req-1" {
		t.Fatalf("expected only req-1 for load_model, got %+v", byAction)
	}

	since := now.Add(-90 * time.Minute)
	recent, err := w.List(context.Background(), Query{Limit: 10, Since: &since})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if recent.Total != 2 {
		t.Fatalf("expected 2 logs since cutoff, got %d", recent.Total)
	}
}

func TestNoopWriterDiscards(t *testing.T) {
	var w NoopWriter
	if err := w.Write(context.Background(), Entry{Action: "ping"}); err != nil {
		t.Fatalf("noop writer should never fail: %v", err)
	}
}

func TestPostgresWriterContract(t *testing.T) {
	dsn := os.Getenv("HAILO_DEVMGR_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("set HAILO_DEVMGR_TEST_POSTGRES_DSN to run Postgres requestlog integration tests")
	}

	w, err := NewPostgresWriter(dsn)
	if err != nil {
		t.Fatalf("new postgres writer: %v", err)
	}
	t.Cleanup(func() {
		_, _ = w.db.Exec("DELETE FROM request_logs")
		_ = w.Close()
	})
	_, _ = w.db.Exec("DELETE FROM request_logs")

	entry := Entry{
		RequestID: "pg-req",
		Action:    "infer",
		ModelType: "vlm",
		ModelPath: "/tmp/fake.hef",
		OutcomeOK: true,
		LatencyMS: 9,
		CreatedAt: time.Now().UTC(),
	}
	if err := w.Write(context.Background(), entry); err != nil {
		t.Fatalf("write postgres log: %v", err)
	}

	result, err := w.List(context.Background(), Query{Limit: 10, Action: "infer"})
	if err != nil {
		t.Fatalf("list postgres logs: %v", err)
	}
	if result.Total != 1 || len(result.Data) != 1 {
		t.Fatalf("expected 1 postgres log, total=%d len=%d", result.Total, len(result.Data))
	}
}
