package framing

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

type sample struct {
	Action    string `json:"action"`
	RequestID string `json:"request_id"`
}

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := sample{Action: "ping", RequestID: "abc-123"}

	if err := WriteMessage(&buf, 0, in); err != nil {
		t.Fatalf("write message: %v", err)
	}

	var out sample
	if err := ReadMessage(&buf, 0, &out); err != nil {
		t.Fatalf("read message: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestReadMessageCleanEOF(t *testing.T) {
	var buf bytes.Buffer
	var out sample
	err := ReadMessage(&buf, 0, &out)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF on empty stream, got %v", err)
	}
}

func TestReadFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, 0, bytes.Repeat([]byte{'a'}, 100)); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	_, err := ReadFrame(&buf, 10)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestWriteFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, 10, bytes.Repeat([]byte{'a'}, 100))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestReadFramePartialHeaderIsProtocolError(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x00, 0x01})
	_, err := ReadFrame(buf, 0)
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}

func TestReadFramePartialBodyIsProtocolError(t *testing.T) {
	var header [4]byte
	header[3] = 10 // declares 10 bytes, supplies fewer
	buf := bytes.NewBuffer(append(header[:], []byte("short")...))
	_, err := ReadFrame(buf, 0)
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}

func TestMultipleFramesOnSameStream(t *testing.T) {
	var buf bytes.Buffer
	msgs := []sample{
		{Action: "ping", RequestID: "1"},
		{Action: "status", RequestID: "2"},
		{Action: "unload_model", RequestID: "3"},
	}
	for _, m := range msgs {
		if err := WriteMessage(&buf, 0, m); err != nil {
			t.Fatalf("write message: %v", err)
		}
	}
	for _, want := range msgs {
		var got sample
		if err := ReadMessage(&buf, 0, &got); err != nil {
			t.Fatalf("read message: %v", err)
		}
		if got != want {
			t.Fatalf("frame mismatch: got %+v, want %+v", got, want)
		}
	}
}
