// Package framing implements the length-prefixed JSON wire protocol shared
// by the device-manager daemon and its client library: a 4-byte big-endian
// length prefix followed by a UTF-8 JSON body.
package framing

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrFrameTooLarge is returned when a frame's declared length exceeds the
// configured maximum, on either the read or the write side.
var ErrFrameTooLarge = errors.New("framing: frame exceeds maximum message size")

// ErrProtocol is returned for malformed frames: partial headers and bodies
// that aren't followed by a clean EOF at a frame boundary.
var ErrProtocol = errors.New("framing: malformed frame")

const headerSize = 4

// ReadMessage reads one length-prefixed JSON frame from r and unmarshals it
// into v. It returns io.EOF when the stream ends cleanly at a frame
// boundary (no partial header pending), which callers should treat as
// "connection closed", not an error.
func ReadMessage(r io.Reader, maxBytes int, v any) error {
	body, err := ReadFrame(r, maxBytes)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("framing: decode json body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r and returns its raw body
// bytes. io.EOF indicates a clean end of stream at a frame boundary.
func ReadFrame(r io.Reader, maxBytes int) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: reading frame header: %v", ErrProtocol, err)
	}

	length := int(binary.BigEndian.Uint32(header[:]))
	if maxBytes > 0 && length > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: reading frame body: %v", ErrProtocol, err)
	}
	return body, nil
}

// WriteMessage marshals v to JSON and writes it to w as one length-prefixed
// frame.
func WriteMessage(w io.Writer, maxBytes int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("framing: encode json body: %w", err)
	}
	return WriteFrame(w, maxBytes, body)
}

// WriteFrame writes body to w as one length-prefixed frame.
func WriteFrame(w io.Writer, maxBytes int, body []byte) error {
	if maxBytes > 0 && len(body) > maxBytes {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(body))
	}

	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("framing: write frame header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("framing: write frame body: %w", err)
	}
	return nil
}
