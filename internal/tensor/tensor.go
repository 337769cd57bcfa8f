// Package tensor implements the JSON-safe tensor representation exchanged
// over the device-manager protocol: dtype, shape, and base64-encoded
// little-endian row-major bytes. It round-trips numeric arrays without
// depending on a full ndarray library.
package tensor

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// Dtype names the supported element types, matching the strings produced by
// numpy's dtype.__str__ on the originating service side.
type Dtype string

const (
	Uint8   Dtype = "uint8"
	Int8    Dtype = "int8"
	Uint16  Dtype = "uint16"
	Int16   Dtype = "int16"
	Uint32  Dtype = "uint32"
	Int32   Dtype = "int32"
	Uint64  Dtype = "uint64"
	Int64   Dtype = "int64"
	Float32 Dtype = "float32"
	Float64 Dtype = "float64"
	Bool    Dtype = "bool"
)

func elemSize(d Dtype) (int, bool) {
	switch d {
	case Uint8, Int8, Bool:
		return 1, true
	case Uint16, Int16:
		return 2, true
	case Uint32, Int32, Float32:
		return 4, true
	case Uint64, Int64, Float64:
		return 8, true
	default:
		return 0, false
	}
}

// InvalidTensorError reports a malformed tensor payload or array: an
// unknown dtype, a missing field, or a data length that doesn't match the
// declared shape.
type InvalidTensorError struct {
	Reason string
}

func (e *InvalidTensorError) Error() string {
	return fmt.Sprintf("invalid tensor: %s", e.Reason)
}

// Array is an in-memory n-dimensional array: a dtype tag, a shape, and its
// raw bytes in little-endian row-major order.
type Array struct {
	Dtype Dtype
	Shape []int
	Data  []byte
}

// Payload is the wire representation of Array: {dtype, shape, data_b64}.
type Payload struct {
	Dtype   string `json:"dtype"`
	Shape   []int  `json:"shape"`
	DataB64 string `json:"data_b64"`
}

// Len returns the number of elements the shape describes.
func (a Array) Len() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// Encode converts an in-memory Array to its wire Payload.
func Encode(a Array) (Payload, error) {
	size, ok := elemSize(a.Dtype)
	if !ok {
		return Payload{}, &InvalidTensorError{Reason: fmt.Sprintf("unknown dtype %q", a.Dtype)}
	}
	want := a.Len() * size
	if len(a.Data) != want {
		return Payload{}, &InvalidTensorError{
			Reason: fmt.Sprintf("data length %d does not match shape %v for dtype %s (want %d)", len(a.Data), a.Shape, a.Dtype, want),
		}
	}
	return Payload{
		Dtype:   string(a.Dtype),
		Shape:   append([]int(nil), a.Shape...),
		DataB64: base64.StdEncoding.EncodeToString(a.Data),
	}, nil
}

// Decode converts a wire Payload back into an in-memory Array, validating
// dtype, shape, and byte-length consistency.
func Decode(p Payload) (Array, error) {
	if p.Dtype == "" {
		return Array{}, &InvalidTensorError{Reason: "missing dtype"}
	}
	if p.Shape == nil {
		return Array{}, &InvalidTensorError{Reason: "missing shape"}
	}
	if p.DataB64 == "" {
		return Array{}, &InvalidTensorError{Reason: "missing data_b64"}
	}

	dtype := Dtype(p.Dtype)
	size, ok := elemSize(dtype)
	if !ok {
		return Array{}, &InvalidTensorError{Reason: fmt.Sprintf("unknown dtype %q", p.Dtype)}
	}

	raw, err := base64.StdEncoding.DecodeString(p.DataB64)
	if err != nil {
		return Array{}, &InvalidTensorError{Reason: fmt.Sprintf("invalid base64 data: %v", err)}
	}

	n := 1
	for _, d := range p.Shape {
		if d < 0 {
			return Array{}, &InvalidTensorError{Reason: fmt.Sprintf("negative shape dimension %d", d)}
		}
		n *= d
	}
	want := n * size
	if len(raw) != want {
		return Array{}, &InvalidTensorError{
			Reason: fmt.Sprintf("data length %d does not match shape %v for dtype %s (want %d)", len(raw), p.Shape, p.Dtype, want),
		}
	}

	return Array{
		Dtype: dtype,
		Shape: append([]int(nil), p.Shape...),
		Data:  raw,
	}, nil
}

// Float32Slice reinterprets the array's raw bytes as a []float32. The array
// must have dtype Float32.
func (a Array) Float32Slice() ([]float32, error) {
	if a.Dtype != Float32 {
		return nil, &InvalidTensorError{Reason: fmt.Sprintf("dtype %s is not float32", a.Dtype)}
	}
	n := len(a.Data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(a.Data[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}

// ArrayFromFloat32 builds an Array with dtype Float32 from a flat slice and
// shape.
func ArrayFromFloat32(shape []int, values []float32) Array {
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:i*4+4], math.Float32bits(v))
	}
	return Array{Dtype: Float32, Shape: shape, Data: data}
}
