package handlers

import "github.com/ferro-labs/hailo-devmgr/internal/tensor"

// float32PayloadB64 base64-encodes a flat float32 slice the way
// tensor.Encode would, for handlers that build a tensor response map
// directly instead of returning a tensor.Payload struct.
func float32PayloadB64(values []float32) string {
	arr := tensor.ArrayFromFloat32([]int{len(values)}, values)
	payload, err := tensor.Encode(arr)
	if err != nil {
		// values always matches its own declared length; Encode cannot fail here.
		panic(err)
	}
	return payload.DataB64
}
