// Package device models exclusive access to the single neural accelerator
// the daemon manages. It is intentionally simulated: no real hardware IO,
// no accelerator math — it exists to give the worker a resource with
// acquire/identify/release semantics to serialize around, the same
// contract hailo_platform.Device/VDevice present to the original daemon.
package device

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Info identifies a scanned device before it is opened.
type Info struct {
	DeviceID string
}

var scanSeq atomic.Int64

// Scan enumerates attached accelerators. A real driver would walk /dev or
// call into a vendor SDK; this always returns exactly one simulated device.
// The "no devices found" failure path (spec.md's startup fatal-error case)
// is reachable only by passing an empty list to Open.
func Scan() ([]Info, error) {
	id := scanSeq.Add(1)
	return []Info{{DeviceID: fmt.Sprintf("hailo-sim-%d", id)}}, nil
}

// Device represents an opened, exclusively-held accelerator handle.
type Device struct {
	DeviceID string
	released bool
}

// Open acquires exclusive ownership of info. Fails if no device was found
// during Scan.
func Open(devices []Info) (*Device, error) {
	if len(devices) == 0 {
		return nil, fmt.Errorf("no devices found")
	}
	return &Device{DeviceID: devices[0].DeviceID}, nil
}

// Release returns the device handle. Safe to call multiple times.
func (d *Device) Release() error {
	if d == nil || d.released {
		return nil
	}
	d.released = true
	return nil
}

// BoardInfo is returned by Identify.
type BoardInfo struct {
	Architecture    string
	FirmwareVersion string
}

// Identify reports static board identity information.
func (d *Device) Identify() (BoardInfo, error) {
	if d == nil || d.released {
		return BoardInfo{}, fmt.Errorf("device not initialized")
	}
	return BoardInfo{Architecture: "hailo10h-sim", FirmwareVersion: "sim-1.0.0"}, nil
}

// Temperature reports the current chip temperature, in Celsius. The value
// is not rounded here; the device_status payload rounds it to one decimal
// place.
func (d *Device) Temperature() (float64, error) {
	if d == nil || d.released {
		return 0, fmt.Errorf("device not initialized")
	}
	// Simulated: a stable reading with a small time-based wobble so repeated
	// status polls aren't perfectly identical, without needing real sensors.
	base := 42.0
	wobble := float64(time.Now().UnixNano()%7) * 0.1
	return base + wobble, nil
}

// Context represents the shared VDevice-equivalent context that handlers
// load models against. Exactly one Context exists per running daemon.
type Context struct {
	GroupID int
}

// NewContext creates the shared device context used by all loaded models.
// groupID mirrors HAILO_DEVICE_GROUP_ID / SHARED_VDEVICE_GROUP_ID from the
// original: -1 means "no explicit group".
func NewContext(groupID int) (*Context, error) {
	return &Context{GroupID: groupID}, nil
}

// Release tears down the shared device context. Safe to call multiple
// times.
func (c *Context) Release() error {
	return nil
}
