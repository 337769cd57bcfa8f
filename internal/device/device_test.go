package device

import "testing"

func TestScanOpenReleaseLifecycle(t *testing.T) {
	devices, err := Scan()
	if err != nil || len(devices) == 0 {
		t.Fatalf("expected at least one scanned device, got %v err=%v", devices, err)
	}

	dev, err := Open(devices)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if dev.DeviceID == "" {
		t.Fatalf("expected a non-empty device id")
	}

	if _, err := dev.Identify(); err != nil {
		t.Fatalf("identify before release: %v", err)
	}
	if _, err := dev.Temperature(); err != nil {
		t.Fatalf("temperature before release: %v", err)
	}

	if err := dev.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := dev.Release(); err != nil {
		t.Fatalf("second release should be a no-op, got %v", err)
	}

	if _, err := dev.Identify(); err == nil {
		t.Fatalf("expected identify to fail after release")
	}
	if _, err := dev.Temperature(); err == nil {
		t.Fatalf("expected temperature to fail after release")
	}
}

func TestOpenFailsWithNoDevices(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Fatalf("expected open to fail with no scanned devices")
	}
}

func TestNewContextAndRelease(t *testing.T) {
	ctx, err := NewContext(-1)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	if ctx.GroupID != -1 {
		t.Fatalf("unexpected group id: %d", ctx.GroupID)
	}
	if err := ctx.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
}
