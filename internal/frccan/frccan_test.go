package frccan

import "testing"

func TestBuildIDRoundTrip(t *testing.T) {
	id := ID(BuildID(2, ReduxVendorID, 0x123, 0x2a))
	if id.DeviceTypeCode() != 2 {
		t.Fatalf("device type = %d", id.DeviceTypeCode())
	}
	if id.ManufacturerCode() != ReduxVendorID {
		t.Fatalf("mfg = %#x", id.ManufacturerCode())
	}
	if id.APIIndex() != 0x123 {
		t.Fatalf("api index = %#x", id.APIIndex())
	}
	if id.DeviceNumber() != 0x2a {
		t.Fatalf("device number = %#x", id.DeviceNumber())
	}
}

func TestHeartbeatSystemWatchdog(t *testing.T) {
	disabled := NewHeartbeat([8]byte{0xb8, 0x4e, 0x0e, 0xbc, 0x00, 0x00, 0x00, 0xff})
	if disabled.SystemWatchdog() {
		t.Fatal("expected watchdog false")
	}

	enabled := NewHeartbeat([8]byte{0x39, 0xc7, 0x0e, 0x7d, 0x13, 0x00, 0x00, 0xff})
	if !enabled.SystemWatchdog() {
		t.Fatal("expected watchdog true")
	}

	noWatchdog := NewHeartbeat([8]byte{0x39, 0xd7, 0x0e, 0x7d, 0x02, 0x00, 0x00, 0xff})
	if noWatchdog.SystemWatchdog() {
		t.Fatal("expected watchdog false")
	}
}

func TestDeviceFilterMaskIgnoresAPIIndexOnly(t *testing.T) {
	a := BuildID(2, 0x0e, 0x001, 5)
	b := BuildID(2, 0x0e, 0x3ff, 5)
	if a&DeviceFilterMask != b&DeviceFilterMask {
		t.Fatalf("mask should ignore api index: %#x != %#x", a&DeviceFilterMask, b&DeviceFilterMask)
	}

	c := BuildID(10, 0x0e, 0x001, 5)
	if a&DeviceFilterMask == c&DeviceFilterMask {
		t.Fatal("mask should distinguish device type")
	}
}
