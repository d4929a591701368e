package serialnum

import "testing"

func TestDocExampleFieldDecode(t *testing.T) {
	s := New([6]byte{0xf4, 0x00, 0x20, 0x00, 0x02, 0x01})
	if s.ProductID() != ProductEncoder {
		t.Fatalf("product id = %#x", s.ProductID())
	}
	if s.RevisionID() != 0x2 {
		t.Fatalf("revision id = %#x", s.RevisionID())
	}
	if s.BatchID() != 0x0000 {
		t.Fatalf("batch id = %#x", s.BatchID())
	}
	if s.DeviceID() != 0x002 {
		t.Fatalf("device id = %#x", s.DeviceID())
	}
	if s.LifecycleFlag() != LifecycleFlag(0x4) {
		t.Fatalf("lifecycle flag = %#x", s.LifecycleFlag())
	}
	if s.CRC() != 0xf {
		t.Fatalf("crc = %#x", s.CRC())
	}
}

func TestBuildProducesValidCRC(t *testing.T) {
	s := Build(ProductGyro, 3, 0x1234, 0x0ab, LifecycleProduction)
	if !s.CheckCRC() {
		t.Fatalf("expected valid CRC for built serial number %x", [6]byte(s))
	}
	if s.ProductID() != ProductGyro || s.RevisionID() != 3 || s.BatchID() != 0x1234 || s.DeviceID() != 0x0ab {
		t.Fatalf("field mismatch: %+v", s)
	}
}

func TestReadableStringRoundTrip(t *testing.T) {
	s := Build(ProductSandworm, 7, 0xBEEF, 0x0cd, LifecycleBeta)
	str := s.ToReadableString()
	if len(str) != 17 {
		t.Fatalf("expected 17-char string, got %q", str)
	}

	parsed, ok := FromReadableString(str, false)
	if !ok {
		t.Fatalf("failed to parse %q", str)
	}
	if parsed != s {
		t.Fatalf("round trip mismatch: got %x want %x", [6]byte(parsed), [6]byte(s))
	}
}

func TestFromReadableStringRejectsBadCRCUnlessAllowed(t *testing.T) {
	s := Build(ProductBuck, 1, 1, 1, LifecycleAlpha)
	str := []byte(s.ToReadableString())
	// Corrupt the CRC character.
	if str[16] == '0' {
		str[16] = '1'
	} else {
		str[16] = '0'
	}

	_, ok := FromReadableString(string(str), false)
	if ok {
		t.Fatal("expected rejection of corrupted CRC")
	}

	_, ok = FromReadableString(string(str), true)
	if !ok {
		t.Fatal("expected acceptance with allowInvalidCRC")
	}
}

func TestIsZeroAndIsUnset(t *testing.T) {
	var zero SerialNumer
	if !zero.IsZero() {
		t.Fatal("expected zero value to report IsZero")
	}
	unset := SerialNumer{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	if !unset.IsUnset() {
		t.Fatal("expected all-0xff to report IsUnset")
	}
}
