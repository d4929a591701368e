package codec

import (
	"testing"

	"github.com/redux-robotics/reduxfifo/internal/serialnum"
)

func TestEnumerateRoundTrip(t *testing.T) {
	e := Enumerate{Serial: [6]byte{1, 2, 3, 4, 5, 6}, IsBootloader: true, Reserved: 0x1234 & 0x7fff}
	got := EnumerateFromBytes(e.ToBytes())
	if got != e {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, e)
	}
}

func TestEnumerateNotBootloader(t *testing.T) {
	e := Enumerate{Serial: [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}, IsBootloader: false, Reserved: 42}
	got := EnumerateFromBytes(e.ToBytes())
	if got.IsBootloader {
		t.Fatal("expected not bootloader")
	}
	if got.Reserved != 42 {
		t.Fatalf("reserved = %d", got.Reserved)
	}
}

func TestSetSettingRoundTrip(t *testing.T) {
	s := SetSetting{
		Index: 7,
		Value: [6]byte{1, 2, 3, 4, 5, 6},
		Flags: SettingFlags{Ephemeral: true, SynchHold: false, SynchMsgCount: 9},
	}
	got := SetSettingFromBytes(s.ToBytes())
	if got != s {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, s)
	}
}

func TestReportSettingRoundTrip(t *testing.T) {
	r := ReportSetting{
		Index: 3,
		Value: [6]byte{9, 8, 7, 6, 5, 4},
		Flags: SettingReportFlags{IsDefault: true, IsValid: true},
	}
	got := ReportSettingFromBytes(r.ToBytes())
	if got != r {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, r)
	}
}

func TestSettingCommandVariants(t *testing.T) {
	cases := []SettingCommand{
		{Kind: SettingCommandFetchSettings},
		{Kind: SettingCommandResetFactoryDefault},
		{Kind: SettingCommandFetchSettingValue, Index: 5},
	}
	for _, c := range cases {
		got := SettingCommandFromBytes(c.ToBytes())
		if got != c {
			t.Fatalf("round trip mismatch: got %+v want %+v", got, c)
		}
	}

	other := SettingCommandFromBytes([]byte{0x42})
	if other.Kind != SettingCommandOther || other.Index != 0x42 {
		t.Fatalf("unexpected decode of unknown command byte: %+v", other)
	}
}

func TestCanIDArbitrateCarriesPaddedSerial(t *testing.T) {
	serial := serialnum.New([6]byte{1, 2, 3, 4, 5, 6})
	c := CanIDArbitrate{Serial: serial}
	b := c.ToBytes()
	if b != serial.IntoMsgPadded() {
		t.Fatalf("expected padded serial %v, got %v", serial.IntoMsgPadded(), b)
	}

	got := CanIDArbitrateFromBytes(b)
	if got.Serial != serial {
		t.Fatalf("round trip mismatch: got %+v want %+v", got.Serial, serial)
	}
}
