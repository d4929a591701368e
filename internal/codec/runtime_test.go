package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackUnpackUintRoundTrip(t *testing.T) {
	signals := []Signal{
		{Name: "sig", Type: Type{Kind: KindUint, Bits: 12, Bounds: &Bounds{Min: 0, Max: 3000}}},
		{Name: "_pad", Type: Type{Kind: KindPad, Bits: 4}},
	}

	packed, dlc, err := Pack(signals, map[string]Value{"sig": int64(2500)}, 2)
	require.NoError(t, err)
	require.Equal(t, 2, dlc)
	require.Equal(t, []byte{0xC4, 0x09}, packed)

	decoded, err := Unpack(signals, packed, dlc)
	require.NoError(t, err)
	require.Equal(t, int64(2500), decoded["sig"])
}

func TestPackOutOfBoundsRejected(t *testing.T) {
	signals := []Signal{
		{Name: "sig", Type: Type{Kind: KindUint, Bits: 12, Bounds: &Bounds{Min: 0, Max: 3000}}},
	}
	_, _, err := Pack(signals, map[string]Value{"sig": int64(4000)}, 2)
	require.Error(t, err)
	var packErr *PackError
	require.ErrorAs(t, err, &packErr)
}

func TestOptionalSignalAbsentWhenShortDLC(t *testing.T) {
	signals := []Signal{
		{Name: "always", Type: Type{Kind: KindUint, Bits: 8}},
		{Name: "maybe", Type: Type{Kind: KindUint, Bits: 8}, Optional: true},
	}

	decoded, err := Unpack(signals, []byte{0x42, 0x99}, 1)
	require.NoError(t, err)
	require.Equal(t, int64(0x42), decoded["always"])
	require.Nil(t, decoded["maybe"])

	decoded, err = Unpack(signals, []byte{0x42, 0x99}, 2)
	require.NoError(t, err)
	require.Equal(t, int64(0x99), decoded["maybe"])
}

func TestEnumRoundTripAndUndefinedValueRejected(t *testing.T) {
	enum := NewEnumDef(map[string]uint32{"Idle": 0, "Running": 1})
	signals := []Signal{
		{Name: "state", Type: Type{Kind: KindEnum, Bits: 8, Enum: enum}},
	}

	packed, dlc, err := Pack(signals, map[string]Value{"state": &EnumValue{Raw: 1}}, 1)
	require.NoError(t, err)
	decoded, err := Unpack(signals, packed, dlc)
	require.NoError(t, err)
	ev := decoded["state"].(*EnumValue)
	require.Equal(t, "Running", ev.Name)

	_, err = Unpack(signals, []byte{7}, 1)
	require.Error(t, err)
}

func TestFloat24RoundTripTruncatesLowByte(t *testing.T) {
	signals := []Signal{
		{Name: "f", Type: Type{Kind: KindFloat, Bits: 24}},
	}
	packed, dlc, err := Pack(signals, map[string]Value{"f": float64(1.5)}, 3)
	require.NoError(t, err)
	decoded, err := Unpack(signals, packed, dlc)
	require.NoError(t, err)
	require.InDelta(t, 1.5, decoded["f"].(float64), 1e-6)
}

func TestBitsetPreservesReservedBits(t *testing.T) {
	signals := []Signal{
		{Name: "flags", Type: Type{Kind: KindBitset, Bits: 8, BitsetFlags: []string{"a", "b"}}},
	}
	packed, dlc, err := Pack(signals, map[string]Value{"flags": &BitsetValue{Raw: 0xF5}}, 1)
	require.NoError(t, err)
	decoded, err := Unpack(signals, packed, dlc)
	require.NoError(t, err)
	bv := decoded["flags"].(*BitsetValue)
	require.Equal(t, uint64(0xF5), bv.Raw)
	require.True(t, bv.Flag(0))
	require.False(t, bv.Flag(1))
}
