// Package codec implements the declarative CAN message and settings
// schema described by spec.md §3/§4.6: types, signals, messages, and
// settings compiled into bit-precise pack/unpack operations.
//
// Per-device TOML schemas are the input format in the original
// implementation but are explicitly out of scope here (spec.md §1:
// "format summarized, not enumerated"); this package instead exposes
// the schema as a Go data structure a device package builds directly
// — the same role the macro-generated Rust code played, minus the
// macro. This keeps codec-time behavior (bit layout, bounds, optional
// presence) fully specified while leaving schema authoring to whatever
// builds a Device value.
package codec

import "fmt"

// Kind identifies a signal's underlying representation.
type Kind int

const (
	KindUint Kind = iota
	KindSint
	KindFloat
	KindBuf
	KindPad
	KindBool
	KindEnum
	KindBitset
	KindStruct
)

// Bounds declares an inclusive numeric range a signal value must
// satisfy before packing. Settings always bounds-check even when Bounds
// is absent from the schema itself is not representable here — callers
// modeling a setting should always supply Bounds.
type Bounds struct {
	Min, Max int64
}

// EnumDef maps raw integer values to names for an enum-typed signal.
// Unpack rejects any raw value with no matching entry.
type EnumDef struct {
	ValueToName map[uint32]string
	NameToValue map[string]uint32
}

// NewEnumDef builds both directions of the enum value/name mapping.
func NewEnumDef(values map[string]uint32) *EnumDef {
	e := &EnumDef{
		ValueToName: make(map[uint32]string, len(values)),
		NameToValue: values,
	}
	for name, v := range values {
		e.ValueToName[v] = name
	}
	return e
}

// Type describes one signal's representation: width, numeric bounds,
// and kind-specific metadata (enum values, bitset flag names, or
// nested struct fields).
type Type struct {
	Kind Kind
	Bits uint8

	Bounds      *Bounds
	Default     int64
	AllowNaNInf bool // float types only

	Enum *EnumDef // KindEnum

	BitsetFlags []string // KindBitset, LSB first

	StructFields []Signal // KindStruct

	// Factor/Offset are UI-facing scale metadata only; per the design
	// notes resolution in SPEC_FULL.md, codec pack/unpack never applies
	// them.
	Factor [2]int64
	Offset int64
}

// Signal is one named field within a message, setting, or struct.
type Signal struct {
	Name     string
	Type     Type
	Optional bool
	Comment  string
}

// Message describes one CAN message's wire layout.
type Message struct {
	ID        uint8
	Name      string
	MinLength uint8
	MaxLength uint8
	Signals   []Signal
}

// Setting describes one persistent device parameter.
type Setting struct {
	ID             uint8
	Name           string
	Type           Type
	Readable       bool
	Writable       bool
	ResetOnDefault bool
}

// Device is a compiled per-device schema: messages and settings keyed
// by their wire id, ready for Pack/Unpack. A device may be assembled
// from a base device's tables merged with overrides (spec.md §3's
// inheritance rule); this package leaves that merge to the caller
// constructing the Device value and only specifies the operations over
// the result.
type Device struct {
	Name     string
	DevType  uint8
	DevClass uint8
	Messages map[uint8]*Message
	Settings map[uint8]*Setting
}

// NewDevice creates an empty device schema ready to have messages and
// settings added.
func NewDevice(name string, devType, devClass uint8) *Device {
	return &Device{
		Name:     name,
		DevType:  devType,
		DevClass: devClass,
		Messages: make(map[uint8]*Message),
		Settings: make(map[uint8]*Setting),
	}
}

// AddMessage registers a message definition under its wire id.
func (d *Device) AddMessage(m *Message) { d.Messages[m.ID] = m }

// AddSetting registers a setting definition under its wire id.
func (d *Device) AddSetting(s *Setting) { d.Settings[s.ID] = s }

// Message looks up a message by wire id, returning an error wrapping
// the index when the device does not declare it (spec.md §4.7's
// WrongMessage case).
func (d *Device) Message(id uint8) (*Message, error) {
	m, ok := d.Messages[id]
	if !ok {
		return nil, fmt.Errorf("wrong message: device %q has no message with index %d", d.Name, id)
	}
	return m, nil
}
