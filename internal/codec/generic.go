package codec

import "github.com/redux-robotics/reduxfifo/internal/serialnum"

// Generic cross-device messages: fixed 8-byte layouts any device
// speaks regardless of its typed message enum, grounded on the
// generic/{enumerate,report_setting,set_setting,setting_command,buf_msg}
// family. Unlike a device's declared messages (schema.go), these have
// no Signal table — their bit layouts are small and stable enough to
// hand-encode directly.

// Message indices for the nine generic messages, shared by every
// device regardless of its typed enum.
const (
	MsgIndexEnumerate      = 0
	MsgIndexReportSetting  = 1
	MsgIndexSetSetting     = 2
	MsgIndexSettingCommand = 3
	MsgIndexBufMsg         = 4
	MsgIndexCanIDArbitrate = 5
	MsgIndexOtaToDevice    = 6
	MsgIndexOtaToHost      = 7
	MsgIndexOtaData        = 8
)

// Enumerate is the bus-wide discovery reply: a device's 48-bit serial
// number plus a bootloader flag.
type Enumerate struct {
	Serial       [6]byte
	IsBootloader bool
	Reserved     uint16
}

// EnumerateFromBytes decodes an 8-byte Enumerate payload.
func EnumerateFromBytes(b [8]byte) Enumerate {
	return Enumerate{
		Serial:       [6]byte{b[0], b[1], b[2], b[3], b[4], b[5]},
		IsBootloader: b[6]&0b1 != 0,
		Reserved:     uint16(b[6]&0xfe)>>1 | uint16(b[7])<<7,
	}
}

// ToBytes encodes an Enumerate back to its wire form.
func (e Enumerate) ToBytes() [8]byte {
	var out [8]byte
	copy(out[:6], e.Serial[:])
	out[6] = byte(e.Reserved<<1) | boolByte(e.IsBootloader)
	out[7] = byte(e.Reserved >> 7)
	return out
}

// SettingFlags are the flags a SetSetting write carries.
type SettingFlags struct {
	Ephemeral     bool
	SynchHold     bool
	SynchMsgCount uint8 // 4 bits
}

// SettingReportFlags are the flags a ReportSetting reply carries.
type SettingReportFlags struct {
	IsDefault bool
	IsValid   bool
}

// SetSetting is a request to write one setting's raw 6-byte value.
type SetSetting struct {
	Index uint8
	Value [6]byte
	Flags SettingFlags
}

func SetSettingFromBytes(b [8]byte) SetSetting {
	return SetSetting{
		Index: b[0],
		Value: [6]byte{b[1], b[2], b[3], b[4], b[5], b[6]},
		Flags: SettingFlags{
			Ephemeral:     b[7]&0b1 != 0,
			SynchHold:     b[7]&0b10 != 0,
			SynchMsgCount: b[7] >> 4,
		},
	}
}

func (s SetSetting) ToBytes() [8]byte {
	flags := boolByte(s.Flags.Ephemeral) | boolByte(s.Flags.SynchHold)<<1 | s.Flags.SynchMsgCount<<4
	return [8]byte{s.Index, s.Value[0], s.Value[1], s.Value[2], s.Value[3], s.Value[4], s.Value[5], flags}
}

// ReportSetting is a device's reply carrying a setting's current
// value.
type ReportSetting struct {
	Index uint8
	Value [6]byte
	Flags SettingReportFlags
}

func ReportSettingFromBytes(b [8]byte) ReportSetting {
	return ReportSetting{
		Index: b[0],
		Value: [6]byte{b[1], b[2], b[3], b[4], b[5], b[6]},
		Flags: SettingReportFlags{
			IsDefault: b[7]&0b1 != 0,
			IsValid:   b[7]&0b10 != 0,
		},
	}
}

func (r ReportSetting) ToBytes() [8]byte {
	flags := boolByte(r.Flags.IsDefault) | boolByte(r.Flags.IsValid)<<1
	return [8]byte{r.Index, r.Value[0], r.Value[1], r.Value[2], r.Value[3], r.Value[4], r.Value[5], flags}
}

// SettingCommandKind selects one of the well-known setting-management
// commands; any other byte value is carried verbatim as Other.
type SettingCommandKind uint8

const (
	SettingCommandFetchSettings SettingCommandKind = iota
	SettingCommandResetFactoryDefault
	SettingCommandFetchSettingValue
	SettingCommandOther
)

// SettingCommand is a one-or-two-byte request: fetch every setting,
// reset to factory defaults, or fetch one setting's value by index.
type SettingCommand struct {
	Kind  SettingCommandKind
	Index uint8 // only meaningful for SettingCommandFetchSettingValue
}

// SettingCommandFromBytes decodes a command payload of at least 1 byte.
func SettingCommandFromBytes(data []byte) SettingCommand {
	switch data[0] {
	case 0:
		return SettingCommand{Kind: SettingCommandFetchSettings}
	case 1:
		return SettingCommand{Kind: SettingCommandResetFactoryDefault}
	case 2:
		idx := uint8(0)
		if len(data) > 1 {
			idx = data[1]
		}
		return SettingCommand{Kind: SettingCommandFetchSettingValue, Index: idx}
	default:
		return SettingCommand{Kind: SettingCommandOther, Index: data[0]}
	}
}

// ToBytes returns the command's minimal wire payload.
func (c SettingCommand) ToBytes() []byte {
	switch c.Kind {
	case SettingCommandFetchSettings:
		return []byte{0}
	case SettingCommandResetFactoryDefault:
		return []byte{1}
	case SettingCommandFetchSettingValue:
		return []byte{2, c.Index}
	default:
		return []byte{c.Index}
	}
}

// BufMsg is a generic 8-byte catch-all payload, used for any message
// this package has no declared layout for (e.g. a device's typed
// messages when accessed generically, or the three OTA transfer
// messages below).
type BufMsg [8]byte

// CanIDArbitrate carries the serial number a device at a conflicting
// arbitration id should adopt, sent by a host to settle a device-id
// collision on the bus (see serialnum.SerialNumer.IntoMsgPadded).
type CanIDArbitrate struct {
	Serial serialnum.SerialNumer
}

func CanIDArbitrateFromBytes(b [8]byte) CanIDArbitrate {
	return CanIDArbitrate{Serial: serialnum.New([6]byte{b[0], b[1], b[2], b[3], b[4], b[5]})}
}

func (c CanIDArbitrate) ToBytes() [8]byte {
	return c.Serial.IntoMsgPadded()
}

// OtaDirection distinguishes the three OTA arbitration ids that all
// share BufMsg's wire layout: a host-to-device chunk write, a
// device-to-host status/ack, and the bulk data-transfer id used by the
// v2 chunked upload.
type OtaDirection int

const (
	OtaToDevice OtaDirection = iota
	OtaToHost
	OtaData
)

// MsgIndexFor returns the generic message index that carries dir.
func (dir OtaDirection) MsgIndexFor() uint16 {
	switch dir {
	case OtaToDevice:
		return MsgIndexOtaToDevice
	case OtaToHost:
		return MsgIndexOtaToHost
	default:
		return MsgIndexOtaData
	}
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
