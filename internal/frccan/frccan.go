// Package frccan builds and decodes FRC CAN arbitration ids (29 bits:
// device type, manufacturer, API index, device number) and the
// roboRIO heartbeat frame, per spec.md §4.1.
//
// See https://docs.wpilib.org/en/stable/docs/software/can-devices/can-addressing.html
package frccan

// ReduxVendorID is Redux Robotics' FRC manufacturer code.
const ReduxVendorID = 0x0e

// FRC device type codes relevant to this fabric; most device types
// are left to callers as raw bytes.
const (
	DeviceTypeBroadcast       = 0
	DeviceTypeMotorController = 2
	DeviceTypeMiscellaneous   = 10
	DeviceTypeFirmwareUpdate  = 31
)

// BroadcastEnumerate is the id devices reply to for bus-wide discovery.
const BroadcastEnumerate = uint32(DeviceTypeBroadcast)<<24 | uint32(ReduxVendorID)<<16

// DeviceFilterMask matches an arbitration id against a specific
// device type, manufacturer, and device number regardless of API
// index: 0x1FFF003F.
const DeviceFilterMask = 0x1f<<24 | 0xff<<16 | 0x3f

// GlobalDisable is the all-zero id that disables every actuator on
// the bus.
const GlobalDisable = 0

// BuildID packs a 29-bit FRC CAN arbitration id from its four fields.
// No range checks are performed; apiIndex is expected to fit in 10
// bits and deviceNumber in 6.
func BuildID(deviceType uint8, mfgCode uint8, apiIndex uint16, deviceNumber uint8) uint32 {
	return uint32(deviceType)<<24 | uint32(mfgCode)<<16 | uint32(apiIndex)<<6 | uint32(deviceNumber)
}

// ID is a decoded FRC CAN arbitration id.
type ID uint32

// DeviceNumber returns the low 6 bits.
func (id ID) DeviceNumber() uint8 { return uint8(id & 0x3f) }

// APIIndex returns the middle 10 bits (message/class index).
func (id ID) APIIndex() uint16 { return uint16((id >> 6) & 0x3ff) }

// ManufacturerCode returns the raw manufacturer byte.
func (id ID) ManufacturerCode() uint8 { return uint8((id >> 16) & 0xff) }

// DeviceTypeCode returns the top 5 bits.
func (id ID) DeviceTypeCode() uint8 { return uint8((id >> 24) & 0x1f) }

// Heartbeat decodes the 8-byte roboRIO heartbeat payload broadcast at
// HEARTBEAT_ID (0x01011840). Bit offsets follow the FRC control system
// wire format exactly; data is treated big-endian as a single 64-bit
// word, matching how the roboRIO packs it.
type Heartbeat uint64

// HeartbeatID is the arbitration id of the roboRIO heartbeat broadcast.
const HeartbeatID = 0x01011840

// NewHeartbeat decodes an 8-byte big-endian payload.
func NewHeartbeat(data [8]byte) Heartbeat {
	var v uint64
	for _, b := range data {
		v = v<<8 | uint64(b)
	}
	return Heartbeat(v)
}

// Data encodes the heartbeat back to its 8-byte big-endian wire form.
func (h Heartbeat) Data() [8]byte {
	var out [8]byte
	v := uint64(h)
	for i := 7; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

func (h Heartbeat) MatchTimeSeconds() uint8  { return uint8(h) }
func (h Heartbeat) MatchNumber() uint16      { return uint16((h >> 8) & 0x3ff) }
func (h Heartbeat) ReplayNumber() uint8      { return uint8((h >> 18) & 0x3f) }
func (h Heartbeat) RedAlliance() bool        { return h&(1<<24) != 0 }
func (h Heartbeat) Enabled() bool            { return h&(1<<25) != 0 }
func (h Heartbeat) Autonomous() bool         { return h&(1<<26) != 0 }
func (h Heartbeat) TestMode() bool           { return h&(1<<27) != 0 }

// SystemWatchdog is the only flag that matters for motor safety: if
// this packet isn't seen for ~100ms, or this returns false, actuators
// are expected to disable themselves.
func (h Heartbeat) SystemWatchdog() bool { return h&(1<<28) != 0 }

func (h Heartbeat) TournamentType() uint8  { return uint8((h >> 29) & 0b111) }
func (h Heartbeat) TimeOfDayYear() uint8   { return uint8((h >> 32) & 0x3f) }
func (h Heartbeat) TimeOfDayMonth() uint8  { return uint8((h >> 38) & 0xf) }
func (h Heartbeat) TimeOfDayDay() uint8    { return uint8((h >> 42) & 0x1f) }
func (h Heartbeat) TimeOfDaySec() uint8    { return uint8((h >> 47) & 0x3f) }
func (h Heartbeat) TimeOfDayMin() uint8    { return uint8((h >> 53) & 0x3f) }
func (h Heartbeat) TimeOfDayHour() uint8   { return uint8((h >> 59) & 0x1f) }
