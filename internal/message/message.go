// Package message defines the in-memory CAN frame representation
// shared by every backend, the session fabric, the codec, and the OTA
// uploader.
package message

const (
	// MaxDataSize is the largest payload a Message can carry (CAN FD).
	MaxDataSize = 64

	// arbitrationIDMask isolates the 29-bit arbitration id from the
	// upper 3 flag bits packed into Message.ID.
	arbitrationIDMask = 0x1FFF_FFFF

	idFlagErr    uint32 = 0x2000_0000
	idFlagShort  uint32 = 0x4000_0000 // set => 11-bit (standard) id, not extended
	idFlagRTR    uint32 = 0x8000_0000
)

// Frame-level flag bits, distinct from the id flag bits above.
const (
	FlagNoBRS         byte = 0x1
	FlagNoFD          byte = 0x2
	FlagDeviceAddress byte = 0x4
	FlagTxEcho        byte = 0x8
)

// IDBuilder constructs a packed Message.ID: a 29-bit arbitration id in
// the low bits plus err/short/rtr flags in the top three bits.
type IDBuilder struct {
	raw uint32
}

// NewIDBuilder starts a builder from an existing packed id (e.g. to
// flip one flag while preserving the rest), or from a bare arbitration
// id with no flags set.
func NewIDBuilder(raw uint32) IDBuilder {
	return IDBuilder{raw: raw}
}

func (b IDBuilder) setFlag(flag uint32, on bool) IDBuilder {
	if on {
		b.raw |= flag
	} else {
		b.raw &^= flag
	}
	return b
}

// Err sets or clears the error-frame flag.
func (b IDBuilder) Err(v bool) IDBuilder { return b.setFlag(idFlagErr, v) }

// ShortID sets or clears the 11-bit (standard) id flag.
func (b IDBuilder) ShortID(v bool) IDBuilder { return b.setFlag(idFlagShort, v) }

// RTR sets or clears the remote-transmission-request flag.
func (b IDBuilder) RTR(v bool) IDBuilder { return b.setFlag(idFlagRTR, v) }

// Build returns the packed id.
func (b IDBuilder) Build() uint32 { return b.raw }

// Message is a single CAN frame as carried through the fabric.
type Message struct {
	// ID packs a 29-bit arbitration id plus err/short/rtr flag bits;
	// use ArbitrationID to read only the id portion.
	ID uint32
	// BusID is the logical bus index, not a physical channel.
	BusID uint16
	// Flags holds FlagNoBRS/FlagNoFD/FlagDeviceAddress/FlagTxEcho.
	Flags byte
	// DataSize is the number of valid bytes in Data (<= MaxDataSize;
	// classic CAN buses reject > 8).
	DataSize byte
	// Timestamp is microseconds in the fabric timebase.
	Timestamp uint64
	// Data is the frame payload; only Data[:DataSize] is defined.
	Data [MaxDataSize]byte
}

// NewWithData builds a Message carrying data, setting DataSize from
// len(data) (capped at MaxDataSize).
func NewWithData(id uint32, data []byte) Message {
	var m Message
	m.ID = id
	n := len(data)
	if n > MaxDataSize {
		n = MaxDataSize
	}
	m.DataSize = byte(n)
	copy(m.Data[:n], data[:n])
	return m
}

// ArbitrationID returns the 29-bit arbitration id with flag bits
// stripped. Invariant: value <= 0x1FFF_FFFF; for 11-bit ids, value <= 0x7FF.
func (m *Message) ArbitrationID() uint32 { return m.ID & arbitrationIDMask }

// RTR reports whether the remote-transmission-request flag is set.
func (m *Message) RTR() bool { return m.ID&idFlagRTR != 0 }

// Err reports whether this is an error frame.
func (m *Message) Err() bool { return m.ID&idFlagErr != 0 }

// ShortID reports whether the arbitration id is an 11-bit standard id
// rather than a 29-bit extended id.
func (m *Message) ShortID() bool { return m.ID&idFlagShort != 0 }

// NoBRS reports whether a CAN FD frame did not use bit-rate switching.
func (m *Message) NoBRS() bool { return m.Flags&FlagNoBRS != 0 }

// NoFD reports whether this frame was received as classic CAN on an
// FD-capable bus.
func (m *Message) NoFD() bool { return m.Flags&FlagNoFD != 0 }

// Device reports whether this is a device-addressed (vs. broadcast)
// frame, used by the firmware-update protocol's device-type-31 ids.
func (m *Message) Device() bool { return m.Flags&FlagDeviceAddress != 0 }

// Tx reports whether this frame is a transmit echo rather than a
// genuinely received frame.
func (m *Message) Tx() bool { return m.Flags&FlagTxEcho != 0 }

// DataSlice returns the defined portion of Data.
func (m *Message) DataSlice() []byte { return m.Data[:m.DataSize] }

// SessionHandle packs a bus id and a per-bus session id into a single
// opaque value suitable for passing across a narrow API boundary.
type SessionHandle uint64

// NewSessionHandle packs busID and sessionID.
func NewSessionHandle(busID uint16, sessionID uint32) SessionHandle {
	return SessionHandle(uint64(busID)<<32 | uint64(sessionID))
}

// BusID extracts the bus id from a packed handle.
func (h SessionHandle) BusID() uint16 { return uint16(uint64(h) >> 32) }

// SessionID extracts the session id from a packed handle.
func (h SessionHandle) SessionID() uint32 { return uint32(h) }
