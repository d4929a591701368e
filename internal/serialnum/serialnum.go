// Package serialnum codes Redux product serial numbers: a packed
// 48-bit field set (product id, revision, batch, device number,
// lifecycle flag, CRC) and its human-readable PP-R-BBBB-DDD-L-C form.
package serialnum

import "github.com/redux-robotics/reduxfifo/internal/crcutil"

// LifecycleFlag marks a unit's place in its production lifecycle.
type LifecycleFlag uint8

const (
	LifecycleMule LifecycleFlag = iota
	LifecyclePrototype
	LifecyclePreproduction
	LifecycleAlpha
	LifecycleBeta
)

// LifecycleProduction is the flag value for units actually shipped.
const LifecycleProduction LifecycleFlag = 0xf

// ProductID identifies a Redux product line.
type ProductID uint8

const (
	ProductEncoder    ProductID = 0x1 // Canandmag
	ProductGyro       ProductID = 0x2 // Canandgyro
	ProductCanAdapter ProductID = 0x3 // Canandapter
	ProductSandworm   ProductID = 0x4 // Canandcolor
	ProductNeon       ProductID = 0x5
	ProductNitrogen   ProductID = 0x6
	ProductNitro775   ProductID = 0x7
	ProductBuck       ProductID = 0x8
	ProductNitrate    ProductID = 0x9
)

// SerialNumer is a 6-byte packed serial number. Read right-to-left:
// byte 5 is product id, byte 4's low nibble is revision id, bytes
// 2-4 carry the 16-bit batch id, bytes 1-2 carry the 12-bit device
// id, byte 0's low nibble is the lifecycle flag, and byte 0's high
// nibble is the CRC.
type SerialNumer [6]byte

// New wraps a raw 6-byte serial number without validating its CRC.
func New(raw [6]byte) SerialNumer { return SerialNumer(raw) }

// Build packs the given fields into a serial number, computing and
// embedding its CRC nibble. The embedded nibble is the CRC-4/ITU "lag"
// value (one nibble-step behind the fully-folded crc), not the crc
// itself; CheckCRC's asymmetric validation accounts for this.
func Build(productID ProductID, revisionID uint8, batchID uint16, deviceID uint16, lifecycle LifecycleFlag) SerialNumer {
	var s [6]byte
	s[0] = byte(lifecycle)
	s[1] = byte(deviceID >> 4)
	s[2] = byte(deviceID<<4) | byte(batchID>>12)
	s[3] = byte(batchID >> 4)
	s[4] = byte(batchID<<4) | revisionID
	s[5] = byte(productID)

	_, lag := crcutil.CRC4ITUNibbleReverse(0, s[:])
	s[0] |= lag << 4

	return SerialNumer(s)
}

// IsZero reports whether every field is zero (an unprogrammed unit).
func (s SerialNumer) IsZero() bool {
	for _, b := range s {
		if b != 0 {
			return false
		}
	}
	return true
}

// IsUnset reports whether every byte is 0xFF (an erased unit).
func (s SerialNumer) IsUnset() bool {
	for _, b := range s {
		if b != 0xff {
			return false
		}
	}
	return true
}

func (s SerialNumer) ProductID() ProductID { return ProductID(s[5]) }
func (s SerialNumer) RevisionID() uint8    { return s[4] & 0xf }

func (s SerialNumer) BatchID() uint16 {
	return (uint16(s[2]&0xf) << 12) | (uint16(s[3]) << 4) | uint16(s[4]>>4)
}

func (s SerialNumer) DeviceID() uint16 {
	return (uint16(s[1]) << 4) | uint16(s[2]>>4)
}

func (s SerialNumer) LifecycleFlag() LifecycleFlag { return LifecycleFlag(s[0] & 0xf) }
func (s SerialNumer) CRC() uint8                   { return s[0] >> 4 }

// CheckCRC validates the serial number's CRC. Because Build embeds the
// CRC-4/ITU lag value rather than the fully-folded crc, validation
// re-runs the same fold over the whole 6 bytes (CRC field included)
// and checks that it lands on zero, rather than recomputing and
// comparing the lag.
func (s SerialNumer) CheckCRC() bool {
	crc, _ := crcutil.CRC4ITUNibbleReverse(0, s[:])
	return crc == 0
}

// IntoMsgPadded right-pads the serial number to 8 bytes for
// transmission in a CAN data frame (e.g. an arbitration Enumerate
// reply).
func (s SerialNumer) IntoMsgPadded() [8]byte {
	var out [8]byte
	copy(out[:6], s[:])
	return out
}

func toBCX(v uint8) byte {
	if v < 10 {
		return '0' + v
	}
	return 'A' + (v - 10)
}

func fromBCX(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}

// ToReadableString renders the serial number as "PP-R-BBBB-DDD-L-C" in
// uppercase hexadecimal.
func (s SerialNumer) ToReadableString() string {
	buf := make([]byte, 17)
	productID := s[5]
	buf[0] = toBCX(productID >> 4)
	buf[1] = toBCX(productID & 0xf)
	buf[2] = '-'
	buf[3] = toBCX(s.RevisionID())
	buf[4] = '-'
	batchID := s.BatchID()
	buf[5] = toBCX(uint8((batchID >> 12) & 0xf))
	buf[6] = toBCX(uint8((batchID >> 8) & 0xf))
	buf[7] = toBCX(uint8((batchID >> 4) & 0xf))
	buf[8] = toBCX(uint8(batchID & 0xf))
	buf[9] = '-'
	deviceID := s.DeviceID()
	buf[10] = toBCX(uint8((deviceID >> 8) & 0xf))
	buf[11] = toBCX(uint8((deviceID >> 4) & 0xf))
	buf[12] = toBCX(uint8(deviceID & 0xf))
	buf[13] = '-'
	buf[14] = toBCX(s[0] & 0xf)
	buf[15] = '-'
	buf[16] = toBCX(s[0] >> 4)
	return string(buf)
}

// FromReadableString parses the "PP-R-BBBB-DDD-L-C" form produced by
// ToReadableString. The fields are re-packed through Build, so the
// result's CRC nibble is always self-consistent; if allowInvalidCRC is
// false, the parsed CRC character is additionally required to match
// what Build independently computes, rejecting transcription errors.
func FromReadableString(s string, allowInvalidCRC bool) (SerialNumer, bool) {
	if len(s) < 17 {
		return SerialNumer{}, false
	}
	b := []byte(s)

	hi, ok1 := fromBCX(b[0])
	lo, ok2 := fromBCX(b[1])
	if !ok1 || !ok2 {
		return SerialNumer{}, false
	}
	productID := ProductID(hi<<4 | lo)

	revision, ok := fromBCX(b[3])
	if !ok {
		return SerialNumer{}, false
	}

	b5, ok1 := fromBCX(b[5])
	b6, ok2 := fromBCX(b[6])
	b7, ok3 := fromBCX(b[7])
	b8, ok4 := fromBCX(b[8])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return SerialNumer{}, false
	}
	batchID := uint16(b5)<<12 | uint16(b6)<<8 | uint16(b7)<<4 | uint16(b8)

	b10, ok1 := fromBCX(b[10])
	b11, ok2 := fromBCX(b[11])
	b12, ok3 := fromBCX(b[12])
	if !ok1 || !ok2 || !ok3 {
		return SerialNumer{}, false
	}
	deviceID := uint16(b10)<<8 | uint16(b11)<<4 | uint16(b12)

	lifecycleRaw, ok := fromBCX(b[14])
	if !ok {
		return SerialNumer{}, false
	}

	serial := Build(productID, revision, batchID, deviceID, LifecycleFlag(lifecycleRaw))

	crcChar, ok := fromBCX(b[16])
	if !ok {
		return SerialNumer{}, false
	}
	if serial.CRC() != crcChar && !allowInvalidCRC {
		return SerialNumer{}, false
	}
	return serial, true
}
