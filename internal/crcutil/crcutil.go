// Package crcutil implements the two CRC variants used across the
// ReduxFIFO wire formats: CRC-32/MPEG-2 for OTA chunk verification and
// CRC-4/ITU (reverse nibble order) for serial number validation.
package crcutil

// nibbleTable is the CRC-4/ITU lookup table indexed by a 4-bit value.
var nibbleTable = [16]byte{
	0x0, 0xD, 0x3, 0xE, 0x6, 0xB, 0x5, 0x8, 0xC, 0x1, 0xF, 0x2, 0xA, 0x7, 0x9, 0x4,
}

// CRC4ITUNibbleReverse computes the CRC-4/ITU checksum over data, walking
// bytes from last to first and low nibble before high nibble within each
// byte. It returns (crc, lag): crc is the final state after folding in
// the high nibble of the first byte, lag is the state after the low
// nibble only, one step behind. Serial number encoding stores lag in the
// CRC field; validation checks that crc is zero.
func CRC4ITUNibbleReverse(init byte, data []byte) (crc byte, lag byte) {
	if len(data) == 0 {
		return 0, 0
	}
	crc = init & 0xf
	lag = crc
	for i := len(data) - 1; i >= 0; i-- {
		b := data[i]
		crc = nibbleTable[crc^(b&0xf)]
		lag = crc
		crc = nibbleTable[crc^(b>>4)]
	}
	return crc, lag
}

// mpeg2Table is the half-byte CRC-32/MPEG-2 lookup table (polynomial
// 0x04C11DB7, no reflection).
var mpeg2Table = [16]uint32{
	0x00000000, 0x04C11DB7, 0x09823B6E, 0x0D4326D9, 0x130476DC, 0x17C56B6B, 0x1A864DB2, 0x1E475005,
	0x2608EDB8, 0x22C9F00F, 0x2F8AD6D6, 0x2B4BCB61, 0x350C9B64, 0x31CD86D3, 0x3C8EA00A, 0x384FBDBD,
}

// InitCRC32MPEG2 is the initial register value used by the OTA chunk
// verification CRC (all ones, per spec).
const InitCRC32MPEG2 uint32 = 0xFFFFFFFF

// CRC32MPEG2 folds data into crc using the CRC-32/MPEG-2 polynomial. The
// caller must ensure data is a multiple of 4 bytes to match hardware
// implementations exactly; use CRC32MPEG2Padded otherwise.
func CRC32MPEG2(crc uint32, data []byte) uint32 {
	for _, b := range data {
		crc ^= uint32(b) << 24
		crc = (crc << 4) ^ mpeg2Table[crc>>28]
		crc = (crc << 4) ^ mpeg2Table[crc>>28]
	}
	return crc
}

// CRC32MPEG2Padded folds data into crc, zero-padding to a 4-byte boundary
// first so the result matches hardware CRC32/MPEG-2 engines that always
// consume whole words.
func CRC32MPEG2Padded(crc uint32, data []byte) uint32 {
	align := len(data) & 0b11
	if align == 0 {
		return CRC32MPEG2(crc, data)
	}
	var pad [4]byte
	crc = CRC32MPEG2(crc, data)
	return CRC32MPEG2(crc, pad[:4-align])
}
