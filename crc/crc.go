// Package crc implements the CRC-16/CCITT engine used by the disk
// controller: polynomial 0x1021, bits folded MSB first.
package crc

// Seed is the initial CRC register value.
const Seed = 0xFFFF

// Poly is the CCITT generator polynomial.
const Poly = 0x1021

// Update folds one bit into the CRC.
func Update(crc uint16, bit uint8) uint16 {
	if (crc^(uint16(bit&1)<<15))&0x8000 != 0 {
		return (crc << 1) ^ Poly
	}
	return crc << 1
}

// UpdateByte folds eight bits of b into the CRC, most significant first.
func UpdateByte(crc uint16, b byte) uint16 {
	for i := 7; i >= 0; i-- {
		crc = Update(crc, (b>>uint(i))&1)
	}
	return crc
}

// Block folds every byte of data into the CRC.
func Block(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc = UpdateByte(crc, b)
	}
	return crc
}

// OfByte returns the CRC of a single byte starting from Seed.
// The controller uses it to prime the register with the sync mark.
func OfByte(b byte) uint16 {
	return UpdateByte(Seed, b)
}

// Append appends a finished CRC to dst, high byte first.
func Append(dst []byte, crc uint16) []byte {
	return append(dst, byte(crc>>8), byte(crc))
}
