package location

import "fmt"

// Bit groups shared by the three packed words. Each word takes the high
// group of one field, the middle group of the next and the low byte of the
// last.
const (
	highMask uint32 = 0x7FF00000
	midMask  uint32 = 0x000FFF00
	lowMask  uint32 = 0x000000FF
)

// The multiplier is odd, so it is invertible modulo 2^31. The product is
// reduced by masking to 31 bits.
const (
	oPrime      uint64 = 2029790617
	oModInverse uint64 = 633691817
	oRandom     uint32 = 1825599279
	oMask       uint64 = 0x7FFFFFFF
)

const hexDigits = "0123456789ABCDEF"

func pack(high, mid, low uint32) uint32 {
	return high&highMask | mid&midMask | low&lowMask
}

func obfuscate(n uint32) uint32 {
	return uint32((uint64(n)*oPrime)&oMask) ^ oRandom
}

func deobfuscate(n uint32) uint32 {
	return uint32((uint64(n^oRandom) * oModInverse) & oMask)
}

func fromHex(s string, off int) (byte, error) {
	c := s[off]
	switch {
	case '0' <= c && c <= '9':
		return c - '0', nil
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, nil
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, nil
	}
	return 0, fmt.Errorf("%w: 0x%02x at offset %d", ErrInvalidCharacter, c, off)
}
