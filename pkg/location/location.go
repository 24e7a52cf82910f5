// Package location holds the normalized viewer position and the compact,
// shareable token it serializes to.
package location

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// GridSize is the number of quantization steps along each world axis.
	GridSize = 2048000

	// MaxZoom is the largest zoom level a Location may carry.
	MaxZoom = 22

	// TokenLength is the length of an encoded token in characters.
	TokenLength = 24

	zoomSteps = math.MaxInt32
)

var (
	ErrInvalidLength    = errors.New("compact location has invalid length")
	ErrInvalidCharacter = errors.New("compact location has invalid character")
)

// Location is a normalized world position. X and Y lie in [0, 1] and Z is a
// zoom level in [0, MaxZoom].
type Location struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quantize returns the location as it survives an Encode/Decode round trip.
func Quantize(l Location) Location {
	xi, yi, zi := quantize(l)
	return dequantize(xi, yi, zi)
}

func quantize(l Location) (xi, yi, zi uint32) {
	xi = uint32(math.Floor(clamp(l.X, 1) * GridSize))
	yi = uint32(math.Floor(clamp(l.Y, 1) * GridSize))
	zi = uint32(math.Round(clamp(l.Z, MaxZoom) / MaxZoom * zoomSteps))
	return xi, yi, zi
}

func dequantize(xi, yi, zi uint32) Location {
	return Location{
		X: float64(xi) / GridSize,
		Y: float64(yi) / GridSize,
		Z: float64(zi) * MaxZoom / zoomSteps,
	}
}

func clamp(n, hi float64) float64 {
	return math.Min(math.Max(n, 0), hi)
}

// Encode packs l into a TokenLength character hexadecimal token.
func Encode(l Location) string {
	xi, yi, zi := quantize(l)

	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:], obfuscate(pack(xi, yi, zi)))
	binary.LittleEndian.PutUint32(buf[4:], obfuscate(pack(yi, zi, xi)))
	binary.LittleEndian.PutUint32(buf[8:], obfuscate(pack(zi, xi, yi)))

	out := make([]byte, TokenLength)
	for i, b := range buf {
		out[i<<1] = hexDigits[b>>4]
		out[i<<1|1] = hexDigits[b&0xF]
	}
	return string(out)
}

// Decode reverses Encode. Upper and lower case hex digits are accepted.
func Decode(token string) (Location, error) {
	if len(token) != TokenLength {
		return Location{}, fmt.Errorf("%w: expected %d, got %d", ErrInvalidLength, TokenLength, len(token))
	}

	var buf [12]byte
	for i := range buf {
		hi, err := fromHex(token, i<<1)
		if err != nil {
			return Location{}, err
		}
		lo, err := fromHex(token, i<<1|1)
		if err != nil {
			return Location{}, err
		}
		buf[i] = hi<<4 | lo
	}

	n1 := deobfuscate(binary.LittleEndian.Uint32(buf[0:]))
	n2 := deobfuscate(binary.LittleEndian.Uint32(buf[4:]))
	n3 := deobfuscate(binary.LittleEndian.Uint32(buf[8:]))

	xi := n1&highMask | n2&lowMask | n3&midMask
	yi := n1&midMask | n2&highMask | n3&lowMask
	zi := n1&lowMask | n2&midMask | n3&highMask

	return dequantize(xi, yi, zi), nil
}
