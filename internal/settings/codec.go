package settings

import (
	"fmt"
	"math"
	"strconv"
)

type codec interface {
	serialize(v float64) (string, error)
	deserialize(s string) (float64, error)
}

func checkInt(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return fmt.Errorf("%w: got %v", ErrNotInteger, v)
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return fmt.Errorf("%w: got %v", ErrOutOfRange, v)
	}
	return nil
}

type intCodec struct{}

func (intCodec) serialize(v float64) (string, error) {
	if err := checkInt(v); err != nil {
		return "", err
	}
	return strconv.FormatInt(int64(v), 10), nil
}

func (intCodec) deserialize(s string) (float64, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return float64(n), nil
}

// boundedIntCodec is an intCodec limited to [lo, hi].
type boundedIntCodec struct {
	lo, hi float64
}

func (c boundedIntCodec) serialize(v float64) (string, error) {
	if err := checkInt(v); err != nil {
		return "", err
	}
	if v < c.lo || v > c.hi {
		return "", fmt.Errorf("%w: expected [%v, %v], got %v", ErrOutOfRange, c.lo, c.hi, v)
	}
	return strconv.FormatInt(int64(v), 10), nil
}

func (c boundedIntCodec) deserialize(s string) (float64, error) {
	v, err := intCodec{}.deserialize(s)
	if err != nil {
		return 0, err
	}
	if v < c.lo || v > c.hi {
		return 0, fmt.Errorf("%w: expected [%v, %v], got %v", ErrOutOfRange, c.lo, c.hi, v)
	}
	return v, nil
}

// octetCodec stores a value in [0, 255] as two lower-case hex digits.
type octetCodec struct{}

func (octetCodec) serialize(v float64) (string, error) {
	if err := checkInt(v); err != nil {
		return "", err
	}
	if v < 0 || v > 255 {
		return "", fmt.Errorf("%w: expected [0, 255], got %v", ErrOutOfRange, v)
	}
	return fmt.Sprintf("%02x", int(v)), nil
}

func (octetCodec) deserialize(s string) (float64, error) {
	n, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, err
	}
	return float64(n), nil
}

type floatCodec struct{}

func (floatCodec) serialize(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("%w: got %v", ErrOutOfRange, v)
	}
	return strconv.FormatFloat(v, 'g', -1, 64), nil
}

func (floatCodec) deserialize(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
