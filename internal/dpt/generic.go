package dpt

import (
	"fmt"
	"math"
)

// scalarMapping returns the linear coefficients that map raw values onto a
// subtype's scalar range: value = a*raw + b.
func scalarMapping(scalar, raw Range) (a, b float64) {
	a = scalar.Span() / raw.Span()
	b = scalar.Min - raw.Min
	return a, b
}

// encodeGeneric writes a number as a big-endian integer of ByteLength bytes,
// remapping through the bound subtype's scalar range when it has one.
func encodeGeneric(h *Handle, v any) ([]byte, error) {
	f, err := toFloat(v)
	if err != nil {
		return nil, err
	}

	raw := h.Bounds()
	target := f

	if h.Subtype != nil && h.Subtype.ScalarRange != nil {
		scalar := *h.Subtype.ScalarRange
		val, inRange, err := h.constrain(f, scalar, true)
		if err != nil {
			return nil, err
		}
		target = val
		if inRange {
			a, b := scalarMapping(scalar, raw)
			target = (val - b) / a
		}
	} else {
		val, _, err := h.constrain(f, h.documentedRange(), false)
		if err != nil {
			return nil, err
		}
		target = val
	}

	return putInt(roundHalfUp(target), h.ByteLength(), h.Signedness, h.ID)
}

// decodeGeneric reads a big-endian integer of 1 to 6 bytes.
// It returns float64 when a scalar range is bound, int64 otherwise.
func decodeGeneric(h *Handle, b []byte) (any, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: %s got empty buffer", ErrInvalidBufferLength, h)
	}
	if len(b) > maxGenericBytes {
		return nil, fmt.Errorf("%w: %s got %d bytes, max %d", ErrBufferTooLong, h, len(b), maxGenericBytes)
	}

	raw := getInt(b, h.Signedness)

	if h.Subtype != nil && h.Subtype.ScalarRange != nil {
		a, off := scalarMapping(*h.Subtype.ScalarRange, h.Bounds())
		return roundHalfUp(a*float64(raw) + off), nil
	}
	return raw, nil
}

// putInt writes x big-endian into n bytes, two's complement when signed.
func putInt(x float64, n int, s Signedness, id string) ([]byte, error) {
	bits := uint(n * 8) //nolint:mnd // bytes to bits
	var lo, hi float64
	if s == Signed {
		lo = -math.Ldexp(1, int(bits)-1)
		hi = math.Ldexp(1, int(bits)-1) - 1
	} else {
		hi = math.Ldexp(1, int(bits)) - 1
	}
	if x < lo || x > hi {
		return nil, fmt.Errorf("%w: %s raw value %g does not fit in %d bytes", ErrValueOutOfRange, id, x, n)
	}

	u := uint64(int64(x))
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(u)
		u >>= 8
	}
	return out, nil
}

// getInt reads b big-endian, sign-extending when signed.
func getInt(b []byte, s Signedness) int64 {
	var u uint64
	for _, c := range b {
		u = u<<8 | uint64(c)
	}
	if s == Signed {
		shift := uint(64 - len(b)*8) //nolint:mnd // sign extension
		return int64(u<<shift) >> shift
	}
	return int64(u)
}
