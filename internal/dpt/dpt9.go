package dpt

import (
	"fmt"
	"math"
	"strconv"
)

// ─── DPT9 (2-byte Float) ────────────────────────────────────────
//
// Format: MEEEEMMM MMMMMMMM
//   M = sign (bit 15)
//   E = exponent, 4 bits (0-15)
//   M = mantissa, 11 bits; negative values are stored as the 11-bit
//       two's complement of the mantissa
//
// Value = 0.01 * mantissa * 2^exponent

const (
	dpt9MantissaMask = 0x07FF
	dpt9MantissaMax  = 2047
	dpt9MantissaMin  = -2048
	dpt9MaxExponent  = 15
	dpt9MinExponent  = -15

	// dpt9Precision is the number of significant digits kept on decode.
	dpt9Precision = 15
)

// EncodeDPT9 encodes v as a 2-byte KNX float.
//
// The search exponent e starts at the frexp exponent of v and walks down,
// so the field exponent written to the frame rises from 0. In
// FloatCorrected mode the first field exponent whose mantissa, rounded half
// away from zero, fits in (-2048, 2047) wins. In FloatCompat mode only
// field exponent 0 is tried and the mantissa is truncated, so only values
// with |100*v| < 2047 encode.
func EncodeDPT9(v float64, mode FloatMode) ([]byte, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %g", ErrNonFiniteValue, v)
	}
	if v == 0 {
		return []byte{0x00, 0x00}, nil
	}

	frac, exp := math.Frexp(v)
	for e := exp; e >= dpt9MinExponent && exp-e <= dpt9MaxExponent; e-- {
		candidate := math.Ldexp(100*frac, e) //nolint:mnd // value is stored in hundredths

		var mant float64
		var ok bool
		if mode == FloatCompat {
			mant = math.Trunc(candidate)
			ok = candidate > dpt9MantissaMin && candidate < dpt9MantissaMax
		} else {
			mant = math.Round(candidate)
			ok = mant > dpt9MantissaMin && mant < dpt9MantissaMax
		}

		if ok {
			return packDPT9(int(mant), exp-e), nil
		}
		if mode == FloatCompat {
			break
		}
	}

	return nil, fmt.Errorf("%w: %g", ErrNoSuitableExponent, v)
}

// packDPT9 packs a mantissa in (-2048, 2047) and an exponent in 0..15.
func packDPT9(mant, exp int) []byte {
	var sign byte
	field := mant
	if mant < 0 {
		sign = 1
		field = ^(mant ^ dpt9MantissaMax)
	}
	field &= dpt9MantissaMask

	return []byte{
		sign<<7 | byte(exp)<<3 | byte(field>>8),
		byte(field & 0xFF),
	}
}

// DecodeDPT9 decodes a 2-byte KNX float, rounded to 15 significant digits.
func DecodeDPT9(data []byte) (float64, error) {
	if len(data) != 2 {
		return 0, fmt.Errorf("%w: DPT9 requires 2 bytes, got %d", ErrInvalidBufferLength, len(data))
	}

	sign := data[0] >> 7
	exp := int((data[0] >> 3) & 0x0F)
	mant := int(data[0]&0x07)<<8 | int(data[1])
	if sign == 1 {
		mant = ^(mant ^ dpt9MantissaMax)
	}

	v := math.Ldexp(0.01*float64(mant), exp) //nolint:mnd // hundredths
	return roundSignificant(v, dpt9Precision), nil
}

// roundSignificant rounds v to n significant decimal digits.
func roundSignificant(v float64, n int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', n, 64), 64)
	if err != nil {
		return v
	}
	return r
}

func encodeFloat16(h *Handle, v any) ([]byte, error) {
	f, err := toFloat(v)
	if err != nil {
		return nil, err
	}
	f, _, err = h.constrain(f, h.documentedRange(), false)
	if err != nil {
		return nil, err
	}
	return EncodeDPT9(f, h.opts.floatMode)
}

func decodeFloat16(_ *Handle, b []byte) (any, error) {
	return DecodeDPT9(b)
}
