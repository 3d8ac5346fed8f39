package dpt

import (
	"encoding/json"
	"fmt"
	"math"
)

// Handle is a resolved datapoint type ready to encode and decode.
//
// It carries its own copy of the descriptor, so callers may inspect or
// modify it freely without affecting the registry or other handles.
type Handle struct {
	Descriptor

	// SubtypeCode is the bound subtype ("001"), empty when none is bound.
	SubtypeCode string

	// Subtype is the bound subtype, nil when none is bound.
	Subtype *Subtype

	encode encodeFunc
	decode decodeFunc
	opts   options
}

// String returns the full identifier, e.g. "DPT9.001".
func (h *Handle) String() string {
	if h == nil {
		return ""
	}
	if h.SubtypeCode == "" {
		return h.ID
	}
	return h.ID + "." + h.SubtypeCode
}

// Unit returns the bound subtype's unit, if any.
func (h *Handle) Unit() string {
	if h == nil || h.Subtype == nil {
		return ""
	}
	return h.Subtype.Unit
}

// Encode converts v to its wire bytes.
func (h *Handle) Encode(v any) ([]byte, error) {
	if h == nil || h.encode == nil {
		return nil, ErrUnboundType
	}
	return h.encode(h, v)
}

// Decode converts wire bytes to a value.
func (h *Handle) Decode(b []byte) (any, error) {
	if h == nil || h.decode == nil {
		return nil, ErrUnboundType
	}
	return h.decode(h, b)
}

// documentedRange returns the bound subtype's Range, else the descriptor bounds.
func (h *Handle) documentedRange() Range {
	if h.Subtype != nil && h.Subtype.Range != nil {
		return *h.Subtype.Range
	}
	return h.Bounds()
}

// constrain applies the range policy to v.
//
// It returns the (possibly clamped) value and whether that value lies inside
// bounds. Under the lenient policy an out-of-range value comes back unchanged
// with inRange false.
func (h *Handle) constrain(v float64, bounds Range, scalar bool) (float64, bool, error) {
	if bounds.Contains(v) {
		return v, true, nil
	}

	h.opts.report(Diagnostic{
		TypeID:      h.ID,
		SubtypeCode: h.SubtypeCode,
		Value:       v,
		Bounds:      bounds,
		Scalar:      scalar,
		Policy:      h.opts.rangePolicy,
	})

	switch h.opts.rangePolicy {
	case RangeClamp:
		return bounds.Clamp(v), true, nil
	case RangeReject:
		return 0, false, fmt.Errorf("%w: %s value %g outside %s", ErrValueOutOfRange, h, v, bounds)
	default:
		return v, false, nil
	}
}

// toFloat coerces Go numerics to float64.
func toFloat(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, n)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: expected number, got %T", ErrInvalidValue, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %g", ErrNonFiniteValue, f)
	}
	return f, nil
}

// roundHalfUp rounds to the nearest integer, halves towards +Inf.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5) //nolint:mnd // half
}
