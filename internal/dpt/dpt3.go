package dpt

import "fmt"

// ─── DPT3 (4-bit Control) ───────────────────────────────────────

// Control is a 4-bit relative control value (dimming, blinds).
//
// Direction 1 means increase (or down for blinds), 0 means decrease.
// Magnitude is the step code 0-7: 0 stops, 1 is the largest step
// (100%), 7 the smallest (1.56%).
type Control struct {
	Direction uint8 `json:"direction" cbor:"direction"`
	Magnitude uint8 `json:"magnitude" cbor:"magnitude"`
}

// controlMask keeps the 3-bit step code.
const controlMask = 0x07

// EncodeDPT3 packs c into one byte: direction<<3 | magnitude&7.
func EncodeDPT3(c Control) ([]byte, error) {
	if c.Direction > 1 {
		return nil, fmt.Errorf("%w: DPT3 direction must be 0 or 1, got %d", ErrInvalidValue, c.Direction)
	}
	return []byte{c.Direction<<3 | c.Magnitude&controlMask}, nil
}

// DecodeDPT3 unpacks a single byte into a Control.
func DecodeDPT3(data []byte) (Control, error) {
	if len(data) != 1 {
		return Control{}, fmt.Errorf("%w: DPT3 requires 1 byte, got %d", ErrInvalidBufferLength, len(data))
	}
	return Control{
		Direction: (data[0] >> 3) & 0x01,
		Magnitude: data[0] & controlMask,
	}, nil
}

// encodeControl accepts Control, *Control, or a map with direction/magnitude
// (or decr_incr/data) keys, as produced by decoding JSON.
func encodeControl(_ *Handle, v any) ([]byte, error) {
	switch c := v.(type) {
	case Control:
		return EncodeDPT3(c)
	case *Control:
		if c == nil {
			return nil, fmt.Errorf("%w: DPT3 nil control", ErrInvalidValue)
		}
		return EncodeDPT3(*c)
	case map[string]any:
		ctl, err := controlFromMap(c)
		if err != nil {
			return nil, err
		}
		return EncodeDPT3(ctl)
	default:
		return nil, fmt.Errorf("%w: DPT3 expects Control, got %T", ErrInvalidValue, v)
	}
}

func decodeControl(_ *Handle, b []byte) (any, error) {
	return DecodeDPT3(b)
}

func controlFromMap(m map[string]any) (Control, error) {
	dir, err := controlField(m, "direction", "decr_incr")
	if err != nil {
		return Control{}, err
	}
	mag, err := controlField(m, "magnitude", "data")
	if err != nil {
		return Control{}, err
	}
	if dir != 0 && dir != 1 {
		return Control{}, fmt.Errorf("%w: DPT3 direction must be 0 or 1, got %g", ErrInvalidValue, dir)
	}
	if mag < 0 || mag != float64(int64(mag)) {
		return Control{}, fmt.Errorf("%w: DPT3 magnitude must be a non-negative integer, got %g", ErrInvalidValue, mag)
	}
	return Control{Direction: uint8(dir), Magnitude: uint8(int64(mag) & controlMask)}, nil
}

// controlField reads the first present key. Booleans are accepted for direction.
func controlField(m map[string]any, keys ...string) (float64, error) {
	for _, k := range keys {
		raw, ok := m[k]
		if !ok {
			continue
		}
		if b, ok := raw.(bool); ok {
			if b {
				return 1, nil
			}
			return 0, nil
		}
		f, err := toFloat(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: DPT3 field %s: %w", ErrInvalidValue, k, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: DPT3 missing field %s", ErrInvalidValue, keys[0])
}
