package dpt

import "fmt"

// ─── DPT1 (Boolean) ─────────────────────────────────────────────

// EncodeDPT1 encodes a boolean as a single byte: 0x00 or 0x01.
func EncodeDPT1(value bool) []byte {
	if value {
		return []byte{0x01}
	}
	return []byte{0x00}
}

// DecodeDPT1 decodes a single byte to a boolean. Only bit 0 is significant.
func DecodeDPT1(data []byte) (bool, error) {
	if len(data) != 1 {
		return false, fmt.Errorf("%w: DPT1 requires 1 byte, got %d", ErrInvalidBufferLength, len(data))
	}
	return data[0]&0x01 == 0x01, nil
}

// encodeBoolean accepts bool or any number (non-zero is true).
func encodeBoolean(_ *Handle, v any) ([]byte, error) {
	if b, ok := v.(bool); ok {
		return EncodeDPT1(b), nil
	}
	f, err := toFloat(v)
	if err != nil {
		return nil, fmt.Errorf("%w: DPT1 expects bool or number, got %T", ErrInvalidValue, v)
	}
	return EncodeDPT1(f != 0), nil
}

func decodeBoolean(_ *Handle, b []byte) (any, error) {
	return DecodeDPT1(b)
}
