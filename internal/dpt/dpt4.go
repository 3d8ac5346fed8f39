package dpt

import (
	"fmt"
	"unicode/utf8"
)

// ─── DPT4 (8-bit Character) ─────────────────────────────────────

// maxCharacter is the highest code point that fits in one byte (Latin-1).
const maxCharacter = 0xFF

// EncodeDPT4 encodes the first character of s as one byte.
// Characters after the first are ignored.
func EncodeDPT4(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: DPT4 requires a non-empty string", ErrInvalidValue)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return encodeRune(r)
}

// DecodeDPT4 decodes one byte to a single-character string.
func DecodeDPT4(data []byte) (string, error) {
	if len(data) != 1 {
		return "", fmt.Errorf("%w: DPT4 requires 1 byte, got %d", ErrInvalidBufferLength, len(data))
	}
	return string(rune(data[0])), nil
}

func encodeRune(r rune) ([]byte, error) {
	if r < 0 || r > maxCharacter {
		return nil, fmt.Errorf("%w: U+%04X", ErrUnsupportedCharacter, r)
	}
	return []byte{byte(r)}, nil
}

func encodeCharacter(_ *Handle, v any) ([]byte, error) {
	switch c := v.(type) {
	case string:
		return EncodeDPT4(c)
	case rune:
		return encodeRune(c)
	case byte:
		return []byte{c}, nil
	default:
		return nil, fmt.Errorf("%w: DPT4 expects string, got %T", ErrInvalidValue, v)
	}
}

func decodeCharacter(_ *Handle, b []byte) (any, error) {
	return DecodeDPT4(b)
}
