package dpt

import "errors"

// Domain errors for the dpt package.
//
// Every error returned by this package wraps one of these sentinels, so
// callers can branch with errors.Is:
//
//	if errors.Is(err, dpt.ErrUnknownType) {
//	    // fall back to raw bytes
//	}
var (
	// ErrMalformedIdentifier is returned when a type identifier does not
	// match the ["DPT"] <digits> ["." <digits>] grammar.
	ErrMalformedIdentifier = errors.New("dpt: malformed type identifier")

	// ErrUnknownType is returned when no main type is registered for an identifier.
	ErrUnknownType = errors.New("dpt: unknown datapoint type")

	// ErrInvalidDescriptor is returned when a descriptor cannot be registered.
	ErrInvalidDescriptor = errors.New("dpt: invalid descriptor")

	// ErrUnboundType is returned when encoding or decoding without a resolved handle.
	ErrUnboundType = errors.New("dpt: no resolved datapoint type")

	// ErrNonFiniteValue is returned when encoding NaN or ±Inf.
	ErrNonFiniteValue = errors.New("dpt: value is not finite")

	// ErrInvalidValue is returned when a value has the wrong shape for its type.
	ErrInvalidValue = errors.New("dpt: invalid value")

	// ErrValueOutOfRange is returned by the reject range policy, and when a raw
	// value cannot be represented in the type's byte width at all.
	ErrValueOutOfRange = errors.New("dpt: value out of range")

	// ErrInvalidBufferLength is returned when a fixed-width codec receives
	// the wrong number of bytes.
	ErrInvalidBufferLength = errors.New("dpt: invalid buffer length")

	// ErrBufferTooLong is returned when the generic codec receives more than 6 bytes.
	ErrBufferTooLong = errors.New("dpt: buffer too long")

	// ErrNoSuitableExponent is returned when a value cannot be expressed as a
	// 2-byte KNX float.
	ErrNoSuitableExponent = errors.New("dpt: no suitable exponent")

	// ErrUnsupportedCharacter is returned when a character does not fit in one byte.
	ErrUnsupportedCharacter = errors.New("dpt: unsupported character")
)
