package knx

import "errors"

// Domain errors for the KNX bridge package.
var (
	// ErrInvalidGroupAddress is returned when a group address string
	// cannot be parsed.
	ErrInvalidGroupAddress = errors.New("knx: invalid group address")

	// ErrInvalidTelegram is returned when a received telegram is malformed.
	ErrInvalidTelegram = errors.New("knx: invalid telegram")

	// ErrNotBound is returned when a group address has no binding and the
	// caller supplied no datapoint type.
	ErrNotBound = errors.New("knx: group address not bound")

	// ErrEncodingFailed is returned when a value cannot be encoded for its
	// datapoint type.
	ErrEncodingFailed = errors.New("knx: encoding failed")

	// ErrDecodingFailed is returned when telegram data cannot be decoded.
	ErrDecodingFailed = errors.New("knx: decoding failed")

	// ErrTelegramFailed is returned when a telegram cannot be handed to
	// the transport.
	ErrTelegramFailed = errors.New("knx: telegram send failed")

	// ErrUnsupportedFormat is returned for an unknown payload format.
	ErrUnsupportedFormat = errors.New("knx: unsupported payload format")

	// ErrStopped is returned by operations on a stopped bridge.
	ErrStopped = errors.New("knx: bridge stopped")
)
