package knxnetip

import "errors"

// Domain errors for the knxnetip package.
var (
	// ErrShortBuffer is returned when a read runs past the end of the input.
	ErrShortBuffer = errors.New("knxnetip: short buffer")

	// ErrUnknownField is returned when a field kind has not been defined.
	ErrUnknownField = errors.New("knxnetip: unknown field kind")

	// ErrInvalidField is returned when a field definition is incomplete.
	ErrInvalidField = errors.New("knxnetip: invalid field definition")

	// ErrNullValue is returned when writing a required field with no value.
	ErrNullValue = errors.New("knxnetip: cannot write null value")

	// ErrInvalidValue is returned when a value does not fit its field.
	ErrInvalidValue = errors.New("knxnetip: invalid field value")

	// ErrInvalidEndpointFormat is returned when an endpoint is not "a.b.c.d:port".
	ErrInvalidEndpointFormat = errors.New("knxnetip: invalid IPv4 endpoint, expected 'ip.add.re.ss:port'")
)
