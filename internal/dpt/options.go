package dpt

import (
	"fmt"
	"strings"
)

// FloatMode selects the exponent search used by the 16-bit float codec.
type FloatMode int

const (
	// FloatCorrected searches every exponent downwards and rounds the mantissa.
	FloatCorrected FloatMode = iota

	// FloatCompat reproduces the legacy encoder: a single exponent is tried
	// and the mantissa is truncated. Only |100*v| < 2047 encodes.
	FloatCompat
)

// String returns "corrected" or "compat".
func (m FloatMode) String() string {
	if m == FloatCompat {
		return "compat"
	}
	return "corrected"
}

// ParseFloatMode parses a float mode name; empty means corrected.
func ParseFloatMode(s string) (FloatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "corrected":
		return FloatCorrected, nil
	case "compat", "compatible", "legacy":
		return FloatCompat, nil
	default:
		return FloatCorrected, fmt.Errorf("unknown float mode %q", s)
	}
}

// RangePolicy decides what happens to values outside a type's range.
type RangePolicy int

const (
	// RangeLenient encodes the value as-is and reports a Diagnostic.
	RangeLenient RangePolicy = iota

	// RangeClamp limits the value to the range before encoding.
	RangeClamp

	// RangeReject fails with ErrValueOutOfRange.
	RangeReject
)

// String returns the policy name.
func (p RangePolicy) String() string {
	switch p {
	case RangeClamp:
		return "clamp"
	case RangeReject:
		return "reject"
	default:
		return "lenient"
	}
}

// ParseRangePolicy parses a policy name; empty means lenient.
func ParseRangePolicy(s string) (RangePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return RangeLenient, nil
	case "clamp":
		return RangeClamp, nil
	case "reject":
		return RangeReject, nil
	default:
		return RangeLenient, fmt.Errorf("unknown range policy %q", s)
	}
}

// Diagnostic reports a value that fell outside its type's range.
type Diagnostic struct {
	TypeID      string
	SubtypeCode string
	Value       float64
	Bounds      Range

	// Scalar is true when Bounds is a subtype scalar range rather than the
	// raw or documented range.
	Scalar bool
	Policy RangePolicy
}

// String formats the diagnostic for logs.
func (d Diagnostic) String() string {
	id := d.TypeID
	if d.SubtypeCode != "" {
		id += "." + d.SubtypeCode
	}
	return fmt.Sprintf("%s: value %g outside %s (policy %s)", id, d.Value, d.Bounds, d.Policy)
}

// Logger is the optional logging interface used by the registry.
type Logger interface {
	Debug(msg string, args ...any)
}

// options are the codec settings shared by every handle of a registry.
type options struct {
	floatMode   FloatMode
	rangePolicy RangePolicy
	diagnostics func(Diagnostic)
	logger      Logger
}

// Option configures a Registry.
type Option func(*options)

// WithFloatMode sets the 16-bit float exponent search.
func WithFloatMode(m FloatMode) Option {
	return func(o *options) {
		o.floatMode = m
	}
}

// WithRangePolicy sets how out-of-range values are treated.
func WithRangePolicy(p RangePolicy) Option {
	return func(o *options) {
		o.rangePolicy = p
	}
}

// WithDiagnostics installs a callback invoked for every out-of-range value.
// The callback runs synchronously on the encoding goroutine.
func WithDiagnostics(fn func(Diagnostic)) Option {
	return func(o *options) {
		o.diagnostics = fn
	}
}

// report delivers a diagnostic to the callback and the logger.
func (o options) report(d Diagnostic) {
	if o.diagnostics != nil {
		o.diagnostics(d)
	}
	if o.logger != nil {
		o.logger.Debug("datapoint value out of range",
			"type", d.TypeID,
			"subtype", d.SubtypeCode,
			"value", d.Value,
			"min", d.Bounds.Min,
			"max", d.Bounds.Max,
			"policy", d.Policy.String(),
		)
	}
}
