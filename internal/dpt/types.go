package dpt

import (
	"fmt"
	"maps"
	"math"
	"strings"
)

// Descriptor limits.
const (
	// maxBitLength is the widest type the generic codec can carry (6 bytes).
	maxBitLength = 48

	// maxGenericBytes is the largest buffer the generic codec decodes.
	maxGenericBytes = 6

	// idPrefix is the canonical prefix of a main-type identifier.
	idPrefix = "DPT"
)

// ValueKind describes the shape of a decoded value.
type ValueKind int

const (
	// KindUnset is the zero value and is rejected by Register.
	KindUnset ValueKind = iota

	// KindBasic types decode to a single scalar.
	KindBasic

	// KindComposite types decode to a structured value (e.g. Control).
	KindComposite
)

// String returns the lowercase kind name used in catalogue files.
func (k ValueKind) String() string {
	switch k {
	case KindBasic:
		return "basic"
	case KindComposite:
		return "composite"
	default:
		return "unset"
	}
}

// ParseValueKind parses "basic" or "composite" (case-insensitive).
func ParseValueKind(s string) (ValueKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic":
		return KindBasic, nil
	case "composite":
		return KindComposite, nil
	default:
		return KindUnset, fmt.Errorf("%w: unknown value kind %q", ErrInvalidDescriptor, s)
	}
}

// Signedness selects how the generic codec interprets raw integers.
type Signedness int

const (
	// Unsigned integers are written with writeUIntBE semantics (default).
	Unsigned Signedness = iota

	// Signed integers are two's complement.
	Signed
)

// String returns "unsigned" or "signed".
func (s Signedness) String() string {
	if s == Signed {
		return "signed"
	}
	return "unsigned"
}

// ParseSignedness parses "signed" or "unsigned"; empty means unsigned.
func ParseSignedness(s string) (Signedness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unsigned":
		return Unsigned, nil
	case "signed":
		return Signed, nil
	default:
		return Unsigned, fmt.Errorf("%w: unknown signedness %q", ErrInvalidDescriptor, s)
	}
}

// Family selects the codec pair bound to a descriptor at registration.
type Family int

const (
	// FamilyGeneric uses the bounded big-endian integer codec with scalar remapping.
	FamilyGeneric Family = iota

	// FamilyBoolean is the 1-bit codec (DPT 1.xxx).
	FamilyBoolean

	// FamilyControl is the 4-bit direction + step codec (DPT 3.xxx).
	FamilyControl

	// FamilyCharacter is the 8-bit character codec (DPT 4.xxx).
	FamilyCharacter

	// FamilyFloat16 is the 2-byte KNX float codec (DPT 9.xxx).
	FamilyFloat16
)

// familyBitLength is the only bit length each specialised family accepts.
var familyBitLength = map[Family]int{
	FamilyBoolean:   1,
	FamilyControl:   4,
	FamilyCharacter: 8,
	FamilyFloat16:   16,
}

var familyNames = map[Family]string{
	FamilyGeneric:   "generic",
	FamilyBoolean:   "boolean",
	FamilyControl:   "control",
	FamilyCharacter: "character",
	FamilyFloat16:   "float16",
}

// String returns the family name used in catalogue files.
func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// ParseFamily parses a family name; empty means generic.
func ParseFamily(s string) (Family, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return FamilyGeneric, nil
	}
	for f, n := range familyNames {
		if n == name {
			return f, nil
		}
	}
	return FamilyGeneric, fmt.Errorf("%w: unknown family %q", ErrInvalidDescriptor, s)
}

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	lo, hi := r.ordered()
	return v >= lo && v <= hi
}

// Clamp limits v to the range.
func (r Range) Clamp(v float64) float64 {
	lo, hi := r.ordered()
	return math.Min(math.Max(v, lo), hi)
}

// Span returns Max - Min.
func (r Range) Span() float64 {
	return r.Max - r.Min
}

// String formats the range as "[min, max]".
func (r Range) String() string {
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}

func (r Range) ordered() (float64, float64) {
	if r.Min > r.Max {
		return r.Max, r.Min
	}
	return r.Min, r.Max
}

func (r Range) finite() bool {
	return !math.IsNaN(r.Min) && !math.IsNaN(r.Max) && !math.IsInf(r.Min, 0) && !math.IsInf(r.Max, 0)
}

// Subtype narrows a main type. Name, Description and Unit are metadata.
type Subtype struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Unit        string `json:"unit,omitempty"`

	// Range is the documented value range. The generic and float codecs
	// check it under the configured range policy.
	Range *Range `json:"range,omitempty"`

	// ScalarRange is an external scale linearly mapped onto the main
	// type's raw range (e.g. 0-100 % onto 0-255).
	ScalarRange *Range `json:"scalar_range,omitempty"`
}

// Descriptor is a datapoint main type: its base encoding rule and subtypes.
type Descriptor struct {
	// ID is the canonical identifier ("DPT9"). Derived from Main when empty.
	ID string `json:"id"`

	// Main is the main type number.
	Main int `json:"main"`

	// BitLength is the encoded width in bits (1-48).
	BitLength int `json:"bit_length"`

	Kind       ValueKind  `json:"-"`
	Family     Family     `json:"-"`
	Signedness Signedness `json:"-"`

	// Range overrides the bound implied by BitLength.
	Range *Range `json:"range,omitempty"`

	Description string             `json:"description,omitempty"`
	Subtypes    map[string]Subtype `json:"subtypes,omitempty"`
}

// ByteLength returns ceil(BitLength/8), with a minimum of one byte.
func (d Descriptor) ByteLength() int {
	n := (d.BitLength + 7) / 8 //nolint:mnd // bits to bytes
	if n < 1 {
		return 1
	}
	return n
}

// Bounds returns the explicit Range, or the range implied by BitLength and
// Signedness: [0, 2^n-1] unsigned, [-2^(n-1), 2^(n-1)-1] signed.
func (d Descriptor) Bounds() Range {
	if d.Range != nil {
		return *d.Range
	}
	if d.Signedness == Signed {
		half := math.Ldexp(1, d.BitLength-1)
		return Range{Min: -half, Max: half - 1}
	}
	return Range{Min: 0, Max: math.Ldexp(1, d.BitLength) - 1}
}

// validate checks the registration invariants.
func (d Descriptor) validate() error {
	if d.BitLength <= 0 || d.BitLength > maxBitLength {
		return fmt.Errorf("%w: %s bit length must be 1-%d, got %d", ErrInvalidDescriptor, d.ID, maxBitLength, d.BitLength)
	}
	if d.Kind != KindBasic && d.Kind != KindComposite {
		return fmt.Errorf("%w: %s has no value kind", ErrInvalidDescriptor, d.ID)
	}
	if _, ok := familyNames[d.Family]; !ok {
		return fmt.Errorf("%w: %s has unknown family %d", ErrInvalidDescriptor, d.ID, int(d.Family))
	}
	if want, ok := familyBitLength[d.Family]; ok && d.BitLength != want {
		return fmt.Errorf("%w: %s family %s requires %d bits, got %d", ErrInvalidDescriptor, d.ID, d.Family, want, d.BitLength)
	}
	if d.Range != nil && (!d.Range.finite() || d.Range.Span() == 0) {
		return fmt.Errorf("%w: %s range %s is degenerate", ErrInvalidDescriptor, d.ID, d.Range)
	}
	for code, st := range d.Subtypes {
		if st.ScalarRange == nil {
			continue
		}
		if !st.ScalarRange.finite() || st.ScalarRange.Span() == 0 {
			return fmt.Errorf("%w: %s.%s scalar range %s is degenerate", ErrInvalidDescriptor, d.ID, code, st.ScalarRange)
		}
	}
	return nil
}

// clone returns a deep copy so registry entries and handles never share
// mutable state.
func (d Descriptor) clone() Descriptor {
	out := d
	out.Range = cloneRange(d.Range)
	if d.Subtypes != nil {
		out.Subtypes = maps.Clone(d.Subtypes)
		for code, st := range out.Subtypes {
			st.Range = cloneRange(st.Range)
			st.ScalarRange = cloneRange(st.ScalarRange)
			out.Subtypes[code] = st
		}
	}
	return out
}

func cloneRange(r *Range) *Range {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// mainID returns the canonical identifier for a main type number.
func mainID(main int) string {
	return fmt.Sprintf("%s%d", idPrefix, main)
}
