package knxnetip

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Built-in field kinds.
const (
	KindUInt8        = "UInt8"
	KindUInt16BE     = "UInt16BE"
	KindIPv4Endpoint = "IPv4Endpoint"
)

// FieldSpec defines how a field kind is read, written and measured.
type FieldSpec struct {
	// Read reads the field from r and stores the result under name in r's
	// current frame. Failures are recorded on r.
	Read func(r *Reader, name string)

	// Write appends value to w.
	Write func(w *Writer, value any) error

	// Length returns the encoded size of value in bytes.
	Length func(value any) int
}

// Member is a named field inside a struct field or a frame.
type Member struct {
	Name string
	Kind string
}

// Protocol is a set of named field kinds.
type Protocol struct {
	mu     sync.RWMutex
	fields map[string]FieldSpec
}

// NewProtocol returns a protocol with the built-in UInt8, UInt16BE and
// IPv4Endpoint kinds defined.
func NewProtocol() *Protocol {
	p := &Protocol{fields: map[string]FieldSpec{}}
	p.fields[KindUInt8] = uint8Field()
	p.fields[KindUInt16BE] = uint16Field()
	p.fields[KindIPv4Endpoint] = ipv4EndpointField()
	return p
}

// Define adds or replaces a field kind.
func (p *Protocol) Define(name string, spec FieldSpec) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidField)
	}
	if spec.Read == nil || spec.Write == nil || spec.Length == nil {
		return fmt.Errorf("%w: %s needs read, write and length", ErrInvalidField, name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.fields[name] = spec
	return nil
}

// DefineStruct defines a composite kind made of named members.
//
// Reading pushes a scratch frame, reads every member into it and pops the
// frame as a map[string]any. Writing takes a map[string]any and writes the
// members in order. The length is the sum of the members' lengths.
func (p *Protocol) DefineStruct(name string, members []Member) error {
	if len(members) == 0 {
		return fmt.Errorf("%w: struct %s has no members", ErrInvalidField, name)
	}
	for _, m := range members {
		if m.Name == "" {
			return fmt.Errorf("%w: struct %s has an unnamed member", ErrInvalidField, name)
		}
		if _, ok := p.Lookup(m.Kind); !ok {
			return fmt.Errorf("%w: struct %s member %s has kind %q", ErrUnknownField, name, m.Name, m.Kind)
		}
	}
	members = append([]Member(nil), members...)

	return p.Define(name, FieldSpec{
		Read: func(r *Reader, field string) {
			r.PushStack()
			for _, m := range members {
				if err := p.Read(r, m.Kind, m.Name); err != nil {
					break
				}
			}
			r.PopStack(field, nil)
		},
		Write: func(w *Writer, value any) error {
			values, err := structValues(name, value)
			if err != nil {
				return err
			}
			for _, m := range members {
				if err := p.Write(w, m.Kind, values[m.Name]); err != nil {
					return fmt.Errorf("%s.%s: %w", name, m.Name, err)
				}
			}
			return nil
		},
		Length: func(value any) int {
			values, _ := value.(map[string]any)
			total := 0
			for _, m := range members {
				n, err := p.Length(m.Kind, values[m.Name])
				if err == nil {
					total += n
				}
			}
			return total
		},
	})
}

// Lookup returns the spec for a kind.
func (p *Protocol) Lookup(kind string) (FieldSpec, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	spec, ok := p.fields[kind]
	return spec, ok
}

// Kinds returns the defined kinds in lexical order.
func (p *Protocol) Kinds() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	kinds := make([]string, 0, len(p.fields))
	for k := range p.fields {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Length returns the encoded size of value as kind.
func (p *Protocol) Length(kind string, value any) (int, error) {
	spec, ok := p.Lookup(kind)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownField, kind)
	}
	return spec.Length(value), nil
}

// Read reads a kind from r into name and returns r's error state.
func (p *Protocol) Read(r *Reader, kind, name string) error {
	spec, ok := p.Lookup(kind)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownField, kind)
		r.fail(err)
		return err
	}
	spec.Read(r, name)
	return r.Err()
}

// Write writes value as kind to w.
func (p *Protocol) Write(w *Writer, kind string, value any) error {
	spec, ok := p.Lookup(kind)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, kind)
	}
	return spec.Write(w, value)
}

func structValues(name string, value any) (map[string]any, error) {
	switch v := value.(type) {
	case map[string]any:
		return v, nil
	case nil:
		return nil, fmt.Errorf("%w: struct %s", ErrNullValue, name)
	default:
		return nil, fmt.Errorf("%w: struct %s expects map[string]any, got %T", ErrInvalidValue, name, value)
	}
}

// ─── Integer fields ─────────────────────────────────────────────

func uint8Field() FieldSpec {
	return FieldSpec{
		Read: func(r *Reader, name string) { r.Uint8(name) },
		Write: func(w *Writer, value any) error {
			n, err := toUint(value, math.MaxUint8)
			if err != nil {
				return err
			}
			w.Uint8(uint8(n))
			return nil
		},
		Length: func(any) int { return 1 },
	}
}

func uint16Field() FieldSpec {
	return FieldSpec{
		Read: func(r *Reader, name string) { r.Uint16BE(name) },
		Write: func(w *Writer, value any) error {
			n, err := toUint(value, math.MaxUint16)
			if err != nil {
				return err
			}
			w.Uint16BE(uint16(n))
			return nil
		},
		Length: func(any) int { return 2 }, //nolint:mnd // uint16
	}
}

// toUint coerces integer kinds (and integral floats, as decoded from JSON)
// into [0, limit].
func toUint(value any, limit uint64) (uint64, error) {
	var n int64
	switch v := value.(type) {
	case nil:
		return 0, ErrNullValue
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case uint:
		if uint64(v) > limit {
			return 0, fmt.Errorf("%w: %d exceeds %d", ErrInvalidValue, v, limit)
		}
		return uint64(v), nil
	case uint64:
		if v > limit {
			return 0, fmt.Errorf("%w: %d exceeds %d", ErrInvalidValue, v, limit)
		}
		return v, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %g is not an integer", ErrInvalidValue, v)
		}
		n = int64(v)
	default:
		return 0, fmt.Errorf("%w: expected integer, got %T", ErrInvalidValue, value)
	}
	if n < 0 || uint64(n) > limit {
		return 0, fmt.Errorf("%w: %d outside 0-%d", ErrInvalidValue, n, limit)
	}
	return uint64(n), nil
}
