package dpt

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// identPattern is the type identifier grammar: ["DPT"] digits ["." digits].
// Matched against the upper-cased identifier so the prefix is case-insensitive.
var identPattern = regexp.MustCompile(`^(?:DPT)?(\d+)(?:\.(\d+))?$`)

type encodeFunc func(h *Handle, v any) ([]byte, error)

type decodeFunc func(h *Handle, b []byte) (any, error)

// entry is a registered descriptor with its codec pair.
type entry struct {
	desc   Descriptor
	encode encodeFunc
	decode decodeFunc
}

// snapshot is an immutable view of the registry. Readers load it without
// locking; writers replace it wholesale.
type snapshot struct {
	entries map[string]entry
	opts    options
}

// Registry maps main-type identifiers to descriptors.
//
// Reads (Resolve, Lookup, IDs) are lock-free. Register, LoadCatalogue and
// SetLogger copy the current snapshot under a writer mutex and publish the copy atomically.
type Registry struct {
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

// NewRegistry returns an empty registry configured with opts.
func NewRegistry(opts ...Option) *Registry {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	r := &Registry{}
	r.snap.Store(&snapshot{entries: map[string]entry{}, opts: o})
	return r
}

// NewStandardRegistry returns a registry pre-loaded with the built-in catalogue.
func NewStandardRegistry(opts ...Option) *Registry {
	r := NewRegistry(opts...)
	for _, d := range StandardCatalogue() {
		if err := r.Register(d); err != nil {
			// The built-in catalogue is static; a failure here is a programming error.
			panic(fmt.Sprintf("dpt: standard catalogue: %v", err))
		}
	}
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the shared standard registry, built on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewStandardRegistry()
	})
	return defaultRegistry
}

// Register adds d, replacing any descriptor with the same identifier.
func (r *Registry) Register(d Descriptor) error {
	return r.registerAll([]Descriptor{d})
}

// registerAll normalises every descriptor and, only if all are valid,
// publishes them in a single snapshot.
func (r *Registry) registerAll(descs []Descriptor) error {
	add := make([]entry, 0, len(descs))
	for _, d := range descs {
		d, err := normalise(d)
		if err != nil {
			return err
		}
		enc, dec := codecFor(d.Family)
		add = append(add, entry{desc: d, encode: enc, decode: dec})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	next := &snapshot{entries: make(map[string]entry, len(cur.entries)+len(add)), opts: cur.opts}
	for k, v := range cur.entries {
		next.entries[k] = v
	}
	for _, e := range add {
		next.entries[e.desc.ID] = e
	}
	r.snap.Store(next)
	return nil
}

// normalise returns a validated copy of d with ID and Main filled in from
// each other and subtype codes taken from their map keys.
func normalise(d Descriptor) (Descriptor, error) {
	d = d.clone()
	if d.ID == "" {
		if d.Main <= 0 {
			return Descriptor{}, fmt.Errorf("%w: descriptor has neither id nor main type", ErrInvalidDescriptor)
		}
		d.ID = mainID(d.Main)
	} else {
		main, sub, err := parseIdentifier(d.ID)
		if err != nil {
			return Descriptor{}, fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
		}
		if sub != "" {
			return Descriptor{}, fmt.Errorf("%w: descriptor id %q must not carry a subtype", ErrInvalidDescriptor, d.ID)
		}
		if d.Main != 0 && d.Main != main {
			return Descriptor{}, fmt.Errorf("%w: descriptor id %q does not match main type %d", ErrInvalidDescriptor, d.ID, d.Main)
		}
		d.Main = main
		d.ID = mainID(main)
	}
	for code, st := range d.Subtypes {
		if st.Code == "" {
			st.Code = code
			d.Subtypes[code] = st
		}
	}
	if err := d.validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// SetLogger installs a logger that receives one debug line per Diagnostic.
func (r *Registry) SetLogger(l Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	next := &snapshot{entries: cur.entries, opts: cur.opts}
	next.opts.logger = l
	r.snap.Store(next)
}

// Resolve parses id and returns a handle for its main type, bound to the
// subtype when the identifier names one that exists.
//
// Accepted forms: "9", "DPT9", "9.001", "dpt9.001". A subtype code that is
// not registered leaves the handle unbound to any subtype; it is not an error.
func (r *Registry) Resolve(id string) (*Handle, error) {
	main, sub, err := parseIdentifier(id)
	if err != nil {
		return nil, err
	}

	snap := r.snap.Load()
	e, ok := snap.entries[mainID(main)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, id)
	}

	h := &Handle{
		Descriptor: e.desc.clone(),
		encode:     e.encode,
		decode:     e.decode,
		opts:       snap.opts,
	}
	if sub != "" {
		if st, ok := h.Subtypes[sub]; ok {
			h.SubtypeCode = sub
			h.Subtype = &st
		}
	}
	return h, nil
}

// ResolveValue resolves an identifier given as a string or a Go number.
// Floats use their shortest representation, so 9.001 resolves "9.001".
func (r *Registry) ResolveValue(id any) (*Handle, error) {
	switch v := id.(type) {
	case string:
		return r.Resolve(v)
	case fmt.Stringer:
		return r.Resolve(v.String())
	case float64:
		return r.Resolve(strconv.FormatFloat(v, 'f', -1, 64))
	case float32:
		return r.Resolve(strconv.FormatFloat(float64(v), 'f', -1, 32))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return r.Resolve(fmt.Sprintf("%d", v))
	default:
		return nil, fmt.Errorf("%w: identifier of type %T", ErrMalformedIdentifier, id)
	}
}

// Lookup returns a copy of the descriptor registered for id's main type.
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	main, _, err := parseIdentifier(id)
	if err != nil {
		return Descriptor{}, false
	}
	e, ok := r.snap.Load().entries[mainID(main)]
	if !ok {
		return Descriptor{}, false
	}
	return e.desc.clone(), true
}

// IDs returns the registered identifiers ordered by main type number.
func (r *Registry) IDs() []string {
	entries := r.snap.Load().entries
	descs := make([]Descriptor, 0, len(entries))
	for _, e := range entries {
		descs = append(descs, e.desc)
	}
	slices.SortFunc(descs, func(a, b Descriptor) int {
		return cmp.Compare(a.Main, b.Main)
	})
	ids := make([]string, len(descs))
	for i, d := range descs {
		ids[i] = d.ID
	}
	return ids
}

// EncodeValue resolves id and encodes v.
func (r *Registry) EncodeValue(id string, v any) ([]byte, error) {
	h, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}
	return h.Encode(v)
}

// DecodeValue resolves id and decodes b.
func (r *Registry) DecodeValue(id string, b []byte) (any, error) {
	h, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}
	return h.Decode(b)
}

// parseIdentifier splits an identifier into its main type number and
// subtype code. Leading zeros in the main type are normalised away.
func parseIdentifier(id string) (int, string, error) {
	m := identPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(id)))
	if m == nil {
		return 0, "", fmt.Errorf("%w: %q", ErrMalformedIdentifier, id)
	}
	main, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrUnknownType, id)
	}
	return main, m[2], nil
}

// codecFor binds a family to its codec pair.
func codecFor(f Family) (encodeFunc, decodeFunc) {
	switch f {
	case FamilyBoolean:
		return encodeBoolean, decodeBoolean
	case FamilyControl:
		return encodeControl, decodeControl
	case FamilyCharacter:
		return encodeCharacter, decodeCharacter
	case FamilyFloat16:
		return encodeFloat16, decodeFloat16
	default:
		return encodeGeneric, decodeGeneric
	}
}

// Resolve resolves id against the Default registry.
func Resolve(id string) (*Handle, error) {
	return Default().Resolve(id)
}

// Encode encodes v with h. A nil handle fails with ErrUnboundType.
func Encode(h *Handle, v any) ([]byte, error) {
	return h.Encode(v)
}

// Decode decodes b with h. A nil handle fails with ErrUnboundType.
func Decode(h *Handle, b []byte) (any, error) {
	return h.Decode(b)
}
