package dpt

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogueFile is the on-disk layout of a catalogue extension:
//
//	types:
//	  - id: DPT14
//	    bit_length: 32
//	    value_kind: basic
//	    subtypes:
//	      "056": {name: DPT_Value_Power, unit: W}
type catalogueFile struct {
	Types []catalogueType `yaml:"types"`
}

type catalogueType struct {
	ID          string                     `yaml:"id"`
	Main        int                        `yaml:"main"`
	BitLength   int                        `yaml:"bit_length"`
	ValueKind   string                     `yaml:"value_kind"`
	Family      string                     `yaml:"family"`
	Signedness  string                     `yaml:"signedness"`
	Range       []float64                  `yaml:"range"`
	Description string                     `yaml:"description"`
	Subtypes    map[string]catalogueSubtype `yaml:"subtypes"`
}

type catalogueSubtype struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Unit        string    `yaml:"unit"`
	Range       []float64 `yaml:"range"`
	ScalarRange []float64 `yaml:"scalar_range"`
}

// LoadCatalogueFile registers the descriptors in a YAML catalogue file.
func (r *Registry) LoadCatalogueFile(path string) (int, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from trusted configuration
	if err != nil {
		return 0, fmt.Errorf("opening catalogue %s: %w", path, err)
	}
	defer f.Close()

	n, err := r.LoadCatalogue(f)
	if err != nil {
		return n, fmt.Errorf("catalogue %s: %w", path, err)
	}
	return n, nil
}

// LoadCatalogue registers every descriptor read from YAML and returns how
// many were registered. The file is applied as a whole: if any entry is
// invalid nothing is registered.
func (r *Registry) LoadCatalogue(rd io.Reader) (int, error) {
	var file catalogueFile
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: parsing catalogue: %w", ErrInvalidDescriptor, err)
	}

	descs := make([]Descriptor, 0, len(file.Types))
	var errs []error
	for i, t := range file.Types {
		d, err := t.descriptor()
		if err == nil {
			d, err = normalise(d)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("types[%d]: %w", i, err))
			continue
		}
		descs = append(descs, d)
	}
	if len(errs) > 0 {
		return 0, errors.Join(errs...)
	}

	if err := r.registerAll(descs); err != nil {
		return 0, err
	}
	return len(descs), nil
}

func (t catalogueType) descriptor() (Descriptor, error) {
	kind, err := ParseValueKind(t.ValueKind)
	if err != nil {
		return Descriptor{}, err
	}
	family, err := ParseFamily(t.Family)
	if err != nil {
		return Descriptor{}, err
	}
	sign, err := ParseSignedness(t.Signedness)
	if err != nil {
		return Descriptor{}, err
	}
	bounds, err := rangeFromYAML("range", t.Range)
	if err != nil {
		return Descriptor{}, err
	}

	d := Descriptor{
		ID:          t.ID,
		Main:        t.Main,
		BitLength:   t.BitLength,
		Kind:        kind,
		Family:      family,
		Signedness:  sign,
		Range:       bounds,
		Description: t.Description,
	}
	if len(t.Subtypes) > 0 {
		d.Subtypes = make(map[string]Subtype, len(t.Subtypes))
	}
	for code, st := range t.Subtypes {
		documented, err := rangeFromYAML(code+".range", st.Range)
		if err != nil {
			return Descriptor{}, err
		}
		scalar, err := rangeFromYAML(code+".scalar_range", st.ScalarRange)
		if err != nil {
			return Descriptor{}, err
		}
		d.Subtypes[code] = Subtype{
			Code:        code,
			Name:        st.Name,
			Description: st.Description,
			Unit:        st.Unit,
			Range:       documented,
			ScalarRange: scalar,
		}
	}
	return d, nil
}

func rangeFromYAML(field string, v []float64) (*Range, error) {
	switch len(v) {
	case 0:
		return nil, nil //nolint:nilnil // absent range
	case 2: //nolint:mnd // [min, max]
		return rng(v[0], v[1]), nil
	default:
		return nil, fmt.Errorf("%w: %s must be [min, max], got %d values", ErrInvalidDescriptor, field, len(v))
	}
}
