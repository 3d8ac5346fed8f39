package knxnetip

import "fmt"

// Frame is an ordered list of members encoded back to back.
type Frame struct {
	Protocol *Protocol
	Members  []Member
}

// Length sums the declared lengths of every member for values.
func (f Frame) Length(values map[string]any) (int, error) {
	total := 0
	for _, m := range f.Members {
		n, err := f.Protocol.Length(m.Kind, values[m.Name])
		if err != nil {
			return 0, fmt.Errorf("%s: %w", m.Name, err)
		}
		total += n
	}
	return total, nil
}

// Encode writes every member in order.
func (f Frame) Encode(values map[string]any) ([]byte, error) {
	size, err := f.Length(values)
	if err != nil {
		return nil, err
	}
	w := NewWriter(size)
	for _, m := range f.Members {
		if err := f.Protocol.Write(w, m.Kind, values[m.Name]); err != nil {
			return nil, fmt.Errorf("%s: %w", m.Name, err)
		}
	}
	return w.Bytes(), nil
}

// Decode reads every member in order. Trailing bytes are ignored.
func (f Frame) Decode(b []byte) (map[string]any, error) {
	r := NewReader(b)
	for _, m := range f.Members {
		if err := f.Protocol.Read(r, m.Kind, m.Name); err != nil {
			return nil, fmt.Errorf("%s: %w", m.Name, err)
		}
	}
	return r.Frame(), nil
}
