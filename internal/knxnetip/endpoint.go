package knxnetip

import (
	"fmt"
	"net/netip"
	"regexp"
	"strconv"
)

// endpointPattern is "a.b.c.d:port"; octet and port ranges are checked separately.
var endpointPattern = regexp.MustCompile(`^(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}):(\d{1,5})$`)

// endpointLength is 4 address bytes plus a big-endian port.
const endpointLength = 6

// ParseEndpoint validates an "a.b.c.d:port" string.
func ParseEndpoint(s string) (netip.AddrPort, error) {
	if s == "" {
		return netip.AddrPort{}, fmt.Errorf("%w for IPv4Endpoint", ErrNullValue)
	}
	m := endpointPattern.FindStringSubmatch(s)
	if m == nil {
		return netip.AddrPort{}, fmt.Errorf("%w: %q", ErrInvalidEndpointFormat, s)
	}
	addr, err := netip.ParseAddr(m[1])
	if err != nil || !addr.Is4() {
		return netip.AddrPort{}, fmt.Errorf("%w: %q has an invalid address", ErrInvalidEndpointFormat, s)
	}
	port, err := strconv.Atoi(m[2])
	if err != nil || port > 0xFFFF {
		return netip.AddrPort{}, fmt.Errorf("%w: %q has an invalid port", ErrInvalidEndpointFormat, s)
	}
	return netip.AddrPortFrom(addr, uint16(port)), nil
}

// EncodeEndpoint returns the 6-byte wire form of an endpoint.
func EncodeEndpoint(s string) ([]byte, error) {
	w := NewWriter(endpointLength)
	if err := writeEndpoint(w, s); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DecodeEndpoint reads a 6-byte endpoint into "a.b.c.d:port".
func DecodeEndpoint(b []byte) (string, error) {
	r := NewReader(b)
	readEndpoint(r, "endpoint")
	if err := r.Err(); err != nil {
		return "", err
	}
	s, _ := r.Frame()["endpoint"].(string)
	return s, nil
}

func ipv4EndpointField() FieldSpec {
	return FieldSpec{
		Read:  readEndpoint,
		Write: writeEndpoint,
		Length: func(value any) int {
			if present(value) {
				return endpointLength
			}
			return 0
		},
	}
}

func readEndpoint(r *Reader, name string) {
	r.PushStack().
		Raw("addr", 4). //nolint:mnd // IPv4
		Uint16BE("port").
		Tap(func(frame map[string]any) error {
			raw, _ := frame["addr"].([]byte)
			addr, ok := netip.AddrFromSlice(raw)
			if !ok {
				return fmt.Errorf("%w: %d address bytes", ErrInvalidEndpointFormat, len(raw))
			}
			frame["addr"] = addr
			return nil
		}).
		PopStack(name, func(frame map[string]any) any {
			addr, _ := frame["addr"].(netip.Addr)
			port, _ := frame["port"].(int)
			return netip.AddrPortFrom(addr, uint16(port)).String()
		})
}

func writeEndpoint(w *Writer, value any) error {
	if !present(value) {
		return fmt.Errorf("%w for IPv4Endpoint", ErrNullValue)
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: got %T", ErrInvalidEndpointFormat, value)
	}
	ap, err := ParseEndpoint(s)
	if err != nil {
		return err
	}
	a4 := ap.Addr().As4()
	w.Raw(a4[:], len(a4))
	w.Uint16BE(ap.Port())
	return nil
}

// present reports whether a field value counts as set.
func present(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	default:
		return true
	}
}
