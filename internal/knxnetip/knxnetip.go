package knxnetip

import "fmt"

// KNXnet/IP header constants.
const (
	HeaderLength    = 6
	ProtocolVersion = 0x10
)

// KNXnet/IP structure kinds defined by New.
const (
	KindHeader    = "KNXNetHeader"
	KindHPAI      = "HPAI"
	KindCRI       = "CRI"
	KindConnState = "ConnState"
	KindTunnState = "TunnState"
)

// New returns a protocol with the built-in kinds plus the KNXnet/IP
// header, HPAI, CRI, connection state and tunnelling state structures.
func New() *Protocol {
	p := NewProtocol()
	structs := []struct {
		name    string
		members []Member
	}{
		{KindHeader, []Member{
			{"header_length", KindUInt8},
			{"protocol_version", KindUInt8},
			{"service_type", KindUInt16BE},
			{"total_length", KindUInt16BE},
		}},
		{KindHPAI, []Member{
			{"structure_length", KindUInt8},
			{"protocol_type", KindUInt8},
			{"endpoint", KindIPv4Endpoint},
		}},
		{KindCRI, []Member{
			{"structure_length", KindUInt8},
			{"connection_type", KindUInt8},
			{"knx_layer", KindUInt8},
			{"reserved", KindUInt8},
		}},
		{KindConnState, []Member{
			{"channel_id", KindUInt8},
			{"status", KindUInt8},
		}},
		{KindTunnState, []Member{
			{"structure_length", KindUInt8},
			{"channel_id", KindUInt8},
			{"seqnum", KindUInt8},
			{"reserved", KindUInt8},
		}},
	}
	for _, s := range structs {
		if err := p.DefineStruct(s.name, s.members); err != nil {
			// Member kinds above are all built in.
			panic(err)
		}
	}
	return p
}

// Header is a decoded KNXnet/IP frame header.
type Header struct {
	HeaderLength    uint8
	ProtocolVersion uint8
	ServiceType     ServiceType
	TotalLength     uint16
}

// DecodeHeader reads the 6-byte header at the start of b.
func DecodeHeader(b []byte) (Header, error) {
	r := NewReader(b)
	r.Uint8("header_length").
		Uint8("protocol_version").
		Uint16BE("service_type").
		Uint16BE("total_length")
	if err := r.Err(); err != nil {
		return Header{}, err
	}
	h := r.Frame()
	return Header{
		HeaderLength:    uint8(intField(h, "header_length")),
		ProtocolVersion: uint8(intField(h, "protocol_version")),
		ServiceType:     ServiceType(intField(h, "service_type")),
		TotalLength:     uint16(intField(h, "total_length")),
	}, nil
}

// HPAI returns the values of a UDP host protocol address information block.
func HPAI(endpoint string) map[string]any {
	values := map[string]any{
		"protocol_type": int(IPv4UDP),
		"endpoint":      endpoint,
	}
	values["structure_length"] = 2 + endpointLengthOf(endpoint) //nolint:mnd // length + protocol bytes
	return values
}

// TunnelCRI returns the values of a link-layer tunnel connection request.
func TunnelCRI() map[string]any {
	return map[string]any{
		"structure_length": 4, //nolint:mnd // fixed CRI size
		"connection_type":  int(TunnelConnection),
		"knx_layer":        int(LinkLayer),
		"reserved":         0,
	}
}

// ConnectRequestFrame returns the frame layout of a CONNECT_REQUEST.
func ConnectRequestFrame(p *Protocol) Frame {
	return Frame{Protocol: p, Members: []Member{
		{"header", KindHeader},
		{"control", KindHPAI},
		{"data", KindHPAI},
		{"cri", KindCRI},
	}}
}

// ConnectionStateRequestFrame returns the frame layout of a
// CONNECTIONSTATE_REQUEST. DISCONNECT_REQUEST shares it.
func ConnectionStateRequestFrame(p *Protocol) Frame {
	return Frame{Protocol: p, Members: []Member{
		{"header", KindHeader},
		{"connstate", KindConnState},
		{"control", KindHPAI},
	}}
}

// BuildConnectRequest encodes a tunnelling CONNECT_REQUEST with the given
// control and data endpoints.
func BuildConnectRequest(p *Protocol, control, data string) ([]byte, error) {
	values := map[string]any{
		"control": HPAI(control),
		"data":    HPAI(data),
		"cri":     TunnelCRI(),
	}
	return build(ConnectRequestFrame(p), ConnectRequest, values)
}

// BuildConnectionStateRequest encodes a CONNECTIONSTATE_REQUEST heartbeat.
func BuildConnectionStateRequest(p *Protocol, channelID uint8, control string) ([]byte, error) {
	return build(ConnectionStateRequestFrame(p), ConnectionStateRequest, connStateValues(channelID, control))
}

// BuildDisconnectRequest encodes a DISCONNECT_REQUEST for a channel.
func BuildDisconnectRequest(p *Protocol, channelID uint8, control string) ([]byte, error) {
	return build(ConnectionStateRequestFrame(p), DisconnectRequest, connStateValues(channelID, control))
}

func connStateValues(channelID uint8, control string) map[string]any {
	return map[string]any{
		"connstate": map[string]any{"channel_id": int(channelID), "status": 0},
		"control":   HPAI(control),
	}
}

// build fills in the header, with total_length computed from the declared
// member lengths, and encodes the frame.
func build(f Frame, service ServiceType, values map[string]any) ([]byte, error) {
	header := map[string]any{
		"header_length":    HeaderLength,
		"protocol_version": ProtocolVersion,
		"service_type":     int(service),
		"total_length":     0,
	}
	values["header"] = header

	total, err := f.Length(values)
	if err != nil {
		return nil, err
	}
	header["total_length"] = total

	b, err := f.Encode(values)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", service, err)
	}
	return b, nil
}

func endpointLengthOf(endpoint string) int {
	if present(endpoint) {
		return endpointLength
	}
	return 0
}

func intField(m map[string]any, name string) int {
	n, _ := m[name].(int)
	return n
}
