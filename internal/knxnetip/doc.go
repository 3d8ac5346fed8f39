// Package knxnetip implements a small binary field protocol and the
// KNXnet/IP structures built on it.
//
// A Protocol is a table of named field kinds. Each kind knows how to read
// itself from a Reader, write itself to a Writer and report its encoded
// length for a given value. Composite kinds are built with DefineStruct,
// and a Frame lays kinds out back to back:
//
//	p := knxnetip.New()
//	b, err := knxnetip.BuildConnectRequest(p, "192.168.1.10:3671", "192.168.1.10:3671")
//
//	values, err := knxnetip.ConnectRequestFrame(p).Decode(b)
//	hpai := values["control"].(map[string]any)
//	hpai["endpoint"] // "192.168.1.10:3671"
//
// The package only builds and parses bytes; it opens no sockets.
package knxnetip
