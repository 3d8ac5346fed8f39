package knx

import (
	"encoding/binary"
	"fmt"
	"time"
)

// APCI (Application Protocol Control Information) codes.
const (
	// APCIRead is a group read request (asks device for current value).
	APCIRead byte = 0x00

	// APCIResponse is a group read response (device answers read request).
	APCIResponse byte = 0x40

	// APCIWrite is a group write (sends value to devices listening on GA).
	APCIWrite byte = 0x80
)

const (
	// rxHeaderSize is source(2) + destination(2) + TPCI(1) + APCI(1).
	rxHeaderSize = 6

	// txHeaderSize is destination(2) + TPCI(1) + APCI(1).
	txHeaderSize = 4

	apciMask      = 0xC0
	shortDataMask = 0x3F

	// maxCompactBits is the widest value carried in the APCI byte.
	maxCompactBits = 6
)

// Telegram is a KNX group telegram as carried on the bus topics.
type Telegram struct {
	// Source is the sender's individual address (e.g., "1.1.5").
	// Only populated for received telegrams.
	Source string

	Destination GroupAddress

	// APCI indicates the telegram type (read, response, or write).
	APCI byte

	// Data is the DPT-encoded payload (nil for reads).
	Data []byte

	// Compact packs a single byte of Data into the low 6 bits of the APCI
	// byte. Only datapoint types of 6 bits or fewer may be sent compact.
	Compact bool

	Timestamp time.Time
}

// ParseTelegram parses a received group packet.
//
//	Byte 0-1: Source individual address (big-endian)
//	Byte 2-3: Destination group address (big-endian)
//	Byte 4:   TPCI
//	Byte 5:   APCI (upper 2 bits) | data (lower 6 bits) for compact frames
//	Byte 6+:  Data bytes for long frames
//
// A received frame carries a source address; an outgoing one (see Encode)
// does not.
func ParseTelegram(data []byte) (Telegram, error) {
	if len(data) < rxHeaderSize {
		return Telegram{}, fmt.Errorf("%w: too short (%d bytes, need at least %d)", ErrInvalidTelegram, len(data), rxHeaderSize)
	}

	t := Telegram{
		Source:      formatIndividualAddress(binary.BigEndian.Uint16(data[0:2])),
		Destination: GroupAddressFromUint16(binary.BigEndian.Uint16(data[2:4])),
		APCI:        data[5] & apciMask,
		Timestamp:   time.Now(),
	}

	switch {
	case len(data) > rxHeaderSize:
		t.Data = make([]byte, len(data)-rxHeaderSize)
		copy(t.Data, data[rxHeaderSize:])
	case t.APCI == APCIWrite || t.APCI == APCIResponse:
		t.Data = []byte{data[5] & shortDataMask}
		t.Compact = true
	}

	return t, nil
}

// formatIndividualAddress converts a 16-bit individual address to "A.L.D".
func formatIndividualAddress(ia uint16) string {
	area := (ia >> 12) & 0x0F
	line := (ia >> 8) & 0x0F
	device := ia & 0xFF
	return fmt.Sprintf("%d.%d.%d", area, line, device)
}

// Encode encodes the telegram for the transmit topic:
//
//	Byte 0-1: Destination group address (big-endian)
//	Byte 2:   TPCI (0x00)
//	Byte 3:   APCI, with the value in the low 6 bits when compact
//	Byte 4+:  Data bytes for long frames
func (t Telegram) Encode() []byte {
	if len(t.Data) == 0 || (t.Compact && len(t.Data) == 1) {
		buf := make([]byte, txHeaderSize)
		binary.BigEndian.PutUint16(buf[0:2], t.Destination.ToUint16())
		buf[3] = t.APCI
		if len(t.Data) == 1 {
			buf[3] |= t.Data[0] & shortDataMask
		}
		return buf
	}

	buf := make([]byte, txHeaderSize+len(t.Data))
	binary.BigEndian.PutUint16(buf[0:2], t.Destination.ToUint16())
	buf[3] = t.APCI
	copy(buf[txHeaderSize:], t.Data)
	return buf
}

// IsWrite returns true if this is a group write telegram.
func (t Telegram) IsWrite() bool {
	return t.APCI == APCIWrite
}

// IsRead returns true if this is a group read request.
func (t Telegram) IsRead() bool {
	return t.APCI == APCIRead
}

// IsResponse returns true if this is a group read response.
func (t Telegram) IsResponse() bool {
	return t.APCI == APCIResponse
}

// String returns a human-readable representation of the telegram.
func (t Telegram) String() string {
	apciStr := "UNKNOWN"
	switch t.APCI {
	case APCIRead:
		apciStr = "READ"
	case APCIResponse:
		apciStr = "RESPONSE"
	case APCIWrite:
		apciStr = "WRITE"
	}
	return fmt.Sprintf("Telegram{GA:%s, APCI:%s, Data:%X}", t.Destination, apciStr, t.Data)
}

// NewWriteTelegram creates a group write carrying data. Values of a
// datapoint type no wider than 6 bits should be sent with compact set.
func NewWriteTelegram(dest GroupAddress, data []byte, compact bool) Telegram {
	return Telegram{
		Destination: dest,
		APCI:        APCIWrite,
		Data:        data,
		Compact:     compact && len(data) == 1,
		Timestamp:   time.Now(),
	}
}

// NewResponseTelegram creates a group read response carrying data.
func NewResponseTelegram(dest GroupAddress, data []byte, compact bool) Telegram {
	t := NewWriteTelegram(dest, data, compact)
	t.APCI = APCIResponse
	return t
}

// NewReadTelegram creates a group read request.
func NewReadTelegram(dest GroupAddress) Telegram {
	return Telegram{
		Destination: dest,
		APCI:        APCIRead,
		Timestamp:   time.Now(),
	}
}

// compactBits reports whether a type of bitLength bits travels in the
// APCI byte.
func compactBits(bitLength int) bool {
	return bitLength > 0 && bitLength <= maxCompactBits
}
