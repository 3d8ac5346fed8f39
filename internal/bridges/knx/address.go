package knx

import (
	"fmt"
	"strconv"
	"strings"
)

// GroupAddress represents a KNX group address in 3-level format.
//
// Format: Main/Middle/Sub
//   - Main:   0-31 (5 bits)
//   - Middle: 0-7  (3 bits)
//   - Sub:    0-255 (8 bits)
type GroupAddress struct {
	Main   uint8
	Middle uint8
	Sub    uint8
}

// Group address limits.
const (
	maxMain   = 31
	maxMiddle = 7
	maxSub    = 255

	gaLevelCount = 3

	gaMainMask   = 0x1F
	gaMiddleMask = 0x07
	gaSubMask    = 0xFF
)

// ParseGroupAddress parses a 3-level group address such as "1/2/3".
// Surrounding whitespace is ignored.
func ParseGroupAddress(s string) (GroupAddress, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != gaLevelCount {
		return GroupAddress{}, fmt.Errorf("%w: expected 3-level format (main/middle/sub), got %q", ErrInvalidGroupAddress, s)
	}

	main, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil || main > maxMain {
		return GroupAddress{}, fmt.Errorf("%w: main group must be 0-%d, got %q", ErrInvalidGroupAddress, maxMain, parts[0])
	}

	middle, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil || middle > maxMiddle {
		return GroupAddress{}, fmt.Errorf("%w: middle group must be 0-%d, got %q", ErrInvalidGroupAddress, maxMiddle, parts[1])
	}

	sub, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil {
		return GroupAddress{}, fmt.Errorf("%w: sub group must be 0-%d, got %q", ErrInvalidGroupAddress, maxSub, parts[2])
	}

	return GroupAddress{
		Main:   uint8(main),
		Middle: uint8(middle),
		Sub:    uint8(sub),
	}, nil
}

// String returns the group address in 3-level format.
func (ga GroupAddress) String() string {
	return fmt.Sprintf("%d/%d/%d", ga.Main, ga.Middle, ga.Sub)
}

// ToUint16 packs the address as MMMM MSSS SSSS SSSS.
func (ga GroupAddress) ToUint16() uint16 {
	return uint16(ga.Main)<<11 | uint16(ga.Middle)<<8 | uint16(ga.Sub)
}

// GroupAddressFromUint16 unpacks a 16-bit group address.
func GroupAddressFromUint16(value uint16) GroupAddress {
	return GroupAddress{
		Main:   uint8((value >> 11) & gaMainMask),  //nolint:gosec // masked to 5 bits
		Middle: uint8((value >> 8) & gaMiddleMask), //nolint:gosec // masked to 3 bits
		Sub:    uint8(value & gaSubMask),           //nolint:gosec // masked to 8 bits
	}
}

// IsValid returns true if the group address values are within valid ranges.
func (ga GroupAddress) IsValid() bool {
	return ga.Main <= maxMain && ga.Middle <= maxMiddle
}

// MarshalText implements encoding.TextMarshaler.
func (ga GroupAddress) MarshalText() ([]byte, error) {
	return []byte(ga.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (ga *GroupAddress) UnmarshalText(text []byte) error {
	parsed, err := ParseGroupAddress(string(text))
	if err != nil {
		return err
	}
	*ga = parsed
	return nil
}
