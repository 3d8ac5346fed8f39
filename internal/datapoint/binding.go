package datapoint

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-dpt/internal/dpt"
)

// groupAddressPattern matches three-level KNX group addresses (main/middle/sub).
var groupAddressPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1})/(\d{1,3})$`)

// Group address part limits.
const (
	maxMainGroup   = 31
	maxMiddleGroup = 7
	maxSubGroup    = 255
)

// Binding ties a KNX group address to the datapoint type used to
// interpret its payload.
type Binding struct {
	GroupAddress string          `json:"group_address" yaml:"group_address"`
	DPT          string          `json:"dpt" yaml:"dpt"`
	Name         string          `json:"name,omitempty" yaml:"name"`
	Measurement  string          `json:"measurement,omitempty" yaml:"measurement"`
	LastValue    json.RawMessage `json:"last_value,omitempty" yaml:"-"`
	LastSeen     *time.Time      `json:"last_seen,omitempty" yaml:"-"`
	CreatedAt    time.Time       `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time       `json:"updated_at" yaml:"-"`
}

// Validate checks the group address format and that the DPT resolves in reg.
// A DPT that names a known subtype, or no subtype at all, is rewritten to
// its canonical form ("dpt09.001" becomes "9.001").
func (b *Binding) Validate(reg *dpt.Registry) error {
	b.GroupAddress = strings.TrimSpace(b.GroupAddress)
	if err := validateGroupAddress(b.GroupAddress); err != nil {
		return err
	}
	b.DPT = strings.TrimSpace(b.DPT)
	if b.DPT == "" {
		return fmt.Errorf("%w: %s: dpt is required", ErrInvalidBinding, b.GroupAddress)
	}

	h, err := reg.Resolve(b.DPT)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidBinding, b.GroupAddress, err)
	}
	if h.Subtype != nil || !strings.Contains(b.DPT, ".") {
		b.DPT = canonicalID(h)
	}
	return nil
}

func validateGroupAddress(ga string) error {
	m := groupAddressPattern.FindStringSubmatch(ga)
	if m == nil {
		return fmt.Errorf("%w: group address %q must be main/middle/sub", ErrInvalidBinding, ga)
	}
	main, _ := strconv.Atoi(m[1])   //nolint:errcheck // regex guarantees digits
	middle, _ := strconv.Atoi(m[2]) //nolint:errcheck // regex guarantees digits
	sub, _ := strconv.Atoi(m[3])    //nolint:errcheck // regex guarantees digits
	if main > maxMainGroup || middle > maxMiddleGroup || sub > maxSubGroup {
		return fmt.Errorf("%w: group address %q out of range", ErrInvalidBinding, ga)
	}
	return nil
}

func canonicalID(h *dpt.Handle) string {
	return strings.TrimPrefix(h.String(), "DPT")
}
