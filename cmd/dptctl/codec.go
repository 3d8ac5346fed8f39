package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-dpt/internal/dpt"
)

// typeInfo is the JSON form of a resolved datapoint type.
type typeInfo struct {
	ID          string       `json:"id"`
	Main        int          `json:"main"`
	BitLength   int          `json:"bit_length"`
	ByteLength  int          `json:"byte_length"`
	Kind        string       `json:"kind"`
	Family      string       `json:"family"`
	Signedness  string       `json:"signedness"`
	Bounds      dpt.Range    `json:"bounds"`
	Description string       `json:"description,omitempty"`
	Subtype     *dpt.Subtype `json:"subtype,omitempty"`
	Subtypes    []string     `json:"subtypes,omitempty"`
}

// codecResult is the JSON form of an encode or decode.
type codecResult struct {
	DPT   string `json:"dpt"`
	Value any    `json:"value"`
	Data  string `json:"data"`
	Unit  string `json:"unit,omitempty"`
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered datapoint main types",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			reg, err := c.registry()
			if err != nil {
				return err
			}

			var infos []typeInfo
			rows := make([][]string, 0, len(reg.IDs()))
			for _, id := range reg.IDs() {
				d, ok := reg.Lookup(id)
				if !ok {
					continue
				}
				info := newTypeInfo(d, nil)
				infos = append(infos, info)
				rows = append(rows, []string{
					info.ID,
					strconv.Itoa(info.BitLength),
					info.Family,
					info.Bounds.String(),
					strconv.Itoa(len(info.Subtypes)),
					info.Description,
				})
			}

			return c.emit(infos, func() {
				c.printTable([]string{"ID", "BITS", "FAMILY", "BOUNDS", "SUBTYPES", "DESCRIPTION"}, rows)
			})
		},
	}
}

func (c *cli) resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <dpt>",
		Short: "Show a datapoint type, e.g. 9, DPT9 or 9.001",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			h, err := c.resolve(args[0])
			if err != nil {
				return err
			}

			info := newTypeInfo(h.Descriptor, h.Subtype)
			return c.emit(info, func() {
				pairs := map[string]any{
					"id":          h.String(),
					"bits":        info.BitLength,
					"bytes":       info.ByteLength,
					"kind":        info.Kind,
					"family":      info.Family,
					"signedness":  info.Signedness,
					"bounds":      info.Bounds,
					"description": info.Description,
					"subtypes":    strings.Join(info.Subtypes, " "),
				}
				order := []string{"id", "bits", "bytes", "kind", "family", "signedness", "bounds", "description", "subtypes"}
				if st := h.Subtype; st != nil {
					pairs["name"] = st.Name
					pairs["unit"] = st.Unit
					order = append(order, "name", "unit")
					if st.Range != nil {
						pairs["range"] = *st.Range
						order = append(order, "range")
					}
					if st.ScalarRange != nil {
						pairs["scalar range"] = *st.ScalarRange
						order = append(order, "scalar range")
					}
				}
				c.printKeyValue(pairs, order)
			})
		},
	}
}

func (c *cli) encodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode <dpt> <value>",
		Short: "Encode a value into wire bytes",
		Long: `Encode converts a value into the bytes carried by a group telegram.

The value is parsed as JSON when possible and taken as a plain string
otherwise, so 21.5, true, A and '{"direction":1,"magnitude":3}' all work.`,
		Args: cobra.ExactArgs(2), //nolint:mnd // dpt and value
		RunE: func(_ *cobra.Command, args []string) error {
			h, err := c.resolve(args[0])
			if err != nil {
				return err
			}
			value := parseValueArg(args[1])

			data, err := h.Encode(value)
			if err != nil {
				return err
			}

			res := codecResult{DPT: h.String(), Value: value, Data: strings.ToUpper(hex.EncodeToString(data)), Unit: h.Unit()}
			return c.emit(res, func() {
				fmt.Fprintln(c.out, res.Data)
			})
		},
	}
}

func (c *cli) decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <dpt> <hex>",
		Short: "Decode wire bytes into a value",
		Args:  cobra.ExactArgs(2), //nolint:mnd // dpt and data
		RunE: func(_ *cobra.Command, args []string) error {
			h, err := c.resolve(args[0])
			if err != nil {
				return err
			}
			data, err := parseHex(args[1])
			if err != nil {
				return err
			}

			value, err := h.Decode(data)
			if err != nil {
				return err
			}

			res := codecResult{DPT: h.String(), Value: value, Data: strings.ToUpper(hex.EncodeToString(data)), Unit: h.Unit()}
			return c.emit(res, func() {
				if res.Unit != "" {
					fmt.Fprintf(c.out, "%s %s\n", formatValue(value), res.Unit)
					return
				}
				fmt.Fprintln(c.out, formatValue(value))
			})
		},
	}
}

func (c *cli) resolve(id string) (*dpt.Handle, error) {
	reg, err := c.registry()
	if err != nil {
		return nil, err
	}
	return reg.Resolve(id)
}

func newTypeInfo(d dpt.Descriptor, st *dpt.Subtype) typeInfo {
	return typeInfo{
		ID:          d.ID,
		Main:        d.Main,
		BitLength:   d.BitLength,
		ByteLength:  d.ByteLength(),
		Kind:        d.Kind.String(),
		Family:      d.Family.String(),
		Signedness:  d.Signedness.String(),
		Bounds:      d.Bounds(),
		Description: d.Description,
		Subtype:     st,
		Subtypes:    sortedKeys(d.Subtypes),
	}
}

// parseValueArg reads a command-line value as JSON, falling back to the
// raw string.
func parseValueArg(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

// parseHex accepts "0C33", "0c 33" and "0x0C33".
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	s = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("data must be hex encoded: %w", err)
	}
	return b, nil
}
