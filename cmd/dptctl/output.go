package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Output formats accepted by --output.
const (
	outputText = "text"
	outputJSON = "json"
)

// emit writes v as indented JSON, or calls text for the text format.
func (c *cli) emit(v any, text func()) error {
	if c.v.GetString("output") == outputJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text()
	return nil
}

// printKeyValue prints aligned "key: value" lines in order.
func (c *cli) printKeyValue(pairs map[string]any, order []string) {
	width := 0
	for _, k := range order {
		if len(k) > width {
			width = len(k)
		}
	}
	for _, k := range order {
		if v, ok := pairs[k]; ok {
			fmt.Fprintf(c.out, "%-*s: %v\n", width, k, v)
		}
	}
}

// printTable prints rows under headers with padded columns.
func (c *cli) printTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	line := func(cells []string) {
		parts := make([]string, 0, len(cells))
		for i, cell := range cells {
			parts = append(parts, fmt.Sprintf("%-*s", widths[i], cell))
		}
		fmt.Fprintln(c.out, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	line(headers)
	sep := make([]string, len(headers))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	line(sep)
	for _, row := range rows {
		line(row)
	}
}

// formatValue renders a decoded value for text output. Composite values
// print as compact JSON.
func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	if b, err := json.Marshal(v); err == nil && len(b) > 0 && (b[0] == '{' || b[0] == '[') {
		return string(b)
	}
	return fmt.Sprint(v)
}

// sortedKeys returns m's keys in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
