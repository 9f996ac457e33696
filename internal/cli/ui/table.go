// Package ui renders command output: aligned tables, key/value blocks and status messages.
package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Table renders rows under a header, columns padded to their widest cell
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a table with the given headers
func NewTable(w io.Writer, headers []string, noColor bool) *Table {
	return &Table{writer: w, headers: headers, noColor: noColor}
}

// AddRow adds a row. Missing cells render empty, extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			if n := utf8.RuneCountInString(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}

	header := newColor(t.noColor, color.Bold, color.FgCyan)
	rule := newColor(t.noColor, color.FgHiBlack)

	cells := make([]string, len(widths))
	for i, h := range t.headers {
		cells[i] = header.Sprint(padRight(h, widths[i]))
	}
	t.writeLine(cells)

	for i, w := range widths {
		cells[i] = rule.Sprint(strings.Repeat("─", w))
	}
	t.writeLine(cells)

	for _, row := range t.rows {
		for i := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = padRight(cell, widths[i])
		}
		t.writeLine(cells)
	}
}

func (t *Table) writeLine(cells []string) {
	fmt.Fprintln(t.writer, strings.TrimRight(strings.Join(cells, "  "), " "))
}

func padRight(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func newColor(noColor bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if noColor {
		c.DisableColor()
	}
	return c
}

// KeyValueTable renders "key: value" lines with aligned values
type KeyValueTable struct {
	writer  io.Writer
	keys    []string
	values  []string
	noColor bool
}

// NewKeyValueTable creates an empty key/value table
func NewKeyValueTable(w io.Writer, noColor bool) *KeyValueTable {
	return &KeyValueTable{writer: w, noColor: noColor}
}

// AddRow adds a pair
func (t *KeyValueTable) AddRow(key, value string) {
	t.keys = append(t.keys, key)
	t.values = append(t.values, value)
}

// Render writes the pairs
func (t *KeyValueTable) Render() {
	width := 0
	for _, k := range t.keys {
		if n := utf8.RuneCountInString(k) + 1; n > width {
			width = n
		}
	}

	key := newColor(t.noColor, color.FgCyan)
	for i, k := range t.keys {
		key.Fprint(t.writer, padRight(k+":", width))
		fmt.Fprintf(t.writer, " %s\n", t.values[i])
	}
}

// Header writes a title underlined to its own length
func Header(w io.Writer, title string, noColor bool) {
	newColor(noColor, color.Bold, color.FgCyan).Fprintln(w, title)
	newColor(noColor, color.FgHiBlack).Fprintln(w, strings.Repeat("─", utf8.RuneCountInString(title)))
}
