// Package ui renders command output for the terminal
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table lays out rows in aligned columns under a colored header
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a new table with the given headers
func NewTable(w io.Writer, noColor bool, headers ...string) *Table {
	return &Table{
		writer:  w,
		headers: headers,
		noColor: noColor,
	}
}

// AddRow adds a row; cells past the header count are dropped
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
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	bold := t.color(color.Bold, color.FgCyan)
	t.line(widths, t.headers, func(s string) string { return bold.Sprint(s) })

	gray := t.color(color.FgHiBlack)
	rules := make([]string, len(widths))
	for i, width := range widths {
		rules[i] = strings.Repeat("─", width)
	}
	t.line(widths, rules, func(s string) string { return gray.Sprint(s) })

	for _, row := range t.rows {
		t.line(widths, row, nil)
	}
}

func (t *Table) line(widths []int, cells []string, paint func(string) string) {
	n := len(cells)
	if n > len(widths) {
		n = len(widths)
	}

	parts := make([]string, n)
	for i := 0; i < n; i++ {
		cell := cells[i]
		if i < n-1 {
			cell = padRight(cell, widths[i])
		}
		if paint != nil {
			cell = paint(cell)
		}
		parts[i] = cell
	}
	fmt.Fprintln(t.writer, strings.Join(parts, "  "))
}

func (t *Table) color(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if t.noColor {
		c.DisableColor()
	}
	return c
}

// padRight pads a string with spaces on the right to reach the target width
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// KeyValues renders aligned "key: value" pairs, in the order given
func KeyValues(w io.Writer, noColor bool, pairs ...[2]string) {
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}

	cyan := color.New(color.FgCyan)
	if noColor {
		cyan.DisableColor()
	}
	for _, p := range pairs {
		fmt.Fprintf(w, "%s %s\n", cyan.Sprint(padRight(p[0]+":", width+1)), p[1])
	}
}

// Success prints a green check line
func Success(w io.Writer, noColor bool, format string, args ...interface{}) {
	status(w, noColor, color.FgGreen, "✓", format, args...)
}

// Warn prints a yellow warning line
func Warn(w io.Writer, noColor bool, format string, args ...interface{}) {
	status(w, noColor, color.FgYellow, "!", format, args...)
}

func status(w io.Writer, noColor bool, attr color.Attribute, symbol, format string, args ...interface{}) {
	c := color.New(attr, color.Bold)
	if noColor {
		c.DisableColor()
	}
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), fmt.Sprintf(format, args...))
}
