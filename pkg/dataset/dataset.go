// Package dataset turns raw comma-separated text into a header plus aligned rows.
//
// Parsing is deliberately naive: fields are split on every comma and trimmed.
// Quoted fields containing commas are not supported.
package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// NotFound is the column index carried by an unresolved role.
const NotFound = -1

// ErrEmpty is matched by every EmptyError.
var ErrEmpty = errors.New("dataset is empty")

// EmptyError reports a dataset with no non-empty line after trimming.
type EmptyError struct {
	Dataset string
}

func (e *EmptyError) Error() string {
	return fmt.Sprintf("%s: no non-empty line in source text", e.Dataset)
}

func (e *EmptyError) Is(target error) bool { return target == ErrEmpty }

// Table is one parsed dataset. Rows may be shorter or longer than Header.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Parse splits text into lines, drops blank ones, and comma-splits the rest.
// The first remaining line is the header.
func Parse(name, text string) (*Table, error) {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lines = append(lines, l)
	}
	if len(lines) == 0 {
		return nil, &EmptyError{Dataset: name}
	}

	t := &Table{
		Name:   name,
		Header: splitFields(lines[0]),
		Rows:   make([][]string, 0, len(lines)-1),
	}
	for _, l := range lines[1:] {
		t.Rows = append(t.Rows, splitFields(l))
	}
	return t, nil
}

func splitFields(line string) []string {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// Cell returns row[idx] when idx addresses an existing cell.
// NotFound and out-of-range indices report false.
func Cell(row []string, idx int) (string, bool) {
	if idx < 0 || idx >= len(row) {
		return "", false
	}
	return row[idx], true
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}
