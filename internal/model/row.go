package model

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Row is an ordered mapping from column name to cell text.
// A nil value is a null cell. Columns and Values always have the same length.
type Row struct {
	Columns []string
	Values  []*string
}

// NewRow builds a row from parallel column and value slices.
func NewRow(columns []string, values []*string) Row {
	return Row{Columns: columns, Values: values}
}

// TextRow builds a row without null cells.
func TextRow(columns []string, values ...string) Row {
	cells := make([]*string, len(values))
	for i := range values {
		cells[i] = &values[i]
	}
	return Row{Columns: columns, Values: cells}
}

// Text returns a pointer to s, for building rows by hand.
func Text(s string) *string {
	return &s
}

// Get returns the cell for column. ok is false when the column is absent
// or the cell is null.
func (r Row) Get(column string) (value string, ok bool) {
	for i, c := range r.Columns {
		if c == column {
			if r.Values[i] == nil {
				return "", false
			}
			return *r.Values[i], true
		}
	}
	return "", false
}

// Cells returns the row's cells aligned to columns. Rows that already carry
// exactly these columns are returned positionally, which keeps duplicate
// result names (e.g. two joined `id` columns) intact.
func (r Row) Cells(columns []string) []*string {
	if slices.Equal(r.Columns, columns) {
		return r.Values
	}
	cells := make([]*string, len(columns))
	for i, c := range columns {
		if j := slices.Index(r.Columns, c); j >= 0 {
			cells[i] = r.Values[j]
		}
	}
	return cells
}

// MarshalJSON renders the row as a JSON object in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
