// Package columns turns a query column list and per-letter overrides into the column mapping used
// to display, save and re-normalize screener rows.
package columns

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ErrNoColumns is returned when a mapping is built from an empty column list.
var ErrNoColumns = errors.New("query has no columns")

type Kind int

const (
	KindRaw Kind = iota
	KindInt
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return TypeInt
	case KindFloat:
		return TypeFloat
	default:
		return "raw"
	}
}

// ValueKind describes the coercion applied to one column. Decimals is only used by KindFloat.
type ValueKind struct {
	Kind     Kind
	Decimals int
}

func (v ValueKind) String() string {
	if v.Kind == KindFloat {
		return fmt.Sprintf("float(%d)", v.Decimals)
	}
	return v.Kind.String()
}

// Column is one entry of a Mapping.
type Column struct {
	Letter string
	// Raw is the query identifier, or "date" for column A.
	Raw         string
	DisplayName string
	Kind        ValueKind
}

// Mapping is an immutable snapshot of the workbook columns: the date column first, then every
// query column in order.
type Mapping struct {
	columns  []Column
	byLetter map[string]int
}

// Build creates the mapping for rawColumns. It fails with ErrColumnLimitExceeded when the date
// column plus rawColumns do not fit in MaxColumns.
func Build(rawColumns []string, overrides Overrides) (*Mapping, error) {
	if len(rawColumns) == 0 {
		return nil, ErrNoColumns
	}
	letters, err := Letters(len(rawColumns))
	if err != nil {
		return nil, err
	}

	headers := ResolveHeaders(letters, rawColumns, overrides)
	classes := Classify(overrides)

	m := &Mapping{
		columns:  make([]Column, len(letters)),
		byLetter: make(map[string]int, len(letters)),
	}
	for i, letter := range letters {
		raw := DateHeader
		kind := ValueKind{Kind: KindRaw}
		if i > 0 {
			raw = rawColumns[i-1]
			kind = classes.Kind(letter)
		}
		m.columns[i] = Column{
			Letter:      letter,
			Raw:         raw,
			DisplayName: headers[letter],
			Kind:        kind,
		}
		m.byLetter[letter] = i
	}

	for letter := range overrides {
		if _, ok := m.byLetter[letter]; !ok {
			log.Debug().Str("column", letter).Msg("Ignoring header override outside of query columns")
		}
	}

	log.Debug().
		Int("columns", len(m.columns)).
		Str("last_column", m.LastLetter()).
		Msg("Built column mapping")
	return m, nil
}

// Len is the number of columns including the date column.
func (m *Mapping) Len() int {
	return len(m.columns)
}

// Columns returns a copy of all columns, date column first.
func (m *Mapping) Columns() []Column {
	out := make([]Column, len(m.columns))
	copy(out, m.columns)
	return out
}

// DataColumns returns the columns after the date column.
func (m *Mapping) DataColumns() []Column {
	return m.Columns()[1:]
}

// Column looks up a column by letter.
func (m *Mapping) Column(letter string) (Column, bool) {
	i, ok := m.byLetter[letter]
	if !ok {
		return Column{}, false
	}
	return m.columns[i], true
}

// RawColumns returns the query identifiers without the date column.
func (m *Mapping) RawColumns() []string {
	raw := make([]string, 0, len(m.columns)-1)
	for _, c := range m.columns[1:] {
		raw = append(raw, c.Raw)
	}
	return raw
}

// Headers returns the display names in column order.
func (m *Mapping) Headers() []string {
	names := make([]string, len(m.columns))
	for i, c := range m.columns {
		names[i] = c.DisplayName
	}
	return names
}

// FirstDataLetter is the column holding the first query value, normally B.
func (m *Mapping) FirstDataLetter() string {
	return m.columns[1].Letter
}

func (m *Mapping) LastLetter() string {
	return m.columns[len(m.columns)-1].Letter
}

// NumericColumns returns the int and float columns in letter order.
func (m *Mapping) NumericColumns() []Column {
	var out []Column
	for _, c := range m.columns {
		if c.Kind.Kind != KindRaw {
			out = append(out, c)
		}
	}
	return out
}
