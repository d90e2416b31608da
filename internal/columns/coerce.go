package columns

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Placeholder replaces values that are absent or cannot be coerced to a numeric column type.
const Placeholder = "-"

// ListSeparator joins list values of raw columns.
const ListSeparator = ", "

// CoerceRow turns one API row into display/persistence values: the date first, then every query
// value coerced by its column kind. Missing trailing values become placeholders.
func (m *Mapping) CoerceRow(date string, values []any) []string {
	data := m.columns[1:]
	if len(values) != len(data) {
		log.Warn().
			Int("expected", len(data)).
			Int("received", len(values)).
			Msg("Row value count does not match query columns")
	}

	row := make([]string, len(m.columns))
	row[0] = date
	for i, col := range data {
		var v any
		if i < len(values) {
			v = values[i]
		}
		row[i+1] = Coerce(col.Kind, v)
	}
	return row
}

// Coerce converts a single raw API value according to kind.
func Coerce(kind ValueKind, v any) string {
	switch kind.Kind {
	case KindInt:
		n, ok := FloorInt(v)
		if !ok {
			return Placeholder
		}
		return strconv.FormatInt(n, 10)
	case KindFloat:
		f, ok := toFloat(v)
		if !ok {
			return Placeholder
		}
		return FormatFloat(f, kind.Decimals)
	default:
		return rawText(v)
	}
}

// FloorInt floors a numeric value to an integer.
func FloorInt(v any) (int64, bool) {
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	f = math.Floor(f)
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// FormatFloat rounds f half away from zero and renders exactly decimals fraction digits.
func FormatFloat(f float64, decimals int) string {
	return decimal.NewFromFloat(f).StringFixed(int32(decimals))
}

// NormalizeCell re-applies the numeric rule of kind to a stored cell text. ok is false when the cell
// is empty, non-numeric, or the column is raw; such cells must be left untouched.
// Int columns yield an int64, float columns a fixed-decimal string.
func NormalizeCell(kind ValueKind, text string) (value any, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" || kind.Kind == KindRaw {
		return nil, false
	}
	switch kind.Kind {
	case KindInt:
		n, ok := FloorInt(text)
		if !ok {
			return nil, false
		}
		return n, true
	case KindFloat:
		f, ok := toFloat(text)
		if !ok {
			return nil, false
		}
		return FormatFloat(f, kind.Decimals), true
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func rawText(v any) string {
	switch t := v.(type) {
	case nil:
		return Placeholder
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = rawText(item)
		}
		return strings.Join(parts, ListSeparator)
	case []string:
		return strings.Join(t, ListSeparator)
	default:
		return fmt.Sprint(t)
	}
}
