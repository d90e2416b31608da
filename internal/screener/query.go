// Package screener talks to the TradingView scanner API.
package screener

import (
	"fmt"
)

// IgnoredColumns are query columns that describe the symbol for the TradingView web page but
// carry no screening data. They are removed before a query is stored or sent.
var IgnoredColumns = map[string]bool{
	"description":               true,
	"logoid":                    true,
	"update_mode":               true,
	"type":                      true,
	"typespecs":                 true,
	"pricescale":                true,
	"minmov":                    true,
	"fractional":                true,
	"minmove2":                  true,
	"currency":                  true,
	"fundamental_currency_code": true,
	"exchange":                  true,
}

// FilterColumns drops IgnoredColumns and keeps the order of the rest.
func FilterColumns(columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if !IgnoredColumns[c] {
			out = append(out, c)
		}
	}
	return out
}

// Columns returns the column identifiers of a query object.
func Columns(query map[string]any) ([]string, error) {
	raw, ok := query["columns"]
	if !ok {
		return nil, nil
	}
	switch list := raw.(type) {
	case []string:
		return append([]string(nil), list...), nil
	case []any:
		columns := make([]string, 0, len(list))
		for i, v := range list {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("query column %d is %T, expected a string", i, v)
			}
			columns = append(columns, s)
		}
		return columns, nil
	default:
		return nil, fmt.Errorf("query columns must be a list, got %T", raw)
	}
}

// CleanQuery returns a shallow copy of query whose columns have been filtered.
func CleanQuery(query map[string]any) (map[string]any, error) {
	columns, err := Columns(query)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(query))
	for k, v := range query {
		out[k] = v
	}
	if _, ok := query["columns"]; ok {
		filtered := FilterColumns(columns)
		list := make([]any, len(filtered))
		for i, c := range filtered {
			list[i] = c
		}
		out["columns"] = list
	}
	return out, nil
}

// MarketOf derives the market of a query from its markets list: one entry selects that market,
// anything else selects "global".
func MarketOf(query map[string]any) string {
	markets, ok := query["markets"].([]any)
	if !ok || len(markets) != 1 {
		return "global"
	}
	m, ok := markets[0].(string)
	if !ok || m == "" {
		return "global"
	}
	return m
}
