package workbook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"screenerfetch/internal/columns"
	"screenerfetch/internal/screener"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog/log"
)

// ErrInvalidJSON is returned when user supplied JSON cannot be decoded even after repair.
var ErrInvalidJSON = errors.New("invalid json text given, make sure all properties are enclosed in double quotes")

// Settings is the content of settings/settings.json.
type Settings struct {
	Type    string            `json:"type"`
	Market  string            `json:"market"`
	Headers columns.Overrides `json:"headers"`
	Query   map[string]any    `json:"query"`
}

func DefaultSettings() *Settings {
	return &Settings{
		Type:    "basic",
		Market:  "global",
		Headers: columns.Overrides{},
		Query: map[string]any{
			"columns": []any{"name"},
			"range":   []any{0, 1},
		},
	}
}

// LoadSettings reads a settings file. Header overrides the headers editor would reject are
// dropped with a warning so a hand-edited file never locks the workbook.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	var s Settings
	if err := decodeLenient(data, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if s.Headers == nil {
		s.Headers = columns.Overrides{}
	}
	if s.Query == nil {
		s.Query = map[string]any{}
	}
	if s.Market == "" {
		s.Market = "global"
	}
	s.Headers = s.Headers.Sanitize()
	return &s, nil
}

func (s *Settings) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Columns returns the query column identifiers the scanner is asked for, ignored columns removed.
func (s *Settings) Columns() ([]string, error) {
	cols, err := screener.Columns(s.Query)
	if err != nil {
		return nil, err
	}
	return screener.FilterColumns(cols), nil
}

// Mapping builds the column mapping of these settings.
func (s *Settings) Mapping() (*columns.Mapping, error) {
	cols, err := s.Columns()
	if err != nil {
		return nil, err
	}
	return columns.Build(cols, s.Headers)
}

// IsDefaultQuery reports whether the query still selects only the name column.
func (s *Settings) IsDefaultQuery() bool {
	cols, err := s.Columns()
	return err == nil && len(cols) == 1 && cols[0] == "name"
}

// ApplyQuery replaces the query and derives the market from it.
func (s *Settings) ApplyQuery(query map[string]any) {
	s.Query = query
	s.Market = screener.MarketOf(query)
}

// ParseQuery decodes query.txt content. Empty content is an empty query. The returned query has
// its ignored columns removed.
func ParseQuery(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	var query map[string]any
	if err := decodeLenient(data, &query); err != nil {
		return nil, err
	}
	if query == nil {
		query = map[string]any{}
	}
	return screener.CleanQuery(query)
}

// ParseHeaders decodes headers.txt content.
func ParseHeaders(data []byte) (columns.Overrides, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return columns.Overrides{}, nil
	}
	if json.Valid(data) {
		return columns.ParseOverrides(data)
	}
	repaired, err := jsonrepair.JSONRepair(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	log.Warn().Msg("Headers were not valid JSON and have been repaired")
	return columns.ParseOverrides([]byte(repaired))
}

// WriteJSONText writes v as indented JSON for the user to edit.
func WriteJSONText(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// decodeLenient decodes data into v, running it through jsonrepair first when it is not valid JSON.
func decodeLenient(data []byte, v any) error {
	if json.Valid(data) {
		return decodeNumbers(data, v)
	}
	repaired, err := jsonrepair.JSONRepair(string(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	log.Warn().Msg("Input was not valid JSON and has been repaired")
	if err := decodeNumbers([]byte(repaired), v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}

// decodeNumbers keeps query numbers such as range bounds as written.
func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
