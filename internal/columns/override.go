package columns

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	TypeInt   = "int"
	TypeFloat = "float"
)

// DefaultDecimals is used for float columns that do not set decimals.
const DefaultDecimals = 2

// MaxDecimals is the largest decimal count a float64 value can carry meaningfully.
const MaxDecimals = 15

// Override customizes one column. Every field is optional.
type Override struct {
	Name     string `json:"name,omitempty"`
	Type     string `json:"type,omitempty"`
	Decimals *int   `json:"decimals,omitempty"`
}

// Overrides maps a column letter to its override.
type Overrides map[string]Override

// ParseOverrides decodes and validates the headers JSON of a workbook.
// An empty document yields an empty map.
func ParseOverrides(data []byte) (Overrides, error) {
	if strings.TrimSpace(string(data)) == "" {
		return Overrides{}, nil
	}
	var overrides Overrides
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("decode headers: %w", err)
	}
	if overrides == nil {
		overrides = Overrides{}
	}
	if err := overrides.Validate(); err != nil {
		return nil, err
	}
	return overrides, nil
}

// Validate checks letter keys and decimal counts.
// Unknown type values are allowed and treated as raw.
func (o Overrides) Validate() error {
	for _, letter := range o.sortedLetters() {
		ov := o[letter]
		if _, ok := LetterIndex(letter); !ok {
			return fmt.Errorf("invalid column letter %q in headers", letter)
		}
		if ov.Decimals != nil && (*ov.Decimals < 0 || *ov.Decimals > MaxDecimals) {
			return fmt.Errorf("column %s: decimals must be between 0 and %d, got %d", letter, MaxDecimals, *ov.Decimals)
		}
		if ov.Type != "" && ov.Type != TypeInt && ov.Type != TypeFloat {
			log.Warn().
				Str("column", letter).
				Str("type", ov.Type).
				Msg("Unrecognized column type; values are kept as text")
		}
	}
	return nil
}

// Sanitize returns a copy without the entries Validate would reject: overrides on unknown
// letters are dropped and out of range decimals are cleared. Each dropped value is logged.
func (o Overrides) Sanitize() Overrides {
	out := make(Overrides, len(o))
	for _, letter := range o.sortedLetters() {
		ov := o[letter]
		if _, ok := LetterIndex(letter); !ok {
			log.Warn().Str("column", letter).Msg("Dropping header override for an invalid column letter")
			continue
		}
		if ov.Decimals != nil && (*ov.Decimals < 0 || *ov.Decimals > MaxDecimals) {
			log.Warn().
				Str("column", letter).
				Int("decimals", *ov.Decimals).
				Msg("Dropping out of range decimals")
			ov.Decimals = nil
		}
		out[letter] = ov
	}
	return out
}

func (o Overrides) sortedLetters() []string {
	letters := make([]string, 0, len(o))
	for letter := range o {
		letters = append(letters, letter)
	}
	sort.Slice(letters, func(i, j int) bool {
		if len(letters[i]) != len(letters[j]) {
			return len(letters[i]) < len(letters[j])
		}
		return letters[i] < letters[j]
	})
	return letters
}
