package columns

import (
	"errors"
	"fmt"
)

// MaxColumns is the number of columns the letter scheme can address: A-Z followed by AA-AZ.
const MaxColumns = 52

// DateLetter is the column reserved for the synthetic date value.
const DateLetter = "A"

// ErrColumnLimitExceeded is matched by every *LimitError.
var ErrColumnLimitExceeded = errors.New("column limit exceeded")

// LimitError reports a configuration that needs more columns than MaxColumns.
type LimitError struct {
	Requested int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("column limit exceeded: %d columns requested, at most %d supported", e.Requested, MaxColumns)
}

func (e *LimitError) Is(target error) bool {
	return target == ErrColumnLimitExceeded
}

// Letters returns the spreadsheet letters for n data columns plus the leading date column.
func Letters(n int) ([]string, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative column count %d", n)
	}
	total := n + 1
	if total > MaxColumns {
		return nil, &LimitError{Requested: total}
	}

	letters := make([]string, total)
	for i := range letters {
		letters[i] = letterAt(i)
	}
	return letters, nil
}

func letterAt(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return "A" + string(rune('A'+i-26))
}

// LetterIndex returns the zero-based position of a letter, or false when the letter is outside A-AZ.
func LetterIndex(letter string) (int, bool) {
	switch len(letter) {
	case 1:
		c := letter[0]
		if c >= 'A' && c <= 'Z' {
			return int(c - 'A'), true
		}
	case 2:
		c := letter[1]
		if letter[0] == 'A' && c >= 'A' && c <= 'Z' {
			return 26 + int(c-'A'), true
		}
	}
	return 0, false
}
