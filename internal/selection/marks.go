package selection

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
)

// ErrInvalidSymbolSelection is matched by every *InvalidSelectionError.
var ErrInvalidSymbolSelection = errors.New("invalid symbol selection")

// InvalidSelectionError names a marked token that matched no fetched row.
type InvalidSelectionError struct {
	Token string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid symbol %q, saving process halted", e.Token)
}

func (e *InvalidSelectionError) Is(target error) bool {
	return target == ErrInvalidSymbolSelection
}

// ParseMarked returns the marked tokens of a display file in file order. Lines of the preamble are
// skipped. A marked line is one whose left-trimmed text starts with Marker; its token is the first
// whitespace-delimited word after the marker.
func ParseMarked(r io.Reader) ([]string, error) {
	var tokens []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo <= PreambleLines {
			continue
		}
		line := strings.TrimLeftFunc(scanner.Text(), unicode.IsSpace)
		if !strings.HasPrefix(line, Marker) {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, Marker))
		if len(fields) == 0 {
			log.Debug().Int("line", lineNo).Msg("Ignoring marker without a symbol")
			continue
		}
		tokens = append(tokens, fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read display file: %w", err)
	}
	return tokens, nil
}

// ReadMarkedFile opens path and parses its marks.
func ReadMarkedFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open display file: %w", err)
	}
	defer f.Close()
	return ParseMarked(f)
}

// Match selects, for each token in order, the first row holding a field equal to the token.
// A token that matches no row fails the whole selection with an *InvalidSelectionError and no
// rows are returned. A row selected by several tokens is returned once.
func Match(rows [][]string, tokens []string) ([][]string, error) {
	picked := make(map[int]bool, len(tokens))
	selected := make([][]string, 0, len(tokens))

	for _, token := range tokens {
		idx := findRow(rows, token)
		if idx < 0 {
			return nil, &InvalidSelectionError{Token: token}
		}
		if picked[idx] {
			log.Debug().Str("symbol", token).Msg("Row already selected")
			continue
		}
		picked[idx] = true
		selected = append(selected, rows[idx])
	}
	return selected, nil
}

func findRow(rows [][]string, token string) int {
	for i, row := range rows {
		for _, field := range row {
			if field == token {
				return i
			}
		}
	}
	return -1
}
