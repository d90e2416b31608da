package workbook

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

type ExportFormat string

const (
	ExportTXT  ExportFormat = "txt"
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
	ExportAll  ExportFormat = "all"
)

// ParseExportFormat accepts txt, csv, json and all.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case ExportTXT, ExportCSV, ExportJSON, ExportAll:
		return f, nil
	default:
		return "", fmt.Errorf("invalid file type %q, expected txt, csv, json or all", s)
	}
}

// Export writes the sheet content into dir as <name>.<format>. ExportAll writes every format.
// It returns the written files.
func (w *Workbook) Export(dir, name string, format ExportFormat) ([]string, error) {
	formats := []ExportFormat{format}
	if format == ExportAll {
		formats = []ExportFormat{ExportTXT, ExportCSV, ExportJSON}
	}

	rows, err := w.Rows()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	var written []string
	for _, f := range formats {
		var data []byte
		switch f {
		case ExportTXT:
			data, err = encodeDelimited(rows, '\t')
		case ExportCSV:
			data, err = encodeDelimited(rows, ',')
		case ExportJSON:
			data, err = encodeRecords(rows)
		default:
			return written, fmt.Errorf("invalid file type %q", f)
		}
		if err != nil {
			return written, fmt.Errorf("encode %s: %w", f, err)
		}
		path := filepath.Join(dir, name+"."+string(f))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
		log.Debug().Str("path", path).Int("rows", len(rows)).Msg("Exported workbook")
	}
	return written, nil
}

func encodeDelimited(rows [][]string, comma rune) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Comma = comma
	if err := cw.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// record keeps the column order of the sheet when encoded.
type record struct {
	keys   []string
	values []any
}

func (r record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeRecords writes one object per data row keyed by header. Repeated headers get a
// numeric suffix and numeric cells are written as numbers.
func encodeRecords(rows [][]string) ([]byte, error) {
	records := []record{}
	if len(rows) > 0 {
		keys := uniqueKeys(rows[0])
		for _, row := range rows[1:] {
			values := make([]any, len(keys))
			for i := range keys {
				values[i] = jsonValue(row[i])
			}
			records = append(records, record{keys: keys, values: values})
		}
	}
	return json.MarshalIndent(records, "", " ")
}

func uniqueKeys(headers []string) []string {
	keys := make([]string, len(headers))
	count := make(map[string]int, len(headers))
	for i, h := range headers {
		if n := count[h]; n > 0 {
			keys[i] = h + "." + strconv.Itoa(n)
		} else {
			keys[i] = h
		}
		count[h]++
	}
	return keys
}

func jsonValue(cell string) any {
	if cell == "" {
		return nil
	}
	if c := cell[0]; (c == '-' || (c >= '0' && c <= '9')) && json.Valid([]byte(cell)) {
		return json.Number(cell)
	}
	return cell
}
