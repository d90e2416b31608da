// Package workbook owns the workbook folders: their settings files and the xlsx file that
// stores saved screener rows.
package workbook

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"screenerfetch/internal/columns"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// DateLayout is the date format shown in the display file and the date column.
const DateLayout = "2006/01/02"

const dateNumFmt = "yyyy/mm/dd"

// FirstDataRow is the first row below the header row.
const FirstDataRow = 2

// ErrInvalidStartRow is returned for start rows that point at the header row.
var ErrInvalidStartRow = errors.New("start row must be an integer greater than or equal to 2")

// Workbook is a handle to one xlsx file. Every operation opens, changes and saves the file.
type Workbook struct {
	path  string
	sheet string
}

func Open(path string) *Workbook {
	return &Workbook{path: path, sheet: SheetName}
}

func (w *Workbook) Path() string {
	return w.path
}

type styles struct {
	header     int
	headerLeft int
	date       int
	integer    int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	font := &excelize.Font{Family: "Times New Roman", Size: 12, Bold: true}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      font,
		Alignment: &excelize.Alignment{Horizontal: "right"},
	}); err != nil {
		return s, err
	}
	if s.headerLeft, err = f.NewStyle(&excelize.Style{Font: font}); err != nil {
		return s, err
	}
	numFmt := dateNumFmt
	if s.date, err = f.NewStyle(&excelize.Style{
		CustomNumFmt: &numFmt,
		Alignment:    &excelize.Alignment{Horizontal: "left"},
	}); err != nil {
		return s, err
	}
	if s.integer, err = f.NewStyle(&excelize.Style{
		NumFmt:    1,
		Alignment: &excelize.Alignment{Horizontal: "right"},
	}); err != nil {
		return s, err
	}
	return s, nil
}

// Format replaces the file with an empty sheet holding only the header row.
func (w *Workbook) Format(m *columns.Mapping) error {
	f, err := newSheetFile(w.sheet)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return fmt.Errorf("create styles: %w", err)
	}
	if err := w.writeHeaders(f, st, m, 0); err != nil {
		return err
	}
	if err := f.SetColWidth(w.sheet, "A", "A", 12); err != nil {
		return err
	}
	if err := f.SetPanes(w.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header row: %w", err)
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	log.Debug().Str("path", w.path).Int("columns", m.Len()).Msg("Formatted workbook")
	return nil
}

// newSheetFile returns an empty file whose only sheet is called name. Sheet names compare
// case-insensitively in excelize, so the default sheet is replaced instead of renamed.
func newSheetFile(name string) (*excelize.File, error) {
	const scratch = "screenerfetch"
	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)
	if defaultSheet == name {
		return f, nil
	}
	if _, err := f.NewSheet(scratch); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet(defaultSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	if err := f.SetSheetName(scratch, name); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	f.SetActiveSheet(0)
	return f, nil
}

// UpdateHeaders rewrites the header row of an existing file.
func (w *Workbook) UpdateHeaders(m *columns.Mapping) error {
	return w.update(func(f *excelize.File, st styles) error {
		rows, err := f.GetRows(w.sheet)
		if err != nil {
			return err
		}
		previous := 0
		if len(rows) > 0 {
			previous = len(rows[0])
		}
		return w.writeHeaders(f, st, m, previous)
	})
}

func (w *Workbook) writeHeaders(f *excelize.File, st styles, m *columns.Mapping, previous int) error {
	for i, col := range m.Columns() {
		cell := col.Letter + "1"
		if err := f.SetCellStr(w.sheet, cell, col.DisplayName); err != nil {
			return err
		}
		style := st.header
		if i == 0 {
			style = st.headerLeft
		}
		if err := f.SetCellStyle(w.sheet, cell, cell, style); err != nil {
			return err
		}
	}
	// headers of columns the query no longer has
	for c := m.Len() + 1; c <= previous; c++ {
		cell, err := excelize.CoordinatesToCellName(c, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(w.sheet, cell, nil); err != nil {
			return err
		}
	}
	return nil
}

// LastRow returns the last row whose date column is not empty, or 1 when only headers exist.
func (w *Workbook) LastRow() (int, error) {
	var last int
	err := w.read(func(f *excelize.File) error {
		var err error
		last, err = lastRow(f, w.sheet)
		return err
	})
	return last, err
}

func lastRow(f *excelize.File, sheet string) (int, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return 0, err
	}
	last := 1
	for i, row := range rows {
		if len(row) > 0 && strings.TrimSpace(row[0]) != "" {
			last = i + 1
		}
	}
	return last, nil
}

// AppendRows writes coerced rows after the last dated row and re-normalizes them. The first
// value of each row is the date in DateLayout. It returns the first written row.
func (w *Workbook) AppendRows(m *columns.Mapping, rows [][]string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	cols := m.Columns()
	start := 0
	err := w.update(func(f *excelize.File, st styles) error {
		last, err := lastRow(f, w.sheet)
		if err != nil {
			return err
		}
		start = last + 1
		for i, row := range rows {
			r := start + i
			for j, value := range row {
				if j >= len(cols) {
					break
				}
				cell := cols[j].Letter + strconv.Itoa(r)
				if err := w.writeCell(f, st, cols[j], cell, value); err != nil {
					return fmt.Errorf("write %s: %w", cell, err)
				}
			}
		}
		_, err = normalize(f, st, w.sheet, m, start, start+len(rows)-1)
		return err
	})
	if err != nil {
		return 0, err
	}
	log.Debug().
		Int("first_row", start).
		Int("rows", len(rows)).
		Msg("Appended rows to workbook")
	return start, nil
}

func (w *Workbook) writeCell(f *excelize.File, st styles, col columns.Column, cell, value string) error {
	if col.Letter == columns.DateLetter {
		date, err := time.Parse(DateLayout, value)
		if err != nil {
			return f.SetCellStr(w.sheet, cell, value)
		}
		if err := f.SetCellValue(w.sheet, cell, date); err != nil {
			return err
		}
		return f.SetCellStyle(w.sheet, cell, cell, st.date)
	}
	if col.Kind.Kind == columns.KindInt {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			if err := f.SetCellValue(w.sheet, cell, n); err != nil {
				return err
			}
			return f.SetCellStyle(w.sheet, cell, cell, st.integer)
		}
	}
	return f.SetCellStr(w.sheet, cell, value)
}

// NormalizeNumbers re-applies the int and float rules of m from start to the last row and
// returns the number of rewritten cells. Empty and non-numeric cells are left alone.
func (w *Workbook) NormalizeNumbers(m *columns.Mapping, start int) (int, error) {
	if start < FirstDataRow {
		return 0, ErrInvalidStartRow
	}
	changed := 0
	err := w.update(func(f *excelize.File, st styles) error {
		last, err := lastRow(f, w.sheet)
		if err != nil {
			return err
		}
		changed, err = normalize(f, st, w.sheet, m, start, last)
		return err
	})
	if err != nil {
		return 0, err
	}
	log.Debug().Int("start_row", start).Int("cells", changed).Msg("Normalized numeric cells")
	return changed, nil
}

func normalize(f *excelize.File, st styles, sheet string, m *columns.Mapping, from, to int) (int, error) {
	numeric := m.NumericColumns()
	changed := 0
	for r := from; r <= to; r++ {
		for _, col := range numeric {
			cell := col.Letter + strconv.Itoa(r)
			raw, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
			if err != nil {
				return changed, err
			}
			value, ok := columns.NormalizeCell(col.Kind, raw)
			if !ok {
				continue
			}
			switch v := value.(type) {
			case int64:
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return changed, err
				}
				if err := f.SetCellStyle(sheet, cell, cell, st.integer); err != nil {
					return changed, err
				}
			case string:
				if err := f.SetCellStr(sheet, cell, v); err != nil {
					return changed, err
				}
			}
			changed++
		}
	}
	return changed, nil
}

// UpdateDateFormat re-applies the date style to the date column from start to the last row.
func (w *Workbook) UpdateDateFormat(start int) (int, error) {
	if start < FirstDataRow {
		return 0, ErrInvalidStartRow
	}
	updated := 0
	err := w.update(func(f *excelize.File, st styles) error {
		last, err := lastRow(f, w.sheet)
		if err != nil {
			return err
		}
		if last < start {
			return nil
		}
		from := columns.DateLetter + strconv.Itoa(start)
		to := columns.DateLetter + strconv.Itoa(last)
		updated = last - start + 1
		return f.SetCellStyle(w.sheet, from, to, st.date)
	})
	return updated, err
}

// RemoveDuplicates deletes rows whose date and column B value repeat an earlier row. The lowest
// row of each group stays. Deleted row numbers are returned highest first.
func (w *Workbook) RemoveDuplicates() ([]int, error) {
	var removed []int
	err := w.update(func(f *excelize.File, _ styles) error {
		rows, err := f.GetRows(w.sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return err
		}
		seen := make(map[[2]string]bool)
		var dups []int
		for i := FirstDataRow - 1; i < len(rows); i++ {
			row := rows[i]
			if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
				continue
			}
			key := [2]string{row[0], ""}
			if len(row) > 1 {
				key[1] = row[1]
			}
			if seen[key] {
				dups = append(dups, i+1)
				continue
			}
			seen[key] = true
		}
		for i := len(dups) - 1; i >= 0; i-- {
			if err := f.RemoveRow(w.sheet, dups[i]); err != nil {
				return fmt.Errorf("remove row %d: %w", dups[i], err)
			}
			removed = append(removed, dups[i])
			log.Debug().Int("row", dups[i]).Msg("Removed duplicate row")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// HasDate reports whether any row carries date.
func (w *Workbook) HasDate(date time.Time) (bool, error) {
	want := date.Format(DateLayout)
	found := false
	err := w.read(func(f *excelize.File) error {
		rows, err := f.GetRows(w.sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return err
		}
		for i := FirstDataRow - 1; i < len(rows); i++ {
			if len(rows[i]) > 0 && cellDate(rows[i][0]) == want {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

// cellDate renders a raw date cell, either a date serial or text, in DateLayout.
func cellDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t.Format(DateLayout)
		}
	}
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t.Format(DateLayout)
	}
	return raw
}

// Rows returns the formatted sheet content, header row first, every row padded to the header width.
func (w *Workbook) Rows() ([][]string, error) {
	var out [][]string
	err := w.read(func(f *excelize.File) error {
		rows, err := f.GetRows(w.sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		width := len(rows[0])
		for i, row := range rows {
			if i > 0 && (len(row) == 0 || strings.TrimSpace(row[0]) == "") {
				continue
			}
			padded := make([]string, width)
			copy(padded, row)
			if i > 0 {
				padded[0] = cellDate(padded[0])
			}
			out = append(out, padded)
		}
		return nil
	})
	return out, err
}

func (w *Workbook) read(fn func(f *excelize.File) error) error {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", w.path, err)
	}
	defer f.Close()
	if idx, err := f.GetSheetIndex(w.sheet); err != nil || idx < 0 {
		return fmt.Errorf("workbook %s has no sheet %q", w.path, w.sheet)
	}
	return fn(f)
}

func (w *Workbook) update(fn func(f *excelize.File, st styles) error) error {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", w.path, err)
	}
	defer f.Close()
	if idx, err := f.GetSheetIndex(w.sheet); err != nil || idx < 0 {
		return fmt.Errorf("workbook %s has no sheet %q", w.path, w.sheet)
	}
	st, err := newStyles(f)
	if err != nil {
		return fmt.Errorf("create styles: %w", err)
	}
	if err := fn(f, st); err != nil {
		return err
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// CopyFile copies src to dst, replacing dst, and keeps the modification time.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
