package workbook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"screenerfetch/internal/columns"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func intPtr(i int) *int { return &i }

func testMapping(t *testing.T) *columns.Mapping {
	t.Helper()
	m, err := columns.Build(
		[]string{"name", "close", "volume", "change"},
		columns.Overrides{
			"B": {Name: "Symbol"},
			"C": {Type: "float"},
			"D": {Type: "int"},
			"E": {Type: "float", Decimals: intPtr(1)},
		},
	)
	require.NoError(t, err)
	return m
}

func newTestWorkbook(t *testing.T, m *columns.Mapping) *Workbook {
	t.Helper()
	w := Open(filepath.Join(t.TempDir(), "test.xlsx"))
	require.NoError(t, w.Format(m))
	return w
}

func cellRaw(t *testing.T, w *Workbook, cell string) string {
	t.Helper()
	f, err := excelize.OpenFile(w.Path())
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(SheetName, cell, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return v
}

func setCell(t *testing.T, w *Workbook, cell string, value any) {
	t.Helper()
	f, err := excelize.OpenFile(w.Path())
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue(SheetName, cell, value))
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())
}

func sampleRows(m *columns.Mapping) [][]string {
	return [][]string{
		m.CoerceRow("2025/01/20", []any{"NFLX", 869.684, 9846543.0, 1.234}),
		m.CoerceRow("2025/01/20", []any{"ORCL", 170.1, nil, nil}),
		m.CoerceRow("2025/01/21", []any{"NVDA", 137.71, 285162700.0, -2.25}),
	}
}

func TestFormatWritesHeaders(t *testing.T) {
	m := testMapping(t)
	w := newTestWorkbook(t, m)

	rows, err := w.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"date", "Symbol", "close", "volume", "change"}, rows[0])

	last, err := w.LastRow()
	require.NoError(t, err)
	assert.Equal(t, 1, last)

	f, err := excelize.OpenFile(w.Path())
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetName}, f.GetSheetList())
}

func TestAppendRows(t *testing.T) {
	m := testMapping(t)
	w := newTestWorkbook(t, m)

	first, err := w.AppendRows(m, sampleRows(m))
	require.NoError(t, err)
	assert.Equal(t, 2, first)

	assert.Equal(t, "NFLX", cellRaw(t, w, "B2"))
	assert.Equal(t, "869.68", cellRaw(t, w, "C2"))
	assert.Equal(t, "9846543", cellRaw(t, w, "D2"))
	assert.Equal(t, "-", cellRaw(t, w, "D3"))
	assert.Equal(t, "1.2", cellRaw(t, w, "E2"))
	assert.Equal(t, "-", cellRaw(t, w, "E3"))
	assert.Equal(t, "2025/01/20", cellDate(cellRaw(t, w, "A2")))

	rows, err := w.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"2025/01/21", "NVDA", "137.71", "285162700", "-2.3"}, rows[3])

	second, err := w.AppendRows(m, sampleRows(m)[:1])
	require.NoError(t, err)
	assert.Equal(t, 5, second)
}

func TestNormalizeNumbersIsIdempotent(t *testing.T) {
	m := testMapping(t)
	w := newTestWorkbook(t, m)
	_, err := w.AppendRows(m, sampleRows(m))
	require.NoError(t, err)

	setCell(t, w, "C3", "170.1049")
	setCell(t, w, "D4", 285162700.75)
	setCell(t, w, "E2", "12.25")

	_, err = w.NormalizeNumbers(m, 2)
	require.NoError(t, err)
	once, err := w.Rows()
	require.NoError(t, err)
	assert.Equal(t, "170.10", once[2][2])
	assert.Equal(t, "285162700", once[3][3])
	assert.Equal(t, "12.3", once[1][4])
	assert.Equal(t, "-", once[2][3])

	_, err = w.NormalizeNumbers(m, 2)
	require.NoError(t, err)
	twice, err := w.Rows()
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestNormalizeNumbersStartRow(t *testing.T) {
	m := testMapping(t)
	w := newTestWorkbook(t, m)
	_, err := w.AppendRows(m, sampleRows(m))
	require.NoError(t, err)

	setCell(t, w, "C2", "1.999")
	setCell(t, w, "C4", "1.999")
	_, err = w.NormalizeNumbers(m, 4)
	require.NoError(t, err)
	assert.Equal(t, "1.999", cellRaw(t, w, "C2"))
	assert.Equal(t, "2.00", cellRaw(t, w, "C4"))

	_, err = w.NormalizeNumbers(m, 1)
	assert.ErrorIs(t, err, ErrInvalidStartRow)
}

func TestUpdateDateFormat(t *testing.T) {
	m := testMapping(t)
	w := newTestWorkbook(t, m)
	_, err := w.AppendRows(m, sampleRows(m))
	require.NoError(t, err)

	n, err := w.UpdateDateFormat(3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = w.UpdateDateFormat(1)
	assert.ErrorIs(t, err, ErrInvalidStartRow)

	n, err = w.UpdateDateFormat(50)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRemoveDuplicates(t *testing.T) {
	m := testMapping(t)
	w := newTestWorkbook(t, m)
	rows := sampleRows(m)
	_, err := w.AppendRows(m, rows)
	require.NoError(t, err)
	_, err = w.AppendRows(m, [][]string{rows[0], rows[2], rows[1], rows[0]})
	require.NoError(t, err)

	removed, err := w.RemoveDuplicates()
	require.NoError(t, err)
	assert.Equal(t, []int{8, 7, 6, 5}, removed)

	got, err := w.Rows()
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "NFLX", got[1][1])
	assert.Equal(t, "ORCL", got[2][1])
	assert.Equal(t, "NVDA", got[3][1])

	removed, err = w.RemoveDuplicates()
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestRemoveDuplicatesKeepsSameSymbolOnOtherDays(t *testing.T) {
	m := testMapping(t)
	w := newTestWorkbook(t, m)
	_, err := w.AppendRows(m, [][]string{
		m.CoerceRow("2025/01/20", []any{"NFLX", 1.0, 1.0, nil}),
		m.CoerceRow("2025/01/21", []any{"NFLX", 2.0, 2.0, nil}),
	})
	require.NoError(t, err)

	removed, err := w.RemoveDuplicates()
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestHasDate(t *testing.T) {
	m := testMapping(t)
	w := newTestWorkbook(t, m)
	_, err := w.AppendRows(m, sampleRows(m))
	require.NoError(t, err)

	ok, err := w.HasDate(time.Date(2025, 1, 21, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.HasDate(time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateHeaders(t *testing.T) {
	m := testMapping(t)
	w := newTestWorkbook(t, m)

	smaller, err := columns.Build([]string{"name", "close"}, columns.Overrides{"C": {Name: "Close"}})
	require.NoError(t, err)
	require.NoError(t, w.UpdateHeaders(smaller))

	assert.Equal(t, "Close", cellRaw(t, w, "C1"))
	assert.Equal(t, "", cellRaw(t, w, "D1"))
	assert.Equal(t, "", cellRaw(t, w, "E1"))
}

func TestExport(t *testing.T) {
	m := testMapping(t)
	w := newTestWorkbook(t, m)
	_, err := w.AppendRows(m, sampleRows(m)[:2])
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "data")
	files, err := w.Export(dir, "stocks", ExportAll)
	require.NoError(t, err)
	require.Len(t, files, 3)

	csvData, err := os.ReadFile(filepath.Join(dir, "stocks.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"date,Symbol,close,volume,change\n"+
			"2025/01/20,NFLX,869.68,9846543,1.2\n"+
			"2025/01/20,ORCL,170.10,-,-\n",
		string(csvData))

	txtData, err := os.ReadFile(filepath.Join(dir, "stocks.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(txtData), "2025/01/20\tNFLX\t869.68\t9846543\t1.2\n")

	jsonData, err := os.ReadFile(filepath.Join(dir, "stocks.json"))
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(jsonData, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "NFLX", records[0]["Symbol"])
	assert.Equal(t, 869.68, records[0]["close"])
	assert.Equal(t, 1.2, records[0]["change"])
	assert.Equal(t, "-", records[1]["volume"])
	assert.Equal(t, "2025/01/20", records[1]["date"])
}

func TestExportSingleFormat(t *testing.T) {
	m := testMapping(t)
	w := newTestWorkbook(t, m)
	dir := t.TempDir()

	files, err := w.Export(dir, "stocks", ExportJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "stocks.json")}, files)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestParseExportFormat(t *testing.T) {
	for _, s := range []string{"txt", "CSV", " json ", "all"} {
		_, err := ParseExportFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseExportFormat("xlsx")
	assert.Error(t, err)
}

func TestUniqueKeys(t *testing.T) {
	assert.Equal(t, []string{"date", "open", "open.1", "open.2"}, uniqueKeys([]string{"date", "open", "open", "open"}))
}

func TestCopyFile(t *testing.T) {
	m := testMapping(t)
	w := newTestWorkbook(t, m)
	dst := filepath.Join(t.TempDir(), "copy.xlsx")

	require.NoError(t, CopyFile(w.Path(), dst))
	src, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	cp, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, src, cp)

	assert.Error(t, CopyFile(filepath.Join(t.TempDir(), "missing.xlsx"), dst))
}
