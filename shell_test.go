package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"screenerfetch/internal/app"
	"screenerfetch/internal/screener"
	"screenerfetch/internal/workbook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScanner struct {
	resp *screener.ScanResponse
}

func (s *stubScanner) GetAPICallCount() int64 {
	return 0
}

func (s *stubScanner) Scan(ctx context.Context, market string, query map[string]any) (*screener.ScanResponse, error) {
	return s.resp, nil
}

type noopOpener struct{}

func (noopOpener) Open(ctx context.Context, path string) error { return nil }

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	store := workbook.NewStore(filepath.Join(t.TempDir(), "workbooks"))
	a, err := app.New(store, app.Options{
		Scanner: &stubScanner{resp: &screener.ScanResponse{
			TotalCount: 2,
			Data: []screener.Row{
				{Symbol: "NASDAQ:NFLX", Values: []any{"NFLX"}},
				{Symbol: "NASDAQ:NVDA", Values: []any{"NVDA"}},
			},
		}},
		TextEditor:  noopOpener{},
		Spreadsheet: noopOpener{},
		Now:         func() time.Time { return time.Date(2025, 1, 20, 9, 30, 0, 0, time.Local) },
	})
	require.NoError(t, err)
	return a
}

func runShell(t *testing.T, a *app.App, input string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, newShell(a, strings.NewReader(input), &out).Run(context.Background()))
	return out.String()
}

func TestShellRequiresWorkbookSelection(t *testing.T) {
	a := newTestApp(t)
	require.Equal(t, workbook.DefaultName, a.Session().Name())

	out := runShell(t, a, "\nmissing\nno\ndemo\nyes\nlist\nexit\n")

	assert.Contains(t, out, "Name cannot be empty.")
	assert.Contains(t, out, `Did not find workbook "missing"`)
	assert.Contains(t, out, "Workbook demo created.")
	assert.Contains(t, out, "* demo")
	assert.Contains(t, out, "[main | WB=demo]>>> ")
	assert.False(t, a.Store().Exists("missing"))
	assert.FileExists(t, a.Session().Paths().Autocopy)
}

func TestShellEndOfInputWhileSelecting(t *testing.T) {
	a := newTestApp(t)
	out := runShell(t, a, "")
	assert.Contains(t, out, "Select or create a workbook to proceed.")
	assert.Equal(t, workbook.DefaultName, a.Session().Name())
}

func TestShellFetchAndSaveAll(t *testing.T) {
	a := newTestApp(t)
	_, err := a.ChangeWorkbook("demo", true)
	require.NoError(t, err)

	out := runShell(t, a, "sa\nf\nsave all\nbogus\nexit\n")
	assert.NotContains(t, out, "Rows for this date already existed")

	assert.Contains(t, out, app.ErrNoFetchData.Error())
	assert.Contains(t, out, "Fetched 2 rows.")
	assert.Contains(t, out, "Saved 2 rows starting at row 2:\nNFLX\nNVDA\n")
	assert.Contains(t, out, "Invalid command.")

	rows, err := a.Session().Workbook().Rows()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2025/01/20", "NFLX"}, rows[1])

	out = runShell(t, a, "f\nsa\nexit\n")
	assert.Contains(t, out, "Saved 2 rows starting at row 4:")
	assert.Contains(t, out, "Rows for this date already existed in the workbook")
}

func TestShellConfirmations(t *testing.T) {
	a := newTestApp(t)
	_, err := a.ChangeWorkbook("demo", true)
	require.NoError(t, err)

	out := runShell(t, a, "copy\nno\nupdate nums\nyes\nexport wb\nback\nexit\n")
	assert.Contains(t, out, "No copy was made.")
	assert.Contains(t, out, "Updating halted.")
	assert.Contains(t, out, "Export halted.")
	assert.NoFileExists(t, a.Session().Paths().Copy)

	out = runShell(t, a, "copy\nyes\nexport wb\ncsv\nexit\n")
	assert.Contains(t, out, "Copying was successful.")
	assert.FileExists(t, a.Session().Paths().Copy)
	assert.FileExists(t, filepath.Join(a.Session().Paths().DataDir, "demo.csv"))
}

func TestShellUpdateQueryMarket(t *testing.T) {
	a := newTestApp(t)
	_, err := a.ChangeWorkbook("demo", true)
	require.NoError(t, err)

	runShell(t, a, "q\nmarket\n\nmarket\namerica\nback\nexit\n")
	assert.Equal(t, "america", a.Session().Settings().Market)
}

func TestShellDeleteCurrentWorkbook(t *testing.T) {
	a := newTestApp(t)
	_, err := a.ChangeWorkbook("old", true)
	require.NoError(t, err)
	_, err = a.ChangeWorkbook("demo", true)
	require.NoError(t, err)

	out := runShell(t, a, "DELETE WB\ndemo\nold\n")

	assert.Contains(t, out, "Workbook demo deleted.")
	assert.Contains(t, out, "Workbook old selected.")
	assert.False(t, a.Store().Exists("demo"))
	assert.Equal(t, "old", a.Session().Name())
}

func TestRunOneShotInOrder(t *testing.T) {
	a := newTestApp(t)
	var out bytes.Buffer

	err := runOneShot(context.Background(), a, oneShot{
		changeWorkbook: "demo",
		fetch:          true,
		saveAll:        true,
		autocopy:       true,
		export:         "all",
	}, &out)
	require.NoError(t, err)

	p := a.Session().Paths()
	assert.Equal(t, "demo", p.Name)
	assert.FileExists(t, p.Autocopy)
	for _, ext := range []string{"txt", "csv", "json"} {
		assert.FileExists(t, filepath.Join(p.DataDir, "demo."+ext))
	}
	assert.Contains(t, out.String(), "Workbook demo created.")
	assert.Contains(t, out.String(), "Fetched 2 rows.")

	data, err := os.ReadFile(filepath.Join(p.DataDir, "demo.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "NVDA")

	out.Reset()
	require.NoError(t, runOneShot(context.Background(), a, oneShot{changeWorkbook: "demo"}, &out))
	assert.Equal(t, "Workbook demo selected.\n", out.String())
}

func TestRunOneShotSaveNeedsFetch(t *testing.T) {
	a := newTestApp(t)
	err := runOneShot(context.Background(), a, oneShot{changeWorkbook: "demo", saveAll: true}, &bytes.Buffer{})
	assert.ErrorIs(t, err, app.ErrNoFetchData)
}

func TestStartRow(t *testing.T) {
	n, err := startRow(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = startRow([]string{"5"})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = startRow([]string{"x"})
	assert.ErrorIs(t, err, workbook.ErrInvalidStartRow)
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-f", "--export"}))

	c := &cli{}
	assert.False(t, c.hasOneShot(newRootCommand()))
	assert.True(t, c.hasOneShot(cmd))

	v, err := cmd.Flags().GetString("export")
	require.NoError(t, err)
	assert.Equal(t, "all", v)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"fetch", "save", "saveall", "run", "query", "headers", "market", "print",
		"list", "wb", "update-date", "update-nums", "remove-duplicates", "copy", "export", "format", "delete", "txt", "excel"} {
		assert.True(t, names[want], want)
	}
}
