// Package app runs the screenerfetch commands against the selected workbook.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"screenerfetch/internal/editor"
	"screenerfetch/internal/screener"
	"screenerfetch/internal/selection"
	"screenerfetch/internal/sheets"
	"screenerfetch/internal/workbook"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/pretty"
)

// ErrNoFetchData is returned by the save commands before anything was fetched.
var ErrNoFetchData = errors.New("no data available to save, fetch data before you attempt to save it")

type Scanner interface {
	Scan(ctx context.Context, market string, query map[string]any) (*screener.ScanResponse, error)
	GetAPICallCount() int64
}

type Mirror interface {
	Sync(ctx context.Context, headers []string, rows [][]string) (sheets.SyncResult, error)
}

type Notifier interface {
	NotifySavedRows(ctx context.Context, workbook string, symbols []string)
	GetMetrics() (sent, failed int64)
}

// Options holds the collaborators of an App. Mirror and Notifier are optional.
type Options struct {
	Scanner     Scanner
	TextEditor  editor.Opener
	Spreadsheet editor.Opener
	Mirror      Mirror
	Notifier    Notifier
	Now         func() time.Time
}

// FetchResult holds the coerced rows of the last fetch, date first in every row. APICalls counts
// the scanner requests the fetch needed, retries included.
type FetchResult struct {
	Date       string
	TotalCount int
	Rows       [][]string
	APICalls   int64
}

// Symbols returns the first query value of every row.
func (f *FetchResult) Symbols() []string {
	return symbols(f.Rows)
}

// SaveResult describes one save. DateExisted is set when the workbook already held rows with
// the date of the saved rows.
type SaveResult struct {
	FirstRow    int
	Symbols     []string
	DateExisted bool
}

type QueryUpdate struct {
	Market      string
	Columns     []string
	Reformatted bool
}

type App struct {
	store   *workbook.Store
	session *Session
	fetched *FetchResult
	opts    Options
}

// New selects the current workbook of store, falling back to the default workbook, and loads
// its session.
func New(store *workbook.Store, opts Options) (*App, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	name, err := store.Init()
	if err != nil {
		return nil, err
	}
	session, err := LoadSession(store, name)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("workbook", name).
		Int("columns", session.Mapping().Len()).
		Msg("Session loaded")
	return &App{store: store, session: session, opts: opts}, nil
}

func (a *App) Session() *Session {
	return a.session
}

func (a *App) Store() *workbook.Store {
	return a.store
}

// LastFetch returns the rows of the last fetch, or nil.
func (a *App) LastFetch() *FetchResult {
	return a.fetched
}

func (a *App) setSession(s *Session) {
	a.session = s
	if a.fetched != nil {
		log.Debug().Msg("Discarding fetched rows of the previous configuration")
		a.fetched = nil
	}
}

// Fetch queries the scanner, coerces the rows with the current mapping and writes the
// display file.
func (a *App) Fetch(ctx context.Context) (*FetchResult, error) {
	s := a.session
	query, err := screener.CleanQuery(s.settings.Query)
	if err != nil {
		return nil, fmt.Errorf("workbook query: %w", err)
	}
	callsBefore := a.opts.Scanner.GetAPICallCount()
	resp, err := a.opts.Scanner.Scan(ctx, s.settings.Market, query)
	callsAfter := a.opts.Scanner.GetAPICallCount()
	if err != nil {
		log.Debug().Int64("api_calls", callsAfter-callsBefore).Msg("Scan failed")
		return nil, fmt.Errorf("fetch: %w", err)
	}

	date := a.opts.Now().Format(workbook.DateLayout)
	rows := make([][]string, 0, len(resp.Data))
	for _, r := range resp.Data {
		rows = append(rows, s.mapping.CoerceRow(date, r.Values))
	}

	headers := make([]string, 0, s.mapping.Len()-1)
	for _, c := range s.mapping.DataColumns() {
		headers = append(headers, c.DisplayName)
	}
	if err := selection.WriteFile(a.store.DisplayFile(), date, headers, dataFields(rows)); err != nil {
		return nil, err
	}

	a.fetched = &FetchResult{Date: date, TotalCount: resp.TotalCount, Rows: rows, APICalls: callsAfter - callsBefore}
	log.Info().
		Int("rows", len(rows)).
		Int("total_count", resp.TotalCount).
		Int64("api_calls", a.fetched.APICalls).
		Str("market", s.settings.Market).
		Msg("Fetched screener rows")
	return a.fetched, nil
}

// Save opens the display file for the user to mark rows and saves the marked rows once the
// editor exits. A mark that matches no fetched row aborts the save and nothing is written.
func (a *App) Save(ctx context.Context) (*SaveResult, error) {
	if a.fetched == nil {
		return nil, ErrNoFetchData
	}
	path := a.store.DisplayFile()
	if err := a.opts.TextEditor.Open(ctx, path); err != nil {
		return nil, err
	}
	tokens, err := selection.ReadMarkedFile(path)
	if err != nil {
		return nil, err
	}
	return a.SaveMarked(ctx, tokens)
}

// SaveMarked saves the fetched rows selected by tokens.
func (a *App) SaveMarked(ctx context.Context, tokens []string) (*SaveResult, error) {
	if a.fetched == nil {
		return nil, ErrNoFetchData
	}
	if len(tokens) == 0 {
		log.Info().Msg("No rows marked for saving")
		return &SaveResult{}, nil
	}
	selected, err := selection.Match(dataFields(a.fetched.Rows), tokens)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(selected))
	for i, fields := range selected {
		rows[i] = append([]string{a.fetched.Date}, fields...)
	}
	return a.persist(ctx, rows)
}

// SaveAll saves every fetched row.
func (a *App) SaveAll(ctx context.Context) (*SaveResult, error) {
	if a.fetched == nil {
		return nil, ErrNoFetchData
	}
	if len(a.fetched.Rows) == 0 {
		return &SaveResult{}, nil
	}
	return a.persist(ctx, a.fetched.Rows)
}

func (a *App) persist(ctx context.Context, rows [][]string) (*SaveResult, error) {
	s := a.session
	wb := s.Workbook()
	dateExisted := false
	if date, err := time.Parse(workbook.DateLayout, rows[0][0]); err == nil {
		saved, err := wb.HasDate(date)
		if err != nil {
			return nil, fmt.Errorf("check saved dates: %w", err)
		}
		dateExisted = saved
	}

	first, err := wb.AppendRows(s.mapping, rows)
	if err != nil {
		return nil, fmt.Errorf("save rows: %w", err)
	}
	result := &SaveResult{FirstRow: first, Symbols: symbols(rows), DateExisted: dateExisted}
	log.Info().
		Str("workbook", s.Name()).
		Int("rows", len(rows)).
		Int("first_row", first).
		Bool("date_existed", dateExisted).
		Msg("Saved rows")

	if a.opts.Mirror != nil {
		if _, err := a.opts.Mirror.Sync(ctx, s.mapping.Headers(), rows); err != nil {
			log.Warn().Err(err).Msg("Failed to mirror saved rows")
		}
	}
	if a.opts.Notifier != nil {
		a.opts.Notifier.NotifySavedRows(ctx, s.Name(), result.Symbols)
		sent, failed := a.opts.Notifier.GetMetrics()
		log.Debug().
			Int64("notifications_sent", sent).
			Int64("notifications_failed", failed).
			Msg("Notification summary")
	}
	return result, nil
}

// QuickRun fetches, saves every row and refreshes the automatic copy.
func (a *App) QuickRun(ctx context.Context) (*SaveResult, error) {
	if _, err := a.Fetch(ctx); err != nil {
		return nil, err
	}
	res, err := a.SaveAll(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.Autocopy(); err != nil {
		return nil, err
	}
	return res, nil
}

// UpdateQuery lets the user edit query.txt and applies it.
func (a *App) UpdateQuery(ctx context.Context) (*QueryUpdate, error) {
	path := a.session.paths.QueryText
	if err := a.opts.TextEditor.Open(ctx, path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query: %w", err)
	}
	return a.ApplyQueryText(data)
}

// ApplyQueryText replaces the query with the JSON in data and derives the market from it.
// A workbook still formatted for the default query is reformatted, otherwise its headers are
// rewritten. On failure the current settings stay in effect.
func (a *App) ApplyQueryText(data []byte) (*QueryUpdate, error) {
	query, err := workbook.ParseQuery(data)
	if err != nil {
		return nil, err
	}
	settings := a.session.Settings()
	wasDefault := settings.IsDefaultQuery()
	settings.ApplyQuery(query)

	next, err := NewSession(a.session.paths, settings)
	if err != nil {
		return nil, err
	}
	if err := settings.Save(next.paths.Settings); err != nil {
		return nil, err
	}
	a.setSession(next)

	update := &QueryUpdate{Market: settings.Market, Columns: next.mapping.RawColumns()}
	wb := next.Workbook()
	if wasDefault {
		if err := wb.Format(next.mapping); err != nil {
			return update, err
		}
		update.Reformatted = true
	} else if err := wb.UpdateHeaders(next.mapping); err != nil {
		return update, err
	}
	log.Info().
		Str("market", update.Market).
		Int("columns", len(update.Columns)).
		Bool("reformatted", update.Reformatted).
		Msg("Query updated")
	return update, nil
}

// UpdateHeaders lets the user edit headers.txt and applies it.
func (a *App) UpdateHeaders(ctx context.Context) error {
	path := a.session.paths.HeadersText
	if err := a.opts.TextEditor.Open(ctx, path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read headers: %w", err)
	}
	return a.ApplyHeadersText(data)
}

// ApplyHeadersText replaces the column overrides with the JSON in data and rewrites the
// workbook headers. On failure the current settings stay in effect.
func (a *App) ApplyHeadersText(data []byte) error {
	overrides, err := workbook.ParseHeaders(data)
	if err != nil {
		return err
	}
	settings := a.session.Settings()
	settings.Headers = overrides

	next, err := NewSession(a.session.paths, settings)
	if err != nil {
		return err
	}
	if err := settings.Save(next.paths.Settings); err != nil {
		return err
	}
	a.setSession(next)
	if err := next.Workbook().UpdateHeaders(next.mapping); err != nil {
		return err
	}
	log.Info().Int("overrides", len(overrides)).Msg("Headers updated")
	return nil
}

// SetMarket stores market. A blank value leaves the market unchanged.
func (a *App) SetMarket(market string) error {
	market = strings.TrimSpace(market)
	if market == "" {
		return nil
	}
	settings := a.session.Settings()
	settings.Market = market
	next, err := NewSession(a.session.paths, settings)
	if err != nil {
		return err
	}
	if err := settings.Save(next.paths.Settings); err != nil {
		return err
	}
	a.session = next
	log.Info().Str("market", market).Msg("Market updated")
	return nil
}

// ChangeWorkbook selects name, creating it first when create is set.
func (a *App) ChangeWorkbook(name string, create bool) (workbook.ChangeResult, error) {
	res, err := a.store.Change(name, create)
	if err != nil {
		return res, err
	}
	next, err := LoadSession(a.store, name)
	if err != nil {
		return res, err
	}
	a.setSession(next)
	return res, nil
}

// DeleteWorkbook removes a workbook. Deleting the selected workbook selects the default one.
func (a *App) DeleteWorkbook(name string) error {
	if err := a.store.Delete(name); err != nil {
		return err
	}
	if name != a.session.Name() {
		return nil
	}
	next, err := LoadSession(a.store, workbook.DefaultName)
	if err != nil {
		return err
	}
	a.setSession(next)
	return nil
}

func (a *App) List() ([]string, error) {
	return a.store.List()
}

// Format replaces the workbook with an empty one holding only the headers.
func (a *App) Format() error {
	return a.session.Workbook().Format(a.session.mapping)
}

func (a *App) UpdateDate(start int) (int, error) {
	return a.session.Workbook().UpdateDateFormat(start)
}

func (a *App) UpdateNums(start int) (int, error) {
	return a.session.Workbook().NormalizeNumbers(a.session.mapping, start)
}

func (a *App) RemoveDuplicates() ([]int, error) {
	return a.session.Workbook().RemoveDuplicates()
}

// Copy writes the manual copy of the workbook.
func (a *App) Copy() error {
	p := a.session.paths
	if err := workbook.CopyFile(p.Workbook, p.Copy); err != nil {
		return err
	}
	log.Info().Str("path", p.Copy).Msg("Workbook copied")
	return nil
}

// Autocopy writes the automatic copy of the workbook.
func (a *App) Autocopy() error {
	p := a.session.paths
	if err := workbook.CopyFile(p.Workbook, p.Autocopy); err != nil {
		return err
	}
	log.Debug().Str("path", p.Autocopy).Msg("Workbook autocopied")
	return nil
}

// Export writes the workbook content into the data folder of the workbook.
func (a *App) Export(format workbook.ExportFormat) ([]string, error) {
	p := a.session.paths
	return a.session.Workbook().Export(p.DataDir, p.Name, format)
}

// PrintQuery writes the current query as indented JSON.
func (a *App) PrintQuery(w io.Writer) error {
	data, err := json.Marshal(a.session.settings.Query)
	if err != nil {
		return fmt.Errorf("encode query: %w", err)
	}
	_, err = w.Write(pretty.PrettyOptions(data, &pretty.Options{Width: 80, Indent: "    "}))
	return err
}

// OpenDisplay opens the display file of the last fetch.
func (a *App) OpenDisplay(ctx context.Context) error {
	path := a.store.DisplayFile()
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no fetched data to show: %w", err)
	}
	return a.opts.TextEditor.Open(ctx, path)
}

// OpenWorkbook opens the workbook in the spreadsheet program.
func (a *App) OpenWorkbook(ctx context.Context) error {
	return a.opts.Spreadsheet.Open(ctx, a.session.paths.Workbook)
}

func dataFields(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = r[1:]
	}
	return out
}

func symbols(rows [][]string) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if len(r) > 1 {
			out = append(out, r[1])
		}
	}
	return out
}
