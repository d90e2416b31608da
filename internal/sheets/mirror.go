package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"screenerfetch/internal/retry"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
)

// Mirror copies saved rows into one sheet of a spreadsheet. The first row holds the headers
// and rows already present with the same date and symbol are not appended again.
type Mirror struct {
	store         ValueStore
	spreadsheetID string
	sheetName     string
	retry         retry.Config
}

type SyncResult struct {
	Added   int
	Skipped int
}

func NewMirror(store ValueStore, spreadsheetID, sheetName string, retryConfig retry.Config) *Mirror {
	return &Mirror{
		store:         store,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		retry:         retryConfig,
	}
}

// Sync writes headers to the first row and appends the rows the sheet does not have yet.
func (m *Mirror) Sync(ctx context.Context, headers []string, rows [][]string) (SyncResult, error) {
	var res SyncResult
	if len(rows) == 0 {
		return res, nil
	}

	if err := m.writeHeaders(ctx, headers); err != nil {
		return res, err
	}

	existingData, err := retry.WithRetry(ctx, m.retry, func(ctx context.Context) ([][]interface{}, error) {
		data, err := m.store.ReadSheet(ctx, m.spreadsheetID, m.sheetName+"!A:B")
		return data, classify(err)
	})
	if err != nil {
		return res, fmt.Errorf("read mirror sheet: %w", err)
	}
	existing := BuildExistingMap(existingData)

	var pending [][]interface{}
	for _, row := range rows {
		key := rowKey(row)
		if existing[key] {
			log.Debug().Str("key", key).Msg("Skipping row already in mirror")
			res.Skipped++
			continue
		}
		existing[key] = true
		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = v
		}
		pending = append(pending, values)
	}

	if len(pending) > 0 {
		err := retry.Do(ctx, m.retry, func(ctx context.Context) error {
			return classify(m.store.AppendRows(ctx, m.spreadsheetID, m.sheetName+"!A1", pending))
		})
		if err != nil {
			return res, fmt.Errorf("append mirror rows: %w", err)
		}
	}
	res.Added = len(pending)

	log.Info().
		Int("added", res.Added).
		Int("skipped", res.Skipped).
		Str("sheet", m.sheetName).
		Msg("Mirror update complete")
	return res, nil
}

func (m *Mirror) writeHeaders(ctx context.Context, headers []string) error {
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	err := retry.Do(ctx, m.retry, func(ctx context.Context) error {
		return classify(m.store.UpdateRange(ctx, m.spreadsheetID, m.sheetName+"!A1", [][]interface{}{values}))
	})
	if err != nil {
		return fmt.Errorf("write mirror headers: %w", err)
	}
	return nil
}

// BuildExistingMap collects the date and symbol keys of rows already in the sheet.
// The header row has no date and never matches a data row.
func BuildExistingMap(existingData [][]interface{}) map[string]bool {
	existing := make(map[string]bool)
	for _, row := range existingData {
		if len(row) < 2 || row[0] == nil || row[1] == nil {
			continue
		}
		key := fmt.Sprintf("%v|%v", row[0], row[1])
		existing[key] = true
	}
	log.Debug().Int("entries", len(existing)).Msg("Built existing mirror rows map")
	return existing
}

func rowKey(row []string) string {
	var date, symbol string
	if len(row) > 0 {
		date = row[0]
	}
	if len(row) > 1 {
		symbol = row[1]
	}
	return date + "|" + symbol
}

// classify marks client errors other than rate limiting as permanent.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) &&
		apiErr.Code >= 400 && apiErr.Code < 500 &&
		apiErr.Code != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}
