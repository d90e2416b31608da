package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"screenerfetch/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

type fakeStore struct {
	data       [][]interface{}
	appended   [][]interface{}
	headers    [][]interface{}
	appendErrs []error
	appendCall int
}

func (f *fakeStore) ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error) {
	return f.data, nil
}

func (f *fakeStore) AppendRows(ctx context.Context, spreadsheetID, range_ string, rows [][]interface{}) error {
	f.appendCall++
	if len(f.appendErrs) > 0 {
		err := f.appendErrs[0]
		f.appendErrs = f.appendErrs[1:]
		if err != nil {
			return err
		}
	}
	f.appended = append(f.appended, rows...)
	return nil
}

func (f *fakeStore) UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}) error {
	if range_ != "sheet1!A1" {
		return fmt.Errorf("unexpected range %s", range_)
	}
	f.headers = values
	return nil
}

var fastRetry = retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestSyncSkipsExistingRows(t *testing.T) {
	store := &fakeStore{data: [][]interface{}{
		{"date", "name"},
		{"2025/01/20", "NFLX"},
	}}
	m := NewMirror(store, "sheet-id", "sheet1", fastRetry)

	res, err := m.Sync(context.Background(), []string{"date", "name", "close"}, [][]string{
		{"2025/01/20", "NFLX", "869.68"},
		{"2025/01/20", "ORCL", "170.10"},
		{"2025/01/20", "ORCL", "170.10"},
	})
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Added: 1, Skipped: 2}, res)
	assert.Equal(t, [][]interface{}{{"date", "name", "close"}}, store.headers)
	assert.Equal(t, [][]interface{}{{"2025/01/20", "ORCL", "170.10"}}, store.appended)
}

func TestSyncNothingToDo(t *testing.T) {
	store := &fakeStore{}
	m := NewMirror(store, "sheet-id", "sheet1", fastRetry)
	res, err := m.Sync(context.Background(), []string{"date"}, nil)
	require.NoError(t, err)
	assert.Zero(t, res)
	assert.Nil(t, store.headers)
}

func TestSyncRetriesServerErrors(t *testing.T) {
	store := &fakeStore{appendErrs: []error{
		fmt.Errorf("failed to append rows: %w", &googleapi.Error{Code: http.StatusServiceUnavailable}),
		nil,
	}}
	m := NewMirror(store, "sheet-id", "sheet1", fastRetry)
	res, err := m.Sync(context.Background(), []string{"date", "name"}, [][]string{{"2025/01/20", "NFLX"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 2, store.appendCall)
}

func TestSyncDoesNotRetryClientErrors(t *testing.T) {
	forbidden := &googleapi.Error{Code: http.StatusForbidden}
	store := &fakeStore{appendErrs: []error{fmt.Errorf("failed to append rows: %w", forbidden)}}
	m := NewMirror(store, "sheet-id", "sheet1", fastRetry)
	_, err := m.Sync(context.Background(), []string{"date", "name"}, [][]string{{"2025/01/20", "NFLX"}})
	require.Error(t, err)
	assert.Equal(t, 1, store.appendCall)

	var apiErr *googleapi.Error
	assert.True(t, errors.As(err, &apiErr))
}

func TestBuildExistingMap(t *testing.T) {
	existing := BuildExistingMap([][]interface{}{
		{"2025/01/20", "NFLX", "x"},
		{"2025/01/21"},
		{nil, "ORCL"},
	})
	assert.Equal(t, map[string]bool{"2025/01/20|NFLX": true}, existing)
}
