package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(context.Background(), "",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestClientAppendRowsUsesRawInput(t *testing.T) {
	var body struct {
		Values [][]interface{} `json:"values"`
	}
	var query map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, ":append"), r.URL.Path)
		query = r.URL.Query()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	err := c.AppendRows(context.Background(), "sheet-id", "Screener!A1", [][]interface{}{{"2025/01/20", "NFLX", "869.68"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"RAW"}, query["valueInputOption"])
	assert.Equal(t, []string{"INSERT_ROWS"}, query["insertDataOption"])
	assert.Equal(t, [][]interface{}{{"2025/01/20", "NFLX", "869.68"}}, body.Values)
}

func TestClientReadSheet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"range": "Screener!A1:B2", "values": [["Date", "Symbol"], ["2025/01/20", "NFLX"]]}`))
	})

	values, err := c.ReadSheet(context.Background(), "sheet-id", "Screener!A:B")
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "NFLX", values[1][1])
}

func TestClientWrapsAPIErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"code": 403, "message": "denied"}}`))
	})

	err := c.UpdateRange(context.Background(), "sheet-id", "Screener!A1", [][]interface{}{{"Date"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to update range")
	var apiErr *googleapi.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Code)
}
