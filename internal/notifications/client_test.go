package notifications

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"screenerfetch/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Timeout: time.Second}

func TestSendNotification(t *testing.T) {
	var body, path, priority string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		path = r.URL.Path
		priority = r.Header.Get("Priority")
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", "stocks", true, fastRetry).WithPriority("high")
	require.NoError(t, c.SendNotification(context.Background(), "hello"))
	assert.Equal(t, "hello", body)
	assert.Equal(t, "/stocks", path)
	assert.Equal(t, "high", priority)

	sent, failed := c.GetMetrics()
	assert.Equal(t, int64(1), sent)
	assert.Equal(t, int64(0), failed)
}

func TestSendNotificationRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "stocks", true, fastRetry)
	require.NoError(t, c.SendNotification(context.Background(), "hello"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSendNotificationStopsOnAuthErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient(server.URL, "stocks", true, fastRetry)
	err := c.SendNotification(context.Background(), "hello")
	require.Error(t, err)
	var notifErr *NotificationError
	require.ErrorAs(t, err, &notifErr)
	assert.Equal(t, "auth", notifErr.Type)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, failed := c.GetMetrics()
	assert.Equal(t, int64(1), failed)
}

func TestDisabledClientSendsNothing(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	c := NewClient(server.URL, "stocks", false, fastRetry)
	c.NotifySavedRows(context.Background(), "stocks", []string{"NFLX"})
	assert.Zero(t, atomic.LoadInt32(&calls))

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
}

func TestFormatSavedRows(t *testing.T) {
	assert.Equal(t, "screenerfetch: 1 row saved to stocks\nNFLX", FormatSavedRows("stocks", []string{"NFLX"}))

	symbols := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"}
	assert.Equal(t,
		"screenerfetch: 12 rows saved to etf\nA, B, C, D, E, F, G, H, I, J ... and 2 more",
		FormatSavedRows("etf", symbols))
}
