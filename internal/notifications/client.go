// Package notifications posts short messages to an ntfy topic.
package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"screenerfetch/internal/retry"

	"github.com/rs/zerolog/log"
)

const maxSymbolsShown = 10

type Client struct {
	httpClient *http.Client
	baseURL    string
	topic      string
	enabled    bool
	priority   string
	retry      retry.Config
	mutex      sync.Mutex
	// Metrics
	totalSent   int64
	totalFailed int64
}

type NotificationError struct {
	Type       string
	StatusCode int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s]: %v", e.Type, e.Underlying)
}

func (e *NotificationError) Unwrap() error {
	return e.Underlying
}

func (e *NotificationError) IsRetryable() bool {
	switch e.Type {
	case "network", "server", "rate_limit":
		return true
	case "auth", "client":
		return false
	default:
		return e.StatusCode >= 500
	}
}

func NewClient(baseURL, topic string, enabled bool, retryConfig retry.Config) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		topic:      topic,
		enabled:    enabled,
		retry:      retryConfig,
	}
}

// WithPriority sets the ntfy priority header sent with every message.
func (c *Client) WithPriority(priority string) *Client {
	c.priority = priority
	return c
}

func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

func (c *Client) SendNotification(ctx context.Context, message string) error {
	if !c.Enabled() {
		log.Debug().Msg("Notifications disabled, skipping")
		return nil
	}

	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		err := c.sendSingleNotification(ctx, message)
		var notifErr *NotificationError
		if errors.As(err, &notifErr) && !notifErr.IsRetryable() {
			return retry.Permanent(err)
		}
		return err
	})

	c.mutex.Lock()
	if err != nil {
		c.totalFailed++
	} else {
		c.totalSent++
	}
	c.mutex.Unlock()
	return err
}

func (c *Client) sendSingleNotification(ctx context.Context, message string) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.topic)

	log.Debug().
		Str("url", url).
		Str("message", message).
		Msg("Sending notification")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(message))
	if err != nil {
		return &NotificationError{Type: "client", Underlying: err}
	}

	req.Header.Set("Content-Type", "text/plain")
	if c.priority != "" {
		req.Header.Set("Priority", c.priority)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NotificationError{Type: "network", Underlying: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &NotificationError{
			Type:       categorizeHTTPError(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}

	log.Debug().Int("status_code", resp.StatusCode).Msg("Notification sent successfully")
	return nil
}

// NotifySavedRows reports the symbols saved to a workbook. Failures are logged, never returned.
func (c *Client) NotifySavedRows(ctx context.Context, workbook string, symbols []string) {
	if !c.Enabled() || len(symbols) == 0 {
		return
	}
	log.Info().
		Str("workbook", workbook).
		Int("rows", len(symbols)).
		Msg("Sending notification for saved rows")
	if err := c.SendNotification(ctx, FormatSavedRows(workbook, symbols)); err != nil {
		log.Warn().Err(err).Msg("Notification failed")
	}
}

func FormatSavedRows(workbook string, symbols []string) string {
	var sb strings.Builder
	if len(symbols) == 1 {
		sb.WriteString(fmt.Sprintf("screenerfetch: 1 row saved to %s\n", workbook))
	} else {
		sb.WriteString(fmt.Sprintf("screenerfetch: %d rows saved to %s\n", len(symbols), workbook))
	}

	shown := min(len(symbols), maxSymbolsShown)
	sb.WriteString(strings.Join(symbols[:shown], ", "))
	if len(symbols) > maxSymbolsShown {
		sb.WriteString(fmt.Sprintf(" ... and %d more", len(symbols)-maxSymbolsShown))
	}
	return sb.String()
}

func categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == 401 || statusCode == 403:
		return "auth"
	case statusCode == 429:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}

// GetMetrics returns current notification metrics
func (c *Client) GetMetrics() (sent, failed int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.totalSent, c.totalFailed
}
