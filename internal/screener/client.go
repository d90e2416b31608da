package screener

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"screenerfetch/internal/retry"

	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the TradingView scanner host.
const DefaultBaseURL = "https://scanner.tradingview.com"

var requestHeaders = map[string]string{
	"Accept":          "application/json",
	"Accept-Language": "en-US,en;q=0.5",
	"Content-Type":    "text/plain;charset=UTF-8",
	"Origin":          "https://www.tradingview.com/",
	"Referer":         "https://www.tradingview.com/",
	"Sec-Fetch-Dest":  "empty",
	"Sec-Fetch-Mode":  "cors",
	"Sec-Fetch-Site":  "same-site",
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
}

// Row is one screener result. Values follow the order of the query columns.
type Row struct {
	Symbol string `json:"s"`
	Values []any  `json:"d"`
}

type ScanResponse struct {
	TotalCount int   `json:"totalCount"`
	Data       []Row `json:"data"`
}

// StatusError is returned for non-200 scanner responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scanner request failed with status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL      string
	client       *http.Client
	retry        retry.Config
	apiCallCount int64
	apiCallMutex sync.Mutex
}

func NewClient(baseURL string, timeout time.Duration, retryConfig retry.Config) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		retry: retryConfig,
	}
}

// IncrementAPICall safely increments the API call counter
func (c *Client) IncrementAPICall() {
	c.apiCallMutex.Lock()
	c.apiCallCount++
	c.apiCallMutex.Unlock()
}

// GetAPICallCount returns the current API call count
func (c *Client) GetAPICallCount() int64 {
	c.apiCallMutex.Lock()
	defer c.apiCallMutex.Unlock()
	return c.apiCallCount
}

// ResetAPICallCount resets the API call counter to zero
func (c *Client) ResetAPICallCount() {
	c.apiCallMutex.Lock()
	c.apiCallCount = 0
	c.apiCallMutex.Unlock()
}

// ScanURL returns the scan endpoint of market.
func (c *Client) ScanURL(market string) string {
	return fmt.Sprintf("%s/%s/scan", c.baseURL, url.PathEscape(market))
}

// Scan posts query to the market endpoint. Server errors and network failures are retried,
// client errors are not.
func (c *Client) Scan(ctx context.Context, market string, query map[string]any) (*ScanResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	log.Debug().
		Str("market", market).
		Int("query_bytes", len(body)).
		Msg("Sending scan request")

	return retry.WithRetry(ctx, c.retry, func(ctx context.Context) (*ScanResponse, error) {
		return c.scanOnce(ctx, c.ScanURL(market), body)
	})
}

func (c *Client) scanOnce(ctx context.Context, endpoint string, body []byte) (*ScanResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	for k, v := range requestHeaders {
		req.Header.Set(k, v)
	}

	c.IncrementAPICall()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	log.Debug().
		Int("status_code", resp.StatusCode).
		Str("content_type", resp.Header.Get("Content-Type")).
		Msg("Received scanner response")

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(statusErr)
		}
		return nil, statusErr
	}

	var result ScanResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}

	log.Debug().
		Int("total_count", result.TotalCount).
		Int("rows", len(result.Data)).
		Msg("Decoded scanner response")
	return &result, nil
}
