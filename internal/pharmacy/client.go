// ABOUTME: HTTP client for the external pharmacy catalog API
// ABOUTME: Retries server and network errors with exponential backoff

package pharmacy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// APIClient fetches pharmacy records from the remote catalog API.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	retryCount int
	retryDelay time.Duration
	logger     *slog.Logger
}

// APIClientParams configures an APIClient.
type APIClientParams struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// NewAPIClient creates a catalog client for the given base URL.
func NewAPIClient(params APIClientParams) *APIClient {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retryCount := params.RetryCount
	if retryCount < 1 {
		retryCount = 1
	}
	return &APIClient{
		baseURL:    params.BaseURL,
		httpClient: &http.Client{Timeout: params.Timeout},
		retryCount: retryCount,
		retryDelay: params.RetryDelay,
		logger:     logger.With("component", "catalog"),
	}
}

// Pharmacies fetches all pharmacies from the catalog API.
// Server errors (5xx) and network failures are retried with exponential
// backoff; client errors (4xx) and malformed responses are not. When all
// attempts fail the last error is wrapped in ErrUnavailable.
func (c *APIClient) Pharmacies(ctx context.Context) ([]Pharmacy, error) {
	var lastErr error

	for attempt := 0; attempt < c.retryCount; attempt++ {
		if attempt > 0 {
			// Exponential backoff between attempts
			delay := c.retryDelay * (1 << (attempt - 1))
			c.logger.Debug("retrying catalog fetch", "attempt", attempt+1, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
			}
		}

		pharmacies, retryable, err := c.fetch(ctx)
		if err == nil {
			return pharmacies, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
		c.logger.Warn("catalog fetch failed", "attempt", attempt+1, "error", err)
	}

	c.logger.Error("catalog unreachable after retries", "attempts", c.retryCount, "error", lastErr)
	return nil, fmt.Errorf("%w: %w", ErrUnavailable, lastErr)
}

// fetch performs a single catalog request. The second return value reports
// whether the failure is worth retrying.
func (c *APIClient) fetch(ctx context.Context) ([]Pharmacy, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pharmacies", nil)
	if err != nil {
		return nil, false, fmt.Errorf("building catalog request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network-level failure, worth retrying
		return nil, true, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, true, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return nil, false, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var pharmacies []Pharmacy
	if err := json.NewDecoder(resp.Body).Decode(&pharmacies); err != nil {
		// Malformed payload will not get better on retry
		return nil, false, fmt.Errorf("decoding catalog response: %w", err)
	}

	return pharmacies, false, nil
}
