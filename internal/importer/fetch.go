package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Fetcher downloads markdown source documents over HTTP. Rate-limit and
// server-side failures are retried with linear backoff; client errors fail
// immediately.
type Fetcher struct {
	client *http.Client
	logger zerolog.Logger

	maxAttempts int
	backoff     time.Duration
}

// NewFetcher creates a fetcher with the default retry policy.
func NewFetcher(logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		client:      &http.Client{Timeout: 30 * time.Second},
		logger:      logger.With().Str("component", "fetcher").Logger(),
		maxAttempts: 3,
		backoff:     2 * time.Second,
	}
}

// Fetch retrieves one source document.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * f.backoff
			f.logger.Warn().
				Str("url", url).
				Int("attempt", attempt).
				Dur("wait", wait).
				Err(lastErr).
				Msg("retrying fetch")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		data, retryable, err := f.attempt(ctx, url)
		if err == nil {
			return data, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("fetch %s failed after %d attempts: %w", url, f.maxAttempts, lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, url string) (data []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, fmt.Errorf("read body: %w", err)
		}
		return data, false, nil
	}

	err = fmt.Errorf("server returned %d for %s", resp.StatusCode, url)
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, err
	}
	return nil, false, err
}
