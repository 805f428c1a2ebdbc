// Package source fetches the raw time-series payload and the region metadata.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/couchcryptid/svg-world-map/internal/observability"
)

// FallbackSource labels payloads read from the local fallback file.
const FallbackSource = "fallback"

// maxPayloadBytes bounds a single upstream response.
const maxPayloadBytes = 64 << 20

// Raw is an undecoded payload and where it came from.
type Raw struct {
	Data   []byte
	Source string
}

// RawFetcher returns the raw payload bytes.
type RawFetcher interface {
	FetchRaw(ctx context.Context) (Raw, error)
}

// Client fetches the payload from an ordered list of tracker APIs and falls
// back to a local file when all of them fail.
type Client struct {
	urls         []string
	fallbackPath string
	httpClient   *http.Client
	retries      uint64
	retryDelay   time.Duration
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewClient creates a source client. An empty fallbackPath disables the
// local fallback.
func NewClient(urls []string, fallbackPath string, timeout time.Duration, retries int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if retries < 0 {
		retries = 0
	}
	return &Client{
		urls:         urls,
		fallbackPath: fallbackPath,
		httpClient:   &http.Client{Timeout: timeout},
		retries:      uint64(retries),
		retryDelay:   500 * time.Millisecond,
		metrics:      metrics,
		logger:       logger,
	}
}

// FetchRaw tries every URL in order, each with bounded exponential backoff,
// then the fallback file.
func (c *Client) FetchRaw(ctx context.Context) (Raw, error) {
	var errs []error
	for _, u := range c.urls {
		label := sourceLabel(u)
		data, err := c.fetchURL(ctx, u)
		if err == nil {
			c.metrics.SourceFetch.WithLabelValues(label, "success").Inc()
			return Raw{Data: data, Source: label}, nil
		}
		c.metrics.SourceFetch.WithLabelValues(label, "error").Inc()
		c.logger.Warn("source fetch failed, trying next", "source", label, "error", err)
		errs = append(errs, err)
		if ctx.Err() != nil {
			return Raw{}, ctx.Err()
		}
	}

	if c.fallbackPath == "" {
		return Raw{}, fmt.Errorf("fetch payload: all sources failed: %w", errors.Join(errs...))
	}
	data, err := os.ReadFile(c.fallbackPath)
	if err != nil {
		c.metrics.SourceFetch.WithLabelValues(FallbackSource, "error").Inc()
		errs = append(errs, fmt.Errorf("read fallback: %w", err))
		return Raw{}, fmt.Errorf("fetch payload: all sources failed: %w", errors.Join(errs...))
	}
	c.metrics.SourceFetch.WithLabelValues(FallbackSource, "success").Inc()
	c.logger.Warn("using fallback payload", "path", c.fallbackPath)
	return Raw{Data: data, Source: FallbackSource}, nil
}

func (c *Client) fetchURL(ctx context.Context, u string) ([]byte, error) {
	var body []byte
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryDelay
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("source request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := fmt.Errorf("source API error: status %d: %s", resp.StatusCode, snippet)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		return nil
	}
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, c.retries), ctx))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// sourceLabel keeps metric label cardinality to the upstream host.
func sourceLabel(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
