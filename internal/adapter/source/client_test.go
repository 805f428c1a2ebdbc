package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/svg-world-map/internal/observability"
)

const samplePayload = `{
  "confirmed": {"locations": [{"country_code": "AA", "country": "Alpha", "province": "", "history": {"1/22/20": 3, "1/23/20": 5}}]},
  "recovered": {"locations": [{"country_code": "AA", "country": "Alpha", "province": "", "history": {"1/22/20": 1, "1/23/20": 2}}]},
  "deaths":    {"locations": [{"country_code": "AA", "country": "Alpha", "province": "", "history": {"1/22/20": 0, "1/23/20": 1}}]}
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(fallback string, urls ...string) *Client {
	return &Client{
		urls:         urls,
		fallbackPath: fallback,
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		retries:      2,
		retryDelay:   time.Millisecond,
		metrics:      observability.NewMetricsForTesting(),
		logger:       discardLogger(),
	}
}

func TestClient_FetchRaw_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = io.WriteString(w, samplePayload)
	}))
	defer srv.Close()

	c := testClient("", srv.URL)
	raw, err := c.FetchRaw(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, samplePayload, string(raw.Data))
	assert.Equal(t, sourceLabel(srv.URL), raw.Source)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.SourceFetch.WithLabelValues(raw.Source, "success")), 0)
}

func TestClient_FetchRaw_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, samplePayload)
	}))
	defer srv.Close()

	raw, err := testClient("", srv.URL).FetchRaw(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, raw.Data)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_FetchRaw_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient("", srv.URL).FetchRaw(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_FetchRaw_FallsThroughSources(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, samplePayload)
	}))
	defer good.Close()

	c := testClient("", bad.URL, good.URL)
	raw, err := c.FetchRaw(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sourceLabel(good.URL), raw.Source)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.SourceFetch.WithLabelValues(sourceLabel(bad.URL), "error")), 0)
}

func TestClient_FetchRaw_Fallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "fallback.json")
	require.NoError(t, os.WriteFile(path, []byte(samplePayload), 0o600))

	raw, err := testClient(path, srv.URL).FetchRaw(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FallbackSource, raw.Source)
	assert.JSONEq(t, samplePayload, string(raw.Data))
}

func TestClient_FetchRaw_AllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(filepath.Join(t.TempDir(), "missing.json"), srv.URL).FetchRaw(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all sources failed")
	assert.Contains(t, err.Error(), "read fallback")
}

func TestClient_FetchRaw_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testClient("", srv.URL, srv.URL).FetchRaw(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "api.example.org", sourceLabel("https://api.example.org/v2/locations?timelines=1"))
	assert.Equal(t, "not a url", sourceLabel("not a url"))
}
