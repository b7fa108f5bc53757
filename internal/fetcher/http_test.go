package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent:      "test-agent",
		Timeout:        5 * time.Second,
		MaxRetries:     3,
		RatePerSec:     100,
		InitialBackoff: 5 * time.Millisecond,
	})
}

const sldCSV = "GEOID10,CBSA_Name,NatWalkInd\n060855001001,\"San Jose-Sunnyvale-Santa Clara, CA\",14.5\n"

// statusSequence serves codes in order, then sldCSV with 200 once they run out.
func statusSequence(t *testing.T, hits *atomic.Int32, codes ...int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		n := int(hits.Add(1))
		if n <= len(codes) {
			w.WriteHeader(codes[n-1])
			return
		}
		w.Write([]byte(sldCSV)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownload(t *testing.T) {
	tests := []struct {
		name     string
		codes    []int
		retries  int
		wantHits int32
		wantErr  string
	}{
		{name: "ok", wantHits: 1},
		{name: "recovers after 5xx", codes: []int{500, 503}, retries: 3, wantHits: 3},
		{name: "retries exhausted", codes: []int{500, 500, 500}, retries: 2, wantHits: 2, wantErr: "all retries exhausted"},
		{name: "single attempt", codes: []int{502}, retries: 1, wantHits: 1, wantErr: "http 502"},
		{name: "4xx not retried", codes: []int{403}, retries: 3, wantHits: 1, wantErr: "unexpected status 403"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := statusSequence(t, &hits, tt.codes...)

			f := NewHTTPFetcher(HTTPOptions{
				UserAgent:      "test-agent",
				Timeout:        5 * time.Second,
				MaxRetries:     tt.retries,
				RatePerSec:     100,
				InitialBackoff: 5 * time.Millisecond,
			})
			body, err := f.Download(context.Background(), srv.URL+"/sld.csv")
			assert.Equal(t, tt.wantHits, hits.Load())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer body.Close() //nolint:errcheck

			data, err := io.ReadAll(body)
			require.NoError(t, err)
			assert.Equal(t, sldCSV, string(data))
		})
	}
}

func TestDownloadToFile(t *testing.T) {
	var hits atomic.Int32
	srv := statusSequence(t, &hits)

	path := filepath.Join(t.TempDir(), "sld.csv")
	n, err := newTestFetcher().DownloadToFile(context.Background(), srv.URL+"/sld.csv", path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(sldCSV)), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sldCSV, string(data))

	missing := statusSequence(t, &atomic.Int32{}, http.StatusNotFound)
	_, err = newTestFetcher().DownloadToFile(context.Background(), missing.URL, filepath.Join(t.TempDir(), "x.csv"))
	require.Error(t, err)
}

func TestDownload_ContextCancelled(t *testing.T) {
	srv := statusSequence(t, &atomic.Int32{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFetcher().Download(ctx, srv.URL)
	require.Error(t, err)
}

func TestDownload_FixedHostLimiter(t *testing.T) {
	var (
		mu    sync.Mutex
		times []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{
		MaxRetries:   1,
		RateLimiters: map[string]*rate.Limiter{srv.Listener.Addr().String(): rate.NewLimiter(2, 1)},
	})
	for range 3 {
		body, err := f.Download(context.Background(), srv.URL)
		require.NoError(t, err)
		body.Close() //nolint:errcheck
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, times, 3)
	// 2 req/s with burst 1 spaces three requests by about a second.
	assert.GreaterOrEqual(t, times[2].Sub(times[0]), 500*time.Millisecond)
	assert.Empty(t, f.adaptive, "fixed limiter hosts skip adaptive limiting")
}

func TestNewHTTPFetcher_Defaults(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{})
	assert.Equal(t, "sld-insights/1.0", f.opts.UserAgent)
	assert.Equal(t, 60*time.Second, f.opts.Timeout)
	assert.Equal(t, 3, f.opts.MaxRetries)
	assert.InDelta(t, 5.0, f.opts.RatePerSec, 0.001)
	assert.Equal(t, time.Second, f.opts.InitialBackoff)
}

func TestAdaptiveLimiter_OnSuccess_IncreasesRate(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 10)

	lim.OnSuccess()
	assert.InDelta(t, 12.0, float64(lim.Limit()), 0.1)

	lim.OnSuccess()
	assert.InDelta(t, 14.4, float64(lim.Limit()), 0.1)
}

func TestAdaptiveLimiter_Bounds(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 10)
	for range 20 {
		lim.OnSuccess()
	}
	assert.InDelta(t, 20.0, float64(lim.Limit()), 0.1)

	for range 20 {
		lim.OnRateLimit()
	}
	assert.InDelta(t, 2.5, float64(lim.Limit()), 0.1)
}

func TestAdaptiveLimiter_Wait_ContextCancelled(t *testing.T) {
	lim := NewAdaptiveLimiter(0.001, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, lim.Wait(ctx))
}

func TestDoWithRetry_429_AdaptiveBackoff(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.Download(context.Background(), srv.URL+"/data")
	require.NoError(t, err)
	defer body.Close()

	data, _ := io.ReadAll(body)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int32(3), attempts.Load())

	u, _ := url.Parse(srv.URL)
	lim := f.adaptive[u.Host]
	require.NotNil(t, lim)
	// Two halvings then one 20% increase.
	assert.InDelta(t, 100*0.5*0.5*1.2, float64(lim.Limit()), 0.1)
}

func TestOpen_LocalAndRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("remote"))
	}))
	defer srv.Close()

	path := writeSource(t, "local.csv", "local")

	f := newTestFetcher()
	for source, want := range map[string]string{path: "local", srv.URL + "/x.csv": "remote"} {
		rc, err := Open(context.Background(), f, source)
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		assert.Equal(t, want, string(data))
	}

	_, err := Open(context.Background(), nil, srv.URL)
	assert.Error(t, err)

	_, err = Open(context.Background(), f, filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestLocalize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := newTestFetcher()

	local, err := Localize(context.Background(), f, "data/file.csv", dir)
	require.NoError(t, err)
	assert.Equal(t, "data/file.csv", local)

	got, err := Localize(context.Background(), f, srv.URL+"/files/sld.xlsx?v=2", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sld.xlsx"), got)
	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestExt(t *testing.T) {
	tests := map[string]string{
		"public/cleaned_sld_data.CSV":            ".csv",
		"https://example.com/a/b.json?token=abc": ".json",
		"https://example.com/a/b.xlsx#sheet":     ".xlsx",
		"noext":                                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Ext(in), in)
	}
	assert.True(t, IsRemote(" HTTPS://x"))
	assert.False(t, IsRemote("file.csv"))
}
