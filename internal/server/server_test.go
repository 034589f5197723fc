package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexshd/antifragile"
	"github.com/alexshd/antifragile/internal/cache"
	"github.com/alexshd/antifragile/internal/metrics"
	"github.com/alexshd/antifragile/internal/pricing"
)

type fixture struct {
	srv     *httptest.Server
	metrics *metrics.ServiceMetrics
	server  *Server
}

func newFixture(t *testing.T, store cache.Store[pricing.Result]) *fixture {
	t.Helper()

	reg := prometheus.NewRegistry()
	cfg := metrics.DefaultConfig()
	cfg.HistoryEvery = 1

	m, err := metrics.New(cfg, reg)
	require.NoError(t, err)

	if store == nil {
		store = cache.NewMemory[pricing.Result]()
	}

	s := New(Config{
		Calculator: pricing.NewCalculator(0, 1),
		Cache:      store,
		Metrics:    m,
		Gatherer:   reg,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &fixture{srv: srv, metrics: m, server: s}
}

func (f *fixture) post(t *testing.T, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(f.srv.URL+"/price", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestPrice_MissThenHit(t *testing.T) {
	f := newFixture(t, nil)

	var first, second priceResponse

	resp, body := f.post(t, `{"product_id":"widget-001","quantity":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &first))
	assert.Equal(t, 10.0, first.Price)
	assert.Equal(t, "USD", first.Currency)
	assert.False(t, first.CacheHit)

	// A padded id and empty options normalize to the same cache key.
	resp, body = f.post(t, `{"product_id":" widget-001 ","quantity":1,"options":[]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &second))
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Price, second.Price)

	st := f.metrics.Stats()
	assert.Equal(t, uint64(2), st.TotalRequests)
	assert.Equal(t, uint64(1), st.CacheHits)
	assert.Equal(t, uint64(1), st.CacheMisses)
}

func TestPrice_OptionOrderSharesEntry(t *testing.T) {
	f := newFixture(t, nil)

	f.post(t, `{"product_id":"premium-001","quantity":5,"options":["priority-support","express-shipping"]}`)
	_, body := f.post(t, `{"product_id":"premium-001","quantity":5,"options":["express-shipping","priority-support"]}`)

	var resp priceResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.True(t, resp.CacheHit)
	assert.Equal(t, pricing.Compute(pricing.Query{
		ProductID: "premium-001",
		Quantity:  5,
		Options:   []string{"express-shipping", "priority-support"},
	}).TotalPrice, resp.Price)
}

func TestPrice_BadRequests(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"product_id":`},
		{"empty", ``},
		{"unknown field", `{"product_id":"widget-001","quantity":1,"coupon":"x"}`},
		{"zero quantity", `{"product_id":"widget-001","quantity":0}`},
		{"quantity too large", `{"product_id":"widget-001","quantity":100001}`},
		{"missing product", `{"quantity":1}`},
		{"product id too long", `{"product_id":"` + strings.Repeat("x", 129) + `","quantity":1}`},
		{"too many options", `{"product_id":"widget-001","quantity":1,"options":[` +
			strings.TrimSuffix(strings.Repeat(`"a",`, 21), ",") + `]}`},
		{"negative quantity", `{"product_id":"widget-001","quantity":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.post(t, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

			var e errorResponse
			require.NoError(t, json.Unmarshal(body, &e))
			assert.NotEmpty(t, e.Error)
		})
	}

	assert.Zero(t, f.metrics.Stats().TotalRequests, "rejected requests are not counted")
}

func TestPrice_MethodNotAllowed(t *testing.T) {
	f := newFixture(t, nil)

	resp, _ := f.get(t, "/price")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

type brokenStore struct{}

var errBroken = errors.New("connection refused")

func (brokenStore) Get(context.Context, string) (pricing.Result, bool, error) {
	return pricing.Result{}, false, errBroken
}
func (brokenStore) Set(context.Context, string, pricing.Result) error { return errBroken }
func (brokenStore) Stats(context.Context) (cache.Stats, error)       { return cache.Stats{}, errBroken }
func (brokenStore) Cleanup(context.Context) (int, error)             { return 0, errBroken }
func (brokenStore) Clear(context.Context) error                      { return errBroken }

func TestPrice_CacheFailureDegrades(t *testing.T) {
	f := newFixture(t, brokenStore{})

	for i := 0; i < 2; i++ {
		resp, body := f.post(t, `{"product_id":"widget-001","quantity":1}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var pr priceResponse
		require.NoError(t, json.Unmarshal(body, &pr))
		assert.False(t, pr.CacheHit)
	}
	assert.Equal(t, uint64(2), f.metrics.Stats().CacheMisses)

	resp, _ := f.get(t, "/cache/stats")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.post(t, `{"product_id":"widget-001","quantity":1}`)

	resp, body := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	text := string(body)
	assert.Contains(t, text, "pricing_requests_total 1")
	assert.Contains(t, text, "pricing_cache_misses_total 1")
	assert.Contains(t, text, "antifragile_classification_rank")
}

func TestStatus(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.get(t, "/antifragile/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st statusResponse
	require.NoError(t, json.Unmarshal(body, &st))

	// With no traffic the hit rate defaults to 0.5, exponent 1.3: convex.
	assert.Equal(t, antifragile.Antifragile, st.Classification)
	assert.Equal(t, uint8(2), st.Rank)
	assert.Equal(t, antifragile.Antifragile.Describe(), st.Description)
	assert.InDelta(t, 1.3, st.Analysis.Exponent, 1e-9)
	assert.Equal(t, "convex", st.Analysis.CurveShape)
	assert.Equal(t, "antifragile", st.Analysis.Observed)
	assert.Positive(t, st.Analysis.Gap)
	assert.Equal(t, "HOLDING", string(st.Drift.Type))

	assert.Equal(t, 1, f.server.Watcher().Status().Checks)
}

func TestStatus_WatcherStaysWithConvexService(t *testing.T) {
	f := newFixture(t, nil)

	// Every payoff of the form base*(1+h)*load^(1.1+0.4h) is convex, so
	// traffic changes the exponent but never the classification.
	for i := 0; i < 5; i++ {
		f.post(t, `{"product_id":"widget-001","quantity":1}`)
		f.get(t, "/antifragile/status")
	}

	st := f.server.Watcher().Status()
	assert.Equal(t, antifragile.Antifragile, st.Classification)
	assert.Zero(t, st.Drifts)
	assert.Equal(t, 5, st.Checks)
}

func TestCurve(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.get(t, "/antifragile/curve?points=5")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cr curveResponse
	require.NoError(t, json.Unmarshal(body, &cr))
	require.Len(t, cr.Points, 5)
	assert.Equal(t, "convex (Antifragile)", cr.CurveShape)
	assert.InDelta(t, defaultCurveLoad, cr.Points[4].Load, 1e-9)
	for i := 1; i < len(cr.Points); i++ {
		assert.Greater(t, cr.Points[i].Payoff, cr.Points[i-1].Payoff)
	}

	_, body = f.get(t, "/antifragile/curve")
	require.NoError(t, json.Unmarshal(body, &cr))
	assert.Len(t, cr.Points, defaultCurvePoints)

	_, body = f.get(t, "/antifragile/curve?points=4&max_load=8")
	require.NoError(t, json.Unmarshal(body, &cr))
	assert.InDelta(t, 8.0, cr.Points[3].Load, 1e-9)
}

func TestCurve_BadParams(t *testing.T) {
	f := newFixture(t, nil)

	for _, q := range []string{"points=0", "points=abc", "points=1001", "max_load=-1", "max_load=x"} {
		resp, _ := f.get(t, "/antifragile/curve?"+q)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.get(t, "/antifragile/history")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"entries":[]`)

	f.post(t, `{"product_id":"widget-001","quantity":1}`)
	f.post(t, `{"product_id":"widget-001","quantity":1}`)

	_, body = f.get(t, "/antifragile/history")
	var hr historyResponse
	require.NoError(t, json.Unmarshal(body, &hr))

	require.Len(t, hr.Entries, 2)
	assert.Equal(t, uint64(1), hr.Entries[0].TotalRequests)
	assert.Equal(t, uint64(2), hr.Entries[1].TotalRequests)
	assert.NotEmpty(t, hr.Entries[0].ID)
	assert.Equal(t, 2, hr.Counts[antifragile.Antifragile])
}

func TestCacheStats(t *testing.T) {
	f := newFixture(t, nil)

	f.post(t, `{"product_id":"widget-001","quantity":1}`)
	f.post(t, `{"product_id":"widget-001","quantity":1}`)
	f.post(t, `{"product_id":"gadget-001","quantity":3}`)

	resp, body := f.get(t, "/cache/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cs cacheStatsResponse
	require.NoError(t, json.Unmarshal(body, &cs))
	assert.Equal(t, 2, cs.Entries)
	assert.Equal(t, uint64(1), cs.TotalHits)
	assert.Equal(t, uint64(1), cs.Hits)
	assert.Equal(t, uint64(2), cs.Misses)
	assert.InDelta(t, 1.0/3, cs.HitRate, 1e-9)
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer

	reg := prometheus.NewRegistry()
	m, err := metrics.New(metrics.DefaultConfig(), reg)
	require.NoError(t, err)

	s := New(Config{
		Calculator: pricing.NewCalculator(0, 1),
		Cache:      cache.NewMemory[pricing.Result](),
		Metrics:    m,
		Gatherer:   reg,
		Logger:     slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	logs := buf.String()
	assert.Contains(t, logs, "msg=request")
	assert.Contains(t, logs, "path=/health")
	assert.Contains(t, logs, "status=200")
	assert.Contains(t, logs, "request_id=")
}
