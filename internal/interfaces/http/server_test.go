package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelevels/levelmap/internal/application"
	"github.com/tradelevels/levelmap/internal/config"
	"github.com/tradelevels/levelmap/internal/domain/levels"
	"github.com/tradelevels/levelmap/internal/domain/market"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	analyzer, err := application.New(config.Default(), zerolog.Nop())
	require.NoError(t, err)
	return NewServer(DefaultServerConfig(), analyzer, NewMetricsRegistry(), zerolog.Nop())
}

func analyzeBody(t *testing.T) []byte {
	t.Helper()
	bars := make([]market.Bar, 40)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		mid := 100.0 + float64(i%5)
		bars[i] = market.Bar{
			OpenTime: start.Add(time.Duration(i) * time.Hour),
			Open:     mid - 0.2,
			High:     mid + 0.5,
			Low:      mid - 0.5,
			Close:    mid + 0.2,
			Volume:   100,
		}
	}
	body, err := json.Marshal(market.Snapshot{
		Symbol:       "BTCUSDT",
		CurrentPrice: 102.0,
		ATR:          1.0,
		Bars:         map[string][]market.Bar{"1d": bars, "15m": bars},
	})
	require.NoError(t, err)
	return body
}

func TestHandleAnalyze_OK(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(analyzeBody(t)))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report levels.ZoneReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "BTCUSDT", report.Symbol)
	assert.NotEmpty(t, report.AnalysisID)
	assert.NotEmpty(t, report.ReportText)
}

func TestHandleAnalyze_MalformedJSON(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid snapshot JSON")
}

func TestHandleAnalyze_InvalidSnapshot(t *testing.T) {
	srv := newTestServer(t)

	body, err := json.Marshal(market.Snapshot{Symbol: "BTCUSDT", CurrentPrice: 0})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid snapshot")
}

func TestHandleAnalyze_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/analyze", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Version)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	// One successful analysis, then scrape.
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(analyzeBody(t)))
	srv.Router().ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "levelmap_analyses_total")
	assert.Contains(t, body, `result="ok"`)
	assert.Contains(t, body, "levelmap_analysis_duration_seconds")
}
