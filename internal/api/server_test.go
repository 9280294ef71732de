package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kindredpress/event-scraper/internal/scraper"
)

type fakeRunner struct {
	summary scraper.ScrapeSummary
	err     error
	lastReq scraper.ScrapeRequest
	calls   int
}

func (f *fakeRunner) Run(_ context.Context, req scraper.ScrapeRequest) (scraper.ScrapeSummary, error) {
	f.calls++
	f.lastReq = req
	return f.summary, f.err
}

func newTestServer(t *testing.T, runner Runner, cfg Config) *Server {
	t.Helper()
	return NewServer(runner, nil, cfg, zap.NewNop())
}

func doJSON(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, &fakeRunner{}, Config{})
	rec := doJSON(t, server, http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		ready      func(context.Context) error
		wantStatus int
	}{
		{name: "no check configured", ready: nil, wantStatus: http.StatusOK},
		{name: "check passes", ready: func(context.Context) error { return nil }, wantStatus: http.StatusOK},
		{name: "check fails", ready: func(context.Context) error { return errors.New("db down") }, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := NewServer(&fakeRunner{}, tt.ready, Config{}, zap.NewNop())
			rec := doJSON(t, server, http.MethodGet, "/readyz", nil)
			require.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestTriggerScrape(t *testing.T) {
	t.Parallel()

	orgID := uuid.New()
	runner := &fakeRunner{
		summary: scraper.ScrapeSummary{
			RunID:            "run-1",
			Success:          true,
			Message:          "Scraped 3 events from 2 sources",
			TotalEvents:      3,
			SourcesProcessed: 2,
		},
	}
	server := newTestServer(t, runner, Config{})

	rec := doJSON(t, server, http.MethodPost, "/v1/scrape", scraper.ScrapeRequest{
		OrganizationID: orgID,
		ForceRefresh:   true,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, runner.calls)
	require.Equal(t, orgID, runner.lastReq.OrganizationID)
	require.True(t, runner.lastReq.ForceRefresh)

	var summary scraper.ScrapeSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.True(t, summary.Success)
	require.Equal(t, 3, summary.TotalEvents)
}

func TestTriggerScrapeValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid JSON", body: "{not json"},
		{name: "missing organization id", body: `{"test_mode":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runner := &fakeRunner{}
			server := newTestServer(t, runner, Config{})

			req := httptest.NewRequest(http.MethodPost, "/v1/scrape", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Zero(t, runner.calls)
		})
	}
}

func TestTriggerScrapeSourceLoadFailure(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		summary: scraper.ScrapeSummary{Success: false, Message: "Failed to load sources"},
		err:     fmt.Errorf("%w: connection refused", scraper.ErrSourceLoad),
	}
	server := newTestServer(t, runner, Config{})

	rec := doJSON(t, server, http.MethodPost, "/v1/scrape", scraper.ScrapeRequest{OrganizationID: uuid.New()})

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var summary scraper.ScrapeSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.False(t, summary.Success)
	require.Contains(t, summary.Message, "Failed to load sources")
}

func TestTestSource(t *testing.T) {
	t.Parallel()

	orgID := uuid.New()
	sourceID := uuid.New()
	runner := &fakeRunner{
		summary: scraper.ScrapeSummary{RunID: "run-2", Success: true, TotalEvents: 1},
	}
	server := newTestServer(t, runner, Config{})

	rec := doJSON(t, server, http.MethodPost, "/v1/sources/"+sourceID.String()+"/test",
		map[string]string{"organization_id": orgID.String()})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, runner.calls)
	require.Equal(t, orgID, runner.lastReq.OrganizationID)
	require.Equal(t, []uuid.UUID{sourceID}, runner.lastReq.SourceIDs)
	require.True(t, runner.lastReq.TestMode)
	require.True(t, runner.lastReq.ForceRefresh)
}

func TestTestSourceInvalidID(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	server := newTestServer(t, runner, Config{})

	rec := doJSON(t, server, http.MethodPost, "/v1/sources/not-a-uuid/test",
		map[string]string{"organization_id": uuid.NewString()})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, runner.calls)
}

func TestAPIKeyAuth(t *testing.T) {
	t.Parallel()

	cfg := Config{AuthEnabled: true, APIKey: "secret", Timeout: time.Minute}
	orgID := uuid.New()

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{name: "valid header", header: "secret", wantStatus: http.StatusOK},
		{name: "valid query param", query: "secret", wantStatus: http.StatusOK},
		{name: "wrong key", header: "nope", wantStatus: http.StatusForbidden},
		{name: "missing key", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runner := &fakeRunner{summary: scraper.ScrapeSummary{Success: true}}
			server := newTestServer(t, runner, cfg)

			path := "/v1/scrape"
			if tt.query != "" {
				path += "?api_key=" + tt.query
			}
			var buf bytes.Buffer
			require.NoError(t, json.NewEncoder(&buf).Encode(scraper.ScrapeRequest{OrganizationID: orgID}))
			req := httptest.NewRequest(http.MethodPost, path, &buf)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAuthDoesNotGateProbes(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, &fakeRunner{}, Config{AuthEnabled: true, APIKey: "secret"})

	rec := doJSON(t, server, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, &fakeRunner{}, Config{})
	rec := doJSON(t, server, http.MethodGet, "/healthz", nil)

	id := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	runner := &panicRunner{}
	server := newTestServer(t, runner, Config{})

	rec := doJSON(t, server, http.MethodPost, "/v1/scrape", scraper.ScrapeRequest{OrganizationID: uuid.New()})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

type panicRunner struct{}

func (p *panicRunner) Run(context.Context, scraper.ScrapeRequest) (scraper.ScrapeSummary, error) {
	panic("runner exploded")
}
