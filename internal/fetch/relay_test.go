package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func relayEndpointFor(ts *httptest.Server, name, jsonField string) RelayEndpoint {
	return RelayEndpoint{
		Name:      name,
		Build:     func(target string) string { return ts.URL + "?url=" + target },
		JSONField: jsonField,
	}
}

func TestRelayUnwrapsJSONEnvelope(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"contents": usableHTML("wrapped"),
			"status":   "ok",
		})
	}))
	defer ts.Close()

	r := NewRelayWithClient(ts.Client(), 5*time.Second, relayEndpointFor(ts, "wrapper", "contents"))
	html, err := r.Attempt(context.Background(), "https://example.org/events")
	require.NoError(t, err)
	require.Contains(t, html, "wrapped")
}

func TestRelayPassesRawBodyThrough(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(usableHTML("raw")))
	}))
	defer ts.Close()

	r := NewRelayWithClient(ts.Client(), 5*time.Second, relayEndpointFor(ts, "raw", ""))
	html, err := r.Attempt(context.Background(), "https://example.org/events")
	require.NoError(t, err)
	require.Contains(t, html, "raw")
}

func TestRelayFallsBackToNextEndpoint(t *testing.T) {
	t.Parallel()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer broken.Close()
	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(usableHTML("second relay")))
	}))
	defer working.Close()

	r := NewRelayWithClient(working.Client(), 5*time.Second,
		relayEndpointFor(broken, "broken", ""),
		relayEndpointFor(working, "working", ""),
	)
	html, err := r.Attempt(context.Background(), "https://example.org/events")
	require.NoError(t, err)
	require.Contains(t, html, "second relay")
}

func TestRelayRejectsMissingEnvelopeField(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer ts.Close()

	r := NewRelayWithClient(ts.Client(), 5*time.Second, relayEndpointFor(ts, "empty", "contents"))
	_, err := r.Attempt(context.Background(), "https://example.org/events")
	require.Error(t, err)
	require.Contains(t, err.Error(), "contents")
}

func TestUnwrapJSONFallsBackOnNonJSON(t *testing.T) {
	t.Parallel()

	html, err := unwrapJSON([]byte("<html>not json</html>"), "contents")
	require.NoError(t, err)
	require.Equal(t, "<html>not json</html>", html)
}
