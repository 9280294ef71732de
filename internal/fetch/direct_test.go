package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDirectFetchesPage(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(usableHTML("calendar")))
	}))
	defer ts.Close()

	d := NewDirect(5 * time.Second)
	html, err := d.Attempt(context.Background(), ts.URL)
	require.NoError(t, err)
	require.Contains(t, html, "calendar")
}

func TestDirectRotatesIdentityOnRejection(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		agents []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.UserAgent())
		blocked := strings.Contains(r.UserAgent(), "Chrome")
		mu.Unlock()
		if blocked {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(usableHTML("unblocked")))
	}))
	defer ts.Close()

	d := NewDirect(5 * time.Second)
	html, err := d.Attempt(context.Background(), ts.URL)
	require.NoError(t, err)
	require.Contains(t, html, "unblocked")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, agents, 2)
	require.Contains(t, agents[0], "Chrome")
	require.NotContains(t, agents[1], "Chrome")
	require.NotEqual(t, agents[0], agents[1])
}

func TestDirectStopsOnNonRejectionStatus(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls int
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	d := NewDirect(5 * time.Second)
	_, err := d.Attempt(context.Background(), ts.URL)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls)
}

func TestDirectSendsIdentityHeaders(t *testing.T) {
	t.Parallel()

	var acceptLanguage string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acceptLanguage = r.Header.Get("Accept-Language")
		_, _ = w.Write([]byte(usableHTML("ok")))
	}))
	defer ts.Close()

	d := NewDirect(5 * time.Second)
	_, err := d.Attempt(context.Background(), ts.URL)
	require.NoError(t, err)
	require.Equal(t, "en-US,en;q=0.9", acceptLanguage)
}

func TestRejectionStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []int{401, 403, 429, 503} {
		require.True(t, rejectionStatus(status), "status %d", status)
	}
	for _, status := range []int{200, 301, 404, 500} {
		require.False(t, rejectionStatus(status), "status %d", status)
	}
}
