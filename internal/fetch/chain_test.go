package fetch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStrategy struct {
	name  string
	html  string
	err   error
	calls int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Attempt(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.html, s.err
}

func usableHTML(marker string) string {
	return "<html><body>" + marker + strings.Repeat("<p>events</p>", 20) + "</body></html>"
}

func TestChainReturnsFirstUsableResult(t *testing.T) {
	t.Parallel()

	first := &stubStrategy{name: "premium", html: usableHTML("first")}
	second := &stubStrategy{name: "direct", html: usableHTML("second")}
	chain := NewChain(zap.NewNop(), first, second)

	result, err := chain.Fetch(context.Background(), "https://example.org/events")
	require.NoError(t, err)
	require.Equal(t, "premium", result.Method)
	require.Contains(t, result.HTML, "first")
	require.Equal(t, 1, first.calls)
	require.Equal(t, 0, second.calls)
}

func TestChainFallsThroughOnError(t *testing.T) {
	t.Parallel()

	first := &stubStrategy{name: "premium", err: errors.New("proxy status 500")}
	second := &stubStrategy{name: "direct", html: usableHTML("fallback")}
	chain := NewChain(zap.NewNop(), first, second)

	result, err := chain.Fetch(context.Background(), "https://example.org/events")
	require.NoError(t, err)
	require.Equal(t, "direct", result.Method)
	require.Equal(t, 1, first.calls)
	require.Equal(t, 1, second.calls)
}

func TestChainSkipsThinContent(t *testing.T) {
	t.Parallel()

	thin := &stubStrategy{name: "relay", html: "<html></html>"}
	full := &stubStrategy{name: "direct", html: usableHTML("real")}
	chain := NewChain(zap.NewNop(), thin, full)

	result, err := chain.Fetch(context.Background(), "https://example.org/events")
	require.NoError(t, err)
	require.Equal(t, "direct", result.Method)
}

func TestChainExhaustion(t *testing.T) {
	t.Parallel()

	first := &stubStrategy{name: "premium", err: errors.New("proxy status 500")}
	second := &stubStrategy{name: "direct", html: "  "}
	chain := NewChain(zap.NewNop(), first, second)

	_, err := chain.Fetch(context.Background(), "https://example.org/events")
	require.ErrorIs(t, err, ErrExhausted)
}

func TestChainEmptyStrategies(t *testing.T) {
	t.Parallel()

	chain := NewChain(zap.NewNop())
	_, err := chain.Fetch(context.Background(), "https://example.org/events")
	require.ErrorIs(t, err, ErrExhausted)
}

func TestChainRejectsBlockedTargets(t *testing.T) {
	t.Parallel()

	strategy := &stubStrategy{name: "direct", html: usableHTML("never")}
	chain := NewChain(zap.NewNop(), strategy)

	testCases := []struct {
		name string
		url  string
	}{
		{"loopback", "http://127.0.0.1/admin"},
		{"private range", "http://10.1.2.3/events"},
		{"link local", "http://169.254.169.254/latest/meta-data"},
		{"bad scheme", "file:///etc/passwd"},
		{"no host", "https:///events"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := chain.Fetch(context.Background(), tc.url)
			require.Error(t, err)
			require.Equal(t, 0, strategy.calls)
		})
	}
}

func TestChainHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	strategy := &stubStrategy{name: "direct", html: usableHTML("never")}
	chain := NewChain(zap.NewNop(), strategy)

	_, err := chain.Fetch(ctx, "https://example.org/events")
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, strategy.calls)
}
