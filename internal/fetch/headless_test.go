package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewHeadlessValidation(t *testing.T) {
	t.Parallel()

	_, err := NewHeadless(HeadlessConfig{MaxParallel: -1})
	require.Error(t, err)

	h, err := NewHeadless(HeadlessConfig{MaxParallel: 2})
	require.NoError(t, err)
	t.Cleanup(h.Close)

	require.Equal(t, "headless", h.Name())
	require.Equal(t, 45*time.Second, h.cfg.NavTimeout)
}

func TestHeadlessAcquireRespectsCancellation(t *testing.T) {
	t.Parallel()

	h, err := NewHeadless(HeadlessConfig{MaxParallel: 1, NavTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(h.Close)

	require.NoError(t, h.acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = h.acquire(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)

	h.release()
	require.NoError(t, h.acquire(context.Background()))
	h.release()
}

func TestHeadlessUnlimitedSkipsLimiter(t *testing.T) {
	t.Parallel()

	h, err := NewHeadless(HeadlessConfig{MaxParallel: 0})
	require.NoError(t, err)
	t.Cleanup(h.Close)

	for i := 0; i < 10; i++ {
		require.NoError(t, h.acquire(context.Background()))
	}
}
