// Package fetch implements the ordered content-retrieval chain: a premium
// rendering proxy, direct fetching with rotating client identities, and
// open-relay fallbacks. Strategies are attempted in order until one returns
// usable HTML; exhaustion is a per-source condition, never a run failure.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kindredpress/event-scraper/internal/metrics"
	"github.com/kindredpress/event-scraper/internal/scraper"
)

// ErrExhausted is returned when every strategy failed or produced nothing
// usable for a URL.
var ErrExhausted = errors.New("all fetch strategies exhausted")

// MinUsableHTML is the defensive floor below which a response is treated as
// a non-result (error pages, empty shells, relay stubs).
const MinUsableHTML = 100

// Strategy is one retrieval method. Attempt returns raw HTML or an error;
// time-boxing is the strategy's own responsibility.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, url string) (string, error)
}

// Chain iterates strategies until the first usable result.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewChain builds a chain over the given strategies, in order.
func NewChain(logger *zap.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{strategies: strategies, logger: logger}
}

// Fetch implements scraper.Fetcher.
func (c *Chain) Fetch(ctx context.Context, url string) (scraper.FetchResult, error) {
	if err := ValidateTargetURL(url); err != nil {
		return scraper.FetchResult{}, fmt.Errorf("target rejected: %w", err)
	}
	if len(c.strategies) == 0 {
		return scraper.FetchResult{}, ErrExhausted
	}

	var lastErr error
	for _, s := range c.strategies {
		if ctx.Err() != nil {
			return scraper.FetchResult{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
		}
		start := time.Now()
		html, err := s.Attempt(ctx, url)
		elapsed := time.Since(start)

		switch {
		case err != nil:
			lastErr = err
			metrics.ObserveFetch(s.Name(), "error", elapsed)
			c.logger.Debug("fetch strategy failed",
				zap.String("strategy", s.Name()),
				zap.String("url", url),
				zap.Error(err),
			)
		case len(strings.TrimSpace(html)) < MinUsableHTML:
			lastErr = fmt.Errorf("%s: %w", s.Name(), scraper.ErrNoContent)
			metrics.ObserveFetch(s.Name(), "thin", elapsed)
		default:
			metrics.ObserveFetch(s.Name(), "ok", elapsed)
			return scraper.FetchResult{HTML: html, Method: s.Name(), Duration: elapsed}, nil
		}
	}
	if lastErr != nil {
		return scraper.FetchResult{}, fmt.Errorf("%w: %v", ErrExhausted, lastErr)
	}
	return scraper.FetchResult{}, ErrExhausted
}
