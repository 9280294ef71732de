package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

const defaultDirectTimeout = 15 * time.Second

// identity is one realistic browser header set. Profiles are tried in order
// until a target stops rejecting the request.
type identity struct {
	UserAgent string
	Headers   map[string]string
}

var defaultIdentities = []identity{
	{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Sec-Fetch-Mode":  "navigate",
		},
	},
	{
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.8",
		},
	},
	{
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.5",
			"DNT":             "1",
		},
	},
}

// Direct issues plain GETs through Colly, rotating client identities when a
// target rejects one outright.
type Direct struct {
	timeout    time.Duration
	identities []identity
	base       *colly.Collector
}

// NewDirect builds the direct strategy with the standard identity set.
func NewDirect(timeout time.Duration) *Direct {
	if timeout <= 0 {
		timeout = defaultDirectTimeout
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Direct{
		timeout:    timeout,
		identities: defaultIdentities,
		base:       c,
	}
}

// Name identifies the strategy in metrics and event metadata.
func (d *Direct) Name() string { return "direct" }

// Attempt tries each identity in sequence; a rejection-class status rotates
// to the next profile, anything else ends the strategy.
func (d *Direct) Attempt(ctx context.Context, url string) (string, error) {
	var lastErr error
	for _, id := range d.identities {
		if ctx.Err() != nil {
			return "", fmt.Errorf("direct fetch canceled: %w", ctx.Err())
		}
		html, status, err := d.visit(ctx, url, id)
		if err == nil {
			return html, nil
		}
		lastErr = err
		if !rejectionStatus(status) {
			break
		}
	}
	return "", fmt.Errorf("direct fetch: %w", lastErr)
}

func (d *Direct) visit(ctx context.Context, url string, id identity) (string, int, error) {
	collector := d.base.Clone()
	collector.UserAgent = id.UserAgent
	collector.IgnoreRobotsTxt = true
	// Identity rotation revisits the same URL on purpose.
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(d.timeout)

	var (
		body     string
		status   int
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		for k, v := range id.Headers {
			r.Headers.Set(k, v)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = string(r.Body)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return "", status, fmt.Errorf("visit canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return "", status, fmt.Errorf("visit %q: %w", url, err)
		}
		if fetchErr != nil {
			return "", status, fmt.Errorf("response for %q: %w", url, fetchErr)
		}
		return body, status, nil
	}
}

// rejectionStatus reports statuses that tend to mean "this identity was
// profiled and refused", which a different header set sometimes clears.
func rejectionStatus(status int) bool {
	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusUnauthorized, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
