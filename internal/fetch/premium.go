package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/doyensec/safeurl"
)

const (
	defaultPremiumEndpoint = "https://api.scraperapi.com/"
	defaultPremiumTimeout  = 60 * time.Second
)

// PremiumConfig controls the rendering-proxy strategy.
type PremiumConfig struct {
	APIKey     string
	Endpoint   string
	Timeout    time.Duration
	MaxRetries int
}

// Premium routes retrieval through a rendering-capable proxy service that
// executes JavaScript and absorbs bot mitigation. It is the most reliable
// and most expensive strategy, and requires a credential: builders must not
// include it in a chain when the key is absent.
type Premium struct {
	cfg    PremiumConfig
	client *http.Client
	retry  retryPolicy
}

// NewPremium builds the strategy. Returns nil when no credential is set so
// callers can append the result conditionally.
func NewPremium(cfg PremiumConfig) *Premium {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultPremiumEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPremiumTimeout
	}
	return &Premium{
		cfg:    cfg,
		client: newSafeClient(cfg.Timeout),
		retry:  newRetryPolicy(cfg.MaxRetries),
	}
}

// NewPremiumWithClient constructs the strategy around an existing client
// (primarily for testing).
func NewPremiumWithClient(cfg PremiumConfig, client *http.Client) *Premium {
	p := NewPremium(cfg)
	if p != nil && client != nil {
		p.client = client
	}
	return p
}

// Name identifies the strategy in metrics and event metadata.
func (p *Premium) Name() string { return "premium" }

// Attempt fetches through the proxy, retrying transient failures with
// exponential backoff.
func (p *Premium) Attempt(ctx context.Context, target string) (string, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		html, err := p.once(ctx, target)
		if err == nil {
			return html, nil
		}
		lastErr = err
		if !p.retry.shouldRetry(err, attempt) {
			break
		}
		if werr := p.retry.wait(ctx, attempt); werr != nil {
			return "", fmt.Errorf("premium retry wait: %w", werr)
		}
	}
	return "", fmt.Errorf("premium fetch: %w", lastErr)
}

func (p *Premium) once(ctx context.Context, target string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("api_key", p.cfg.APIKey)
	q.Set("url", target)
	q.Set("render", "true")

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, p.cfg.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("proxy request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("proxy status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read proxy body: %w", err)
	}
	return string(body), nil
}

const maxBodyBytes = 8 << 20

// newSafeClient builds an SSRF-guarded HTTP client; the dialer re-validates
// the resolved IP, covering DNS rebinding on top of the static URL check.
func newSafeClient(timeout time.Duration) *http.Client {
	cfg := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()
	return safeurl.Client(cfg).Client
}
