package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultRelayTimeout = 10 * time.Second

// RelayEndpoint describes one open content relay. JSONField is set when the
// relay wraps the page in a JSON envelope.
type RelayEndpoint struct {
	Name      string
	Build     func(target string) string
	JSONField string
}

// DefaultRelayEndpoints returns the public relays tried as a last resort.
func DefaultRelayEndpoints() []RelayEndpoint {
	return []RelayEndpoint{
		{
			Name:      "allorigins",
			Build:     func(t string) string { return "https://api.allorigins.win/get?url=" + url.QueryEscape(t) },
			JSONField: "contents",
		},
		{
			Name:  "corsproxy",
			Build: func(t string) string { return "https://corsproxy.io/?" + url.QueryEscape(t) },
		},
	}
}

// Relay routes requests through open content relays. Strictly a fallback:
// relays are slow, rate-limited and occasionally mangle payloads, but they
// sidestep source-side IP reputation blocks.
type Relay struct {
	client    *http.Client
	endpoints []RelayEndpoint
	timeout   time.Duration
}

// NewRelay builds the relay strategy with the default endpoints.
func NewRelay(timeout time.Duration) *Relay {
	if timeout <= 0 {
		timeout = defaultRelayTimeout
	}
	return &Relay{
		client:    newSafeClient(timeout),
		endpoints: DefaultRelayEndpoints(),
		timeout:   timeout,
	}
}

// NewRelayWithClient constructs the strategy around an existing client and
// endpoint set (primarily for testing).
func NewRelayWithClient(client *http.Client, timeout time.Duration, endpoints ...RelayEndpoint) *Relay {
	r := &Relay{client: client, endpoints: endpoints, timeout: timeout}
	if r.timeout <= 0 {
		r.timeout = defaultRelayTimeout
	}
	return r
}

// Name identifies the strategy in metrics and event metadata.
func (r *Relay) Name() string { return "relay" }

// Attempt tries each relay in order.
func (r *Relay) Attempt(ctx context.Context, target string) (string, error) {
	var lastErr error
	for _, ep := range r.endpoints {
		html, err := r.once(ctx, ep, target)
		if err == nil {
			return html, nil
		}
		lastErr = fmt.Errorf("%s: %w", ep.Name, err)
	}
	return "", fmt.Errorf("relay fetch: %w", lastErr)
}

func (r *Relay) once(ctx context.Context, ep RelayEndpoint, target string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, ep.Build(target), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("relay status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read relay body: %w", err)
	}
	if ep.JSONField == "" {
		return string(body), nil
	}
	return unwrapJSON(body, ep.JSONField)
}

func unwrapJSON(body []byte, field string) (string, error) {
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		// Some relays advertise JSON but fall back to raw HTML under load.
		return string(body), nil
	}
	content, ok := envelope[field].(string)
	if !ok || content == "" {
		return "", fmt.Errorf("relay envelope missing %q", field)
	}
	return content, nil
}
