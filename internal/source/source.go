// Package source holds one adapter per data source. Each adapter fetches
// raw data over HTTP and normalizes it into display items.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	appLog "devdash/internal/log"
	"devdash/internal/model"
	"devdash/internal/store"
)

// Adapter fetches one source. s is the settings snapshot of the current
// refresh cycle. Any failure aborts the whole fetch; there are no partial
// results.
type Adapter interface {
	Fetch(ctx context.Context, s store.Settings) ([]model.Item, error)
}

// AdapterFunc adapts a plain function to Adapter.
type AdapterFunc func(ctx context.Context, s store.Settings) ([]model.Item, error)

func (f AdapterFunc) Fetch(ctx context.Context, s store.Settings) ([]model.Item, error) {
	return f(ctx, s)
}

// maxBodyBytes bounds every response body read.
const maxBodyBytes = 8 << 20

// NewHTTPClient returns the client shared by the adapters.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// withoutRedirects returns a copy of c that hands 3xx responses back
// instead of following them.
func withoutRedirects(c *http.Client) *http.Client {
	cp := *orDefault(c)
	cp.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &cp
}

// withBearer returns a copy of c that sends token on every request.
func withBearer(c *http.Client, token string) *http.Client {
	cp := *orDefault(c)
	base := cp.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	cp.Transport = &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
		Base:   base,
	}
	return &cp
}

func orDefault(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}

// requireSetting returns the value of key, or a *MissingConfigError with
// message when it is absent or empty.
func requireSetting(s store.Settings, key, message string) (string, error) {
	v := s.String(key)
	if v == "" {
		return "", missingConfig(key, message)
	}
	return v, nil
}

// trimBase normalizes a configured base URL.
func trimBase(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

// get issues an authenticated GET. The caller closes the body.
func get(ctx context.Context, c *http.Client, url, token string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := orDefault(c).Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", appLog.RedactURL(url), err)
	}
	appLog.Debug("source request", "url", appLog.RedactURL(url), "status", resp.StatusCode, "elapsed", time.Since(start))
	return resp, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func decodeJSON(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func ok(status int) bool {
	return status >= 200 && status < 300
}
