package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appLog "devdash/internal/log"
)

// maxFeedBytes bounds a single feed download.
const maxFeedBytes = 16 << 20

// Source represents a single ICS subscription feed.
type Source struct {
	// ID is an internal identifier (e.g., config ICS ID).
	ID string
	// URL is the ICS endpoint. webcal:// is fetched over https.
	URL string
}

// FetchResult contains the body of one fetched feed.
type FetchResult struct {
	Source Source
	Body   []byte
}

// Fetcher downloads ICS feeds. Every refresh downloads afresh; nothing is
// cached between cycles.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher using client, or a 15s-timeout client when
// client is nil.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client}
}

// FetchAll fetches every source in order and stops at the first failure.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, error) {
	results := make([]FetchResult, 0, len(sources))
	for _, src := range sources {
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			appLog.Error("ics fetch failed", err, "id", src.ID, "url", appLog.RedactURL(src.URL))
			return nil, fmt.Errorf("feed %s: %w", src.ID, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// FetchOne downloads a single feed.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("source URL is empty")
	}

	u := src.URL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return FetchResult{}, err
	}
	req.Header.Set("Accept", "text/calendar")

	appLog.Debug("ics fetch start", "id", src.ID, "url", appLog.RedactURL(u))

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FetchResult{}, errors.New(resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return FetchResult{}, err
	}

	appLog.Debug("ics fetch success", "id", src.ID, "url", appLog.RedactURL(u), "bytes", len(body))
	return FetchResult{Source: src, Body: body}, nil
}
