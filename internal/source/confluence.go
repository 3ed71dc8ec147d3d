package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"devdash/internal/model"
	"devdash/internal/store"
)

// DefaultConfluencePageID is the content id of the task report page used
// when confluencePageId is not set.
const DefaultConfluencePageID = "32712570"

// Confluence reads the task report embedded in a wiki page.
type Confluence struct {
	Client *http.Client
}

func NewConfluence(client *http.Client) *Confluence {
	return &Confluence{Client: withoutRedirects(client)}
}

type confluenceContent struct {
	Body struct {
		View struct {
			Value string `json:"value"`
		} `json:"view"`
	} `json:"body"`
}

func (c *Confluence) Fetch(ctx context.Context, s store.Settings) ([]model.Item, error) {
	baseURL, err := requireSetting(s, store.KeyConfluenceBaseURL, "Configure the Confluence Base URL.")
	if err != nil {
		return nil, err
	}
	base := trimBase(baseURL)

	pageID := s.String(store.KeyConfluencePageID)
	if pageID == "" {
		pageID = DefaultConfluencePageID
	}
	u := base + "/rest/api/content/" + url.PathEscape(pageID) + "?expand=body.view"

	token, err := requireSetting(s, store.KeyConfluenceToken, "Configure the Confluence token.")
	if err != nil {
		return nil, err
	}

	resp, err := get(ctx, c.Client, u, token, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := HandleReauth(u, resp.StatusCode); err != nil {
		return nil, err
	}
	if !ok(resp.StatusCode) {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode}
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	var content confluenceContent
	if err := decodeJSON(body, &content); err != nil {
		return nil, err
	}

	rows, err := ParseTaskReport(content.Body.View.Value)
	if err != nil {
		return nil, err
	}

	baseRef, err := url.Parse(base + "/")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, base)
	}

	items := make([]model.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, model.Item{
			Title:   row.Text,
			WebLink: resolveLink(baseRef, base, row.RelWebLink),
		})
	}
	return items, nil
}

// resolveLink resolves an href from the page against the wiki base URL.
func resolveLink(baseRef *url.URL, base, href string) string {
	if href == "" {
		return base
	}
	ref, err := url.Parse(href)
	if err != nil {
		return base + href
	}
	return baseRef.ResolveReference(ref).String()
}
