package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"devdash/internal/model"
	"devdash/internal/store"
)

// Search queries for the three GitHub bindings.
const (
	QueryAssignedIssues = "assignee:@me is:issue is:open"
	QueryAssignedPRs    = "assignee:@me is:pr is:open"
	QueryReviewRequests = "review-requested:@me is:pr is:open"
)

const DefaultGitHubAPI = "https://api.github.com"

// GitHub runs one issue search as the token's owner.
type GitHub struct {
	// Query is the search template; the org scope is prepended per fetch.
	Query   string
	APIBase string
	Client  *http.Client
}

// NewGitHub returns a GitHub adapter for query against api.github.com.
func NewGitHub(query string, client *http.Client) *GitHub {
	return &GitHub{Query: query, APIBase: DefaultGitHubAPI, Client: client}
}

type githubSearchResponse struct {
	Items []githubIssue `json:"items"`
}

type githubIssue struct {
	HTMLURL string `json:"html_url"`
	Title   string `json:"title"`
}

type githubErrorResponse struct {
	Message string `json:"message"`
}

// WithOrg prefixes query with the configured organization scope, if any.
func WithOrg(s store.Settings, query string) string {
	if org := s.String(store.KeyGitHubOrg); org != "" {
		return "org:" + org + " " + query
	}
	return query
}

func (g *GitHub) Fetch(ctx context.Context, s store.Settings) ([]model.Item, error) {
	token, err := requireSetting(s, store.KeyGitHubToken, "Configure a GitHub token")
	if err != nil {
		return nil, err
	}

	base := trimBase(g.APIBase)
	if base == "" {
		base = DefaultGitHubAPI
	}
	u := base + "/search/issues?" + url.Values{"q": {WithOrg(s, g.Query)}}.Encode()

	resp, err := get(ctx, g.Client, u, token, map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if !ok(resp.StatusCode) {
		var apiErr githubErrorResponse
		msg := strings.TrimSpace(string(body))
		if decodeJSON(body, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	var data githubSearchResponse
	if err := decodeJSON(body, &data); err != nil {
		return nil, err
	}

	items := make([]model.Item, 0, len(data.Items))
	for _, issue := range data.Items {
		ref, err := ParseIssueURL(issue.HTMLURL)
		if err != nil {
			return nil, err
		}
		items = append(items, model.Item{
			Ref: model.Ref{
				Kind:   model.RefGitHub,
				Owner:  ref.Owner,
				Repo:   ref.Repo,
				Number: ref.IssueNumber,
			},
			Title:   issue.Title,
			WebLink: issue.HTMLURL,
		})
	}
	return items, nil
}

// IssueRef is the identity parsed out of an issue or pull request URL.
type IssueRef struct {
	Owner string
	Repo  string
	// Type is "issues" or "pull".
	Type        string
	IssueNumber string
}

var issueURLPattern = regexp.MustCompile(`^https://[^/]+/([^/]+)/([^/]+)/(issues|pull)/(\d+)`)

// ParseIssueURL parses host/owner/repo/(issues|pull)/number.
func ParseIssueURL(u string) (IssueRef, error) {
	m := issueURLPattern.FindStringSubmatch(u)
	if m == nil {
		return IssueRef{}, fmt.Errorf("invalid GitHub issue URL: %q", u)
	}
	return IssueRef{Owner: m[1], Repo: m[2], Type: m[3], IssueNumber: m[4]}, nil
}
