package source

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"devdash/internal/model"
	"devdash/internal/store"
)

const (
	jiraQuery      = "assignee = currentUser() AND resolution = Unresolved order by updated DESC"
	jiraMaxResults = 50
)

// Jira lists the current user's unresolved issues, newest-updated first.
type Jira struct {
	Client *http.Client
}

func NewJira(client *http.Client) *Jira {
	return &Jira{Client: withoutRedirects(client)}
}

type jiraSearchResponse struct {
	Issues []jiraIssue `json:"issues"`
}

type jiraIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
	} `json:"fields"`
}

func (j *Jira) Fetch(ctx context.Context, s store.Settings) ([]model.Item, error) {
	baseURL, err := requireSetting(s, store.KeyJiraBaseURL, "Configure a Jira Base URL")
	if err != nil {
		return nil, err
	}
	base := trimBase(baseURL)
	u := base + "/rest/api/2/search?" + url.Values{
		"jql":        {jiraQuery},
		"maxResults": {strconv.Itoa(jiraMaxResults)},
	}.Encode()

	token, err := requireSetting(s, store.KeyJiraToken, "Configure a Jira token")
	if err != nil {
		return nil, err
	}

	resp, err := get(ctx, j.Client, u, token, map[string]string{
		"Content-Type": "application/json",
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
	var data jiraSearchResponse
	if err := decodeJSON(body, &data); err != nil {
		return nil, err
	}

	items := make([]model.Item, 0, len(data.Issues))
	for _, issue := range data.Issues {
		items = append(items, model.Item{
			Ref:     model.Ref{Kind: model.RefJira, Key: issue.Key},
			Title:   issue.Fields.Summary,
			WebLink: base + "/browse/" + issue.Key,
		})
	}
	return items, nil
}
