package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devdash/internal/auth"
	"devdash/internal/config"
	"devdash/internal/metrics"
	"devdash/internal/render"
	"devdash/internal/store"
)

type fakeRefresher struct {
	mu        sync.Mutex
	requested int
	now       []string
}

func (f *fakeRefresher) RequestRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested++
}

func (f *fakeRefresher) RefreshNow(trigger string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = append(f.now, trigger)
}

type fixture struct {
	srv      *Server
	handler  http.Handler
	settings *store.MemStore
	board    *render.Board
	ref      *fakeRefresher
}

func newFixture(t *testing.T, mutate func(*Deps)) *fixture {
	t.Helper()
	f := &fixture{
		settings: store.NewMemStore(map[string]any{
			store.KeyGitHubToken: "ghp_secret",
			store.KeyGitHubOrg:   "acme",
		}),
		board: render.NewBoard(false, render.Spec{ID: "github-issues", Label: "GitHub Issues"}, render.Spec{ID: "jira-issues", Label: "Jira issues"}),
		ref:   &fakeRefresher{},
	}
	d := Deps{
		Config:    config.DefaultConfig(),
		Board:     f.board,
		Settings:  f.settings,
		Refresher: f.ref,
		Metrics:   metrics.New(),
	}
	if mutate != nil {
		mutate(&d)
	}
	srv, err := NewServer(d)
	require.NoError(t, err)
	f.srv = srv
	f.handler = srv.Handler()
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestIndexRendersRegions(t *testing.T) {
	f := newFixture(t, nil)
	f.board.Paint("github-issues", 1, func(r render.Region) {
		r.AppendLine([]string{"item"}, render.Anchor{Text: "acme/widgets#42 - Fix it", Href: "https://github.com/acme/widgets/issues/42", Target: "_blank"})
	})

	rec := f.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-ready="false"`)
	assert.Contains(t, body, `id="github-issues"`)
	assert.Contains(t, body, `<div class="item"><a href="https://github.com/acme/widgets/issues/42"`)
	assert.Contains(t, body, "Loading…")
	assert.Less(t, strings.Index(body, "GitHub Issues"), strings.Index(body, "Jira issues"))

	f.board.Paint("jira-issues", 1, func(r render.Region) { r.AppendText("No items to show.") })
	assert.Contains(t, f.do(http.MethodGet, "/", "").Body.String(), `data-ready="true"`)
}

func TestStaticAssets(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodGet, "/static/app.js", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/regions")
}

func TestRegions(t *testing.T) {
	f := newFixture(t, nil)
	f.board.Paint("jira-issues", 3, func(r render.Region) {
		r.AppendText("boom")
		r.SetClass("error")
	})

	rec := f.do(http.MethodGet, "/api/regions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp regionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)
	require.Len(t, resp.Regions, 2)
	assert.Equal(t, "github-issues", resp.Regions[0].ID)
	assert.Equal(t, "jira-issues", resp.Regions[1].ID)
	assert.Equal(t, "error", resp.Regions[1].Class)
	assert.Equal(t, "boom", resp.Regions[1].HTML)
	assert.Equal(t, uint64(3), resp.Regions[1].Generation)
}

func TestRefreshIsDebounced(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, f.ref.requested)
	assert.Empty(t, f.ref.now)
}

func TestDemoToggleRefreshesImmediately(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodPost, "/api/demo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"demoMode":true}`, rec.Body.String())
	assert.True(t, f.settings.Bool(store.KeyDemoMode))

	rec = f.do(http.MethodPost, "/api/demo", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.settings.Bool(store.KeyDemoMode))

	rec = f.do(http.MethodPost, "/api/demo", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, f.settings.Bool(store.KeyDemoMode))

	assert.Equal(t, []string{"demo", "demo", "demo"}, f.ref.now)
	assert.Zero(t, f.ref.requested)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/demo", `{nope`).Code)
}

func TestSettingsNeverEchoSecrets(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "ghp_secret")

	var list []settingDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	byKey := map[string]settingDTO{}
	for _, s := range list {
		byKey[s.Key] = s
	}
	assert.Len(t, list, len(store.KnownKeys))
	assert.True(t, byKey[store.KeyGitHubToken].Set)
	assert.True(t, byKey[store.KeyGitHubToken].Secret)
	assert.Nil(t, byKey[store.KeyGitHubToken].Value)
	assert.Equal(t, "acme", byKey[store.KeyGitHubOrg].Value)
	assert.False(t, byKey[store.KeyJiraToken].Set)
	assert.Equal(t, false, byKey[store.KeyDemoMode].Value)
}

func TestPutSetting(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodPut, "/api/settings/jiraBaseUrl", `{"value":"https://jira.example.com"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://jira.example.com", f.settings.String(store.KeyJiraBaseURL))
	assert.Equal(t, 1, f.ref.requested)

	rec = f.do(http.MethodPut, "/api/settings/demoMode", `{"value":"true"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, f.settings.Bool(store.KeyDemoMode))
	assert.Equal(t, []string{"demo"}, f.ref.now)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPut, "/api/settings/shoeSize", `{"value":"9"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/api/settings/jiraToken", `{"value":true}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/api/settings/jiraToken", `{"value":3}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/api/settings/jiraToken", `{"other":"x"}`).Code)
}

func TestOAuthRoutesWithoutClient(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/oauth/google/start", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/oauth/google/callback?code=x", "").Code)
}

func TestOAuthStartRedirects(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.OAuth = auth.NewOAuthBroker(config.GoogleConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://127.0.0.1:8080/oauth/google/callback",
		})
	})
	rec := f.do(http.MethodGet, "/oauth/google/start", "")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "client_id=client")

	rec = f.do(http.MethodGet, "/oauth/google/callback?state=wrong&code=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/oauth/google/callback?error=access_denied", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestBasicAuth(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Config.BasicAuth = &config.BasicAuthConfig{Username: "me", Password: "pw"}
	})

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "").Code)
	rec := f.do(http.MethodGet, "/api/regions", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/api/regions", nil)
	req.SetBasicAuth("me", "pw")
	ok := httptest.NewRecorder()
	f.handler.ServeHTTP(ok, req)
	assert.Equal(t, http.StatusOK, ok.Code)
}
