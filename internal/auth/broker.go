// Package auth obtains bearer tokens for the identity-provider-backed
// sources (Google Calendar and Google Tasks).
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/tasks/v1"

	"devdash/internal/config"
	appLog "devdash/internal/log"
)

// Broker hands out an opaque bearer token, or the provider's error.
type Broker interface {
	Token(ctx context.Context) (string, error)
}

// ConsentRequiredError is returned while no token has been granted yet.
// The user must visit URL to grant access.
type ConsentRequiredError struct {
	URL string
}

func (e *ConsentRequiredError) Error() string {
	return "Google access not granted yet; open " + e.URL + " to sign in"
}

// StaticBroker returns a fixed token, or a fixed error when Err is set.
type StaticBroker struct {
	AccessToken string
	Err         error
}

func (s StaticBroker) Token(context.Context) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if s.AccessToken == "" {
		return "", errors.New("no Google access token configured")
	}
	return s.AccessToken, nil
}

// Scopes requested from Google.
var Scopes = []string{
	calendar.CalendarReadonlyScope,
	tasks.TasksReadonlyScope,
}

// OAuthBroker runs the OAuth2 authorization-code flow against Google and
// keeps the resulting token on disk, refreshing it as needed.
type OAuthBroker struct {
	conf      *oauth2.Config
	tokenPath string

	mu    sync.Mutex
	state string
	tok   *oauth2.Token
}

// Option customizes an OAuthBroker.
type Option func(*OAuthBroker)

// WithEndpoint overrides the Google OAuth endpoints.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(b *OAuthBroker) { b.conf.Endpoint = ep }
}

// NewOAuthBroker builds a broker from the configured OAuth client.
func NewOAuthBroker(gc config.GoogleConfig, opts ...Option) *OAuthBroker {
	b := &OAuthBroker{
		conf: &oauth2.Config{
			ClientID:     gc.ClientID,
			ClientSecret: gc.ClientSecret,
			RedirectURL:  gc.RedirectURL,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		},
		tokenPath: gc.TokenPath,
		state:     uuid.NewString(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ConsentURL is where the user grants access.
func (b *OAuthBroker) ConsentURL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conf.AuthCodeURL(b.state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Token returns a valid access token, refreshing it when expired. The
// refresh runs on ctx and outside the broker lock.
func (b *OAuthBroker) Token(ctx context.Context) (string, error) {
	cur, err := b.current()
	if err != nil {
		return "", err
	}
	if cur.Valid() {
		return cur.AccessToken, nil
	}

	tok, err := b.conf.TokenSource(ctx, cur).Token()
	if err != nil {
		return "", fmt.Errorf("google token: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tok == nil || tok.AccessToken != b.tok.AccessToken {
		if err := b.saveToken(tok); err != nil {
			appLog.Error("failed to persist refreshed Google token", err, "path", b.tokenPath)
		}
		b.tok = tok
	}
	return tok.AccessToken, nil
}

// current returns the cached token, loading it from disk on first use.
func (b *OAuthBroker) current() (*oauth2.Token, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tok != nil {
		return b.tok, nil
	}
	tok, err := b.loadToken()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &ConsentRequiredError{URL: b.conf.AuthCodeURL(b.state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)}
	}
	if err != nil {
		return nil, err
	}
	b.tok = tok
	return tok, nil
}

// Exchange completes the consent flow with the code Google redirected back.
func (b *OAuthBroker) Exchange(ctx context.Context, state, code string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if state != b.state {
		return errors.New("oauth state mismatch")
	}
	tok, err := b.conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("google token exchange: %w", err)
	}
	if err := b.saveToken(tok); err != nil {
		return err
	}
	b.tok = tok
	// A fresh state for the next consent round.
	b.state = uuid.NewString()

	appLog.Info("google access granted", "token_path", b.tokenPath)
	return nil
}

func (b *OAuthBroker) loadToken() (*oauth2.Token, error) {
	if b.tokenPath == "" {
		return nil, fs.ErrNotExist
	}
	data, err := os.ReadFile(b.tokenPath)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return &tok, nil
}

func (b *OAuthBroker) saveToken(tok *oauth2.Token) error {
	if b.tokenPath == "" {
		return nil
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(b.tokenPath, data)
}
