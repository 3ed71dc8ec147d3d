package source

import (
	"errors"
	"fmt"
)

// ErrInvalidURL is returned when a URL has no scheme or host.
var ErrInvalidURL = errors.New("invalid URL")

// MissingConfigError reports a required setting that is absent. It is shown
// inline as plain text; only editing the settings resolves it.
type MissingConfigError struct {
	Setting string
	Message string
}

func (e *MissingConfigError) Error() string {
	return e.Message
}

func missingConfig(setting, message string) error {
	return &MissingConfigError{Setting: setting, Message: message}
}

// ReauthError reports that the authentication session appears to have
// lapsed. Origin is where the user re-authenticates.
type ReauthError struct {
	Origin string
}

func (e *ReauthError) Error() string {
	return "re-authentication required at " + e.Origin
}

// HTTPStatusError is a non-success response from a service.
type HTTPStatusError struct {
	StatusCode int
	// Message is the service's own error text, when it gave one.
	Message string
}

func (e *HTTPStatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP error! Status: %d", e.StatusCode)
}

// Kind is the error classification used to pick a presentation.
type Kind int

const (
	// KindProvider covers network, HTTP status, broker and parse failures.
	KindProvider Kind = iota
	KindMissingConfig
	KindReauth
)

func (k Kind) String() string {
	switch k {
	case KindMissingConfig:
		return "missing_config"
	case KindReauth:
		return "reauth"
	default:
		return "error"
	}
}

// Classify maps err onto a Kind, looking through wrapping.
func Classify(err error) Kind {
	var missing *MissingConfigError
	if errors.As(err, &missing) {
		return KindMissingConfig
	}
	var reauth *ReauthError
	if errors.As(err, &reauth) {
		return KindReauth
	}
	return KindProvider
}
