package source

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// StripPathFromURL returns the origin (scheme://host[:port]) of raw.
// Default ports are dropped.
func StripPathFromURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" || u.Opaque != "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}

	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	origin := u.Scheme + "://" + host
	if port := u.Port(); port != "" && port != defaultPorts[u.Scheme] {
		origin += ":" + port
	}
	return origin, nil
}

// reauthStatus reports whether status looks like a login redirect rather
// than a real answer. Redirects are never followed by these adapters, so an
// SSO bounce surfaces as a 3xx; 0 means there was no usable response.
func reauthStatus(status int) bool {
	if status == 0 || status == http.StatusNotFound {
		return true
	}
	return status >= 300 && status < 400
}

// HandleReauth returns a *ReauthError pointing at the origin of rawURL when
// status indicates a blocked or redirected authentication flow, and nil
// otherwise.
func HandleReauth(rawURL string, status int) error {
	if !reauthStatus(status) {
		return nil
	}
	origin, err := StripPathFromURL(rawURL)
	if err != nil {
		return err
	}
	return &ReauthError{Origin: origin}
}
