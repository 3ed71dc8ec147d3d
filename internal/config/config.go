package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// NOTE: This file holds the application configuration (server, schedule,
// OAuth client, ICS feeds). Per-service credentials and the demo flag live
// in the settings store (internal/store), which the dashboard page edits.

const (
	defaultListen       = "127.0.0.1:8080"
	defaultTimezone     = "Local"
	defaultRefresh      = "@every 5m"
	defaultDebounceMs   = 300
	defaultHTTPTimeout  = 15
	defaultSettingsPath = "settings.yaml"
	defaultLogLevel     = "info"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// GoogleConfig holds the OAuth client used to obtain calendar/tasks tokens.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"-"`
	// RedirectURL must point at /oauth/google/callback on this server.
	RedirectURL string `yaml:"redirect_url" json:"redirect_url"`
	// TokenPath is where the obtained token is persisted (0600).
	TokenPath string `yaml:"token_path" json:"token_path"`
}

// Enabled reports whether an OAuth client is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the dashboard and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for "today" windows and time
	// labels. "Local" uses the host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule (robfig/cron syntax, descriptors
	// such as "@every 5m" allowed) for the periodic refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// DebounceMs is the quiet period that coalesces bursts of refresh
	// requests into one cycle.
	DebounceMs int `yaml:"debounce_ms" json:"debounce_ms"`

	// HTTPTimeoutSeconds bounds every outbound request.
	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds" json:"http_timeout_seconds"`

	// SettingsPath is the credential/settings store file. Relative paths
	// are resolved against the directory of the config file.
	SettingsPath string `yaml:"settings_path" json:"settings_path"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// StaleGuard drops region writes from a refresh cycle older than the
	// last one that painted the region. Off by default: the last write wins.
	StaleGuard bool `yaml:"stale_guard" json:"stale_guard"`

	Google GoogleConfig `yaml:"google" json:"google"`

	// ICS is the list of subscribed ICS feeds shown in the "ics-events" region.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:             defaultListen,
		Timezone:           defaultTimezone,
		RefreshCron:        defaultRefresh,
		DebounceMs:         defaultDebounceMs,
		HTTPTimeoutSeconds: defaultHTTPTimeout,
		SettingsPath:       defaultSettingsPath,
		LogLevel:           defaultLogLevel,
		ICS:                []ICSConfig{},
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	if c.DebounceMs <= 0 {
		c.DebounceMs = defaultDebounceMs
	}
	if c.HTTPTimeoutSeconds <= 0 {
		c.HTTPTimeoutSeconds = defaultHTTPTimeout
	}
	if c.SettingsPath == "" {
		c.SettingsPath = defaultSettingsPath
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// Debounce returns the debounce quiet period.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// HTTPTimeout returns the outbound request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// Location resolves Timezone, falling back to time.Local when it is
// "Local" or cannot be loaded.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ResolvePath resolves p relative to the directory of configPath.
func ResolvePath(configPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically
// with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to path via a temp file in the same
// directory followed by a rename. The parent directory is created (0700)
// and the final file has 0600 permissions.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".devdash-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
