package main

import (
	"os"

	"devdash/internal/auth"
	"devdash/internal/config"
	"devdash/internal/dashboard"
	"devdash/internal/ics"
	appLog "devdash/internal/log"
	"devdash/internal/metrics"
	"devdash/internal/source"
	"devdash/internal/store"
)

// envGoogleToken supplies a ready-made Google access token when no OAuth
// client is configured.
const envGoogleToken = "GOOGLE_ACCESS_TOKEN"

// app is everything the subcommands share.
type app struct {
	cfg      *config.Config
	settings *store.FileStore
	oauth    *auth.OAuthBroker
	metrics  *metrics.Metrics
	dash     *dashboard.Dashboard
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", configPath)
		return nil, err
	}
	if !debug {
		appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	}
	return cfg, nil
}

func openSettings(cfg *config.Config) (*store.FileStore, error) {
	path := config.ResolvePath(configPath, cfg.SettingsPath)
	s, err := store.OpenFileStore(path)
	if err != nil {
		appLog.Error("failed to open settings", err, "path", path)
		return nil, err
	}
	return s, nil
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	settings, err := openSettings(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, settings: settings, metrics: metrics.New()}

	var broker auth.Broker = auth.StaticBroker{AccessToken: os.Getenv(envGoogleToken)}
	if cfg.Google.Enabled() {
		gc := cfg.Google
		gc.TokenPath = config.ResolvePath(configPath, gc.TokenPath)
		a.oauth = auth.NewOAuthBroker(gc)
		broker = a.oauth
	}

	loc := cfg.Location()
	feeds := feedSources(cfg.ICS)
	bindings := dashboard.DefaultBindings(dashboard.Deps{
		Client:   source.NewHTTPClient(cfg.HTTPTimeout()),
		Broker:   broker,
		Location: loc,
		Feeds:    feeds,
	})
	a.dash = dashboard.New(bindings, settings, dashboard.Options{
		Location:   loc,
		StaleGuard: cfg.StaleGuard,
		Metrics:    a.metrics,
	})

	appLog.Info("effective config",
		"version", version,
		"listen", cfg.Listen,
		"timezone", loc.String(),
		"refresh", cfg.RefreshCron,
		"debounce_ms", cfg.DebounceMs,
		"stale_guard", cfg.StaleGuard,
		"google_oauth", a.oauth != nil,
		"ics_count", len(feeds),
		"bindings", len(bindings),
		"settings_path", settings.Path(),
	)
	return a, nil
}

// feedSources builds ICS sources from config. IDs fall back to the name,
// then the URL.
func feedSources(cfgs []config.ICSConfig) []ics.Source {
	sources := make([]ics.Source, 0, len(cfgs))
	for _, c := range cfgs {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			if c.Name != "" {
				id = c.Name
			} else {
				id = c.URL
			}
		}
		sources = append(sources, ics.Source{ID: id, URL: c.URL})
	}
	return sources
}
