package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "@every 5m", cfg.RefreshCron)
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
listen: "0.0.0.0:9000"
timezone: "Europe/Berlin"
ics:
  - id: team
    url: https://example.com/team.ics
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "@every 5m", cfg.RefreshCron)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout())
	assert.Equal(t, "settings.yaml", cfg.SettingsPath)
	require.Len(t, cfg.ICS, 1)
	assert.Equal(t, "team", cfg.ICS[0].ID)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Google = GoogleConfig{ClientID: "id", ClientSecret: "secret"}
	cfg.StaleGuard = true
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Google.Enabled())
	assert.True(t, loaded.StaleGuard)
}

func TestLocationFallsBackToLocal(t *testing.T) {
	cfg := &Config{Timezone: "Nowhere/Special"}
	assert.Equal(t, time.Local, cfg.Location())
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/etc/devdash", "settings.yaml"), ResolvePath("/etc/devdash/config.yaml", "settings.yaml"))
	assert.Equal(t, "/var/lib/settings.yaml", ResolvePath("/etc/devdash/config.yaml", "/var/lib/settings.yaml"))
}
