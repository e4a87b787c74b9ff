package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Server.EditRatePerMinute)
	assert.Equal(t, 5, cfg.Server.EditBurst)
	assert.Equal(t, 20, cfg.Resolver.PageSize)
	assert.Equal(t, 3, cfg.Resolver.MarketYearWindow)
	assert.Equal(t, 50, cfg.Resolver.MarketCap)
	assert.Empty(t, cfg.Identity.ClaimBaseURL)
	assert.True(t, cfg.Breaker.Enabled)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 30, cfg.Breaker.ResetSecs)
	assert.True(t, cfg.Monitoring.Enabled)
	assert.Equal(t, "@every 1m", cfg.Monitoring.Schedule)
	assert.Equal(t, 500, cfg.Monitoring.LatencyThresholdMs)
	assert.Equal(t, 3, cfg.Monitoring.FailuresBeforeAlert)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: ./provenance.db
log:
  level: debug
  format: console
server:
  port: 9090
  cors_origins:
    - https://app.example.com
identity:
  claim_base_url: https://app.example.com/claim
resolver:
  market_cap: 25
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "./provenance.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "https://app.example.com/claim", cfg.Identity.ClaimBaseURL)
	assert.Equal(t, 25, cfg.Resolver.MarketCap)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Resolver.MarketYearWindow)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("PROVENANCE_STORE_DRIVER", "postgres")
	t.Setenv("PROVENANCE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PROVENANCE_SERVER_PORT=3001\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("PROVENANCE_SERVER_PORT") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3001, cfg.Server.Port)
}

func TestLoadEnvBeatsDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PROVENANCE_SERVER_PORT=3001\n"), 0o644))
	t.Setenv("PROVENANCE_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadBadYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [oops"), 0o644))

	_, err := Load()
	assert.ErrorContains(t, err, "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/test"
	cfg.Server.Port = 8080
	cfg.Server.EditRatePerMinute = 30
	cfg.Resolver.MarketYearWindow = 3
	cfg.Resolver.MarketCap = 50
	return cfg
}

func TestValidate_Modes(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"serve", "resolve", "migrate", "import"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}

	err := cfg.Validate("unknown")
	assert.ErrorContains(t, err, "unknown mode")
}

func TestValidate_Store(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""
	assert.ErrorContains(t, cfg.Validate("resolve"), "store.database_url is required")

	cfg.Store.Driver = "mysql"
	assert.ErrorContains(t, cfg.Validate("resolve"), "store.driver must be postgres or sqlite")
}

func TestValidate_ServePort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0
	assert.ErrorContains(t, cfg.Validate("serve"), "server.port must be > 0")

	// Port only matters when serving.
	assert.NoError(t, cfg.Validate("resolve"))
}

func TestValidate_ResolverBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Resolver.MarketYearWindow = 30
	cfg.Resolver.MarketCap = -1

	err := cfg.Validate("resolve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "market_year_window")
	assert.Contains(t, err.Error(), "market_cap")
}

func TestValidate_MonitoringSchedule(t *testing.T) {
	cfg := validDefaults()
	cfg.Monitoring.Enabled = true
	assert.ErrorContains(t, cfg.Validate("serve"), "monitoring.schedule is required")

	cfg.Monitoring.Schedule = "@every 30s"
	assert.NoError(t, cfg.Validate("serve"))
}
