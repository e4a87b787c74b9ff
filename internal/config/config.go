package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. PROVENANCE_STORE_DRIVER.
const EnvPrefix = "PROVENANCE"

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Resolver ResolverConfig `yaml:"resolver" mapstructure:"resolver"`
	Identity IdentityConfig `yaml:"identity" mapstructure:"identity"`
	Breaker  BreakerConfig  `yaml:"breaker" mapstructure:"breaker"`

	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	CORSOrigins        []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	EditRatePerMinute  int      `yaml:"edit_rate_per_minute" mapstructure:"edit_rate_per_minute"`
	EditBurst          int      `yaml:"edit_burst" mapstructure:"edit_burst"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ResolverConfig tunes provenance and market resolution.
type ResolverConfig struct {
	PageSize         int    `yaml:"page_size" mapstructure:"page_size"`
	MarketYearWindow int    `yaml:"market_year_window" mapstructure:"market_year_window"`
	MarketCap        int    `yaml:"market_cap" mapstructure:"market_cap"`
	RulesPath        string `yaml:"rules_path" mapstructure:"rules_path"`
}

// IdentityConfig configures the external identity-claim flow.
type IdentityConfig struct {
	ClaimBaseURL string `yaml:"claim_base_url" mapstructure:"claim_base_url"`
}

// BreakerConfig configures the store circuit breaker.
type BreakerConfig struct {
	Enabled          bool `yaml:"enabled" mapstructure:"enabled"`
	FailureThreshold int  `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetSecs        int  `yaml:"reset_secs" mapstructure:"reset_secs"`
}

// MonitoringConfig configures scheduled store probes and webhook alerts.
type MonitoringConfig struct {
	Enabled             bool   `yaml:"enabled" mapstructure:"enabled"`
	Schedule            string `yaml:"schedule" mapstructure:"schedule"`
	WebhookURL          string `yaml:"webhook_url" mapstructure:"webhook_url"`
	LatencyThresholdMs  int    `yaml:"latency_threshold_ms" mapstructure:"latency_threshold_ms"`
	FailuresBeforeAlert int    `yaml:"failures_before_alert" mapstructure:"failures_before_alert"`
}

// envFiles are loaded before the environment is read; earlier files win.
var envFiles = []string{".env.local", ".env"}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	for _, f := range envFiles {
		// Missing files are fine; godotenv never overrides variables already set.
		_ = godotenv.Load(f)
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.edit_rate_per_minute", 30)
	v.SetDefault("server.edit_burst", 5)
	v.SetDefault("server.request_timeout_secs", 15)
	v.SetDefault("resolver.page_size", 20)
	v.SetDefault("resolver.market_year_window", 3)
	v.SetDefault("resolver.market_cap", 50)
	v.SetDefault("resolver.rules_path", "")
	v.SetDefault("identity.claim_base_url", "")
	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.reset_secs", 30)
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.schedule", "@every 1m")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.latency_threshold_ms", 500)
	v.SetDefault("monitoring.failures_before_alert", 3)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode needs.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required (sqlite file path)")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be postgres or sqlite, got %q", c.Store.Driver))
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.EditRatePerMinute < 0 {
			errs = append(errs, "server.edit_rate_per_minute must be >= 0")
		}
		if c.Monitoring.Enabled && c.Monitoring.Schedule == "" {
			errs = append(errs, "monitoring.schedule is required when monitoring is enabled")
		}
	case "resolve", "migrate", "import":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Resolver.MarketYearWindow < 0 || c.Resolver.MarketYearWindow > 25 {
		errs = append(errs, "resolver.market_year_window must be between 0 and 25")
	}
	if c.Resolver.MarketCap < 0 || c.Resolver.MarketCap > 1000 {
		errs = append(errs, "resolver.market_cap must be between 0 and 1000")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
