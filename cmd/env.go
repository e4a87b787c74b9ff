package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/provenance-cli/internal/auction"
	"github.com/sells-group/provenance-cli/internal/market"
	"github.com/sells-group/provenance-cli/internal/provenance"
	"github.com/sells-group/provenance-cli/internal/resilience"
	"github.com/sells-group/provenance-cli/internal/store"
	"github.com/sells-group/provenance-cli/internal/valuation"
)

// appEnv holds the store and services used by the commands.
type appEnv struct {
	// Raw is the unguarded store; seeding and migration use it directly.
	Raw     store.Store
	Store   store.Store
	Service *valuation.Service
	Sampler *market.Sampler
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Raw != nil {
		_ = e.Raw.Close()
	}
}

// initStore opens the configured store without migrating it.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "provenance.db"
		}
		st, err := store.NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv validates config for mode, opens and migrates the store and wires
// the services. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	raw, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := raw.Migrate(ctx); err != nil {
		_ = raw.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	st := raw
	if cfg.Breaker.Enabled {
		st = store.NewGuarded(raw, resilience.NewBreakerConfig(cfg.Breaker.FailureThreshold, cfg.Breaker.ResetSecs))
	}

	opts := []provenance.Option{provenance.WithClaimBaseURL(cfg.Identity.ClaimBaseURL)}
	if cfg.Resolver.RulesPath != "" {
		rules, err := provenance.LoadRules(cfg.Resolver.RulesPath)
		if err != nil {
			_ = raw.Close()
			return nil, err
		}
		opts = append(opts, provenance.WithRules(rules))
	}

	resolver := provenance.NewResolver(st, auction.NewResolver(st, cfg.Resolver.PageSize), opts...)
	sampler := market.NewSampler(st, cfg.Resolver.MarketYearWindow, cfg.Resolver.MarketCap)

	zap.L().Debug("environment ready",
		zap.String("driver", cfg.Store.Driver),
		zap.Bool("breaker", cfg.Breaker.Enabled),
	)
	return &appEnv{
		Raw:     raw,
		Store:   st,
		Service: valuation.NewService(st, resolver, sampler),
		Sampler: sampler,
	}, nil
}

// seeder returns the write-side of the raw store.
func (e *appEnv) seeder() (store.Seeder, error) {
	s, ok := e.Raw.(store.Seeder)
	if !ok {
		return nil, eris.Errorf("store %T cannot import rows", e.Raw)
	}
	return s, nil
}

func requestTimeout() time.Duration {
	if cfg.Server.RequestTimeoutSecs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second
}
