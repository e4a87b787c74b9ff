package store

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/provenance-cli/internal/model"
	"github.com/sells-group/provenance-cli/internal/resilience"
)

// GuardedStore wraps a Store with a circuit breaker. Every failure it
// returns, other than not-found and caller cancellation, matches
// model.ErrStoreUnavailable so callers can mark a response section
// unavailable without inspecting driver errors.
type GuardedStore struct {
	inner   Store
	breaker *resilience.Breaker
}

// NewGuarded wraps inner with a breaker built from cfg.
func NewGuarded(inner Store, cfg resilience.BreakerConfig) *GuardedStore {
	if cfg.OnStateChange == nil {
		cfg.OnStateChange = func(from, to resilience.BreakerState) {
			zap.L().Warn("store: circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}
	return &GuardedStore{inner: inner, breaker: resilience.NewBreaker(cfg)}
}

// Breaker exposes the breaker for health reporting.
func (g *GuardedStore) Breaker() *resilience.Breaker {
	return g.breaker
}

func guard[T any](ctx context.Context, g *GuardedStore, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := resilience.Do(ctx, g.breaker, fn)
	if err != nil {
		return v, resilience.Unavailable(op, err)
	}
	return v, nil
}

func guardErr(ctx context.Context, g *GuardedStore, op string, fn func(ctx context.Context) error) error {
	_, err := guard(ctx, g, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func (g *GuardedStore) GetVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	return guard(ctx, g, "get vehicle", func(ctx context.Context) (*model.Vehicle, error) {
		return g.inner.GetVehicle(ctx, id)
	})
}

func (g *GuardedStore) UpdateVehicleField(ctx context.Context, id string, field model.FieldName, value decimal.Decimal) error {
	return guardErr(ctx, g, "update vehicle field", func(ctx context.Context) error {
		return g.inner.UpdateVehicleField(ctx, id, field, value)
	})
}

func (g *GuardedStore) ListComparablePrices(ctx context.Context, q model.ComparableQuery) ([]decimal.Decimal, error) {
	return guard(ctx, g, "list comparable prices", func(ctx context.Context) ([]decimal.Decimal, error) {
		return g.inner.ListComparablePrices(ctx, q)
	})
}

func (g *GuardedStore) ListFieldEvidence(ctx context.Context, filter EvidenceFilter) ([]model.FieldEvidence, error) {
	return guard(ctx, g, "list field evidence", func(ctx context.Context) ([]model.FieldEvidence, error) {
		return g.inner.ListFieldEvidence(ctx, filter)
	})
}

func (g *GuardedStore) CountFieldEvidence(ctx context.Context, entityID string, field model.FieldName) (int, error) {
	return guard(ctx, g, "count field evidence", func(ctx context.Context) (int, error) {
		return g.inner.CountFieldEvidence(ctx, entityID, field)
	})
}

func (g *GuardedStore) InsertFieldEvidence(ctx context.Context, ev *model.FieldEvidence) error {
	return guardErr(ctx, g, "insert field evidence", func(ctx context.Context) error {
		return g.inner.InsertFieldEvidence(ctx, ev)
	})
}

func (g *GuardedStore) ListAuctionEvents(ctx context.Context, entityID, platform string, limit int) ([]model.AuctionEvent, error) {
	return guard(ctx, g, "list auction events", func(ctx context.Context) ([]model.AuctionEvent, error) {
		return g.inner.ListAuctionEvents(ctx, entityID, platform, limit)
	})
}

func (g *GuardedStore) ListExternalListings(ctx context.Context, entityID, platform string, limit int) ([]model.ExternalListing, error) {
	return guard(ctx, g, "list external listings", func(ctx context.Context) ([]model.ExternalListing, error) {
		return g.inner.ListExternalListings(ctx, entityID, platform, limit)
	})
}

func (g *GuardedStore) ListTimelineEvents(ctx context.Context, entityID string, eventTypes []string, limit int) ([]model.TimelineEvent, error) {
	return guard(ctx, g, "list timeline events", func(ctx context.Context) ([]model.TimelineEvent, error) {
		return g.inner.ListTimelineEvents(ctx, entityID, eventTypes, limit)
	})
}

func (g *GuardedStore) GetExternalIdentity(ctx context.Context, platform, handle string) (*model.ExternalIdentity, error) {
	return guard(ctx, g, "get external identity", func(ctx context.Context) (*model.ExternalIdentity, error) {
		return g.inner.GetExternalIdentity(ctx, platform, handle)
	})
}

func (g *GuardedStore) Ping(ctx context.Context) error {
	return guardErr(ctx, g, "ping", g.inner.Ping)
}

// Migrate and Close bypass the breaker.
func (g *GuardedStore) Migrate(ctx context.Context) error {
	return g.inner.Migrate(ctx)
}

func (g *GuardedStore) Close() error {
	return g.inner.Close()
}
