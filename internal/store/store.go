package store

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/sells-group/provenance-cli/internal/model"
)

// DefaultPageSize caps every list read that does not set its own limit.
const DefaultPageSize = 20

// EvidenceFilter selects FieldEvidence rows for one (entity, field).
type EvidenceFilter struct {
	EntityID string               `json:"entity_id"`
	Field    model.FieldName      `json:"field"`
	Status   model.EvidenceStatus `json:"status,omitempty"`
	Limit    int                  `json:"limit,omitempty"`
}

// Store is the evidence store consumed by the resolvers and the update
// pipeline. List reads are ordered newest first and capped.
type Store interface {
	// Vehicles
	GetVehicle(ctx context.Context, id string) (*model.Vehicle, error)
	UpdateVehicleField(ctx context.Context, id string, field model.FieldName, value decimal.Decimal) error
	ListComparablePrices(ctx context.Context, q model.ComparableQuery) ([]decimal.Decimal, error)

	// Evidence
	ListFieldEvidence(ctx context.Context, filter EvidenceFilter) ([]model.FieldEvidence, error)
	CountFieldEvidence(ctx context.Context, entityID string, field model.FieldName) (int, error)
	InsertFieldEvidence(ctx context.Context, ev *model.FieldEvidence) error

	// Auction telemetry. An empty platform matches every platform.
	ListAuctionEvents(ctx context.Context, entityID, platform string, limit int) ([]model.AuctionEvent, error)
	ListExternalListings(ctx context.Context, entityID, platform string, limit int) ([]model.ExternalListing, error)
	ListTimelineEvents(ctx context.Context, entityID string, eventTypes []string, limit int) ([]model.TimelineEvent, error)

	// GetExternalIdentity returns nil, nil when the handle is unknown.
	GetExternalIdentity(ctx context.Context, platform, handle string) (*model.ExternalIdentity, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Seeder writes the rows that ingestion normally produces. It backs the
// seed and import commands and the integration tests.
type Seeder interface {
	CreateVehicle(ctx context.Context, v *model.Vehicle) error
	ImportVehicles(ctx context.Context, vs []model.Vehicle) (int64, error)
	InsertAuctionEvent(ctx context.Context, ev *model.AuctionEvent) error
	InsertExternalListing(ctx context.Context, l *model.ExternalListing) error
	InsertTimelineEvent(ctx context.Context, ev *model.TimelineEvent) error
	UpsertExternalIdentity(ctx context.Context, id *model.ExternalIdentity) error
}

func pageSize(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	return limit
}

// FoldHandle normalizes an external handle for identity lookup. Platforms
// treat usernames case-insensitively, so "JohnDoe" and "johndoe" are one identity.
func FoldHandle(handle string) string {
	return cases.Fold().String(strings.TrimSpace(handle))
}
