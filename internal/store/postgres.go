package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/provenance-cli/internal/db"
	"github.com/sells-group/provenance-cli/internal/model"
)

// PostgresStore implements Store and Seeder using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS vehicles (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	owner_id       TEXT NOT NULL,
	owner_name     TEXT NOT NULL DEFAULT '',
	make           TEXT NOT NULL,
	model          TEXT NOT NULL,
	year           INTEGER NOT NULL,
	current_value  NUMERIC(14,2),
	sale_price     NUMERIC(14,2),
	purchase_price NUMERIC(14,2),
	asking_price   NUMERIC(14,2),
	high_bid       NUMERIC(14,2),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_vehicles_classification ON vehicles(lower(make), lower(model), year);

CREATE TABLE IF NOT EXISTS field_evidence (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	vehicle_id         TEXT NOT NULL REFERENCES vehicles(id),
	field_name         TEXT NOT NULL,
	proposed_value     NUMERIC(14,2) NOT NULL,
	source_type        TEXT NOT NULL,
	source_confidence  INTEGER NOT NULL CHECK (source_confidence BETWEEN 0 AND 100),
	extraction_context TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'proposed',
	created_by         TEXT NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_field_evidence_lookup ON field_evidence(vehicle_id, field_name, status, created_at DESC);

CREATE TABLE IF NOT EXISTS auction_events (
	id                 BIGSERIAL PRIMARY KEY,
	vehicle_id         TEXT NOT NULL REFERENCES vehicles(id),
	platform           TEXT NOT NULL,
	source_url         TEXT NOT NULL DEFAULT '',
	lot_number         TEXT,
	auction_start_date TIMESTAMPTZ,
	auction_end_date   TIMESTAMPTZ,
	outcome            TEXT NOT NULL DEFAULT 'other',
	winning_bid        NUMERIC(14,2),
	high_bid           NUMERIC(14,2),
	winning_bidder     TEXT,
	seller_name        TEXT,
	total_bids         INTEGER,
	comments_count     INTEGER,
	page_views         INTEGER,
	watchers           INTEGER,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_auction_events_vehicle ON auction_events(vehicle_id, platform, auction_end_date DESC NULLS LAST);

CREATE TABLE IF NOT EXISTS external_listings (
	id            BIGSERIAL PRIMARY KEY,
	vehicle_id    TEXT NOT NULL REFERENCES vehicles(id),
	platform      TEXT NOT NULL,
	listing_url   TEXT NOT NULL DEFAULT '',
	sold_at       TIMESTAMPTZ,
	end_date      TIMESTAMPTZ,
	bid_count     INTEGER,
	view_count    INTEGER,
	watcher_count INTEGER,
	metadata      JSONB NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_external_listings_vehicle ON external_listings(vehicle_id, platform, end_date DESC NULLS LAST);

CREATE TABLE IF NOT EXISTS timeline_events (
	id          BIGSERIAL PRIMARY KEY,
	vehicle_id  TEXT NOT NULL REFERENCES vehicles(id),
	event_type  TEXT NOT NULL,
	event_date  TIMESTAMPTZ NOT NULL,
	cost_amount NUMERIC(14,2),
	metadata    JSONB NOT NULL DEFAULT '{}',
	created_by  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_timeline_events_vehicle ON timeline_events(vehicle_id, event_type, event_date DESC);

CREATE TABLE IF NOT EXISTS external_identities (
	platform           TEXT NOT NULL,
	handle             TEXT NOT NULL,
	claimed_by_user_id TEXT,
	profile_url        TEXT,
	PRIMARY KEY (platform, handle)
);
`

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const vehicleColumns = `id, owner_id, owner_name, make, model, year, current_value, sale_price, purchase_price, asking_price, high_bid, created_at, updated_at`

func (s *PostgresStore) GetVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	var v model.Vehicle
	err := s.pool.QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id,
	).Scan(&v.ID, &v.OwnerID, &v.OwnerName, &v.Make, &v.Model, &v.Year,
		&v.CurrentValue, &v.SalePrice, &v.PurchasePrice, &v.AskingPrice, &v.HighBid,
		&v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "postgres: vehicle %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get vehicle %s", id)
	}
	return &v, nil
}

func (s *PostgresStore) UpdateVehicleField(ctx context.Context, id string, field model.FieldName, value decimal.Decimal) error {
	col, err := field.Column()
	if err != nil {
		return eris.Wrap(err, "postgres: update vehicle field")
	}
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE vehicles SET %s = $1, updated_at = $2 WHERE id = $3`, pgx.Identifier{col}.Sanitize()),
		value, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update %s on vehicle %s", field, id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "postgres: vehicle %s", id)
	}
	return nil
}

func (s *PostgresStore) ListComparablePrices(ctx context.Context, q model.ComparableQuery) ([]decimal.Decimal, error) {
	col, err := q.PriceField.Column()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list comparable prices")
	}
	ident := pgx.Identifier{col}.Sanitize()
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %[1]s FROM vehicles
			WHERE lower(make) = lower($1) AND lower(model) = lower($2)
			AND year BETWEEN $3 AND $4 AND id <> $5
			AND %[1]s IS NOT NULL AND %[1]s > 0
			ORDER BY updated_at DESC LIMIT $6`, ident),
		q.Classification.Make, q.Classification.Model, q.YearMin, q.YearMax, q.ExcludeID, pageSize(q.Limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list comparable prices")
	}
	defer rows.Close()

	var prices []decimal.Decimal
	for rows.Next() {
		var p decimal.Decimal
		if err := rows.Scan(&p); err != nil {
			return nil, eris.Wrap(err, "postgres: scan comparable price")
		}
		prices = append(prices, p)
	}
	return prices, eris.Wrap(rows.Err(), "postgres: iterate comparable prices")
}

func (s *PostgresStore) ListFieldEvidence(ctx context.Context, filter EvidenceFilter) ([]model.FieldEvidence, error) {
	query := `SELECT id, vehicle_id, field_name, proposed_value, source_type, source_confidence, extraction_context, status, created_by, created_at
		FROM field_evidence WHERE vehicle_id = $1 AND field_name = $2`
	args := []any{filter.EntityID, string(filter.Field)}
	if filter.Status != "" {
		query += ` AND status = $3`
		args = append(args, string(filter.Status))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, pageSize(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list evidence %s/%s", filter.EntityID, filter.Field)
	}
	defer rows.Close()

	var out []model.FieldEvidence
	for rows.Next() {
		var ev model.FieldEvidence
		if err := rows.Scan(&ev.ID, &ev.EntityID, &ev.FieldName, &ev.ProposedValue, &ev.SourceType,
			&ev.SourceConfidence, &ev.ExtractionContext, &ev.Status, &ev.CreatedBy, &ev.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan evidence")
		}
		out = append(out, ev)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate evidence")
}

func (s *PostgresStore) CountFieldEvidence(ctx context.Context, entityID string, field model.FieldName) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM field_evidence WHERE vehicle_id = $1 AND field_name = $2`,
		entityID, string(field),
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: count evidence %s/%s", entityID, field)
	}
	return n, nil
}

func (s *PostgresStore) InsertFieldEvidence(ctx context.Context, ev *model.FieldEvidence) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO field_evidence (id, vehicle_id, field_name, proposed_value, source_type, source_confidence, extraction_context, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ev.ID, ev.EntityID, string(ev.FieldName), ev.ProposedValue, string(ev.SourceType),
		ev.SourceConfidence, ev.ExtractionContext, string(ev.Status), ev.CreatedBy, ev.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert evidence %s/%s", ev.EntityID, ev.FieldName)
}

func (s *PostgresStore) ListAuctionEvents(ctx context.Context, entityID, platform string, limit int) ([]model.AuctionEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, vehicle_id, platform, source_url, lot_number, auction_start_date, auction_end_date, outcome,
			winning_bid, high_bid, winning_bidder, seller_name, total_bids, comments_count, page_views, watchers, created_at
		FROM auction_events
		WHERE vehicle_id = $1 AND ($2::text = '' OR platform = $2)
		ORDER BY auction_end_date DESC NULLS LAST, created_at DESC, id DESC
		LIMIT $3`,
		entityID, platform, pageSize(limit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list auction events %s", entityID)
	}
	defer rows.Close()

	var out []model.AuctionEvent
	for rows.Next() {
		var ev model.AuctionEvent
		var outcome string
		if err := rows.Scan(&ev.ID, &ev.EntityID, &ev.Platform, &ev.SourceURL, &ev.LotNumber,
			&ev.AuctionStartDate, &ev.AuctionEndDate, &outcome, &ev.WinningBid, &ev.HighBid,
			&ev.WinningBidder, &ev.SellerName, &ev.TotalBids, &ev.CommentsCount, &ev.PageViews,
			&ev.Watchers, &ev.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan auction event")
		}
		ev.Outcome = model.ParseOutcome(outcome)
		out = append(out, ev)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate auction events")
}

func (s *PostgresStore) ListExternalListings(ctx context.Context, entityID, platform string, limit int) ([]model.ExternalListing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, vehicle_id, platform, listing_url, sold_at, end_date, bid_count, view_count, watcher_count, metadata, created_at
		FROM external_listings
		WHERE vehicle_id = $1 AND ($2::text = '' OR platform = $2)
		ORDER BY end_date DESC NULLS LAST, created_at DESC, id DESC
		LIMIT $3`,
		entityID, platform, pageSize(limit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list external listings %s", entityID)
	}
	defer rows.Close()

	var out []model.ExternalListing
	for rows.Next() {
		var l model.ExternalListing
		var meta []byte
		if err := rows.Scan(&l.ID, &l.EntityID, &l.Platform, &l.ListingURL, &l.SoldAt, &l.EndDate,
			&l.BidCount, &l.ViewCount, &l.WatcherCount, &meta, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan external listing")
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &l.Metadata); err != nil {
				return nil, eris.Wrapf(err, "postgres: unmarshal listing %d metadata", l.ID)
			}
		}
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate external listings")
}

func (s *PostgresStore) ListTimelineEvents(ctx context.Context, entityID string, eventTypes []string, limit int) ([]model.TimelineEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, vehicle_id, event_type, event_date, cost_amount, metadata, created_by
		FROM timeline_events
		WHERE vehicle_id = $1 AND event_type = ANY($2)
		ORDER BY event_date DESC, id DESC
		LIMIT $3`,
		entityID, eventTypes, pageSize(limit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list timeline events %s", entityID)
	}
	defer rows.Close()

	var out []model.TimelineEvent
	for rows.Next() {
		var ev model.TimelineEvent
		var meta []byte
		if err := rows.Scan(&ev.ID, &ev.EntityID, &ev.EventType, &ev.EventDate, &ev.CostAmount, &meta, &ev.CreatedBy); err != nil {
			return nil, eris.Wrap(err, "postgres: scan timeline event")
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &ev.Metadata); err != nil {
				return nil, eris.Wrapf(err, "postgres: unmarshal timeline event %d metadata", ev.ID)
			}
		}
		out = append(out, ev)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate timeline events")
}

func (s *PostgresStore) GetExternalIdentity(ctx context.Context, platform, handle string) (*model.ExternalIdentity, error) {
	var id model.ExternalIdentity
	err := s.pool.QueryRow(ctx,
		`SELECT platform, handle, claimed_by_user_id, profile_url FROM external_identities WHERE platform = $1 AND handle = $2`,
		platform, FoldHandle(handle),
	).Scan(&id.Platform, &id.Handle, &id.ClaimedByUserID, &id.ProfileURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get identity %s/%s", platform, handle)
	}
	return &id, nil
}

// Seeder

func (s *PostgresStore) CreateVehicle(ctx context.Context, v *model.Vehicle) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now
	_, err := s.pool.Exec(ctx,
		`INSERT INTO vehicles (`+vehicleColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		v.ID, v.OwnerID, v.OwnerName, v.Make, v.Model, v.Year,
		v.CurrentValue, v.SalePrice, v.PurchasePrice, v.AskingPrice, v.HighBid, v.CreatedAt, v.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: create vehicle %s", v.ID)
}

var vehicleUpsert = db.UpsertConfig{
	Table: "vehicles",
	Columns: []string{"id", "owner_id", "owner_name", "make", "model", "year",
		"current_value", "sale_price", "purchase_price", "asking_price", "high_bid", "created_at", "updated_at"},
	ConflictKeys: []string{"id"},
	Preserve:     []string{"created_at"},
}

// ImportVehicles bulk upserts vehicles by id.
func (s *PostgresStore) ImportVehicles(ctx context.Context, vs []model.Vehicle) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(vs))
	for i := range vs {
		v := &vs[i]
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		rows = append(rows, []any{v.ID, v.OwnerID, v.OwnerName, v.Make, v.Model, v.Year,
			v.CurrentValue, v.SalePrice, v.PurchasePrice, v.AskingPrice, v.HighBid, now, now})
	}
	n, err := db.BulkUpsert(ctx, s.pool, vehicleUpsert, rows)
	return n, eris.Wrap(err, "postgres: import vehicles")
}

func (s *PostgresStore) InsertAuctionEvent(ctx context.Context, ev *model.AuctionEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO auction_events (vehicle_id, platform, source_url, lot_number, auction_start_date, auction_end_date, outcome,
			winning_bid, high_bid, winning_bidder, seller_name, total_bids, comments_count, page_views, watchers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16) RETURNING id`,
		ev.EntityID, ev.Platform, ev.SourceURL, ev.LotNumber, ev.AuctionStartDate, ev.AuctionEndDate, string(ev.Outcome),
		ev.WinningBid, ev.HighBid, ev.WinningBidder, ev.SellerName, ev.TotalBids, ev.CommentsCount, ev.PageViews,
		ev.Watchers, ev.CreatedAt,
	).Scan(&ev.ID)
	return eris.Wrapf(err, "postgres: insert auction event %s", ev.EntityID)
}

func (s *PostgresStore) InsertExternalListing(ctx context.Context, l *model.ExternalListing) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	meta, err := json.Marshal(l.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal listing metadata")
	}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO external_listings (vehicle_id, platform, listing_url, sold_at, end_date, bid_count, view_count, watcher_count, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		l.EntityID, l.Platform, l.ListingURL, l.SoldAt, l.EndDate, l.BidCount, l.ViewCount, l.WatcherCount, meta, l.CreatedAt,
	).Scan(&l.ID)
	return eris.Wrapf(err, "postgres: insert external listing %s", l.EntityID)
}

func (s *PostgresStore) InsertTimelineEvent(ctx context.Context, ev *model.TimelineEvent) error {
	meta, err := json.Marshal(ev.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal timeline metadata")
	}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO timeline_events (vehicle_id, event_type, event_date, cost_amount, metadata, created_by)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		ev.EntityID, ev.EventType, ev.EventDate, ev.CostAmount, meta, ev.CreatedBy,
	).Scan(&ev.ID)
	return eris.Wrapf(err, "postgres: insert timeline event %s", ev.EntityID)
}

func (s *PostgresStore) UpsertExternalIdentity(ctx context.Context, id *model.ExternalIdentity) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO external_identities (platform, handle, claimed_by_user_id, profile_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (platform, handle) DO UPDATE SET claimed_by_user_id = EXCLUDED.claimed_by_user_id, profile_url = EXCLUDED.profile_url`,
		id.Platform, FoldHandle(id.Handle), id.ClaimedByUserID, id.ProfileURL,
	)
	return eris.Wrapf(err, "postgres: upsert identity %s/%s", id.Platform, id.Handle)
}
