package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/sells-group/provenance-cli/internal/model"
)

// SQLiteStore implements Store and Seeder using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Money columns are TEXT so decimal values round-trip exactly.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS vehicles (
	id             TEXT PRIMARY KEY,
	owner_id       TEXT NOT NULL,
	owner_name     TEXT NOT NULL DEFAULT '',
	make           TEXT NOT NULL,
	model          TEXT NOT NULL,
	year           INTEGER NOT NULL,
	current_value  TEXT,
	sale_price     TEXT,
	purchase_price TEXT,
	asking_price   TEXT,
	high_bid       TEXT,
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vehicles_classification ON vehicles(make, model, year);

CREATE TABLE IF NOT EXISTS field_evidence (
	id                 TEXT PRIMARY KEY,
	vehicle_id         TEXT NOT NULL REFERENCES vehicles(id),
	field_name         TEXT NOT NULL,
	proposed_value     TEXT NOT NULL,
	source_type        TEXT NOT NULL,
	source_confidence  INTEGER NOT NULL,
	extraction_context TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'proposed',
	created_by         TEXT NOT NULL,
	created_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_field_evidence_lookup ON field_evidence(vehicle_id, field_name, status, created_at);

CREATE TABLE IF NOT EXISTS auction_events (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	vehicle_id         TEXT NOT NULL REFERENCES vehicles(id),
	platform           TEXT NOT NULL,
	source_url         TEXT NOT NULL DEFAULT '',
	lot_number         TEXT,
	auction_start_date DATETIME,
	auction_end_date   DATETIME,
	outcome            TEXT NOT NULL DEFAULT 'other',
	winning_bid        TEXT,
	high_bid           TEXT,
	winning_bidder     TEXT,
	seller_name        TEXT,
	total_bids         INTEGER,
	comments_count     INTEGER,
	page_views         INTEGER,
	watchers           INTEGER,
	created_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_auction_events_vehicle ON auction_events(vehicle_id, platform);

CREATE TABLE IF NOT EXISTS external_listings (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	vehicle_id    TEXT NOT NULL REFERENCES vehicles(id),
	platform      TEXT NOT NULL,
	listing_url   TEXT NOT NULL DEFAULT '',
	sold_at       DATETIME,
	end_date      DATETIME,
	bid_count     INTEGER,
	view_count    INTEGER,
	watcher_count INTEGER,
	metadata      TEXT NOT NULL DEFAULT '{}',
	created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_external_listings_vehicle ON external_listings(vehicle_id, platform);

CREATE TABLE IF NOT EXISTS timeline_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	vehicle_id  TEXT NOT NULL REFERENCES vehicles(id),
	event_type  TEXT NOT NULL,
	event_date  DATETIME NOT NULL,
	cost_amount TEXT,
	metadata    TEXT NOT NULL DEFAULT '{}',
	created_by  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_timeline_events_vehicle ON timeline_events(vehicle_id, event_type);

CREATE TABLE IF NOT EXISTS external_identities (
	platform           TEXT NOT NULL,
	handle             TEXT NOT NULL,
	claimed_by_user_id TEXT,
	profile_url        TEXT,
	PRIMARY KEY (platform, handle)
);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	var v model.Vehicle
	err := s.db.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id,
	).Scan(&v.ID, &v.OwnerID, &v.OwnerName, &v.Make, &v.Model, &v.Year,
		&v.CurrentValue, &v.SalePrice, &v.PurchasePrice, &v.AskingPrice, &v.HighBid,
		&v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "sqlite: vehicle %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get vehicle %s", id)
	}
	return &v, nil
}

func (s *SQLiteStore) UpdateVehicleField(ctx context.Context, id string, field model.FieldName, value decimal.Decimal) error {
	col, err := field.Column()
	if err != nil {
		return eris.Wrap(err, "sqlite: update vehicle field")
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE vehicles SET %s = ?, updated_at = ? WHERE id = ?`, col),
		value.String(), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update %s on vehicle %s", field, id)
	}
	return checkRowsAffected(res, "vehicle", id)
}

func (s *SQLiteStore) ListComparablePrices(ctx context.Context, q model.ComparableQuery) ([]decimal.Decimal, error) {
	col, err := q.PriceField.Column()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list comparable prices")
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %[1]s FROM vehicles
			WHERE lower(make) = lower(?) AND lower(model) = lower(?)
			AND year BETWEEN ? AND ? AND id <> ?
			AND %[1]s IS NOT NULL AND CAST(%[1]s AS REAL) > 0
			ORDER BY updated_at DESC LIMIT ?`, col),
		q.Classification.Make, q.Classification.Model, q.YearMin, q.YearMax, q.ExcludeID, pageSize(q.Limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list comparable prices")
	}
	defer rows.Close() //nolint:errcheck

	var prices []decimal.Decimal
	for rows.Next() {
		var p decimal.Decimal
		if err := rows.Scan(&p); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan comparable price")
		}
		prices = append(prices, p)
	}
	return prices, eris.Wrap(rows.Err(), "sqlite: iterate comparable prices")
}

func (s *SQLiteStore) ListFieldEvidence(ctx context.Context, filter EvidenceFilter) ([]model.FieldEvidence, error) {
	query := `SELECT id, vehicle_id, field_name, proposed_value, source_type, source_confidence, extraction_context, status, created_by, created_at
		FROM field_evidence WHERE vehicle_id = ? AND field_name = ?`
	args := []any{filter.EntityID, string(filter.Field)}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, pageSize(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list evidence %s/%s", filter.EntityID, filter.Field)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.FieldEvidence
	for rows.Next() {
		var ev model.FieldEvidence
		if err := rows.Scan(&ev.ID, &ev.EntityID, &ev.FieldName, &ev.ProposedValue, &ev.SourceType,
			&ev.SourceConfidence, &ev.ExtractionContext, &ev.Status, &ev.CreatedBy, &ev.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan evidence")
		}
		out = append(out, ev)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate evidence")
}

func (s *SQLiteStore) CountFieldEvidence(ctx context.Context, entityID string, field model.FieldName) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM field_evidence WHERE vehicle_id = ? AND field_name = ?`,
		entityID, string(field),
	).Scan(&n)
	return n, eris.Wrapf(err, "sqlite: count evidence %s/%s", entityID, field)
}

func (s *SQLiteStore) InsertFieldEvidence(ctx context.Context, ev *model.FieldEvidence) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO field_evidence (id, vehicle_id, field_name, proposed_value, source_type, source_confidence, extraction_context, status, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.EntityID, string(ev.FieldName), ev.ProposedValue.String(), string(ev.SourceType),
		ev.SourceConfidence, ev.ExtractionContext, string(ev.Status), ev.CreatedBy, ev.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert evidence %s/%s", ev.EntityID, ev.FieldName)
}

func (s *SQLiteStore) ListAuctionEvents(ctx context.Context, entityID, platform string, limit int) ([]model.AuctionEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, vehicle_id, platform, source_url, lot_number, auction_start_date, auction_end_date, outcome,
			winning_bid, high_bid, winning_bidder, seller_name, total_bids, comments_count, page_views, watchers, created_at
		FROM auction_events
		WHERE vehicle_id = ? AND (? = '' OR platform = ?)
		ORDER BY auction_end_date DESC NULLS LAST, created_at DESC, id DESC
		LIMIT ?`,
		entityID, platform, platform, pageSize(limit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list auction events %s", entityID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.AuctionEvent
	for rows.Next() {
		var ev model.AuctionEvent
		var outcome string
		if err := rows.Scan(&ev.ID, &ev.EntityID, &ev.Platform, &ev.SourceURL, &ev.LotNumber,
			&ev.AuctionStartDate, &ev.AuctionEndDate, &outcome, &ev.WinningBid, &ev.HighBid,
			&ev.WinningBidder, &ev.SellerName, &ev.TotalBids, &ev.CommentsCount, &ev.PageViews,
			&ev.Watchers, &ev.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan auction event")
		}
		ev.Outcome = model.ParseOutcome(outcome)
		out = append(out, ev)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate auction events")
}

func (s *SQLiteStore) ListExternalListings(ctx context.Context, entityID, platform string, limit int) ([]model.ExternalListing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, vehicle_id, platform, listing_url, sold_at, end_date, bid_count, view_count, watcher_count, metadata, created_at
		FROM external_listings
		WHERE vehicle_id = ? AND (? = '' OR platform = ?)
		ORDER BY end_date DESC NULLS LAST, created_at DESC, id DESC
		LIMIT ?`,
		entityID, platform, platform, pageSize(limit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list external listings %s", entityID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ExternalListing
	for rows.Next() {
		var l model.ExternalListing
		var meta string
		if err := rows.Scan(&l.ID, &l.EntityID, &l.Platform, &l.ListingURL, &l.SoldAt, &l.EndDate,
			&l.BidCount, &l.ViewCount, &l.WatcherCount, &meta, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan external listing")
		}
		if err := json.Unmarshal([]byte(meta), &l.Metadata); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal listing %d metadata", l.ID)
		}
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate external listings")
}

func (s *SQLiteStore) ListTimelineEvents(ctx context.Context, entityID string, eventTypes []string, limit int) ([]model.TimelineEvent, error) {
	if len(eventTypes) == 0 {
		return nil, nil
	}
	args := []any{entityID}
	for _, et := range eventTypes {
		args = append(args, et)
	}
	args = append(args, pageSize(limit))

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(eventTypes)), ", ")
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, vehicle_id, event_type, event_date, cost_amount, metadata, created_by
		FROM timeline_events
		WHERE vehicle_id = ? AND event_type IN (`+placeholders+`)
		ORDER BY event_date DESC, id DESC
		LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list timeline events %s", entityID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.TimelineEvent
	for rows.Next() {
		var ev model.TimelineEvent
		var meta string
		if err := rows.Scan(&ev.ID, &ev.EntityID, &ev.EventType, &ev.EventDate, &ev.CostAmount, &meta, &ev.CreatedBy); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan timeline event")
		}
		if err := json.Unmarshal([]byte(meta), &ev.Metadata); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal timeline event %d metadata", ev.ID)
		}
		out = append(out, ev)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate timeline events")
}

func (s *SQLiteStore) GetExternalIdentity(ctx context.Context, platform, handle string) (*model.ExternalIdentity, error) {
	var id model.ExternalIdentity
	err := s.db.QueryRowContext(ctx,
		`SELECT platform, handle, claimed_by_user_id, profile_url FROM external_identities WHERE platform = ? AND handle = ?`,
		platform, FoldHandle(handle),
	).Scan(&id.Platform, &id.Handle, &id.ClaimedByUserID, &id.ProfileURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get identity %s/%s", platform, handle)
	}
	return &id, nil
}

// Seeder

func (s *SQLiteStore) CreateVehicle(ctx context.Context, v *model.Vehicle) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vehicles (`+vehicleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.OwnerID, v.OwnerName, v.Make, v.Model, v.Year,
		v.CurrentValue, v.SalePrice, v.PurchasePrice, v.AskingPrice, v.HighBid, v.CreatedAt, v.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: create vehicle %s", v.ID)
}

// ImportVehicles upserts vehicles by id in one transaction.
func (s *SQLiteStore) ImportVehicles(ctx context.Context, vs []model.Vehicle) (int64, error) {
	if len(vs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import vehicles: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vehicles (`+vehicleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET owner_id = excluded.owner_id, owner_name = excluded.owner_name,
			make = excluded.make, model = excluded.model, year = excluded.year,
			current_value = excluded.current_value, sale_price = excluded.sale_price,
			purchase_price = excluded.purchase_price, asking_price = excluded.asking_price,
			high_bid = excluded.high_bid, updated_at = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import vehicles: prepare")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	var n int64
	for i := range vs {
		v := &vs[i]
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, v.ID, v.OwnerID, v.OwnerName, v.Make, v.Model, v.Year,
			v.CurrentValue, v.SalePrice, v.PurchasePrice, v.AskingPrice, v.HighBid, now, now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: import vehicle %s", v.ID)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: import vehicles: commit")
	}
	return n, nil
}

func (s *SQLiteStore) InsertAuctionEvent(ctx context.Context, ev *model.AuctionEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO auction_events (vehicle_id, platform, source_url, lot_number, auction_start_date, auction_end_date, outcome,
			winning_bid, high_bid, winning_bidder, seller_name, total_bids, comments_count, page_views, watchers, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.EntityID, ev.Platform, ev.SourceURL, ev.LotNumber, utcPtr(ev.AuctionStartDate), utcPtr(ev.AuctionEndDate),
		string(ev.Outcome), ev.WinningBid, ev.HighBid, ev.WinningBidder, ev.SellerName, ev.TotalBids,
		ev.CommentsCount, ev.PageViews, ev.Watchers, ev.CreatedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert auction event %s", ev.EntityID)
	}
	ev.ID, err = res.LastInsertId()
	return eris.Wrap(err, "sqlite: auction event id")
}

func (s *SQLiteStore) InsertExternalListing(ctx context.Context, l *model.ExternalListing) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	meta, err := json.Marshal(l.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal listing metadata")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO external_listings (vehicle_id, platform, listing_url, sold_at, end_date, bid_count, view_count, watcher_count, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.EntityID, l.Platform, l.ListingURL, utcPtr(l.SoldAt), utcPtr(l.EndDate), l.BidCount, l.ViewCount,
		l.WatcherCount, string(meta), l.CreatedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert external listing %s", l.EntityID)
	}
	l.ID, err = res.LastInsertId()
	return eris.Wrap(err, "sqlite: external listing id")
}

func (s *SQLiteStore) InsertTimelineEvent(ctx context.Context, ev *model.TimelineEvent) error {
	meta := []byte("{}")
	if ev.Metadata != nil {
		var err error
		if meta, err = json.Marshal(ev.Metadata); err != nil {
			return eris.Wrap(err, "sqlite: marshal timeline metadata")
		}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO timeline_events (vehicle_id, event_type, event_date, cost_amount, metadata, created_by)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.EntityID, ev.EventType, ev.EventDate.UTC(), ev.CostAmount, string(meta), ev.CreatedBy,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert timeline event %s", ev.EntityID)
	}
	ev.ID, err = res.LastInsertId()
	return eris.Wrap(err, "sqlite: timeline event id")
}

func (s *SQLiteStore) UpsertExternalIdentity(ctx context.Context, id *model.ExternalIdentity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO external_identities (platform, handle, claimed_by_user_id, profile_url)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (platform, handle) DO UPDATE SET claimed_by_user_id = excluded.claimed_by_user_id, profile_url = excluded.profile_url`,
		id.Platform, FoldHandle(id.Handle), id.ClaimedByUserID, id.ProfileURL,
	)
	return eris.Wrapf(err, "sqlite: upsert identity %s/%s", id.Platform, id.Handle)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(model.ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

// utcPtr keeps stored timestamps in one zone so text ordering matches time ordering.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
