package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceKind is the class of evidence a provenance record was built from.
type SourceKind string

const (
	SourceKindAuction  SourceKind = "auction"
	SourceKindEvidence SourceKind = "evidence"
	SourceKindTimeline SourceKind = "timeline"
	SourceKindManual   SourceKind = "manual"
)

// SystemActor is the inserted_by identity of machine-captured telemetry.
const SystemActor = "system"

// Attribution links a scraped username to a profile or to a claim flow.
type Attribution struct {
	Platform   string `json:"platform"`
	Handle     string `json:"handle"`
	ProfileURL string `json:"profile_url,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	Claimed    bool   `json:"claimed"`
	ClaimURL   string `json:"claim_url,omitempty"`
}

// Provenance answers where a displayed field value came from and who may change it.
type Provenance struct {
	EntityID       string              `json:"entity_id"`
	Field          FieldName           `json:"field"`
	Value          decimal.NullDecimal `json:"value"`
	SourceKind     SourceKind          `json:"source_kind"`
	SourceLabel    string              `json:"source_label"`
	Confidence     int                 `json:"confidence"`
	InsertedBy     string              `json:"inserted_by"`
	InsertedByName string              `json:"inserted_by_name,omitempty"`
	InsertedAt     *time.Time          `json:"inserted_at,omitempty"`
	EvidenceCount  int                 `json:"evidence_count"`
	CanEdit        bool                `json:"can_edit"`

	// Auction-specific detail, present when an auction attempt backs the field
	// or supplies lot context.
	URL            string           `json:"url,omitempty"`
	LotNumber      string           `json:"lot_number,omitempty"`
	SaleDate       *time.Time       `json:"sale_date,omitempty"`
	Outcome        Outcome          `json:"outcome,omitempty"`
	BidCount       *int             `json:"bid_count,omitempty"`
	ViewCount      *int             `json:"view_count,omitempty"`
	WatcherCount   *int             `json:"watcher_count,omitempty"`
	Buyer          *Attribution     `json:"buyer,omitempty"`
	Seller         *Attribution     `json:"seller,omitempty"`
	AuctionHistory []AuctionSummary `json:"auction_history,omitempty"`
}
