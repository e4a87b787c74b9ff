package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EvidenceStatus is the review state of a FieldEvidence row.
type EvidenceStatus string

const (
	EvidenceProposed EvidenceStatus = "proposed"
	EvidenceAccepted EvidenceStatus = "accepted"
	EvidenceRejected EvidenceStatus = "rejected"
)

// SourceType describes where a piece of evidence came from.
type SourceType string

const (
	SourceUserInput         SourceType = "user_input"
	SourceUserInputVerified SourceType = "user_input_verified"
	SourceReceipt           SourceType = "receipt"
	SourceBillOfSale        SourceType = "bill_of_sale"
	SourceTitleDocument     SourceType = "title_document"
	SourceAppraisal         SourceType = "appraisal"
	SourceAuctionResult     SourceType = "auction_result"
	SourceMarketplace       SourceType = "marketplace_listing"
	SourceDocumentScan      SourceType = "document_scan"
	SourceAIExtraction      SourceType = "ai_extraction"
	SourceValuationModel    SourceType = "valuation_model"
	SourceDealerQuote       SourceType = "dealer_quote"
)

// FieldEvidence is a single append-only observation proposing a value for a field.
type FieldEvidence struct {
	ID                string          `json:"id"`
	EntityID          string          `json:"entity_id"`
	FieldName         FieldName       `json:"field_name"`
	ProposedValue     decimal.Decimal `json:"proposed_value"`
	SourceType        SourceType      `json:"source_type"`
	SourceConfidence  int             `json:"source_confidence"` // 0-100
	ExtractionContext string          `json:"extraction_context,omitempty"`
	Status            EvidenceStatus  `json:"status"`
	CreatedBy         string          `json:"created_by"`
	CreatedAt         time.Time       `json:"created_at"`
}

// TimelineEvent is a dated entry in a vehicle's history. Sale and purchase
// events carrying a cost amount act as fallback evidence.
type TimelineEvent struct {
	ID         int64               `json:"id"`
	EntityID   string              `json:"entity_id"`
	EventType  string              `json:"event_type"`
	EventDate  time.Time           `json:"event_date"`
	CostAmount decimal.NullDecimal `json:"cost_amount"`
	Metadata   map[string]any      `json:"metadata,omitempty"`
	CreatedBy  string              `json:"created_by,omitempty"`
}

// Timeline event types that can back a financial field.
const (
	TimelineSale     = "sale"
	TimelinePurchase = "purchase"
)

// ExternalIdentity is a handle on an external platform, optionally claimed
// by an internal user.
type ExternalIdentity struct {
	Platform        string  `json:"platform"`
	Handle          string  `json:"handle"`
	ClaimedByUserID *string `json:"claimed_by_user_id,omitempty"`
	ProfileURL      *string `json:"profile_url,omitempty"`
}

// Claimed reports whether an internal user owns the identity.
func (e *ExternalIdentity) Claimed() bool {
	return e != nil && e.ClaimedByUserID != nil && *e.ClaimedByUserID != ""
}
