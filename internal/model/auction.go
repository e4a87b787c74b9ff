package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome is how an auction attempt ended.
type Outcome string

const (
	OutcomeSold          Outcome = "sold"
	OutcomeReserveNotMet Outcome = "reserve_not_met"
	OutcomeEnded         Outcome = "ended"
	OutcomeOther         Outcome = "other"
)

// Final reports whether the outcome closes the auction. Anything else,
// including "other" and live statuses, is treated as still running.
func (o Outcome) Final() bool {
	switch o {
	case OutcomeSold, OutcomeReserveNotMet, OutcomeEnded:
		return true
	default:
		return false
	}
}

// ParseOutcome maps a stored status string to an Outcome.
func ParseOutcome(raw string) Outcome {
	switch Outcome(raw) {
	case OutcomeSold, OutcomeReserveNotMet, OutcomeEnded:
		return Outcome(raw)
	default:
		return OutcomeOther
	}
}

// AuctionEvent is structured telemetry captured from one auction attempt.
type AuctionEvent struct {
	ID               int64               `json:"id"`
	EntityID         string              `json:"entity_id"`
	Platform         string              `json:"platform"`
	SourceURL        string              `json:"source_url"`
	LotNumber        *string             `json:"lot_number,omitempty"`
	AuctionStartDate *time.Time          `json:"auction_start_date,omitempty"`
	AuctionEndDate   *time.Time          `json:"auction_end_date,omitempty"`
	Outcome          Outcome             `json:"outcome"`
	WinningBid       decimal.NullDecimal `json:"winning_bid"`
	HighBid          decimal.NullDecimal `json:"high_bid"`
	WinningBidder    *string             `json:"winning_bidder,omitempty"`
	SellerName       *string             `json:"seller_name,omitempty"`
	TotalBids        *int                `json:"total_bids,omitempty"`
	CommentsCount    *int                `json:"comments_count,omitempty"`
	PageViews        *int                `json:"page_views,omitempty"`
	Watchers         *int                `json:"watchers,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

// ListingMetadata is the unstructured part of an external listing that the
// resolvers read.
type ListingMetadata struct {
	LotNumber      string `json:"lot_number,omitempty"`
	SellerUsername string `json:"seller_username,omitempty"`
	BuyerUsername  string `json:"buyer_username,omitempty"`
}

// ExternalListing is a scraped marketplace listing for a vehicle.
type ExternalListing struct {
	ID           int64           `json:"id"`
	EntityID     string          `json:"entity_id"`
	Platform     string          `json:"platform"`
	ListingURL   string          `json:"listing_url"`
	SoldAt       *time.Time      `json:"sold_at,omitempty"`
	EndDate      *time.Time      `json:"end_date,omitempty"`
	BidCount     *int            `json:"bid_count,omitempty"`
	ViewCount    *int            `json:"view_count,omitempty"`
	WatcherCount *int            `json:"watcher_count,omitempty"`
	Metadata     ListingMetadata `json:"metadata"`
	CreatedAt    time.Time       `json:"created_at"`
}

// AuctionSummary is one auction attempt after joining telemetry with its listing.
type AuctionSummary struct {
	Platform       string              `json:"platform"`
	PlatformName   string              `json:"platform_name"`
	URL            string              `json:"url"`
	LotNumber      string              `json:"lot_number,omitempty"`
	StartDate      *time.Time          `json:"start_date,omitempty"`
	EndDate        *time.Time          `json:"end_date,omitempty"`
	Outcome        Outcome             `json:"outcome"`
	Amount         decimal.NullDecimal `json:"amount"`
	WinningBid     decimal.NullDecimal `json:"winning_bid"`
	HighBid        decimal.NullDecimal `json:"high_bid"`
	BidCount       *int                `json:"bid_count,omitempty"`
	ViewCount      *int                `json:"view_count,omitempty"`
	WatcherCount   *int                `json:"watcher_count,omitempty"`
	CommentsCount  *int                `json:"comments_count,omitempty"`
	BuyerUsername  string              `json:"buyer_username,omitempty"`
	SellerUsername string              `json:"seller_username,omitempty"`
	Current        bool                `json:"current"`
	ListingMatched bool                `json:"listing_matched"`
}

// LiveContext carries engagement numbers observed on the page that is
// currently showing a live auction.
type LiveContext struct {
	Status       string `json:"status,omitempty"`
	BidCount     *int   `json:"bid_count,omitempty"`
	ViewCount    *int   `json:"view_count,omitempty"`
	WatcherCount *int   `json:"watcher_count,omitempty"`
}
