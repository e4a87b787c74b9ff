// Package auction joins auction telemetry with scraped marketplace listings
// into an ordered per-attempt history for one vehicle.
package auction

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/provenance-cli/internal/model"
	"github.com/sells-group/provenance-cli/internal/platform"
	"github.com/sells-group/provenance-cli/internal/urlnorm"
)

// DefaultPageSize caps the telemetry and listing rows loaded per resolution.
const DefaultPageSize = 20

// Reader is the slice of the evidence store the resolver needs.
type Reader interface {
	ListAuctionEvents(ctx context.Context, entityID, platform string, limit int) ([]model.AuctionEvent, error)
	ListExternalListings(ctx context.Context, entityID, platform string, limit int) ([]model.ExternalListing, error)
}

// Hint is what the caller knows about the page being viewed.
type Hint struct {
	// URLs are candidate listing URLs, most recent first.
	URLs []string `json:"urls,omitempty"`
	// PlatformCode is a stored platform code used when no URL classifies.
	PlatformCode string `json:"platform_code,omitempty"`
	// Live carries engagement counts shown on a running auction page.
	Live *model.LiveContext `json:"live,omitempty"`
}

// History is the resolved auction history for one vehicle.
type History struct {
	Platform platform.Platform      `json:"platform"`
	Auctions []model.AuctionSummary `json:"auctions"`
	// ListingCount is the number of listings loaded, matched or not.
	ListingCount int `json:"listing_count"`
	current      int
}

// Current returns the selected auction, or nil when the history is empty.
func (h *History) Current() *model.AuctionSummary {
	if h == nil || len(h.Auctions) == 0 {
		return nil
	}
	return &h.Auctions[h.current]
}

// Empty reports whether no telemetry or listing rows exist at all.
func (h *History) Empty() bool {
	return h == nil || (len(h.Auctions) == 0 && h.ListingCount == 0)
}

// Resolver builds auction histories.
type Resolver struct {
	store    Reader
	pageSize int
}

// NewResolver creates a Resolver. A non-positive pageSize uses DefaultPageSize.
func NewResolver(st Reader, pageSize int) *Resolver {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Resolver{store: st, pageSize: pageSize}
}

// Resolve loads telemetry and listings for the platform implied by hint,
// joins them by normalized URL and returns them most recent first.
func (r *Resolver) Resolve(ctx context.Context, entityID string, field model.FieldName, hint Hint) (*History, error) {
	plat, filter := platformFor(hint)
	log := zap.L().With(
		zap.String("entity_id", entityID),
		zap.String("field", string(field)),
		zap.String("platform", filter),
	)

	var (
		events   []model.AuctionEvent
		listings []model.ExternalListing
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = r.store.ListAuctionEvents(gctx, entityID, filter, r.pageSize)
		return eris.Wrap(err, "auction: list events")
	})
	g.Go(func() error {
		var err error
		listings, err = r.store.ListExternalListings(gctx, entityID, filter, r.pageSize)
		return eris.Wrap(err, "auction: list listings")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byURL := urlnorm.Index(listings, func(l model.ExternalListing) string { return l.ListingURL })

	h := &History{Platform: plat, ListingCount: len(listings)}
	for _, ev := range events {
		key := urlnorm.KeyOf(ev.SourceURL)
		if key.Empty() {
			log.Debug("auction: dropping unlinkable event", zap.Int64("event_id", ev.ID))
			continue
		}
		var listing *model.ExternalListing
		if l, ok := byURL[key]; ok {
			listing = &l
		}
		h.Auctions = append(h.Auctions, merge(ev, listing, key, field))
	}

	sortMostRecentFirst(h.Auctions)
	h.current = selectCurrent(h.Auctions, hint.URLs)

	if cur := h.Current(); cur != nil {
		cur.Current = true
		// Stored counts of a running auction are stale; only the live page
		// context may supply them.
		if !cur.Outcome.Final() {
			cur.BidCount, cur.ViewCount, cur.WatcherCount = nil, nil, nil
			if hint.Live != nil {
				cur.BidCount = hint.Live.BidCount
				cur.ViewCount = hint.Live.ViewCount
				cur.WatcherCount = hint.Live.WatcherCount
			}
		}
	}

	log.Debug("auction: history resolved",
		zap.Int("events", len(events)),
		zap.Int("listings", len(listings)),
		zap.Int("auctions", len(h.Auctions)),
	)
	return h, nil
}

// platformFor picks the platform from the most recent classifiable hint URL,
// then the stored code. An unclassifiable hint loads every platform.
func platformFor(hint Hint) (platform.Platform, string) {
	for _, u := range hint.URLs {
		if urlnorm.KeyOf(u).Empty() {
			continue
		}
		if p := platform.Classify(u, ""); p.Known() {
			return p, p.Key
		}
		break
	}
	if strings.TrimSpace(hint.PlatformCode) != "" {
		if p := platform.Classify("", hint.PlatformCode); p.Known() {
			return p, p.Key
		}
	}
	return platform.Platform{}, ""
}

// merge joins one telemetry row with its listing. Telemetry owns outcome and
// amounts; counts come from telemetry when present, else from the listing.
func merge(ev model.AuctionEvent, l *model.ExternalListing, key urlnorm.Key, field model.FieldName) model.AuctionSummary {
	s := model.AuctionSummary{
		Platform:       ev.Platform,
		PlatformName:   platform.DisplayName(ev.Platform),
		URL:            key.String(),
		LotNumber:      deref(ev.LotNumber),
		StartDate:      ev.AuctionStartDate,
		EndDate:        ev.AuctionEndDate,
		Outcome:        ev.Outcome,
		WinningBid:     ev.WinningBid,
		HighBid:        ev.HighBid,
		BidCount:       ev.TotalBids,
		ViewCount:      ev.PageViews,
		WatcherCount:   ev.Watchers,
		CommentsCount:  ev.CommentsCount,
		BuyerUsername:  deref(ev.WinningBidder),
		SellerUsername: deref(ev.SellerName),
	}

	if l != nil {
		s.ListingMatched = true
		s.BidCount = coalesce(s.BidCount, l.BidCount)
		s.ViewCount = coalesce(s.ViewCount, l.ViewCount)
		s.WatcherCount = coalesce(s.WatcherCount, l.WatcherCount)
		s.EndDate = coalesce(s.EndDate, l.EndDate)
		s.LotNumber = cmp.Or(s.LotNumber, l.Metadata.LotNumber)
		s.BuyerUsername = cmp.Or(s.BuyerUsername, l.Metadata.BuyerUsername)
		s.SellerUsername = cmp.Or(s.SellerUsername, l.Metadata.SellerUsername)
		// A sold marker on the listing settles an unclassified telemetry outcome.
		// It never overrides an explicit final outcome.
		if s.Outcome == model.OutcomeOther && l.SoldAt != nil {
			s.Outcome = model.OutcomeSold
		}
	}

	s.Amount = Amount(field, s.Outcome, s.WinningBid, s.HighBid)
	return s
}

// Amount picks the figure an auction contributes to field. A sale price is
// the winning bid of a sold auction and otherwise the high bid.
func Amount(field model.FieldName, outcome model.Outcome, winning, high decimal.NullDecimal) decimal.NullDecimal {
	switch field {
	case model.FieldSalePrice:
		if outcome == model.OutcomeSold && winning.Valid {
			return winning
		}
		return high
	case model.FieldHighBid:
		if high.Valid {
			return high
		}
		return winning
	default:
		if winning.Valid {
			return winning
		}
		return high
	}
}

func sortMostRecentFirst(as []model.AuctionSummary) {
	slices.SortStableFunc(as, func(a, b model.AuctionSummary) int {
		switch {
		case a.EndDate == nil && b.EndDate == nil:
			return 0
		case a.EndDate == nil:
			return 1
		case b.EndDate == nil:
			return -1
		default:
			return b.EndDate.Compare(*a.EndDate)
		}
	})
}

func selectCurrent(as []model.AuctionSummary, hintURLs []string) int {
	for i := range as {
		if urlnorm.Key(as[i].URL).MatchesAny(hintURLs) {
			return i
		}
	}
	return 0
}

func coalesce[T any](a, b *T) *T {
	if a != nil {
		return a
	}
	return b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
