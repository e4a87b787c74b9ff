// Package provenance decides which evidence backs a displayed field value,
// how far it can be trusted, and who may change it.
package provenance

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/provenance-cli/internal/auction"
	"github.com/sells-group/provenance-cli/internal/model"
	"github.com/sells-group/provenance-cli/internal/store"
)

// Reader is the slice of the evidence store the resolver needs.
type Reader interface {
	auction.Reader
	IdentityReader
	GetVehicle(ctx context.Context, id string) (*model.Vehicle, error)
	ListFieldEvidence(ctx context.Context, filter store.EvidenceFilter) ([]model.FieldEvidence, error)
	CountFieldEvidence(ctx context.Context, entityID string, field model.FieldName) (int, error)
	ListTimelineEvents(ctx context.Context, entityID string, eventTypes []string, limit int) ([]model.TimelineEvent, error)
}

// ResolveContext is who is asking and what page they are on.
type ResolveContext struct {
	Actor model.Actor  `json:"actor"`
	Hint  auction.Hint `json:"hint"`
}

// Resolver builds Provenance records. It never writes.
type Resolver struct {
	store        Reader
	history      *auction.Resolver
	rules        *Rules
	claimBaseURL string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRules overrides the default rules.
func WithRules(rules *Rules) Option {
	return func(r *Resolver) {
		if rules != nil {
			r.rules = rules
		}
	}
}

// WithClaimBaseURL sets the base URL of the identity-claim flow.
func WithClaimBaseURL(base string) Option {
	return func(r *Resolver) { r.claimBaseURL = base }
}

// NewResolver creates a Resolver. history may be nil, in which case one is
// built over st with the default page size.
func NewResolver(st Reader, history *auction.Resolver, opts ...Option) *Resolver {
	if history == nil {
		history = auction.NewResolver(st, 0)
	}
	r := &Resolver{store: st, history: history, rules: DefaultRules()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// inputs is everything the candidates choose from.
type inputs struct {
	entityID string
	field    model.FieldName
	value    decimal.NullDecimal
	vehicle  *model.Vehicle
	history  *auction.History
	latest   *model.FieldEvidence
}

// candidate proposes a provenance, or nil to defer to the next one.
type candidate func(ctx context.Context, in *inputs) *model.Provenance

// candidates are tried in order; the first non-nil result wins.
func (r *Resolver) candidates() []candidate {
	return []candidate{
		r.fromAuction,
		r.fromEvidence,
		r.fromTimeline,
		r.fromManual,
	}
}

// Resolve returns the provenance of field on entityID. value is the value
// currently displayed and backs the manual fallback.
func (r *Resolver) Resolve(ctx context.Context, entityID string, field model.FieldName, value decimal.NullDecimal, rc ResolveContext) (*model.Provenance, error) {
	if !field.Valid() {
		return nil, eris.Errorf("provenance: unknown field %q", field)
	}
	log := zap.L().With(zap.String("entity_id", entityID), zap.String("field", string(field)))

	in := &inputs{entityID: entityID, field: field, value: value}
	var count int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := r.store.GetVehicle(gctx, entityID)
		if err != nil {
			return eris.Wrapf(err, "provenance: load vehicle %s", entityID)
		}
		in.vehicle = v
		return nil
	})
	g.Go(func() error {
		h, err := r.history.Resolve(gctx, entityID, field, rc.Hint)
		if err != nil {
			// Auction telemetry is the primary source only for auction-backed
			// fields; elsewhere it only supplies lot context.
			if field.AuctionBacked() {
				return eris.Wrap(err, "provenance: auction history")
			}
			log.Warn("provenance: auction context unavailable", zap.Error(err))
			return nil
		}
		in.history = h
		return nil
	})
	g.Go(func() error {
		evs, err := r.store.ListFieldEvidence(gctx, store.EvidenceFilter{
			EntityID: entityID,
			Field:    field,
			Status:   model.EvidenceAccepted,
			Limit:    1,
		})
		if err != nil {
			return eris.Wrap(err, "provenance: latest evidence")
		}
		if len(evs) > 0 {
			in.latest = &evs[0]
		}
		return nil
	})
	g.Go(func() error {
		n, err := r.store.CountFieldEvidence(gctx, entityID, field)
		if err != nil {
			return eris.Wrap(err, "provenance: count evidence")
		}
		count = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var p *model.Provenance
	for _, c := range r.candidates() {
		if p = c(ctx, in); p != nil {
			break
		}
	}

	p.EntityID = entityID
	p.Field = field
	p.EvidenceCount = count
	p.CanEdit = canEdit(rc.Actor, p.InsertedBy)
	p.InsertedByName = displayName(p.InsertedBy, in.vehicle, rc.Actor)

	if cur := in.history.Current(); cur != nil {
		if p.LotNumber == "" {
			p.LotNumber = cur.LotNumber
		}
		if field.AuctionBacked() {
			p.Buyer = r.attribute(ctx, cur.Platform, cur.BuyerUsername, cur.URL)
			p.Seller = r.attribute(ctx, cur.Platform, cur.SellerUsername, cur.URL)
		}
	}
	if in.history != nil {
		p.AuctionHistory = in.history.Auctions
	}

	log.Debug("provenance: resolved",
		zap.String("source", string(p.SourceKind)),
		zap.Int("confidence", p.Confidence),
		zap.Int("evidence_count", count),
	)
	return p, nil
}

// fromAuction uses the current auction when it closed with a figure for an
// auction-backed field.
func (r *Resolver) fromAuction(_ context.Context, in *inputs) *model.Provenance {
	if !in.field.AuctionBacked() {
		return nil
	}
	cur := in.history.Current()
	if cur == nil || !cur.Outcome.Final() || !cur.Amount.Valid {
		return nil
	}
	return &model.Provenance{
		Value:        cur.Amount,
		SourceKind:   model.SourceKindAuction,
		SourceLabel:  withLot(cur.PlatformName, cur.LotNumber),
		Confidence:   AuctionConfidence,
		InsertedBy:   model.SystemActor,
		InsertedAt:   cur.EndDate,
		URL:          cur.URL,
		LotNumber:    cur.LotNumber,
		SaleDate:     cur.EndDate,
		Outcome:      cur.Outcome,
		BidCount:     cur.BidCount,
		ViewCount:    cur.ViewCount,
		WatcherCount: cur.WatcherCount,
	}
}

// fromEvidence uses the most recent accepted evidence row.
func (r *Resolver) fromEvidence(_ context.Context, in *inputs) *model.Provenance {
	ev := in.latest
	if ev == nil {
		return nil
	}
	lot := ""
	if cur := in.history.Current(); cur != nil {
		lot = cur.LotNumber
	}
	at := ev.CreatedAt
	return &model.Provenance{
		Value:       decimal.NewNullDecimal(ev.ProposedValue),
		SourceKind:  model.SourceKindEvidence,
		SourceLabel: withLot(r.rules.Label(ev.SourceType), lot),
		Confidence:  ev.SourceConfidence,
		InsertedBy:  ev.CreatedBy,
		InsertedAt:  &at,
	}
}

var timelineTypes = map[model.FieldName]string{
	model.FieldSalePrice:     model.TimelineSale,
	model.FieldPurchasePrice: model.TimelinePurchase,
}

// fromTimeline falls back to a dated sale or purchase entry, only when the
// vehicle has no auction telemetry or listings at all. A timeline claim never
// overrides auction data.
func (r *Resolver) fromTimeline(ctx context.Context, in *inputs) *model.Provenance {
	eventType, ok := timelineTypes[in.field]
	if !ok || in.history == nil || !in.history.Empty() {
		return nil
	}
	evs, err := r.store.ListTimelineEvents(ctx, in.entityID, []string{eventType}, 1)
	if err != nil {
		zap.L().Warn("provenance: timeline fallback unavailable",
			zap.String("entity_id", in.entityID),
			zap.Error(err),
		)
		return nil
	}
	if len(evs) == 0 || !evs[0].CostAmount.Valid {
		return nil
	}
	ev := evs[0]
	by := ev.CreatedBy
	if by == "" {
		by = in.vehicle.OwnerID
	}
	at := ev.EventDate
	return &model.Provenance{
		Value:       ev.CostAmount,
		SourceKind:  model.SourceKindTimeline,
		SourceLabel: "Timeline " + ev.EventType + " (" + ev.EventDate.Format(time.DateOnly) + ")",
		Confidence:  r.rules.TimelineConfidence,
		InsertedBy:  by,
		InsertedAt:  &at,
		SaleDate:    &at,
	}
}

// fromManual always succeeds: the displayed value is attributed to the owner.
func (r *Resolver) fromManual(_ context.Context, in *inputs) *model.Provenance {
	value := in.value
	if !value.Valid {
		value = in.vehicle.Value(in.field)
	}
	return &model.Provenance{
		Value:       value,
		SourceKind:  model.SourceKindManual,
		SourceLabel: ManualLabel,
		Confidence:  ManualConfidence,
		InsertedBy:  in.vehicle.OwnerID,
	}
}

// canEdit is true only for the author of the selected source. System
// telemetry has no human author.
func canEdit(actor model.Actor, insertedBy string) bool {
	return actor.ID != "" && insertedBy != model.SystemActor && actor.ID == insertedBy
}

func displayName(insertedBy string, v *model.Vehicle, actor model.Actor) string {
	switch {
	case insertedBy == model.SystemActor:
		return ""
	case v != nil && insertedBy == v.OwnerID:
		return v.OwnerName
	case insertedBy == actor.ID:
		return actor.Name
	default:
		return ""
	}
}
