package provenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/provenance-cli/internal/auction"
	"github.com/sells-group/provenance-cli/internal/model"
	"github.com/sells-group/provenance-cli/internal/platform"
	"github.com/sells-group/provenance-cli/internal/resilience"
	"github.com/sells-group/provenance-cli/internal/store"
	"github.com/sells-group/provenance-cli/internal/store/mocks"
)

const (
	owner    = "owner-1"
	stranger = "user-2"
)

func ptr[T any](v T) *T { return &v }

func money(n int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(n))
}

func daysAgo(n int) *time.Time {
	t := time.Now().UTC().AddDate(0, 0, -n)
	return &t
}

type fixture struct {
	vehicle  *model.Vehicle
	events   []model.AuctionEvent
	listings []model.ExternalListing
	evidence []model.FieldEvidence
	count    int
	timeline []model.TimelineEvent
}

func newFixture() *fixture {
	return &fixture{vehicle: &model.Vehicle{
		ID: "v1", OwnerID: owner, OwnerName: "Dana Owner",
		Make: "Porsche", Model: "911", Year: 1988,
		SalePrice: money(40000),
	}}
}

func (f *fixture) mock(t *testing.T) *mocks.MockStore {
	m := mocks.NewMockStore(t)
	m.On("GetVehicle", mock.Anything, "v1").Return(f.vehicle, nil).Maybe()
	m.On("ListAuctionEvents", mock.Anything, "v1", mock.Anything, mock.Anything).Return(f.events, nil).Maybe()
	m.On("ListExternalListings", mock.Anything, "v1", mock.Anything, mock.Anything).Return(f.listings, nil).Maybe()
	m.On("ListFieldEvidence", mock.Anything, mock.MatchedBy(func(fl store.EvidenceFilter) bool {
		return fl.Status == model.EvidenceAccepted && fl.Limit == 1
	})).Return(f.evidence, nil).Maybe()
	m.On("CountFieldEvidence", mock.Anything, "v1", mock.Anything).Return(f.count, nil).Maybe()
	m.On("ListTimelineEvents", mock.Anything, "v1", mock.Anything, 1).Return(f.timeline, nil).Maybe()
	return m
}

// withTwoAttempts adds a reserve-not-met run 400 days ago and a sale 10 days
// ago, with a listing matching the sale.
func (f *fixture) withTwoAttempts() *fixture {
	f.events = []model.AuctionEvent{
		{
			ID: 2, EntityID: "v1", Platform: platform.BringATrailer,
			SourceURL:      "https://bringatrailer.com/listing/1988-porsche-911-2/",
			LotNumber:      ptr("88812"),
			AuctionEndDate: daysAgo(10),
			Outcome:        model.OutcomeSold,
			WinningBid:     money(38500),
			WinningBidder:  ptr("Buyer1"),
			SellerName:     ptr("seller1"),
		},
		{
			ID: 1, EntityID: "v1", Platform: platform.BringATrailer,
			SourceURL:      "https://bringatrailer.com/listing/1988-porsche-911/",
			AuctionEndDate: daysAgo(400),
			Outcome:        model.OutcomeReserveNotMet,
			HighBid:        money(31000),
		},
	}
	f.listings = []model.ExternalListing{{
		ID: 9, EntityID: "v1", Platform: platform.BringATrailer,
		ListingURL: "https://bringatrailer.com/listing/1988-porsche-911-2",
		BidCount:   ptr(22),
	}}
	return f
}

func actor(id string) ResolveContext {
	return ResolveContext{Actor: model.Actor{ID: id}}
}

func TestResolve_NoEvidenceFallsBackToManual(t *testing.T) {
	f := newFixture()
	r := NewResolver(f.mock(t), nil)

	p, err := r.Resolve(context.Background(), "v1", model.FieldSalePrice, decimal.NullDecimal{}, actor(owner))
	require.NoError(t, err)
	assert.Equal(t, model.SourceKindManual, p.SourceKind)
	assert.Equal(t, ManualLabel, p.SourceLabel)
	assert.Equal(t, ManualConfidence, p.Confidence)
	assert.Equal(t, owner, p.InsertedBy)
	assert.Equal(t, "Dana Owner", p.InsertedByName)
	assert.True(t, p.CanEdit)
	assert.Equal(t, 0, p.EvidenceCount)
	assert.True(t, p.Value.Decimal.Equal(decimal.NewFromInt(40000)))

	p, err = r.Resolve(context.Background(), "v1", model.FieldSalePrice, money(41000), actor(stranger))
	require.NoError(t, err)
	assert.Equal(t, 50, p.Confidence)
	assert.False(t, p.CanEdit)
	assert.True(t, p.Value.Decimal.Equal(decimal.NewFromInt(41000)))

	p, err = r.Resolve(context.Background(), "v1", model.FieldSalePrice, decimal.NullDecimal{}, ResolveContext{})
	require.NoError(t, err)
	assert.False(t, p.CanEdit, "anonymous actors never edit")
}

func TestResolve_AcceptedEvidenceKeepsItsConfidence(t *testing.T) {
	f := newFixture()
	f.events = []model.AuctionEvent{{
		ID: 3, EntityID: "v1", Platform: platform.BringATrailer,
		SourceURL:      "https://bringatrailer.com/listing/live-one/",
		LotNumber:      ptr("90001"),
		AuctionEndDate: ptr(time.Now().Add(72 * time.Hour)),
		Outcome:        model.OutcomeOther,
		HighBid:        money(30000),
	}}
	f.evidence = []model.FieldEvidence{{
		ID: "ev-1", EntityID: "v1", FieldName: model.FieldSalePrice,
		ProposedValue: decimal.NewFromInt(39000), SourceType: model.SourceReceipt,
		SourceConfidence: 85, Status: model.EvidenceAccepted, CreatedBy: stranger,
		CreatedAt: time.Now().Add(-time.Hour),
	}}
	f.count = 4

	p, err := NewResolver(f.mock(t), nil).Resolve(context.Background(), "v1", model.FieldSalePrice, decimal.NullDecimal{}, actor(stranger))
	require.NoError(t, err)
	assert.Equal(t, model.SourceKindEvidence, p.SourceKind)
	assert.Equal(t, 85, p.Confidence)
	assert.Equal(t, "Receipt (Lot #90001)", p.SourceLabel)
	assert.Equal(t, stranger, p.InsertedBy)
	assert.True(t, p.CanEdit, "evidence author may edit")
	assert.Equal(t, 4, p.EvidenceCount)
	assert.True(t, p.Value.Decimal.Equal(decimal.NewFromInt(39000)))
}

func TestResolve_FinalAuctionEndToEnd(t *testing.T) {
	f := newFixture().withTwoAttempts()
	f.evidence = []model.FieldEvidence{{
		ID: "ev-1", EntityID: "v1", FieldName: model.FieldSalePrice,
		ProposedValue: decimal.NewFromInt(39000), SourceType: model.SourceUserInput,
		SourceConfidence: 85, Status: model.EvidenceAccepted, CreatedBy: owner,
	}}
	m := f.mock(t)
	m.On("GetExternalIdentity", mock.Anything, platform.BringATrailer, "Buyer1").
		Return(&model.ExternalIdentity{Platform: "bat", Handle: "buyer1", ClaimedByUserID: ptr("user-77")}, nil)
	m.On("GetExternalIdentity", mock.Anything, platform.BringATrailer, "seller1").Return(nil, nil)

	r := NewResolver(m, nil, WithClaimBaseURL("https://app.example.com/claim"))
	p, err := r.Resolve(context.Background(), "v1", model.FieldSalePrice, decimal.NullDecimal{}, actor(owner))
	require.NoError(t, err)

	assert.Equal(t, model.SourceKindAuction, p.SourceKind)
	assert.True(t, p.Value.Decimal.Equal(decimal.NewFromInt(38500)))
	assert.Equal(t, 100, p.Confidence)
	assert.Equal(t, "Bring a Trailer (Lot #88812)", p.SourceLabel)
	assert.Equal(t, model.SystemActor, p.InsertedBy)
	assert.False(t, p.CanEdit, "telemetry is never user-editable")
	assert.Equal(t, model.OutcomeSold, p.Outcome)
	assert.Equal(t, 22, *p.BidCount)
	assert.Equal(t, "https://bringatrailer.com/listing/1988-porsche-911-2", p.URL)

	require.Len(t, p.AuctionHistory, 2)
	assert.Equal(t, model.OutcomeSold, p.AuctionHistory[0].Outcome)
	assert.Equal(t, model.OutcomeReserveNotMet, p.AuctionHistory[1].Outcome)

	require.NotNil(t, p.Buyer)
	assert.True(t, p.Buyer.Claimed)
	assert.Equal(t, "user-77", p.Buyer.UserID)
	assert.Empty(t, p.Buyer.ClaimURL)

	require.NotNil(t, p.Seller)
	assert.False(t, p.Seller.Claimed)
	assert.Equal(t, "https://bringatrailer.com/member/seller1/", p.Seller.ProfileURL)
	assert.Equal(t,
		"https://app.example.com/claim?platform=bat&handle=seller1&proof_url=https%3A%2F%2Fbringatrailer.com%2Flisting%2F1988-porsche-911-2",
		p.Seller.ClaimURL)
}

func TestResolve_IdentityFailureDropsAttribution(t *testing.T) {
	f := newFixture().withTwoAttempts()
	m := f.mock(t)
	m.On("GetExternalIdentity", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	p, err := NewResolver(m, nil).Resolve(context.Background(), "v1", model.FieldSalePrice, decimal.NullDecimal{}, actor(owner))
	require.NoError(t, err)
	assert.Equal(t, 100, p.Confidence)
	assert.Nil(t, p.Buyer)
	assert.Nil(t, p.Seller)
}

func TestResolve_NonFinalAuctionDefersToEvidence(t *testing.T) {
	f := newFixture()
	f.events = []model.AuctionEvent{{
		ID: 1, EntityID: "v1", Platform: platform.CarsAndBids,
		SourceURL: "https://carsandbids.com/auctions/abc",
		Outcome:   model.OutcomeOther,
		HighBid:   money(25000),
	}}

	p, err := NewResolver(f.mock(t), nil).Resolve(context.Background(), "v1", model.FieldHighBid, decimal.NullDecimal{}, actor(owner))
	require.NoError(t, err)
	assert.Equal(t, model.SourceKindManual, p.SourceKind)
	assert.Len(t, p.AuctionHistory, 1)
}

func TestResolve_TimelineFallback(t *testing.T) {
	f := newFixture()
	f.timeline = []model.TimelineEvent{{
		ID: 1, EntityID: "v1", EventType: model.TimelinePurchase,
		EventDate:  time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC),
		CostAmount: money(27500),
		CreatedBy:  owner,
	}}

	p, err := NewResolver(f.mock(t), nil).Resolve(context.Background(), "v1", model.FieldPurchasePrice, decimal.NullDecimal{}, actor(owner))
	require.NoError(t, err)
	assert.Equal(t, model.SourceKindTimeline, p.SourceKind)
	assert.Equal(t, "Timeline purchase (2019-06-01)", p.SourceLabel)
	assert.Equal(t, 60, p.Confidence)
	assert.True(t, p.CanEdit)
	assert.True(t, p.Value.Decimal.Equal(decimal.NewFromInt(27500)))
}

func TestResolve_TimelineNeverOverridesAuctionRows(t *testing.T) {
	f := newFixture()
	f.listings = []model.ExternalListing{{ID: 1, EntityID: "v1", Platform: "bat", ListingURL: "https://bringatrailer.com/listing/x/"}}
	m := f.mock(t)

	p, err := NewResolver(m, nil).Resolve(context.Background(), "v1", model.FieldSalePrice, decimal.NullDecimal{}, actor(owner))
	require.NoError(t, err)
	assert.Equal(t, model.SourceKindManual, p.SourceKind)
	m.AssertNotCalled(t, "ListTimelineEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_VehicleNotFound(t *testing.T) {
	m := mocks.NewMockStore(t)
	m.On("GetVehicle", mock.Anything, "nope").Return(nil, model.ErrNotFound)
	m.On("ListAuctionEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	m.On("ListExternalListings", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	m.On("ListFieldEvidence", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	m.On("CountFieldEvidence", mock.Anything, mock.Anything, mock.Anything).Return(0, nil).Maybe()

	_, err := NewResolver(m, nil).Resolve(context.Background(), "nope", model.FieldSalePrice, decimal.NullDecimal{}, actor(owner))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestResolve_HistoryFailure(t *testing.T) {
	unavailable := resilience.Unavailable("list auction events", errors.New("connection refused"))

	build := func(t *testing.T) *mocks.MockStore {
		f := newFixture()
		m := mocks.NewMockStore(t)
		m.On("GetVehicle", mock.Anything, "v1").Return(f.vehicle, nil).Maybe()
		m.On("ListAuctionEvents", mock.Anything, "v1", mock.Anything, mock.Anything).Return(nil, unavailable).Maybe()
		m.On("ListExternalListings", mock.Anything, "v1", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
		m.On("ListFieldEvidence", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
		m.On("CountFieldEvidence", mock.Anything, "v1", mock.Anything).Return(0, nil).Maybe()
		return m
	}

	t.Run("auction-backed field fails", func(t *testing.T) {
		_, err := NewResolver(build(t), nil).Resolve(context.Background(), "v1", model.FieldSalePrice, decimal.NullDecimal{}, actor(owner))
		assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	})

	t.Run("other field degrades", func(t *testing.T) {
		p, err := NewResolver(build(t), nil).Resolve(context.Background(), "v1", model.FieldCurrentValue, decimal.NullDecimal{}, actor(owner))
		require.NoError(t, err)
		assert.Equal(t, model.SourceKindManual, p.SourceKind)
		assert.Nil(t, p.AuctionHistory)
	})
}

func TestResolve_UnknownField(t *testing.T) {
	_, err := NewResolver(mocks.NewMockStore(t), nil).Resolve(context.Background(), "v1", model.FieldName("vin"), decimal.NullDecimal{}, actor(owner))
	require.Error(t, err)
}

func TestResolve_UsesInjectedHistoryResolver(t *testing.T) {
	f := newFixture().withTwoAttempts()
	m := f.mock(t)
	m.On("GetExternalIdentity", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).Maybe()

	r := NewResolver(m, auction.NewResolver(m, 1))
	p, err := r.Resolve(context.Background(), "v1", model.FieldHighBid, decimal.NullDecimal{}, actor(owner))
	require.NoError(t, err)
	m.AssertCalled(t, "ListAuctionEvents", mock.Anything, "v1", mock.Anything, 1)
	assert.Equal(t, model.SourceKindAuction, p.SourceKind)
}
