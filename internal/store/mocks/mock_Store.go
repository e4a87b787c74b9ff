// Package mocks provides test doubles for the evidence store.
package mocks

import (
	"context"

	"github.com/shopspring/decimal"
	mock "github.com/stretchr/testify/mock"

	"github.com/sells-group/provenance-cli/internal/model"
	"github.com/sells-group/provenance-cli/internal/store"
)

// MockStore is a mock type for the store.Store interface.
type MockStore struct {
	mock.Mock
}

// GetVehicle provides a mock function with given fields: ctx, id
func (_m *MockStore) GetVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for GetVehicle")
	}

	var r0 *model.Vehicle
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.Vehicle, error)); ok {
		return rf(ctx, id)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Vehicle)
	}
	return r0, ret.Error(1)
}

// UpdateVehicleField provides a mock function with given fields: ctx, id, field, value
func (_m *MockStore) UpdateVehicleField(ctx context.Context, id string, field model.FieldName, value decimal.Decimal) error {
	ret := _m.Called(ctx, id, field, value)

	if len(ret) == 0 {
		panic("no return value specified for UpdateVehicleField")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, model.FieldName, decimal.Decimal) error); ok {
		return rf(ctx, id, field, value)
	}
	return ret.Error(0)
}

// ListComparablePrices provides a mock function with given fields: ctx, q
func (_m *MockStore) ListComparablePrices(ctx context.Context, q model.ComparableQuery) ([]decimal.Decimal, error) {
	ret := _m.Called(ctx, q)

	if len(ret) == 0 {
		panic("no return value specified for ListComparablePrices")
	}

	var r0 []decimal.Decimal
	if rf, ok := ret.Get(0).(func(context.Context, model.ComparableQuery) ([]decimal.Decimal, error)); ok {
		return rf(ctx, q)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]decimal.Decimal)
	}
	return r0, ret.Error(1)
}

// ListFieldEvidence provides a mock function with given fields: ctx, filter
func (_m *MockStore) ListFieldEvidence(ctx context.Context, filter store.EvidenceFilter) ([]model.FieldEvidence, error) {
	ret := _m.Called(ctx, filter)

	if len(ret) == 0 {
		panic("no return value specified for ListFieldEvidence")
	}

	var r0 []model.FieldEvidence
	if rf, ok := ret.Get(0).(func(context.Context, store.EvidenceFilter) ([]model.FieldEvidence, error)); ok {
		return rf(ctx, filter)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.FieldEvidence)
	}
	return r0, ret.Error(1)
}

// CountFieldEvidence provides a mock function with given fields: ctx, entityID, field
func (_m *MockStore) CountFieldEvidence(ctx context.Context, entityID string, field model.FieldName) (int, error) {
	ret := _m.Called(ctx, entityID, field)

	if len(ret) == 0 {
		panic("no return value specified for CountFieldEvidence")
	}

	var r0 int
	if rf, ok := ret.Get(0).(func(context.Context, string, model.FieldName) (int, error)); ok {
		return rf(ctx, entityID, field)
	}
	r0 = ret.Get(0).(int)
	return r0, ret.Error(1)
}

// InsertFieldEvidence provides a mock function with given fields: ctx, ev
func (_m *MockStore) InsertFieldEvidence(ctx context.Context, ev *model.FieldEvidence) error {
	ret := _m.Called(ctx, ev)

	if len(ret) == 0 {
		panic("no return value specified for InsertFieldEvidence")
	}

	if rf, ok := ret.Get(0).(func(context.Context, *model.FieldEvidence) error); ok {
		return rf(ctx, ev)
	}
	return ret.Error(0)
}

// ListAuctionEvents provides a mock function with given fields: ctx, entityID, platform, limit
func (_m *MockStore) ListAuctionEvents(ctx context.Context, entityID string, platform string, limit int) ([]model.AuctionEvent, error) {
	ret := _m.Called(ctx, entityID, platform, limit)

	if len(ret) == 0 {
		panic("no return value specified for ListAuctionEvents")
	}

	var r0 []model.AuctionEvent
	if rf, ok := ret.Get(0).(func(context.Context, string, string, int) ([]model.AuctionEvent, error)); ok {
		return rf(ctx, entityID, platform, limit)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.AuctionEvent)
	}
	return r0, ret.Error(1)
}

// ListExternalListings provides a mock function with given fields: ctx, entityID, platform, limit
func (_m *MockStore) ListExternalListings(ctx context.Context, entityID string, platform string, limit int) ([]model.ExternalListing, error) {
	ret := _m.Called(ctx, entityID, platform, limit)

	if len(ret) == 0 {
		panic("no return value specified for ListExternalListings")
	}

	var r0 []model.ExternalListing
	if rf, ok := ret.Get(0).(func(context.Context, string, string, int) ([]model.ExternalListing, error)); ok {
		return rf(ctx, entityID, platform, limit)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.ExternalListing)
	}
	return r0, ret.Error(1)
}

// ListTimelineEvents provides a mock function with given fields: ctx, entityID, eventTypes, limit
func (_m *MockStore) ListTimelineEvents(ctx context.Context, entityID string, eventTypes []string, limit int) ([]model.TimelineEvent, error) {
	ret := _m.Called(ctx, entityID, eventTypes, limit)

	if len(ret) == 0 {
		panic("no return value specified for ListTimelineEvents")
	}

	var r0 []model.TimelineEvent
	if rf, ok := ret.Get(0).(func(context.Context, string, []string, int) ([]model.TimelineEvent, error)); ok {
		return rf(ctx, entityID, eventTypes, limit)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.TimelineEvent)
	}
	return r0, ret.Error(1)
}

// GetExternalIdentity provides a mock function with given fields: ctx, platform, handle
func (_m *MockStore) GetExternalIdentity(ctx context.Context, platform string, handle string) (*model.ExternalIdentity, error) {
	ret := _m.Called(ctx, platform, handle)

	if len(ret) == 0 {
		panic("no return value specified for GetExternalIdentity")
	}

	var r0 *model.ExternalIdentity
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (*model.ExternalIdentity, error)); ok {
		return rf(ctx, platform, handle)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.ExternalIdentity)
	}
	return r0, ret.Error(1)
}

// Ping provides a mock function with given fields: ctx
func (_m *MockStore) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Ping")
	}

	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		return rf(ctx)
	}
	return ret.Error(0)
}

// Migrate provides a mock function with given fields: ctx
func (_m *MockStore) Migrate(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Migrate")
	}

	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		return rf(ctx)
	}
	return ret.Error(0)
}

// Close provides a mock function with given fields:
func (_m *MockStore) Close() error {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Close")
	}

	if rf, ok := ret.Get(0).(func() error); ok {
		return rf()
	}
	return ret.Error(0)
}

// NewMockStore creates a new instance of MockStore. It registers a cleanup
// that asserts the mock's expectations.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	m := &MockStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ store.Store = (*MockStore)(nil)
