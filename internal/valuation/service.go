// Package valuation composes provenance and market positioning into the
// responses served to the presentation layer.
package valuation

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/provenance-cli/internal/market"
	"github.com/sells-group/provenance-cli/internal/model"
	"github.com/sells-group/provenance-cli/internal/provenance"
	"github.com/sells-group/provenance-cli/internal/update"
)

// Status marks how a response section resolved.
type Status string

const (
	StatusOK               Status = "ok"
	StatusNotFound         Status = "not_found"
	StatusInsufficientData Status = "insufficient_data"
	StatusUnavailable      Status = "unavailable"
)

// StatusOf maps a section error to its status.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, model.ErrNotFound):
		return StatusNotFound
	case errors.Is(err, model.ErrInsufficientData):
		return StatusInsufficientData
	default:
		return StatusUnavailable
	}
}

// Request asks for the provenance and market position of one field.
type Request struct {
	EntityID string          `json:"entity_id"`
	Field    model.FieldName `json:"field"`
	// CurrentValue is the value on screen; empty uses the stored value.
	CurrentValue decimal.NullDecimal       `json:"current_value"`
	Context      provenance.ResolveContext `json:"context"`
}

// ProvenanceSection is the provenance half of a Response.
type ProvenanceSection struct {
	Status     Status            `json:"status"`
	Provenance *model.Provenance `json:"provenance,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// MarketSection is the market half of a Response.
type MarketSection struct {
	Status       Status              `json:"status"`
	Sample       *model.MarketSample `json:"sample,omitempty"`
	Distribution *model.Distribution `json:"distribution,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// Response holds independently resolved sections.
type Response struct {
	EntityID   string            `json:"entity_id"`
	Field      model.FieldName   `json:"field"`
	Provenance ProvenanceSection `json:"provenance"`
	Market     MarketSection     `json:"market"`
}

// Store is what the service reads and writes directly.
type Store interface {
	provenance.Reader
	market.ComparableReader
	update.Writer
}

// Service answers provenance and market queries and applies edits.
type Service struct {
	store    Store
	resolver *provenance.Resolver
	sampler  *market.Sampler
	pipeline *update.Pipeline
}

// NewService wires a Service over st.
func NewService(st Store, resolver *provenance.Resolver, sampler *market.Sampler) *Service {
	if resolver == nil {
		resolver = provenance.NewResolver(st, nil)
	}
	if sampler == nil {
		sampler = market.NewSampler(st, 0, 0)
	}
	return &Service{
		store:    st,
		resolver: resolver,
		sampler:  sampler,
		pipeline: update.New(st, resolver),
	}
}

// GetProvenanceAndMarket resolves both sections concurrently. A failure in
// one section is reported in its status and never fails the other. The
// returned error is non-nil only for invalid requests.
func (s *Service) GetProvenanceAndMarket(ctx context.Context, req Request) (*Response, error) {
	if req.EntityID == "" {
		return nil, eris.New("valuation: entity id is required")
	}
	if !req.Field.Valid() {
		return nil, eris.Errorf("valuation: unknown field %q", req.Field)
	}
	start := time.Now()
	log := zap.L().With(zap.String("entity_id", req.EntityID), zap.String("field", string(req.Field)))

	resp := &Response{EntityID: req.EntityID, Field: req.Field}

	// Sections never return errors to the group; each records its own status.
	var g errgroup.Group
	g.Go(func() error {
		p, err := s.resolver.Resolve(ctx, req.EntityID, req.Field, req.CurrentValue, req.Context)
		resp.Provenance = ProvenanceSection{Status: StatusOf(err), Provenance: p}
		if err != nil {
			resp.Provenance.Error = err.Error()
			logSection(log, "provenance", err)
		}
		return nil
	})
	g.Go(func() error {
		sec, err := s.market(ctx, req)
		sec.Status = StatusOf(err)
		if err != nil {
			sec.Error = err.Error()
			logSection(log, "market", err)
		}
		resp.Market = sec
		return nil
	})
	_ = g.Wait()

	sectionResults.WithLabelValues("provenance", string(resp.Provenance.Status)).Inc()
	sectionResults.WithLabelValues("market", string(resp.Market.Status)).Inc()
	resolveSeconds.WithLabelValues(string(req.Field)).Observe(time.Since(start).Seconds())
	return resp, nil
}

func (s *Service) market(ctx context.Context, req Request) (MarketSection, error) {
	v, err := s.store.GetVehicle(ctx, req.EntityID)
	if err != nil {
		return MarketSection{}, eris.Wrap(err, "valuation: load vehicle")
	}
	sample, err := s.sampler.Sample(ctx, v.Classification(), v.Year, v.ID)
	if err != nil {
		return MarketSection{}, eris.Wrap(err, "valuation: sample market")
	}
	if sample == nil {
		return MarketSection{}, eris.Wrap(model.ErrInsufficientData, "valuation: too few distinct comparables")
	}

	value := req.CurrentValue
	if !value.Valid {
		value = v.Value(req.Field)
	}
	return MarketSection{
		Sample:       sample,
		Distribution: market.WithZScore(market.Estimate(sample.Prices), value),
	}, nil
}

func logSection(log *zap.Logger, section string, err error) {
	switch StatusOf(err) {
	case StatusNotFound, StatusInsufficientData:
		log.Debug("valuation: section empty", zap.String("section", section), zap.Error(err))
	default:
		log.Warn("valuation: section unavailable", zap.String("section", section), zap.Error(err))
	}
}

// EditValue applies an edit through the update pipeline.
func (s *Service) EditValue(ctx context.Context, entityID string, field model.FieldName, value decimal.Decimal, actor model.Actor) (*update.Result, error) {
	res, err := s.pipeline.ApplyEdit(ctx, entityID, field, value, actor)
	switch {
	case err == nil && len(res.Warnings) > 0:
		edits.WithLabelValues("partial").Inc()
	case err == nil:
		edits.WithLabelValues("applied").Inc()
	case errors.Is(err, model.ErrPermissionDenied):
		edits.WithLabelValues("denied").Inc()
	default:
		edits.WithLabelValues("failed").Inc()
	}
	return res, err
}
