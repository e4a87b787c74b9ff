// Package market samples comparable vehicle prices and fits a Gaussian to
// them for positioning a value against its market.
package market

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/provenance-cli/internal/model"
)

// Sampling defaults.
const (
	DefaultYearWindow = 3
	DefaultCap        = 50
	MinComparables    = 3
)

// ComparableReader is the store query the sampler needs.
type ComparableReader interface {
	ListComparablePrices(ctx context.Context, q model.ComparableQuery) ([]decimal.Decimal, error)
}

// Sampler finds comparable prices for a vehicle.
type Sampler struct {
	store      ComparableReader
	yearWindow int
	limit      int
}

// NewSampler creates a Sampler. Non-positive window or limit use the defaults.
func NewSampler(st ComparableReader, yearWindow, limit int) *Sampler {
	if yearWindow <= 0 {
		yearWindow = DefaultYearWindow
	}
	if limit <= 0 {
		limit = DefaultCap
	}
	return &Sampler{store: st, yearWindow: yearWindow, limit: limit}
}

// priceFields are tried in order. Realized sale prices come first; the owner's
// current value estimate fills in thin markets.
var priceFields = []model.FieldName{model.FieldSalePrice, model.FieldCurrentValue}

// Sample returns the comparable population for a vehicle of class built in
// year, excluding excludeID. It returns nil when fewer than MinComparables
// positive prices exist under every price field.
func (s *Sampler) Sample(ctx context.Context, class model.Classification, year int, excludeID string) (*model.MarketSample, error) {
	if class.Make == "" || class.Model == "" || year <= 0 {
		return nil, nil
	}
	q := model.ComparableQuery{
		Classification: class,
		YearMin:        year - s.yearWindow,
		YearMax:        year + s.yearWindow,
		ExcludeID:      excludeID,
		Limit:          s.limit,
	}

	for _, field := range priceFields {
		q.PriceField = field
		raw, err := s.store.ListComparablePrices(ctx, q)
		if err != nil {
			return nil, eris.Wrapf(err, "market: list comparable %s", field)
		}
		prices := positive(raw)
		if len(prices) < MinComparables {
			continue
		}

		mean, sd := meanStdDev(prices)
		if sd == 0 {
			// Identical prices fit no curve.
			zap.L().Debug("market: degenerate comparables",
				zap.String("price_field", string(field)),
				zap.Int("comparables", len(prices)),
			)
			continue
		}
		zap.L().Debug("market: sampled comparables",
			zap.String("make", class.Make),
			zap.String("model", class.Model),
			zap.String("price_field", string(field)),
			zap.Int("comparables", len(prices)),
		)
		return &model.MarketSample{
			Prices:      prices,
			Mean:        mean,
			StdDev:      sd,
			PriceField:  field,
			YearMin:     q.YearMin,
			YearMax:     q.YearMax,
			Comparables: len(prices),
		}, nil
	}
	return nil, nil
}

func positive(prices []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(prices))
	for _, p := range prices {
		if p.IsPositive() {
			out = append(out, p)
		}
	}
	return out
}
