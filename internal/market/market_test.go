package market

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/provenance-cli/internal/model"
)

type fakeComparables struct {
	byField map[model.FieldName][]decimal.Decimal
	err     error
	queries []model.ComparableQuery
}

func (f *fakeComparables) ListComparablePrices(_ context.Context, q model.ComparableQuery) ([]decimal.Decimal, error) {
	f.queries = append(f.queries, q)
	return f.byField[q.PriceField], f.err
}

func prices(ns ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(ns))
	for i, n := range ns {
		out[i] = decimal.NewFromInt(n)
	}
	return out
}

var porsche911 = model.Classification{Make: "Porsche", Model: "911"}

func TestSample_ThreePrices(t *testing.T) {
	f := &fakeComparables{byField: map[model.FieldName][]decimal.Decimal{
		model.FieldSalePrice: prices(10000, 12000, 14000),
	}}
	s, err := NewSampler(f, 0, 0).Sample(context.Background(), porsche911, 1988, "v1")
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, 12000.0, s.Mean)
	assert.InDelta(t, 1632.99, s.StdDev, 0.01)
	assert.Equal(t, model.FieldSalePrice, s.PriceField)
	assert.Equal(t, 3, s.Comparables)

	require.Len(t, f.queries, 1)
	q := f.queries[0]
	assert.Equal(t, 1985, q.YearMin)
	assert.Equal(t, 1991, q.YearMax)
	assert.Equal(t, "v1", q.ExcludeID)
	assert.Equal(t, DefaultCap, q.Limit)
}

func TestSample_TwoPricesIsInsufficient(t *testing.T) {
	f := &fakeComparables{byField: map[model.FieldName][]decimal.Decimal{
		model.FieldSalePrice:    prices(10000, 12000),
		model.FieldCurrentValue: prices(9000, 11000),
	}}
	s, err := NewSampler(f, 0, 0).Sample(context.Background(), porsche911, 1988, "v1")
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Len(t, f.queries, 2)
}

func TestSample_FallsBackToCurrentValue(t *testing.T) {
	f := &fakeComparables{byField: map[model.FieldName][]decimal.Decimal{
		model.FieldSalePrice:    prices(10000),
		model.FieldCurrentValue: prices(20000, 22000, 24000, 26000),
	}}
	s, err := NewSampler(f, 2, 10).Sample(context.Background(), porsche911, 1990, "v1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, model.FieldCurrentValue, s.PriceField)
	assert.Equal(t, 23000.0, s.Mean)
	assert.Equal(t, 1988, f.queries[1].YearMin)
	assert.Equal(t, 10, f.queries[1].Limit)
}

func TestSample_IdenticalPricesAreInsufficient(t *testing.T) {
	f := &fakeComparables{byField: map[model.FieldName][]decimal.Decimal{
		model.FieldSalePrice: prices(20000, 20000, 20000),
	}}
	s, err := NewSampler(f, 0, 0).Sample(context.Background(), porsche911, 1988, "v1")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSample_IdenticalSalePricesFallBackToCurrentValue(t *testing.T) {
	f := &fakeComparables{byField: map[model.FieldName][]decimal.Decimal{
		model.FieldSalePrice:    prices(20000, 20000, 20000),
		model.FieldCurrentValue: prices(18000, 20000, 22000),
	}}
	s, err := NewSampler(f, 0, 0).Sample(context.Background(), porsche911, 1988, "v1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, model.FieldCurrentValue, s.PriceField)
	assert.Positive(t, s.StdDev)
}

func TestSample_IgnoresNonPositive(t *testing.T) {
	f := &fakeComparables{byField: map[model.FieldName][]decimal.Decimal{
		model.FieldSalePrice: prices(0, -5, 12000, 13000),
	}}
	s, err := NewSampler(f, 0, 0).Sample(context.Background(), porsche911, 1988, "v1")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSample_StoreError(t *testing.T) {
	f := &fakeComparables{err: errors.New("boom")}
	_, err := NewSampler(f, 0, 0).Sample(context.Background(), porsche911, 1988, "v1")
	assert.ErrorContains(t, err, "market: list comparable sale_price")
}

func TestSample_NoClassification(t *testing.T) {
	f := &fakeComparables{}
	s, err := NewSampler(f, 0, 0).Sample(context.Background(), model.Classification{Make: "Porsche"}, 1988, "v1")
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Empty(t, f.queries)
}

func TestEstimate(t *testing.T) {
	d := Estimate(prices(10000, 12000, 14000))
	require.NotNil(t, d)
	assert.Equal(t, 12000.0, d.Mean)
	assert.InDelta(t, 1632.993, d.StdDev, 0.001)
	require.Len(t, d.Curve, CurvePoints)
	assert.InDelta(t, d.Mean-3*d.StdDev, d.Curve[0].X, 1e-6)
	assert.InDelta(t, d.Mean+3*d.StdDev, d.Curve[CurvePoints-1].X, 1e-6)

	peak := 1 / (d.StdDev * math.Sqrt(2*math.Pi))
	for _, pt := range d.Curve {
		assert.LessOrEqual(t, pt.Y, peak)
		assert.Greater(t, pt.Y, 0.0)
	}
	assert.InDelta(t, d.Curve[0].Y, d.Curve[CurvePoints-1].Y, 1e-12)
}

func TestEstimate_Degenerate(t *testing.T) {
	assert.Nil(t, Estimate(prices(10000, 12000)))
	assert.Nil(t, Estimate(prices(15000, 15000, 15000)))
	assert.Nil(t, Estimate(nil))
}

func TestEstimate_MeanWithinRange(t *testing.T) {
	samples := [][]decimal.Decimal{
		prices(1, 2, 3),
		prices(5000, 5000, 5001),
		prices(18500, 22000, 31000, 27500, 40000, 19999),
		{decimal.RequireFromString("12345.67"), decimal.RequireFromString("0.01"), decimal.RequireFromString("999999.99")},
	}
	for _, ps := range samples {
		mean, sd := meanStdDev(ps)
		assert.GreaterOrEqual(t, sd, 0.0)
		assert.GreaterOrEqual(t, mean, decimal.Min(ps[0], ps[1:]...).InexactFloat64())
		assert.LessOrEqual(t, mean, decimal.Max(ps[0], ps[1:]...).InexactFloat64())
	}
}

func TestWithZScore(t *testing.T) {
	d := WithZScore(Estimate(prices(10000, 12000, 14000)), decimal.NewNullDecimal(decimal.NewFromInt(15000)))
	require.NotNil(t, d.ZScore)
	assert.InDelta(t, 1.8371, *d.ZScore, 0.0001)

	d = WithZScore(Estimate(prices(10000, 12000, 14000)), decimal.NullDecimal{})
	assert.Nil(t, d.ZScore)

	assert.Nil(t, WithZScore(nil, decimal.NewNullDecimal(decimal.NewFromInt(1))))
}

func TestWriteXLSX(t *testing.T) {
	ps := prices(10000, 12000, 14000)
	mean, sd := meanStdDev(ps)
	sample := &model.MarketSample{Prices: ps, Mean: mean, StdDev: sd, PriceField: model.FieldSalePrice, YearMin: 1985, YearMax: 1991, Comparables: 3}
	dist := WithZScore(Estimate(ps), decimal.NewNullDecimal(decimal.NewFromInt(13000)))

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sample, dist))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)

	summary := f.Sheet[SheetSummary]
	require.NotNil(t, summary)
	assert.Equal(t, "price_field", summary.Rows[0].Cells[0].String())
	assert.Equal(t, "sale_price", summary.Rows[0].Cells[1].String())
	assert.Len(t, summary.Rows, 7)

	assert.Len(t, f.Sheet[SheetComparables].Rows, 4)
	assert.Len(t, f.Sheet[SheetCurve].Rows, CurvePoints+1)
}

func TestWriteXLSX_WithoutDistribution(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, &model.MarketSample{Prices: prices(1, 2, 3)}, nil))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, f.Sheets, 2)

	assert.Error(t, WriteXLSX(&buf, nil, nil))
}
