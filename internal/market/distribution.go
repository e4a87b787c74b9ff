package market

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/sells-group/provenance-cli/internal/model"
)

// CurvePoints is the resolution of the density curve.
const CurvePoints = 100

// Estimate fits a Gaussian to prices: population mean and standard deviation
// plus a density curve over mean ± 3σ. It returns nil for fewer than
// MinComparables prices or a zero deviation.
func Estimate(prices []decimal.Decimal) *model.Distribution {
	if len(prices) < MinComparables {
		return nil
	}
	mean, sd := meanStdDev(prices)
	if sd == 0 || math.IsNaN(sd) {
		return nil
	}

	lo, hi := mean-3*sd, mean+3*sd
	step := (hi - lo) / float64(CurvePoints-1)
	curve := make([]model.CurvePoint, CurvePoints)
	for i := range curve {
		x := lo + float64(i)*step
		curve[i] = model.CurvePoint{X: x, Y: pdf(x, mean, sd)}
	}
	return &model.Distribution{Mean: mean, StdDev: sd, Curve: curve}
}

// WithZScore sets the standardized score of value on d. A nil distribution
// or missing value leaves it unset.
func WithZScore(d *model.Distribution, value decimal.NullDecimal) *model.Distribution {
	if d == nil || !value.Valid || d.StdDev == 0 {
		return d
	}
	z := (value.Decimal.InexactFloat64() - d.Mean) / d.StdDev
	d.ZScore = &z
	return d
}

func pdf(x, mean, sd float64) float64 {
	u := (x - mean) / sd
	return math.Exp(-0.5*u*u) / (sd * math.Sqrt(2*math.Pi))
}

// meanStdDev returns the mean and population standard deviation.
func meanStdDev(prices []decimal.Decimal) (float64, float64) {
	if len(prices) == 0 {
		return 0, 0
	}
	n := float64(len(prices))
	var sum float64
	for _, p := range prices {
		sum += p.InexactFloat64()
	}
	mean := sum / n

	var sq float64
	for _, p := range prices {
		d := p.InexactFloat64() - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / n)
}
