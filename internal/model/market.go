package model

import "github.com/shopspring/decimal"

// MarketSample is the comparable-price population for a vehicle.
type MarketSample struct {
	Prices      []decimal.Decimal `json:"prices"`
	Mean        float64           `json:"mean"`
	StdDev      float64           `json:"std_dev"`
	PriceField  FieldName         `json:"price_field"`
	YearMin     int               `json:"year_min"`
	YearMax     int               `json:"year_max"`
	Comparables int               `json:"comparables"`
}

// CurvePoint is one sample of the fitted density curve.
type CurvePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distribution is a Gaussian fitted to a market sample.
type Distribution struct {
	Mean   float64      `json:"mean"`
	StdDev float64      `json:"std_dev"`
	Curve  []CurvePoint `json:"curve"`
	ZScore *float64     `json:"z_score,omitempty"`
}

// ComparableQuery selects the comparable population for a vehicle.
type ComparableQuery struct {
	Classification Classification
	YearMin        int
	YearMax        int
	ExcludeID      string
	PriceField     FieldName
	Limit          int
}
