package market

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/provenance-cli/internal/model"
)

// Export sheet names.
const (
	SheetSummary     = "Summary"
	SheetComparables = "Comparables"
	SheetCurve       = "Curve"
)

// WriteXLSX writes a workbook with the sample summary, the comparable prices
// and the fitted curve. dist may be nil.
func WriteXLSX(w io.Writer, sample *model.MarketSample, dist *model.Distribution) error {
	if sample == nil {
		return eris.New("market: nothing to export")
	}
	f := xlsx.NewFile()

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrap(err, "market: add summary sheet")
	}
	addRow(summary, "price_field", string(sample.PriceField))
	addRow(summary, "year_min", sample.YearMin)
	addRow(summary, "year_max", sample.YearMax)
	addRow(summary, "comparables", sample.Comparables)
	addRow(summary, "mean", sample.Mean)
	addRow(summary, "std_dev", sample.StdDev)
	if dist != nil && dist.ZScore != nil {
		addRow(summary, "z_score", *dist.ZScore)
	}

	comps, err := f.AddSheet(SheetComparables)
	if err != nil {
		return eris.Wrap(err, "market: add comparables sheet")
	}
	addRow(comps, "price")
	for _, p := range sample.Prices {
		addRow(comps, p.InexactFloat64())
	}

	if dist != nil {
		curve, err := f.AddSheet(SheetCurve)
		if err != nil {
			return eris.Wrap(err, "market: add curve sheet")
		}
		addRow(curve, "x", "density")
		for _, pt := range dist.Curve {
			addRow(curve, pt.X, pt.Y)
		}
	}

	return eris.Wrap(f.Write(w), "market: write workbook")
}

func addRow(sheet *xlsx.Sheet, values ...any) {
	row := sheet.AddRow()
	for _, v := range values {
		cell := row.AddCell()
		switch t := v.(type) {
		case string:
			cell.SetString(t)
		case int:
			cell.SetInt(t)
		case float64:
			cell.SetFloat(t)
		}
	}
}
