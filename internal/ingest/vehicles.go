package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/provenance-cli/internal/model"
)

// RowError reports a data row that could not be parsed. Row is 1-based and
// counts the header.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// Required columns. Money columns are optional.
var requiredColumns = []string{"owner_id", "make", "model", "year"}

// headerAliases maps common spreadsheet headings to column names.
var headerAliases = map[string]string{
	"vehicle_id": "id",
	"owner":      "owner_id",
	"owner_name": "owner_name",
	"value":      "current_value",
	"price":      "sale_price",
	"sold_price": "sale_price",
	"purchased":  "purchase_price",
	"asking":     "asking_price",
	"high":       "high_bid",
}

// ParseVehicles converts rows whose first row is a header into vehicles. Rows
// that fail to parse are skipped and reported; a missing required column is a
// hard error.
func ParseVehicles(rows [][]string) ([]model.Vehicle, []RowError, error) {
	if len(rows) == 0 {
		return nil, nil, eris.New("ingest: file is empty")
	}
	cols := indexHeader(rows[0])
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, eris.Errorf("ingest: missing columns %s", strings.Join(missing, ", "))
	}

	var (
		out  []model.Vehicle
		errs []RowError
	)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		v, err := parseVehicle(row, cols)
		if err != nil {
			errs = append(errs, RowError{Row: i + 2, Err: err})
			continue
		}
		out = append(out, v)
	}
	return out, errs, nil
}

func indexHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
		if alias, ok := headerAliases[key]; ok {
			key = alias
		}
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return cols
}

func parseVehicle(row []string, cols map[string]int) (model.Vehicle, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	v := model.Vehicle{
		ID:        get("id"),
		OwnerID:   get("owner_id"),
		OwnerName: get("owner_name"),
		Make:      get("make"),
		Model:     get("model"),
	}
	if v.OwnerID == "" || v.Make == "" || v.Model == "" {
		return v, eris.New("owner_id, make and model are required")
	}
	year, err := strconv.Atoi(get("year"))
	if err != nil || year < 1885 || year > 2100 {
		return v, eris.Errorf("invalid year %q", get("year"))
	}
	v.Year = year

	money := []struct {
		field model.FieldName
		dst   *decimal.NullDecimal
	}{
		{model.FieldCurrentValue, &v.CurrentValue},
		{model.FieldSalePrice, &v.SalePrice},
		{model.FieldPurchasePrice, &v.PurchasePrice},
		{model.FieldAskingPrice, &v.AskingPrice},
		{model.FieldHighBid, &v.HighBid},
	}
	for _, m := range money {
		d, err := parseMoney(get(string(m.field)))
		if err != nil {
			return v, eris.Wrapf(err, "%s", m.field)
		}
		*m.dst = d
	}
	return v, nil
}

// parseMoney accepts "38500", "$38,500.00" and blanks.
func parseMoney(raw string) (decimal.NullDecimal, error) {
	s := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, eris.Errorf("invalid amount %q", raw)
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, eris.Errorf("negative amount %q", raw)
	}
	return decimal.NewNullDecimal(d), nil
}

func blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
