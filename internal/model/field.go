package model

import "github.com/rotisserie/eris"

// FieldName identifies a financial field on a vehicle.
type FieldName string

const (
	FieldCurrentValue  FieldName = "current_value"
	FieldSalePrice     FieldName = "sale_price"
	FieldPurchasePrice FieldName = "purchase_price"
	FieldAskingPrice   FieldName = "asking_price"
	FieldHighBid       FieldName = "high_bid"
)

// AllFields lists every financial field in display order.
var AllFields = []FieldName{
	FieldCurrentValue,
	FieldSalePrice,
	FieldPurchasePrice,
	FieldAskingPrice,
	FieldHighBid,
}

// Valid reports whether f is a known financial field.
func (f FieldName) Valid() bool {
	for _, known := range AllFields {
		if f == known {
			return true
		}
	}
	return false
}

// AuctionBacked reports whether auction telemetry can be authoritative for f.
func (f FieldName) AuctionBacked() bool {
	return f == FieldSalePrice || f == FieldHighBid
}

// Column returns the vehicles table column storing f.
// Field names double as column names; the switch keeps SQL built from
// a closed set of identifiers.
func (f FieldName) Column() (string, error) {
	switch f {
	case FieldCurrentValue, FieldSalePrice, FieldPurchasePrice, FieldAskingPrice, FieldHighBid:
		return string(f), nil
	default:
		return "", eris.Errorf("model: unknown field %q", string(f))
	}
}

// ParseField validates a raw field name.
func ParseField(raw string) (FieldName, error) {
	f := FieldName(raw)
	if !f.Valid() {
		return "", eris.Errorf("model: unknown field %q", raw)
	}
	return f, nil
}
