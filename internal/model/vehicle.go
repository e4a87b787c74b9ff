package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vehicle is the priced entity that owns financial fields and accumulates evidence.
type Vehicle struct {
	ID            string              `json:"id"`
	OwnerID       string              `json:"owner_id"`
	OwnerName     string              `json:"owner_name,omitempty"`
	Make          string              `json:"make"`
	Model         string              `json:"model"`
	Year          int                 `json:"year"`
	CurrentValue  decimal.NullDecimal `json:"current_value"`
	SalePrice     decimal.NullDecimal `json:"sale_price"`
	PurchasePrice decimal.NullDecimal `json:"purchase_price"`
	AskingPrice   decimal.NullDecimal `json:"asking_price"`
	HighBid       decimal.NullDecimal `json:"high_bid"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// Value returns the stored value of field f.
func (v *Vehicle) Value(f FieldName) decimal.NullDecimal {
	switch f {
	case FieldCurrentValue:
		return v.CurrentValue
	case FieldSalePrice:
		return v.SalePrice
	case FieldPurchasePrice:
		return v.PurchasePrice
	case FieldAskingPrice:
		return v.AskingPrice
	case FieldHighBid:
		return v.HighBid
	default:
		return decimal.NullDecimal{}
	}
}

// Classification is the comparable-population key of a vehicle.
type Classification struct {
	Make  string `json:"make"`
	Model string `json:"model"`
}

// Classification returns the vehicle's make/model pair.
func (v *Vehicle) Classification() Classification {
	return Classification{Make: v.Make, Model: v.Model}
}

// Actor is the user performing a read or an edit. An empty ID is anonymous.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}
