package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	t.Parallel()

	for _, f := range AllFields {
		got, err := ParseField(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	_, err := ParseField("mileage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestFieldName_AuctionBacked(t *testing.T) {
	t.Parallel()

	assert.True(t, FieldSalePrice.AuctionBacked())
	assert.True(t, FieldHighBid.AuctionBacked())
	assert.False(t, FieldCurrentValue.AuctionBacked())
	assert.False(t, FieldAskingPrice.AuctionBacked())
	assert.False(t, FieldPurchasePrice.AuctionBacked())
}

func TestFieldName_Column(t *testing.T) {
	t.Parallel()

	col, err := FieldSalePrice.Column()
	require.NoError(t, err)
	assert.Equal(t, "sale_price", col)

	_, err = FieldName("id; DROP TABLE vehicles").Column()
	assert.Error(t, err)
}

func TestVehicle_Value(t *testing.T) {
	t.Parallel()

	v := Vehicle{
		SalePrice:    decimal.NewNullDecimal(decimal.NewFromInt(38500)),
		CurrentValue: decimal.NewNullDecimal(decimal.NewFromInt(41000)),
	}

	assert.True(t, v.Value(FieldSalePrice).Decimal.Equal(decimal.NewFromInt(38500)))
	assert.True(t, v.Value(FieldCurrentValue).Valid)
	assert.False(t, v.Value(FieldHighBid).Valid)
	assert.False(t, v.Value(FieldName("bogus")).Valid)
}
