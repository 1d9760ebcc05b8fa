package validator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineItem struct {
	ProductID string          `json:"productId" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
	Discount  decimal.Decimal `json:"discount" validate:"gte=0"`
}

type order struct {
	FarmID   string     `json:"farmId" validate:"required,uuid"`
	Delivery string     `json:"deliveryMethod" validate:"omitempty,oneof=pickup delivery shipping"`
	Items    []lineItem `json:"items" validate:"min=1,dive"`
	Notes    string     `json:"notes" validate:"max=10"`
}

func validOrder() order {
	return order{
		FarmID: "0b6f8f5e-7c55-4c1e-9a0a-5b1b3c2d4e5f",
		Items: []lineItem{{
			ProductID: "p-1",
			Quantity:  decimal.NewFromInt(2),
		}},
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	return verr.Fields()
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, Validate(validOrder()))
}

func TestValidate_DecimalComparisons(t *testing.T) {
	o := validOrder()
	o.Items[0].Quantity = decimal.Zero
	o.Items[0].Discount = decimal.NewFromFloat(-0.5)

	fields := fieldsOf(t, Validate(o))
	assert.Equal(t, "must be greater than 0", fields["items[0].quantity"])
	assert.Equal(t, "must be greater than or equal to 0", fields["items[0].discount"])
}

func TestValidate_Messages(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*order)
		field string
		want  string
	}{
		{"required", func(o *order) { o.FarmID = "" }, "farmId", "is required"},
		{"uuid", func(o *order) { o.FarmID = "farm-1" }, "farmId", "must be a valid UUID"},
		{"oneof", func(o *order) { o.Delivery = "drone" }, "deliveryMethod", "must be one of: pickup delivery shipping"},
		{"empty slice", func(o *order) { o.Items = nil }, "items", "must contain at least 1 item(s)"},
		{"max", func(o *order) { o.Notes = "far too long a note" }, "notes", "must be at most 10 characters"},
		{"nested required", func(o *order) { o.Items[0].ProductID = "" }, "items[0].productId", "is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOrder()
			tt.edit(&o)
			fields := fieldsOf(t, Validate(o))
			assert.Equal(t, tt.want, fields[tt.field])
		})
	}
}

type scaled struct {
	Price    decimal.Decimal `json:"price" validate:"gte=0,maxscale=2"`
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0,maxscale=3"`
}

func TestValidate_MaxScale(t *testing.T) {
	ok := []scaled{
		{Price: decimal.RequireFromString("2.55"), Quantity: decimal.RequireFromString("0.125")},
		{Price: decimal.RequireFromString("2.50"), Quantity: decimal.RequireFromString("1000")},
		{Price: decimal.Zero, Quantity: decimal.RequireFromString("0.001")},
	}
	for _, s := range ok {
		assert.NoError(t, Validate(s), "price=%s quantity=%s", s.Price, s.Quantity)
	}

	fields := fieldsOf(t, Validate(scaled{
		Price:    decimal.RequireFromString("2.555"),
		Quantity: decimal.RequireFromString("0.0001"),
	}))
	assert.Equal(t, "must have at most 2 decimal places", fields["price"])
	assert.Equal(t, "must have at most 3 decimal places", fields["quantity"])
}

func TestValidationError_Error(t *testing.T) {
	o := validOrder()
	o.FarmID = ""
	err := Validate(o)
	require.Error(t, err)
	assert.Equal(t, "field 'farmId' is required", err.Error())
}

func TestValidate_NonStruct(t *testing.T) {
	err := Validate("not a struct")
	require.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}
