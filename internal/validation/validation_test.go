package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type line struct {
	Code   string          `json:"ink_code" validate:"required,min=2,max=40"`
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
}

type payload struct {
	Items []line `json:"items" validate:"required,min=1,dive"`
}

func TestStructAcceptsValidPayload(t *testing.T) {
	p := payload{Items: []line{{Code: "RED01", Amount: decimal.NewFromInt(5)}}}
	require.NoError(t, Struct(p))
}

func TestStructReportsJSONPaths(t *testing.T) {
	p := payload{Items: []line{
		{Code: "RED01", Amount: decimal.NewFromInt(1)},
		{Code: "B", Amount: decimal.Zero},
	}}

	err := Struct(p)
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "min", verr.Fields["items[1].ink_code"])
	assert.Equal(t, "gt", verr.Fields["items[1].amount"])
	assert.Len(t, verr.Fields, 2)
}

func TestStructRejectsNegativeDecimal(t *testing.T) {
	p := payload{Items: []line{{Code: "RED01", Amount: decimal.RequireFromString("-0.5")}}}

	var verr *Error
	require.ErrorAs(t, Struct(p), &verr)
	assert.Equal(t, "gt", verr.Fields["items[0].amount"])
}

func TestStructRejectsEmptyItems(t *testing.T) {
	var verr *Error
	require.ErrorAs(t, Struct(payload{}), &verr)
	assert.Equal(t, "required", verr.Fields["items"])
}

func TestErrorMessageIsStable(t *testing.T) {
	e := &Error{Fields: map[string]string{"b": "min", "a": "required"}}
	assert.Equal(t, "Formato inválido (a: required, b: min)", e.Error())
}

func TestDecimalFits(t *testing.T) {
	cases := map[string]struct {
		value string
		want  string
	}{
		"fits":                {"12.5", ""},
		"trailing zeros":      {"1.5000", ""},
		"largest":             {"999999999.999", ""},
		"too many decimals":   {"0.0004", "scale"},
		"integer part at max": {"1000000000", "max"},
		"far too large":       {"1000000000000", "max"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, DecimalFits(decimal.RequireFromString(tc.value), 12, 3))
		})
	}
}
