package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteBasePriceIsSymmetric(t *testing.T) {
	assert.Equal(t, int64(80_000), RouteBasePrice("jakarta", "bandung"))
	assert.Equal(t, int64(80_000), RouteBasePrice("bandung", "jakarta"))
	assert.Equal(t, DefaultBasePrice, RouteBasePrice("cirebon", "denpasar"))
	assert.Equal(t, DefaultBasePrice, RouteBasePrice("nowhere", "jakarta"))
}

func TestLookupPromo(t *testing.T) {
	tests := []struct {
		input    string
		code     string
		fraction float64
		ok       bool
	}{
		{input: "hemat10", code: "HEMAT10", fraction: 0.1, ok: true},
		{input: " Cipeng20 ", code: "CIPENG20", fraction: 0.2, ok: true},
		{input: "bogus"},
		{input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			code, fraction, ok := LookupPromo(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.code, code)
			assert.InDelta(t, tt.fraction, fraction, 1e-9)
		})
	}
}

func TestPromoFractionsBelowOne(t *testing.T) {
	for code, fraction := range promoCodes {
		assert.GreaterOrEqual(t, fraction, 0.0, code)
		assert.Less(t, fraction, 1.0, code)
	}
}

func TestPaymentOptionByID(t *testing.T) {
	method, option, ok := PaymentOptionByID("bank-transfer", "bca")
	assert.True(t, ok)
	assert.Equal(t, "Transfer Bank", method.Name)
	assert.Equal(t, "BCA", option.Name)

	_, _, ok = PaymentOptionByID("bank-transfer", "gopay")
	assert.False(t, ok)

	_, _, ok = PaymentOptionByID("cash", "bca")
	assert.False(t, ok)
}

func TestPaymentMethodsReturnsCopy(t *testing.T) {
	methods := PaymentMethods()
	methods[0].Options[0].Name = "changed"

	_, option, ok := PaymentOptionByID("bank-transfer", "bca")
	assert.True(t, ok)
	assert.Equal(t, "BCA", option.Name)
}

func TestFormatRupiah(t *testing.T) {
	assert.Equal(t, "Rp0", FormatRupiah(0))
	assert.Equal(t, "Rp800", FormatRupiah(800))
	assert.Equal(t, "Rp160.000", FormatRupiah(160_000))
	assert.Equal(t, "Rp1.250.000", FormatRupiah(1_250_000))
	assert.Equal(t, "-Rp32.000", FormatRupiah(-32_000))
}
