package invoice

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/docrender/internal/document/domain"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		gross, subtotal, vat, eur string
	}{
		{"120.00", "100.00", "20.00", "61.36"},
		{"0", "0.00", "0.00", "0.00"},
		{"10.01", "8.34", "1.67", "5.12"},
		{"999.99", "833.33", "166.66", "511.29"},
	}
	for _, tt := range tests {
		got := ComputeTotals(d(tt.gross), DefaultVATRate, DefaultEURRate)
		assert.True(t, d(tt.subtotal).Equal(got.Subtotal), "%s subtotal %s", tt.gross, got.Subtotal)
		assert.True(t, d(tt.vat).Equal(got.VAT), "%s vat %s", tt.gross, got.VAT)
		assert.True(t, d(tt.eur).Equal(got.EUR), "%s eur %s", tt.gross, got.EUR)
		assert.True(t, got.Gross.Equal(got.Subtotal.Add(got.VAT)), tt.gross)
	}
}

func TestComputeTotalsConfigurableRates(t *testing.T) {
	got := ComputeTotals(d("109.00"), d("0.09"), d("1"))
	assert.Equal(t, "100.00", got.Subtotal.StringFixed(2))
	assert.Equal(t, "9.00", got.VAT.StringFixed(2))
	assert.Equal(t, "109.00", got.EUR.StringFixed(2))

	got = ComputeTotals(d("50"), DefaultVATRate, decimal.Zero)
	assert.True(t, got.EUR.IsZero())
}

func TestGrossOf(t *testing.T) {
	items := []domain.OrderItem{
		{Name: "Mouse", Price: d("12.50"), Quantity: 2},
		{Name: "Cable", Price: d("3.33"), Quantity: 3},
	}
	assert.Equal(t, "34.99", GrossOf(items).StringFixed(2))
	assert.True(t, GrossOf(nil).IsZero())
}

func TestPaymentLabel(t *testing.T) {
	assert.Equal(t, "in cash", PaymentLabel("cash", DefaultPaymentLabels))
	assert.Equal(t, "by card", PaymentLabel(" CARD ", DefaultPaymentLabels))
	assert.Equal(t, "bank transfer", PaymentLabel("bank", DefaultPaymentLabels))
	assert.Equal(t, "cash on delivery", PaymentLabel("cod", DefaultPaymentLabels))
	assert.Equal(t, "crypto", PaymentLabel("crypto", DefaultPaymentLabels))
	assert.Equal(t, "", PaymentLabel("", DefaultPaymentLabels))
}
