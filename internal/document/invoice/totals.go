package invoice

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/docrender/internal/document/domain"
)

var (
	DefaultVATRate = decimal.RequireFromString("0.20")
	DefaultEURRate = decimal.RequireFromString("1.95583")
)

// DefaultPaymentLabels maps payment codes to the wording printed on invoices.
var DefaultPaymentLabels = map[string]string{
	"cash": "in cash",
	"card": "by card",
	"bank": "bank transfer",
	"cod":  "cash on delivery",
}

// Totals are the amounts printed under the item table. Prices are VAT
// inclusive, so Gross is the amount payable.
type Totals struct {
	Gross    decimal.Decimal `json:"gross"`
	Subtotal decimal.Decimal `json:"subtotal"`
	VAT      decimal.Decimal `json:"vat"`
	EUR      decimal.Decimal `json:"eur"`
}

// GrossOf sums the line totals of items.
func GrossOf(items []domain.OrderItem) decimal.Decimal {
	gross := decimal.Zero
	for _, it := range items {
		gross = gross.Add(it.LineTotal())
	}
	return gross
}

// ComputeTotals splits a VAT inclusive gross amount and converts it to EUR.
// Subtotal + VAT always equals the rounded gross.
func ComputeTotals(gross, vatRate, eurRate decimal.Decimal) Totals {
	gross = gross.Round(2)
	subtotal := gross.Div(decimal.NewFromInt(1).Add(vatRate)).Round(2)
	t := Totals{
		Gross:    gross,
		Subtotal: subtotal,
		VAT:      gross.Sub(subtotal).Round(2),
		EUR:      decimal.Zero,
	}
	if eurRate.IsPositive() {
		t.EUR = gross.Div(eurRate).Round(2)
	}
	return t
}

// PaymentLabel returns the printed wording for a payment code. Unknown codes
// are printed as given.
func PaymentLabel(code string, labels map[string]string) string {
	key := strings.ToLower(strings.TrimSpace(code))
	if label, ok := labels[key]; ok {
		return label
	}
	return code
}
