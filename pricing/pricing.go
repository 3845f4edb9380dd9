// Package pricing computes order totals with fixed-point decimal arithmetic.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Policy holds the shipping and tax rules applied at checkout.
type Policy struct {
	FreeShippingThreshold decimal.Decimal
	FlatShipping          decimal.Decimal
	TaxRate               decimal.Decimal
}

func NewPolicy(freeShippingThreshold, flatShipping, taxRate float64) Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromFloat(freeShippingThreshold),
		FlatShipping:          decimal.NewFromFloat(flatShipping),
		TaxRate:               decimal.NewFromFloat(taxRate),
	}
}

type Line struct {
	Price float64
	Qty   int
}

type Totals struct {
	ItemsPrice    float64
	ShippingPrice float64
	TaxPrice      float64
	TotalPrice    float64
}

// Compute returns the four price components, each rounded half-up to cents.
func (p Policy) Compute(lines []Line) Totals {
	items := decimal.Zero
	for _, l := range lines {
		items = items.Add(decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	items = Round2(items)

	shipping := p.FlatShipping
	if items.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	shipping = Round2(shipping)

	tax := Round2(items.Mul(p.TaxRate))
	total := Round2(items.Add(shipping).Add(tax))

	return Totals{
		ItemsPrice:    items.InexactFloat64(),
		ShippingPrice: shipping.InexactFloat64(),
		TaxPrice:      tax.InexactFloat64(),
		TotalPrice:    total.InexactFloat64(),
	}
}

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Equal compares two money amounts at cent precision.
func Equal(a, b float64) bool {
	return Round2(decimal.NewFromFloat(a)).Equal(Round2(decimal.NewFromFloat(b)))
}

// EqualAmount compares a client-supplied decimal with a stored amount at cent precision.
func EqualAmount(a decimal.Decimal, b float64) bool {
	return Round2(a).Equal(Round2(decimal.NewFromFloat(b)))
}

// ParseAmount parses a gateway amount string such as "26.50".
func ParseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
