package calculator

import "github.com/shopspring/decimal"

// Balance is the payment position of one invoice.
type Balance struct {
	Gross decimal.Decimal

	// Paid is the sum of all recorded payments.
	Paid decimal.Decimal

	// Outstanding is what is still owed, never negative.
	Outstanding decimal.Decimal

	// Overpaid is the surplus when payments exceed the gross total.
	// Status clamps at paid; the surplus stays visible here.
	Overpaid decimal.Decimal
}

// Settled reports whether the payments cover a non-zero gross total.
func (b Balance) Settled() bool {
	return b.Gross.IsPositive() && b.Paid.GreaterThanOrEqual(b.Gross)
}

// CalculateBalance sums payment amounts against the invoice gross total.
func CalculateBalance(gross decimal.Decimal, payments []decimal.Decimal) Balance {
	paid := decimal.Sum(decimal.Zero, payments...).Round(Places)
	b := Balance{
		Gross:       gross,
		Paid:        paid,
		Outstanding: decimal.Zero,
		Overpaid:    decimal.Zero,
	}
	diff := gross.Sub(paid)
	if diff.IsPositive() {
		b.Outstanding = diff
	} else {
		b.Overpaid = diff.Neg()
	}
	return b
}
