package models

import "github.com/shopspring/decimal"

// Payment is money received against an invoice.
// Payments are immutable; correcting one means deleting and re-recording it.
type Payment struct {
	// ID is the row ID assigned by the store.
	ID int64

	InvoiceID int64

	// Amount is strictly positive.
	Amount decimal.Decimal

	// Date uses DateLayout.
	Date string

	// Method is free text, e.g. "Überweisung" or "bar".
	Method string
	Notes  string

	CreatedAt string
}

// Validate checks the payment invariants.
func (p *Payment) Validate() error {
	if p.InvoiceID == 0 {
		return NewValidationError("payment", "invoice_id", p.InvoiceID, "is required")
	}
	if !p.Amount.IsPositive() {
		return NewValidationError("payment", "amount", p.Amount, "must be greater than zero")
	}
	if _, ok, err := ParseDate(p.Date); err != nil || !ok {
		return NewValidationError("payment", "date", p.Date, "must be a YYYY-MM-DD date")
	}
	return nil
}
