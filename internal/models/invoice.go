package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "draft"
	StatusSent      InvoiceStatus = "sent"
	StatusPaid      InvoiceStatus = "paid"
	StatusOverdue   InvoiceStatus = "overdue"
	StatusCancelled InvoiceStatus = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []InvoiceStatus{StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled}

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// DefaultPaymentTerms is the payment_terms column default.
const DefaultPaymentTerms = "14 Tage netto"

// Invoice is a numbered bill from a seller to a customer.
// Totals are derived from the items and never set by callers.
type Invoice struct {
	// ID is the row ID assigned by the store.
	ID int64

	SellerID   int64
	CustomerID int64

	// InvoiceNumber is prefix+counter, unique per seller.
	InvoiceNumber string

	// Date is the issue date, DueDate the payment deadline ("" = none).
	// Both use DateLayout.
	Date    string
	DueDate string

	Status       InvoiceStatus
	Notes        string
	PaymentTerms string

	// Totals, rounded to two decimals. TotalNet + TotalTax = TotalGross.
	TotalNet   decimal.Decimal
	TotalTax   decimal.Decimal
	TotalGross decimal.Decimal

	CreatedAt string

	// Items are ordered by Position. Populated by GetInvoice.
	Items []InvoiceItem

	// Joined read-only fields populated by GetInvoice and ListInvoices.
	SellerName   string
	CustomerName string
	PaidAmount   decimal.Decimal
}

// Validate checks the caller-supplied invoice header fields.
func (inv *Invoice) Validate() error {
	if inv.SellerID == 0 {
		return NewValidationError("invoice", "seller_id", inv.SellerID, "is required")
	}
	if inv.CustomerID == 0 {
		return NewValidationError("invoice", "customer_id", inv.CustomerID, "is required")
	}
	issued, ok, err := ParseDate(inv.Date)
	if err != nil || !ok {
		return NewValidationError("invoice", "date", inv.Date, "must be a YYYY-MM-DD date")
	}
	due, hasDue, err := ParseDate(inv.DueDate)
	if err != nil {
		return NewValidationError("invoice", "due_date", inv.DueDate, "must be a YYYY-MM-DD date or empty")
	}
	if hasDue && due.Before(issued) {
		return NewValidationError("invoice", "due_date", inv.DueDate, "must not be before the invoice date")
	}
	if inv.Status != "" && !inv.Status.Valid() {
		return NewValidationError("invoice", "status", inv.Status, "unknown status")
	}
	return nil
}

// InvoiceItem is one billable line. It keeps its own copy of description,
// price and tax rate; ProductID is only a weak back-reference.
type InvoiceItem struct {
	// ID is the row ID assigned by the store.
	ID int64

	InvoiceID int64

	// ProductID is 0 when the line is not linked to a catalog product.
	ProductID int64

	// Position is 1-based and unique within the invoice.
	Position int

	Description string
	Quantity    decimal.Decimal
	Unit        string
	PriceNet    decimal.Decimal
	TaxRate     decimal.Decimal

	// Derived by the calculator.
	TotalNet   decimal.Decimal
	TotalTax   decimal.Decimal
	TotalGross decimal.Decimal
}

// Validate checks the caller-supplied item fields.
func (it *InvoiceItem) Validate() error {
	if it.Quantity.IsNegative() {
		return NewValidationError("invoice_item", "quantity", it.Quantity, "must not be negative")
	}
	if it.PriceNet.IsNegative() {
		return NewValidationError("invoice_item", "price_net", it.PriceNet, "must not be negative")
	}
	if it.TaxRate.IsNegative() {
		return NewValidationError("invoice_item", "tax_rate", it.TaxRate, "must not be negative")
	}
	if strings.TrimSpace(it.Description) == "" && it.ProductID == 0 {
		return NewValidationError("invoice_item", "description", it.Description, "must not be empty")
	}
	return nil
}

// InvoiceFilter narrows ListInvoices. Zero values match everything.
type InvoiceFilter struct {
	SellerID   int64
	CustomerID int64
	Status     InvoiceStatus
	Year       int
}
