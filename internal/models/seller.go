package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Seller defaults, matching the column defaults of the sellers table.
const (
	DefaultInvoicePrefix = "RE"
	DefaultCountry       = "Deutschland"
	DefaultPDFTemplate   = "classic"
	DefaultColor         = "#3b82f6"
)

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Seller is the business that issues invoices.
// It owns the invoice counter used by the numbering service.
type Seller struct {
	// ID is the row ID assigned by the store.
	ID int64

	// Name is the company or trading name shown on invoices.
	Name      string
	FirstName string
	LastName  string

	Street  string
	City    string
	Zip     string
	Country string
	Phone   string
	Email   string
	Website string

	// TaxID is the national tax number; VatID the EU VAT identifier.
	TaxID string
	VatID string

	BankName string
	BankIBAN string
	BankBIC  string

	// LogoData is an opaque (usually base64 data URL) logo for rendering.
	LogoData string

	// InvoicePrefix is prepended to the counter when numbering invoices.
	InvoicePrefix string

	// NextInvoiceNumber is the counter value the next issued invoice consumes.
	// It only ever moves forward.
	NextInvoiceNumber int64

	// PDFTemplate and Color are stored verbatim for the rendering component.
	PDFTemplate string
	Color       string

	// Defaults applied to new invoices and items of this seller.
	DefaultPaymentTerms string
	DefaultTaxRate      decimal.NullDecimal
	Currency            string
	DefaultNote         string

	// CreatedAt is the store timestamp (SQLite CURRENT_TIMESTAMP format).
	CreatedAt string
}

// NewSeller returns a seller populated with the documented defaults.
func NewSeller(name string) *Seller {
	return &Seller{
		Name:              name,
		Country:           DefaultCountry,
		InvoicePrefix:     DefaultInvoicePrefix,
		NextInvoiceNumber: 1,
		PDFTemplate:       DefaultPDFTemplate,
		Color:             DefaultColor,
	}
}

// ApplyDefaults fills empty rendering fields with their documented defaults.
func (s *Seller) ApplyDefaults() {
	if s.PDFTemplate == "" {
		s.PDFTemplate = DefaultPDFTemplate
	}
	if s.Color == "" {
		s.Color = DefaultColor
	}
	if s.NextInvoiceNumber == 0 {
		s.NextInvoiceNumber = 1
	}
}

// Validate checks the seller invariants.
func (s *Seller) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return NewValidationError("seller", "name", s.Name, "must not be empty")
	}
	if s.NextInvoiceNumber < 1 {
		return NewValidationError("seller", "next_invoice_number", s.NextInvoiceNumber, "must be at least 1")
	}
	if !colorPattern.MatchString(s.Color) {
		return NewValidationError("seller", "color", s.Color, "must be a hex color like #3b82f6")
	}
	if s.DefaultTaxRate.Valid && s.DefaultTaxRate.Decimal.IsNegative() {
		return NewValidationError("seller", "default_tax_rate", s.DefaultTaxRate.Decimal, "must not be negative")
	}
	return nil
}

// FormatInvoiceNumber renders prefix and counter. A positive width zero-pads
// the counter to that many digits; width 0 renders it plain.
func FormatInvoiceNumber(prefix string, counter int64, width int) string {
	if width > 0 {
		return fmt.Sprintf("%s%0*d", prefix, width, counter)
	}
	return fmt.Sprintf("%s%d", prefix, counter)
}
