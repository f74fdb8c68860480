package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ProductKind distinguishes stocked goods from services.
type ProductKind string

const (
	KindProduct ProductKind = "product"
	KindService ProductKind = "service"
)

// Valid reports whether k is a known kind.
func (k ProductKind) Valid() bool {
	return k == KindProduct || k == KindService
}

// DefaultUnit is the unit used when none is given ("Stück").
const DefaultUnit = "Stk"

// DefaultTaxRate is the standard German VAT rate used as column default.
var DefaultTaxRate = decimal.NewFromInt(19)

// Product is a catalog entry owned by a seller.
type Product struct {
	// ID is the row ID assigned by the store.
	ID int64

	// SellerID is the owning seller.
	SellerID int64

	Name        string
	Description string

	// Kind is product or service. Stock is only meaningful for products.
	Kind ProductKind

	// Unit is the display unit, e.g. "Stk" or "h".
	Unit string

	// PriceNet is the unit price before tax.
	PriceNet decimal.Decimal

	// TaxRate is a percentage (19 means 19%).
	TaxRate decimal.Decimal

	Stock  int64
	Active bool

	CreatedAt string
}

// Validate checks the product invariants.
func (p *Product) Validate() error {
	if p.SellerID == 0 {
		return NewValidationError("product", "seller_id", p.SellerID, "is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("product", "name", p.Name, "must not be empty")
	}
	if !p.Kind.Valid() {
		return NewValidationError("product", "type", p.Kind, "must be product or service")
	}
	if p.PriceNet.IsNegative() {
		return NewValidationError("product", "price_net", p.PriceNet, "must not be negative")
	}
	if p.TaxRate.IsNegative() {
		return NewValidationError("product", "tax_rate", p.TaxRate, "must not be negative")
	}
	return nil
}

// Normalize fills defaults and drops stock from services.
func (p *Product) Normalize() {
	if p.Kind == "" {
		p.Kind = KindProduct
	}
	if p.Unit == "" {
		p.Unit = DefaultUnit
	}
	if p.Kind == KindService {
		p.Stock = 0
	}
}
