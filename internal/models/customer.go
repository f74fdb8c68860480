package models

import "strings"

// Customer is the recipient of invoices. Customers are referenced by
// invoices and cannot be deleted while any invoice points at them.
type Customer struct {
	// ID is the row ID assigned by the store.
	ID int64

	Name    string
	Street  string
	City    string
	Zip     string
	Country string
	Phone   string
	Email   string

	// Notes is free text for the user; never printed.
	Notes string

	CreatedAt string
}

// Validate checks the customer invariants.
func (c *Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("customer", "name", c.Name, "must not be empty")
	}
	return nil
}
