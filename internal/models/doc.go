// Package models defines the core domain models for vibebill.
//
// # Entities
//
// The persisted business objects are:
//   - Seller: the business issuing invoices, owner of the invoice counter
//   - Customer: the invoice recipient
//   - Product: a catalog entry (physical product or service) priced net of tax
//   - Invoice: a numbered bill from a seller to a customer
//   - InvoiceItem: one priced line on an invoice
//   - Payment: money received against an invoice
//   - Setting: a process-wide key/value pair read by the UI shell
//
// # Money
//
// Monetary amounts and tax rates are decimal.Decimal values. Tax rates are
// percentages (19 means 19%). Stored totals carry two decimal places.
//
// # Relationships
//
// Relationships are expressed with int64 row IDs instead of pointers. An
// invoice exclusively owns its items and payments; sellers, customers and
// products are only referenced. Items copy description, price and tax rate
// from the product so they stay historically accurate.
package models
