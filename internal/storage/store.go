// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/vibebill/internal/calculator"
	"github.com/mmynk/vibebill/internal/models"
)

// Store is the full persistence API of the invoicing core.
// A Store is only handed out after the schema has been migrated to the
// latest version, so every method can rely on the current column set.
type Store interface {
	SellerStore
	CustomerStore
	ProductStore
	InvoiceStore
	PaymentStore
	SettingStore
	ReportStore

	// SchemaVersion returns the schema version read when the store was opened.
	SchemaVersion() int

	// Close releases any resources held by the store.
	Close() error
}

// SellerStore manages sellers and their invoice counters.
type SellerStore interface {
	// CreateSeller persists a new seller. seller.ID is populated by the store.
	CreateSeller(ctx context.Context, seller *models.Seller) error
	GetSeller(ctx context.Context, id int64) (*models.Seller, error)
	ListSellers(ctx context.Context) ([]*models.Seller, error)

	// UpdateSeller overwrites all seller fields. The invoice counter may only
	// move forward.
	UpdateSeller(ctx context.Context, seller *models.Seller) error

	// DeleteSeller fails with a ReferenceError while invoices or products
	// reference the seller.
	DeleteSeller(ctx context.Context, id int64) error

	// IssueInvoiceNumber consumes the seller's next counter value and returns
	// the formatted invoice number.
	IssueInvoiceNumber(ctx context.Context, sellerID int64) (string, error)
}

// CustomerStore manages customers.
type CustomerStore interface {
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	ListCustomers(ctx context.Context) ([]*models.Customer, error)
	UpdateCustomer(ctx context.Context, customer *models.Customer) error

	// DeleteCustomer fails with a ReferenceError while invoices reference the customer.
	DeleteCustomer(ctx context.Context, id int64) error
}

// ProductStore manages the product catalog.
type ProductStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)

	// ListProducts lists the products of a seller, or all products for sellerID 0.
	ListProducts(ctx context.Context, sellerID int64) ([]*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error

	// DeleteProduct unlinks invoice items that reference the product and
	// then deletes it. The items keep their own copy of the product data.
	DeleteProduct(ctx context.Context, id int64) error
}

// InvoiceStore manages invoices and their items. Every item change
// recomputes the invoice totals and re-evaluates its status in the same
// transaction.
type InvoiceStore interface {
	// CreateInvoice issues the invoice number, prices inv.Items and persists
	// the invoice as a draft. inv is populated with the stored values.
	CreateInvoice(ctx context.Context, inv *models.Invoice) error

	// GetInvoice returns the invoice with items ordered by position and the
	// paid amount.
	GetInvoice(ctx context.Context, id int64) (*models.Invoice, error)

	// ListInvoices returns invoice headers, newest first.
	ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error)

	// UpdateInvoiceHeader updates customer, dates, notes and payment terms.
	// The seller and invoice number are immutable.
	UpdateInvoiceHeader(ctx context.Context, inv *models.Invoice) (*models.Invoice, error)

	// ReplaceItems swaps the complete item list. Positions are renumbered
	// 1..n in slice order.
	ReplaceItems(ctx context.Context, invoiceID int64, items []models.InvoiceItem) (*models.Invoice, error)

	// AddItem inserts an item at item.Position, or appends it when the
	// position is 0 or past the end.
	AddItem(ctx context.Context, invoiceID int64, item models.InvoiceItem) (*models.Invoice, error)

	// UpdateItem overwrites the priced fields of an existing item.
	UpdateItem(ctx context.Context, item models.InvoiceItem) (*models.Invoice, error)

	// RemoveItem deletes an item and closes the position gap.
	RemoveItem(ctx context.Context, itemID int64) (*models.Invoice, error)

	// MoveItem moves an item to a new 1-based position.
	MoveItem(ctx context.Context, itemID int64, position int) (*models.Invoice, error)

	// ReapplyProductPricing copies the current price and tax rate of linked
	// products onto the invoice items.
	ReapplyProductPricing(ctx context.Context, invoiceID int64) (*models.Invoice, error)

	// SetInvoiceStatus performs an explicit, user-directed status change.
	SetInvoiceStatus(ctx context.Context, invoiceID int64, status models.InvoiceStatus) (*models.Invoice, error)

	// RefreshInvoiceStatus re-evaluates the status against payments and today's date.
	RefreshInvoiceStatus(ctx context.Context, invoiceID int64) (*models.Invoice, error)

	// SweepOverdue re-evaluates every open invoice past its due date and
	// returns the number of invoices whose status changed.
	SweepOverdue(ctx context.Context) (int, error)

	// DeleteInvoice deletes the invoice with its items and payments.
	// The seller counter is not rewound.
	DeleteInvoice(ctx context.Context, id int64) error
}

// PaymentStore manages the payment ledger. Recording or deleting a payment
// re-evaluates the invoice status in the same transaction.
type PaymentStore interface {
	// AddPayment records a payment and returns the resulting invoice status.
	AddPayment(ctx context.Context, payment *models.Payment) (models.InvoiceStatus, error)

	// DeletePayment removes a payment and returns the resulting invoice status.
	DeletePayment(ctx context.Context, id int64) (models.InvoiceStatus, error)

	// ListPayments returns the payments of an invoice, newest first.
	ListPayments(ctx context.Context, invoiceID int64) ([]*models.Payment, error)

	// InvoiceBalance returns gross, paid, outstanding and overpaid amounts.
	InvoiceBalance(ctx context.Context, invoiceID int64) (calculator.Balance, error)
}

// SettingStore is a flat key/value store. Known keys without a row resolve
// to their documented default.
type SettingStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	ListSettings(ctx context.Context) ([]models.Setting, error)
}

// ReportStore provides aggregated read-only views.
type ReportStore interface {
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)

	// MonthlyRevenue returns the last months with revenue, oldest first.
	MonthlyRevenue(ctx context.Context, months int) ([]models.MonthRevenue, error)
	TopCustomers(ctx context.Context, limit int) ([]models.CustomerRevenue, error)

	// RevenueBySellerYear returns the monthly revenue of one seller in one year.
	RevenueBySellerYear(ctx context.Context, sellerID int64, year int) ([]models.MonthRevenue, error)

	// YearlyOverview lists the paid invoices of a seller in one year with totals.
	YearlyOverview(ctx context.Context, sellerID int64, year int) (*models.YearlyOverview, error)
}
