package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/vibebill/internal/models"
	"github.com/mmynk/vibebill/internal/storage"
)

// InvoiceService manages invoices, their items and status.
type InvoiceService struct {
	store storage.Store
	run   *runner
}

// NewInvoiceService creates a new InvoiceService with the given storage backend.
func NewInvoiceService(store storage.Store, opts Options) *InvoiceService {
	return &InvoiceService{store: store, run: newRunner(opts)}
}

// CreateInvoice issues a number and stores a new draft invoice.
// inv is not modified; the stored invoice is returned.
func (s *InvoiceService) CreateInvoice(ctx context.Context, inv *models.Invoice) (*models.Invoice, error) {
	slog.Info("CreateInvoice request received",
		"seller_id", inv.SellerID,
		"customer_id", inv.CustomerID,
		"date", inv.Date,
		"items_count", len(inv.Items),
	)

	created, err := call(ctx, s.run, "create_invoice", func(ctx context.Context) (*models.Invoice, error) {
		// The store fills in defaults; every try starts from the caller's input.
		attempt := *inv
		attempt.Items = append([]models.InvoiceItem(nil), inv.Items...)
		if err := s.store.CreateInvoice(ctx, &attempt); err != nil {
			return nil, err
		}
		return &attempt, nil
	})
	if err != nil {
		slog.Error("CreateInvoice failed", "seller_id", inv.SellerID, "error", err)
		return nil, err
	}
	s.run.metrics.InvoicesCreated.Inc()

	slog.Info("Invoice created",
		"invoice_id", created.ID,
		"invoice_number", created.InvoiceNumber,
		"total_gross", created.TotalGross,
		"status", created.Status,
	)
	return created, nil
}

// GetInvoice retrieves an invoice with its items.
func (s *InvoiceService) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	slog.Debug("GetInvoice request received", "invoice_id", id)

	inv, err := call(ctx, s.run, "get_invoice", func(ctx context.Context) (*models.Invoice, error) {
		return s.store.GetInvoice(ctx, id)
	})
	if err != nil {
		slog.Error("GetInvoice failed", "invoice_id", id, "error", err)
		return nil, err
	}
	return inv, nil
}

// ListInvoices returns invoice headers matching filter, newest first.
func (s *InvoiceService) ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	slog.Debug("ListInvoices request received",
		"seller_id", filter.SellerID,
		"customer_id", filter.CustomerID,
		"status", filter.Status,
		"year", filter.Year,
	)

	invoices, err := call(ctx, s.run, "list_invoices", func(ctx context.Context) ([]*models.Invoice, error) {
		return s.store.ListInvoices(ctx, filter)
	})
	if err != nil {
		slog.Error("ListInvoices failed", "error", err)
		return nil, err
	}

	slog.Debug("ListInvoices successful", "count", len(invoices))
	return invoices, nil
}

// UpdateInvoiceHeader changes customer, dates, notes and payment terms.
func (s *InvoiceService) UpdateInvoiceHeader(ctx context.Context, inv *models.Invoice) (*models.Invoice, error) {
	slog.Info("UpdateInvoiceHeader request received",
		"invoice_id", inv.ID,
		"customer_id", inv.CustomerID,
		"date", inv.Date,
		"due_date", inv.DueDate,
	)

	updated, err := call(ctx, s.run, "update_invoice", func(ctx context.Context) (*models.Invoice, error) {
		return s.store.UpdateInvoiceHeader(ctx, inv)
	})
	if err != nil {
		slog.Error("UpdateInvoiceHeader failed", "invoice_id", inv.ID, "error", err)
		return nil, err
	}

	slog.Info("UpdateInvoiceHeader successful", "invoice_id", updated.ID, "status", updated.Status)
	return updated, nil
}

// ReplaceItems swaps the complete item list of an invoice.
func (s *InvoiceService) ReplaceItems(ctx context.Context, invoiceID int64, items []models.InvoiceItem) (*models.Invoice, error) {
	slog.Info("ReplaceItems request received", "invoice_id", invoiceID, "items_count", len(items))
	return s.itemOp(ctx, "replace_items", invoiceID, func(ctx context.Context) (*models.Invoice, error) {
		return s.store.ReplaceItems(ctx, invoiceID, items)
	})
}

// AddItem inserts an item into an invoice.
func (s *InvoiceService) AddItem(ctx context.Context, invoiceID int64, item models.InvoiceItem) (*models.Invoice, error) {
	slog.Info("AddItem request received",
		"invoice_id", invoiceID,
		"product_id", item.ProductID,
		"position", item.Position,
		"description", item.Description,
	)
	return s.itemOp(ctx, "add_item", invoiceID, func(ctx context.Context) (*models.Invoice, error) {
		return s.store.AddItem(ctx, invoiceID, item)
	})
}

// UpdateItem overwrites the priced fields of an item.
func (s *InvoiceService) UpdateItem(ctx context.Context, item models.InvoiceItem) (*models.Invoice, error) {
	slog.Info("UpdateItem request received", "item_id", item.ID, "quantity", item.Quantity, "price_net", item.PriceNet)
	return s.itemOp(ctx, "update_item", item.InvoiceID, func(ctx context.Context) (*models.Invoice, error) {
		return s.store.UpdateItem(ctx, item)
	})
}

// RemoveItem deletes an item from its invoice.
func (s *InvoiceService) RemoveItem(ctx context.Context, itemID int64) (*models.Invoice, error) {
	slog.Info("RemoveItem request received", "item_id", itemID)
	return s.itemOp(ctx, "remove_item", 0, func(ctx context.Context) (*models.Invoice, error) {
		return s.store.RemoveItem(ctx, itemID)
	})
}

// MoveItem moves an item to a new position.
func (s *InvoiceService) MoveItem(ctx context.Context, itemID int64, position int) (*models.Invoice, error) {
	slog.Info("MoveItem request received", "item_id", itemID, "position", position)
	return s.itemOp(ctx, "move_item", 0, func(ctx context.Context) (*models.Invoice, error) {
		return s.store.MoveItem(ctx, itemID, position)
	})
}

// ReapplyProductPricing refreshes item prices from the linked products.
func (s *InvoiceService) ReapplyProductPricing(ctx context.Context, invoiceID int64) (*models.Invoice, error) {
	slog.Info("ReapplyProductPricing request received", "invoice_id", invoiceID)
	return s.itemOp(ctx, "reapply_pricing", invoiceID, func(ctx context.Context) (*models.Invoice, error) {
		return s.store.ReapplyProductPricing(ctx, invoiceID)
	})
}

func (s *InvoiceService) itemOp(ctx context.Context, op string, invoiceID int64, fn func(ctx context.Context) (*models.Invoice, error)) (*models.Invoice, error) {
	inv, err := call(ctx, s.run, op, fn)
	if err != nil {
		slog.Error("Item change failed", "op", op, "invoice_id", invoiceID, "error", err)
		return nil, err
	}

	slog.Info("Item change successful",
		"op", op,
		"invoice_id", inv.ID,
		"items_count", len(inv.Items),
		"total_gross", inv.TotalGross,
		"status", inv.Status,
	)
	return inv, nil
}

// SetStatus performs an explicit status change such as sending or
// cancelling an invoice.
func (s *InvoiceService) SetStatus(ctx context.Context, invoiceID int64, to models.InvoiceStatus) (*models.Invoice, error) {
	slog.Info("SetStatus request received", "invoice_id", invoiceID, "to", to)

	inv, err := call(ctx, s.run, "set_status", func(ctx context.Context) (*models.Invoice, error) {
		return s.store.SetInvoiceStatus(ctx, invoiceID, to)
	})
	if err != nil {
		slog.Error("SetStatus failed", "invoice_id", invoiceID, "to", to, "error", err)
		return nil, err
	}
	s.run.metrics.StatusTransitions.WithLabelValues(string(to)).Inc()

	slog.Info("SetStatus successful", "invoice_id", invoiceID, "requested", to, "status", inv.Status)
	return inv, nil
}

// RefreshStatus re-evaluates the status of one invoice.
func (s *InvoiceService) RefreshStatus(ctx context.Context, invoiceID int64) (*models.Invoice, error) {
	slog.Debug("RefreshStatus request received", "invoice_id", invoiceID)

	inv, err := call(ctx, s.run, "refresh_status", func(ctx context.Context) (*models.Invoice, error) {
		return s.store.RefreshInvoiceStatus(ctx, invoiceID)
	})
	if err != nil {
		slog.Error("RefreshStatus failed", "invoice_id", invoiceID, "error", err)
		return nil, err
	}
	return inv, nil
}

// SweepOverdue marks open invoices past their due date as overdue.
func (s *InvoiceService) SweepOverdue(ctx context.Context) (int, error) {
	slog.Info("SweepOverdue request received")

	changed, err := call(ctx, s.run, "sweep_overdue", s.store.SweepOverdue)
	if err != nil {
		slog.Error("SweepOverdue failed", "error", err)
		return 0, err
	}
	s.run.metrics.OverdueSweepMarked.Add(float64(changed))

	slog.Info("SweepOverdue successful", "changed", changed)
	return changed, nil
}

// DeleteInvoice deletes an invoice with its items and payments.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, id int64) error {
	slog.Info("DeleteInvoice request received", "invoice_id", id)

	err := s.run.do(ctx, "delete_invoice", func(ctx context.Context) error {
		return s.store.DeleteInvoice(ctx, id)
	})
	if err != nil {
		slog.Error("DeleteInvoice failed", "invoice_id", id, "error", err)
		return err
	}

	slog.Info("DeleteInvoice successful", "invoice_id", id)
	return nil
}
