package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/vibebill/internal/calculator"
	"github.com/mmynk/vibebill/internal/models"
	"github.com/mmynk/vibebill/internal/status"
)

const invoiceSelect = `SELECT i.id, i.seller_id, i.customer_id, i.invoice_number, i.date,
	COALESCE(i.due_date, ''), COALESCE(i.status, 'draft'), COALESCE(i.notes, ''), COALESCE(i.payment_terms, ''),
	COALESCE(i.total_net, 0), COALESCE(i.total_tax, 0), COALESCE(i.total_gross, 0), COALESCE(i.created_at, ''),
	COALESCE(s.name, ''), COALESCE(c.name, ''),
	(SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = i.id)
FROM invoices i
LEFT JOIN sellers s ON i.seller_id = s.id
LEFT JOIN customers c ON i.customer_id = c.id`

const itemColumns = `id, invoice_id, COALESCE(product_id, 0), position, description, quantity,
	COALESCE(unit, ''), price_net, tax_rate, total_net, total_tax, total_gross`

func scanInvoice(row interface{ Scan(...any) error }) (*models.Invoice, error) {
	inv := &models.Invoice{}
	var st string
	var net, tax, gross, paid float64
	err := row.Scan(&inv.ID, &inv.SellerID, &inv.CustomerID, &inv.InvoiceNumber, &inv.Date,
		&inv.DueDate, &st, &inv.Notes, &inv.PaymentTerms,
		&net, &tax, &gross, &inv.CreatedAt,
		&inv.SellerName, &inv.CustomerName, &paid)
	if err != nil {
		return nil, err
	}
	inv.Status = models.InvoiceStatus(st)
	inv.TotalNet = money(net)
	inv.TotalTax = money(tax)
	inv.TotalGross = money(gross)
	inv.PaidAmount = money(paid)
	return inv, nil
}

func loadInvoice(ctx context.Context, q queryer, id int64) (*models.Invoice, error) {
	inv, err := scanInvoice(q.QueryRowContext(ctx, invoiceSelect+" WHERE i.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "invoice", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

func loadItems(ctx context.Context, q queryer, invoiceID int64) ([]models.InvoiceItem, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM invoice_items WHERE invoice_id = ? ORDER BY position, id",
		invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice items: %w", err)
	}
	defer rows.Close()

	var items []models.InvoiceItem
	for rows.Next() {
		var it models.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ProductID, &it.Position, &it.Description, &it.Quantity,
			&it.Unit, &it.PriceNet, &it.TaxRate, &it.TotalNet, &it.TotalTax, &it.TotalGross); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoice items: %w", err)
	}
	return items, nil
}

// evaluate derives the automatic status of inv with the given paid amount.
func (s *SQLiteStore) evaluate(inv *models.Invoice, paid decimal.Decimal) models.InvoiceStatus {
	return status.Evaluate(s.statusInput(inv, paid))
}

func (s *SQLiteStore) statusInput(inv *models.Invoice, paid decimal.Decimal) status.Input {
	due, _, _ := models.ParseDate(inv.DueDate)
	return status.Input{
		Current: inv.Status,
		Gross:   inv.TotalGross,
		Paid:    paid,
		DueDate: due,
		Today:   s.today(),
	}
}

// CreateInvoice issues a number for the seller, prices the items and stores
// the invoice as a draft, all in one transaction.
func (s *SQLiteStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	inv.Status = models.StatusDraft
	if err := inv.Validate(); err != nil {
		return err
	}
	items := append([]models.InvoiceItem(nil), inv.Items...)
	for i := range items {
		items[i].ID = 0
	}

	var id int64
	err := s.withTx(ctx, "create invoice", func(tx *sql.Tx) error {
		seller, err := getSeller(ctx, tx, inv.SellerID)
		if errors.Is(err, models.ErrNotFound) {
			return &models.ReferenceError{Entity: "invoice", Field: "seller_id", Target: "seller", TargetID: inv.SellerID}
		}
		if err != nil {
			return err
		}
		ok, err := exists(ctx, tx, "customers", inv.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			return &models.ReferenceError{Entity: "invoice", Field: "customer_id", Target: "customer", TargetID: inv.CustomerID}
		}

		if inv.PaymentTerms == "" {
			inv.PaymentTerms = seller.DefaultPaymentTerms
		}
		if inv.PaymentTerms == "" {
			inv.PaymentTerms = models.DefaultPaymentTerms
		}
		if inv.Notes == "" {
			inv.Notes = seller.DefaultNote
		}

		if err := prepareItems(ctx, tx, items); err != nil {
			return err
		}
		totals, err := calculator.ApplyToItems(items)
		if err != nil {
			return err
		}
		inv.TotalNet, inv.TotalTax, inv.TotalGross = totals.Net, totals.Tax, totals.Gross

		number, err := s.issueNumber(ctx, tx, inv.SellerID)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number
		inv.Status = s.evaluate(inv, decimal.Zero)

		err = tx.QueryRowContext(ctx,
			`INSERT INTO invoices (seller_id, customer_id, invoice_number, date, due_date, status, notes, payment_terms,
				total_net, total_tax, total_gross)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 RETURNING id`,
			inv.SellerID, inv.CustomerID, inv.InvoiceNumber, inv.Date, inv.DueDate, string(inv.Status),
			inv.Notes, inv.PaymentTerms, toReal(inv.TotalNet), toReal(inv.TotalTax), toReal(inv.TotalGross),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to insert invoice: %w", err)
		}

		return syncItems(ctx, tx, id, nil, items)
	})
	if err != nil {
		return err
	}

	stored, err := s.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	*inv = *stored
	return nil
}

// GetInvoice retrieves an invoice with its items and paid amount.
func (s *SQLiteStore) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	inv, err := loadInvoice(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	inv.Items, err = loadItems(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvoices returns invoice headers matching filter, newest first.
func (s *SQLiteStore) ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	var where []string
	var args []any
	if filter.SellerID != 0 {
		where = append(where, "i.seller_id = ?")
		args = append(args, filter.SellerID)
	}
	if filter.CustomerID != 0 {
		where = append(where, "i.customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.Status != "" {
		where = append(where, "i.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Year != 0 {
		where = append(where, "strftime('%Y', i.date) = ?")
		args = append(args, fmt.Sprintf("%04d", filter.Year))
	}

	query := invoiceSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY i.date DESC, i.id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
	}
	return invoices, nil
}

// UpdateInvoiceHeader updates the editable header fields and re-evaluates
// the status, since the due date may have moved.
func (s *SQLiteStore) UpdateInvoiceHeader(ctx context.Context, inv *models.Invoice) (*models.Invoice, error) {
	err := s.withTx(ctx, "update invoice", func(tx *sql.Tx) error {
		cur, err := loadInvoice(ctx, tx, inv.ID)
		if err != nil {
			return err
		}
		if inv.SellerID != 0 && inv.SellerID != cur.SellerID {
			return models.NewValidationError("invoice", "seller_id", inv.SellerID, "cannot be changed after the number was issued")
		}
		if inv.CustomerID != 0 && inv.CustomerID != cur.CustomerID {
			ok, err := exists(ctx, tx, "customers", inv.CustomerID)
			if err != nil {
				return err
			}
			if !ok {
				return &models.ReferenceError{Entity: "invoice", ID: inv.ID, Field: "customer_id", Target: "customer", TargetID: inv.CustomerID}
			}
			cur.CustomerID = inv.CustomerID
		}
		cur.Date = inv.Date
		cur.DueDate = inv.DueDate
		cur.Notes = inv.Notes
		cur.PaymentTerms = inv.PaymentTerms
		if err := cur.Validate(); err != nil {
			return err
		}
		cur.Status = s.evaluate(cur, cur.PaidAmount)

		_, err = tx.ExecContext(ctx,
			`UPDATE invoices SET customer_id = ?, date = ?, due_date = ?, notes = ?, payment_terms = ?, status = ?
			 WHERE id = ?`,
			cur.CustomerID, cur.Date, cur.DueDate, cur.Notes, cur.PaymentTerms, string(cur.Status), cur.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, inv.ID)
}

// itemMutation rewrites the ordered item list of an invoice.
type itemMutation func(tx *sql.Tx, inv *models.Invoice, items []models.InvoiceItem) ([]models.InvoiceItem, error)

// mutateItems is the single write path for items. It applies fn to the
// current items, renumbers positions, recomputes totals and status, and
// persists everything in one transaction.
func (s *SQLiteStore) mutateItems(ctx context.Context, op string, invoiceID int64, fn itemMutation) (*models.Invoice, error) {
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		inv, err := loadInvoice(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == models.StatusCancelled {
			return models.NewValidationError("invoice", "status", inv.Status, "items of a cancelled invoice are read-only")
		}
		old, err := loadItems(ctx, tx, invoiceID)
		if err != nil {
			return err
		}

		next, err := fn(tx, inv, append([]models.InvoiceItem(nil), old...))
		if err != nil {
			return err
		}
		if err := prepareItems(ctx, tx, next); err != nil {
			return err
		}
		totals, err := calculator.ApplyToItems(next)
		if err != nil {
			return err
		}
		if err := syncItems(ctx, tx, invoiceID, old, next); err != nil {
			return err
		}

		inv.TotalNet, inv.TotalTax, inv.TotalGross = totals.Net, totals.Tax, totals.Gross
		inv.Status = s.evaluate(inv, inv.PaidAmount)
		_, err = tx.ExecContext(ctx,
			"UPDATE invoices SET total_net = ?, total_tax = ?, total_gross = ?, status = ? WHERE id = ?",
			toReal(inv.TotalNet), toReal(inv.TotalTax), toReal(inv.TotalGross), string(inv.Status), invoiceID,
		)
		if err != nil {
			return fmt.Errorf("failed to update invoice totals: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, invoiceID)
}

// prepareItems renumbers positions 1..n, fills unset fields of new
// product-backed items from the catalog and validates every item.
func prepareItems(ctx context.Context, tx *sql.Tx, items []models.InvoiceItem) error {
	for i := range items {
		it := &items[i]
		it.Position = i + 1
		if it.ProductID != 0 {
			p, err := getProductTx(ctx, tx, it.ProductID)
			if errors.Is(err, models.ErrNotFound) {
				return &models.ReferenceError{Entity: "invoice_item", ID: it.ID, Field: "product_id", Target: "product", TargetID: it.ProductID}
			}
			if err != nil {
				return err
			}
			if it.ID == 0 && strings.TrimSpace(it.Description) == "" {
				it.Description = p.Name
				it.Unit = p.Unit
				it.PriceNet = p.PriceNet
				it.TaxRate = p.TaxRate
				if it.Quantity.IsZero() {
					it.Quantity = decimal.NewFromInt(1)
				}
			}
		}
		if it.Unit == "" {
			it.Unit = models.DefaultUnit
		}
		if err := it.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func getProductTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	p, err := scanProduct(tx.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "product", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// syncItems persists next as the item list of the invoice. Items of old that
// are missing from next are deleted, items with an ID are updated in place
// and the rest are inserted. Positions are parked at negative values first so
// the unique (invoice_id, position) index never sees a transient duplicate.
func syncItems(ctx context.Context, tx *sql.Tx, invoiceID int64, old, next []models.InvoiceItem) error {
	keep := make(map[int64]bool, len(next))
	for _, it := range next {
		if it.ID != 0 {
			keep[it.ID] = true
		}
	}
	for _, it := range old {
		if keep[it.ID] {
			continue
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM invoice_items WHERE id = ?", it.ID); err != nil {
			return fmt.Errorf("failed to delete invoice item: %w", err)
		}
	}

	if len(old) > 0 {
		if _, err := tx.ExecContext(ctx, "UPDATE invoice_items SET position = -position WHERE invoice_id = ?", invoiceID); err != nil {
			return fmt.Errorf("failed to reorder invoice items: %w", err)
		}
	}

	for i := range next {
		it := &next[i]
		it.InvoiceID = invoiceID
		if it.ID != 0 {
			res, err := tx.ExecContext(ctx,
				`UPDATE invoice_items SET product_id = ?, position = ?, description = ?, quantity = ?, unit = ?,
					price_net = ?, tax_rate = ?, total_net = ?, total_tax = ?, total_gross = ?
				 WHERE id = ? AND invoice_id = ?`,
				nullInt64(it.ProductID), it.Position, it.Description, toReal(it.Quantity), it.Unit,
				toReal(it.PriceNet), toReal(it.TaxRate), toReal(it.TotalNet), toReal(it.TotalTax), toReal(it.TotalGross),
				it.ID, invoiceID,
			)
			if err != nil {
				return fmt.Errorf("failed to update invoice item: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return &models.NotFoundError{Entity: "invoice_item", ID: it.ID}
			}
			continue
		}

		err := tx.QueryRowContext(ctx,
			`INSERT INTO invoice_items (invoice_id, product_id, position, description, quantity, unit,
				price_net, tax_rate, total_net, total_tax, total_gross)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 RETURNING id`,
			invoiceID, nullInt64(it.ProductID), it.Position, it.Description, toReal(it.Quantity), it.Unit,
			toReal(it.PriceNet), toReal(it.TaxRate), toReal(it.TotalNet), toReal(it.TotalTax), toReal(it.TotalGross),
		).Scan(&it.ID)
		if err != nil {
			return fmt.Errorf("failed to insert invoice item: %w", err)
		}
	}
	return nil
}

// ReplaceItems swaps the complete item list of an invoice.
func (s *SQLiteStore) ReplaceItems(ctx context.Context, invoiceID int64, items []models.InvoiceItem) (*models.Invoice, error) {
	return s.mutateItems(ctx, "replace items", invoiceID, func(_ *sql.Tx, _ *models.Invoice, _ []models.InvoiceItem) ([]models.InvoiceItem, error) {
		return append([]models.InvoiceItem(nil), items...), nil
	})
}

// AddItem inserts an item at item.Position or appends it.
func (s *SQLiteStore) AddItem(ctx context.Context, invoiceID int64, item models.InvoiceItem) (*models.Invoice, error) {
	item.ID = 0
	return s.mutateItems(ctx, "add item", invoiceID, func(_ *sql.Tx, _ *models.Invoice, items []models.InvoiceItem) ([]models.InvoiceItem, error) {
		return insertAt(items, item, item.Position), nil
	})
}

// UpdateItem overwrites the priced fields of an item, keeping its position.
func (s *SQLiteStore) UpdateItem(ctx context.Context, item models.InvoiceItem) (*models.Invoice, error) {
	invoiceID, err := s.itemInvoice(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return s.mutateItems(ctx, "update item", invoiceID, func(_ *sql.Tx, _ *models.Invoice, items []models.InvoiceItem) ([]models.InvoiceItem, error) {
		i := indexOfItem(items, item.ID)
		if i < 0 {
			return nil, &models.NotFoundError{Entity: "invoice_item", ID: item.ID}
		}
		items[i].ProductID = item.ProductID
		items[i].Description = item.Description
		items[i].Quantity = item.Quantity
		items[i].Unit = item.Unit
		items[i].PriceNet = item.PriceNet
		items[i].TaxRate = item.TaxRate
		return items, nil
	})
}

// RemoveItem deletes an item and closes the position gap.
func (s *SQLiteStore) RemoveItem(ctx context.Context, itemID int64) (*models.Invoice, error) {
	invoiceID, err := s.itemInvoice(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.mutateItems(ctx, "remove item", invoiceID, func(_ *sql.Tx, _ *models.Invoice, items []models.InvoiceItem) ([]models.InvoiceItem, error) {
		i := indexOfItem(items, itemID)
		if i < 0 {
			return nil, &models.NotFoundError{Entity: "invoice_item", ID: itemID}
		}
		return append(items[:i], items[i+1:]...), nil
	})
}

// MoveItem moves an item to a new 1-based position, clamped to the list.
func (s *SQLiteStore) MoveItem(ctx context.Context, itemID int64, position int) (*models.Invoice, error) {
	invoiceID, err := s.itemInvoice(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.mutateItems(ctx, "move item", invoiceID, func(_ *sql.Tx, _ *models.Invoice, items []models.InvoiceItem) ([]models.InvoiceItem, error) {
		i := indexOfItem(items, itemID)
		if i < 0 {
			return nil, &models.NotFoundError{Entity: "invoice_item", ID: itemID}
		}
		moved := items[i]
		rest := append(items[:i:i], items[i+1:]...)
		if position < 1 {
			position = 1
		}
		return insertAt(rest, moved, position), nil
	})
}

// ReapplyProductPricing copies current catalog prices onto linked items.
func (s *SQLiteStore) ReapplyProductPricing(ctx context.Context, invoiceID int64) (*models.Invoice, error) {
	return s.mutateItems(ctx, "reapply pricing", invoiceID, func(tx *sql.Tx, _ *models.Invoice, items []models.InvoiceItem) ([]models.InvoiceItem, error) {
		for i := range items {
			if items[i].ProductID == 0 {
				continue
			}
			p, err := getProductTx(ctx, tx, items[i].ProductID)
			if err != nil {
				return nil, err
			}
			items[i].PriceNet = p.PriceNet
			items[i].TaxRate = p.TaxRate
		}
		return items, nil
	})
}

func (s *SQLiteStore) itemInvoice(ctx context.Context, itemID int64) (int64, error) {
	var invoiceID int64
	err := s.db.QueryRowContext(ctx, "SELECT invoice_id FROM invoice_items WHERE id = ?", itemID).Scan(&invoiceID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &models.NotFoundError{Entity: "invoice_item", ID: itemID}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get invoice item: %w", err)
	}
	return invoiceID, nil
}

func indexOfItem(items []models.InvoiceItem, id int64) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// insertAt inserts item at the 1-based position, appending when position is
// 0 or past the end.
func insertAt(items []models.InvoiceItem, item models.InvoiceItem, position int) []models.InvoiceItem {
	if position <= 0 || position > len(items) {
		return append(items, item)
	}
	idx := position - 1
	items = append(items, models.InvoiceItem{})
	copy(items[idx+1:], items[idx:])
	items[idx] = item
	return items
}

// SetInvoiceStatus applies an explicit status change.
func (s *SQLiteStore) SetInvoiceStatus(ctx context.Context, invoiceID int64, to models.InvoiceStatus) (*models.Invoice, error) {
	err := s.withTx(ctx, "set status", func(tx *sql.Tx) error {
		inv, err := loadInvoice(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		next, err := status.Apply(invoiceID, to, s.statusInput(inv, inv.PaidAmount))
		if err != nil {
			return err
		}
		return updateStatus(ctx, tx, invoiceID, next)
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, invoiceID)
}

// RefreshInvoiceStatus re-evaluates the automatic status of an invoice.
func (s *SQLiteStore) RefreshInvoiceStatus(ctx context.Context, invoiceID int64) (*models.Invoice, error) {
	err := s.withTx(ctx, "refresh status", func(tx *sql.Tx) error {
		_, err := s.refreshStatus(ctx, tx, invoiceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, invoiceID)
}

// refreshStatus re-reads the invoice and its payments inside tx and stores
// the evaluated status.
func (s *SQLiteStore) refreshStatus(ctx context.Context, tx *sql.Tx, invoiceID int64) (models.InvoiceStatus, error) {
	inv, err := loadInvoice(ctx, tx, invoiceID)
	if err != nil {
		return "", err
	}
	next := s.evaluate(inv, inv.PaidAmount)
	if next == inv.Status {
		return next, nil
	}
	return next, updateStatus(ctx, tx, invoiceID, next)
}

func updateStatus(ctx context.Context, tx *sql.Tx, invoiceID int64, st models.InvoiceStatus) error {
	if _, err := tx.ExecContext(ctx, "UPDATE invoices SET status = ? WHERE id = ?", string(st), invoiceID); err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	return nil
}

// SweepOverdue re-evaluates every non-cancelled invoice with a due date.
func (s *SQLiteStore) SweepOverdue(ctx context.Context) (int, error) {
	changed := 0
	err := s.withTx(ctx, "sweep overdue", func(tx *sql.Tx) error {
		changed = 0
		rows, err := tx.QueryContext(ctx,
			invoiceSelect+" WHERE i.status != 'cancelled' AND COALESCE(i.due_date, '') != ''",
		)
		if err != nil {
			return fmt.Errorf("failed to list invoices: %w", err)
		}
		var invoices []*models.Invoice
		for rows.Next() {
			inv, err := scanInvoice(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan invoice: %w", err)
			}
			invoices = append(invoices, inv)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate invoices: %w", err)
		}

		for _, inv := range invoices {
			next := s.evaluate(inv, inv.PaidAmount)
			if next == inv.Status {
				continue
			}
			if err := updateStatus(ctx, tx, inv.ID, next); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	return changed, err
}

// DeleteInvoice deletes an invoice. Items and payments cascade.
func (s *SQLiteStore) DeleteInvoice(ctx context.Context, id int64) error {
	return s.withTx(ctx, "delete invoice", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM invoices WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &models.NotFoundError{Entity: "invoice", ID: id}
		}
		return nil
	})
}
