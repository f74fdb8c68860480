package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/vibebill/internal/calculator"
	"github.com/mmynk/vibebill/internal/models"
)

const paymentColumns = `id, invoice_id, amount, date, COALESCE(method, ''), COALESCE(notes, ''), COALESCE(created_at, '')`

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	p := &models.Payment{}
	var amount float64
	if err := row.Scan(&p.ID, &p.InvoiceID, &amount, &p.Date, &p.Method, &p.Notes, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Amount = money(amount)
	return p, nil
}

// AddPayment records a payment and re-evaluates the invoice status in the
// same transaction.
func (s *SQLiteStore) AddPayment(ctx context.Context, payment *models.Payment) (models.InvoiceStatus, error) {
	// Stored amounts are whole cents; validate what will be stored.
	payment.Amount = payment.Amount.Round(calculator.Places)
	if err := payment.Validate(); err != nil {
		return "", err
	}

	var next models.InvoiceStatus
	err := s.withTx(ctx, "add payment", func(tx *sql.Tx) error {
		inv, err := loadInvoice(ctx, tx, payment.InvoiceID)
		if errors.Is(err, models.ErrNotFound) {
			return &models.ReferenceError{Entity: "payment", Field: "invoice_id", Target: "invoice", TargetID: payment.InvoiceID}
		}
		if err != nil {
			return err
		}
		if inv.Status == models.StatusCancelled {
			return models.NewValidationError("payment", "invoice_id", payment.InvoiceID, "cannot record a payment on a cancelled invoice")
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO payments (invoice_id, amount, date, method, notes)
			 VALUES (?, ?, ?, ?, ?)
			 RETURNING id, COALESCE(created_at, '')`,
			payment.InvoiceID, toReal(payment.Amount), payment.Date, payment.Method, payment.Notes,
		).Scan(&payment.ID, &payment.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}

		next, err = s.refreshStatus(ctx, tx, payment.InvoiceID)
		return err
	})
	if err != nil {
		return "", err
	}
	return next, nil
}

// DeletePayment removes a payment and re-evaluates the invoice status.
func (s *SQLiteStore) DeletePayment(ctx context.Context, id int64) (models.InvoiceStatus, error) {
	var next models.InvoiceStatus
	err := s.withTx(ctx, "delete payment", func(tx *sql.Tx) error {
		var invoiceID int64
		err := tx.QueryRowContext(ctx, "SELECT invoice_id FROM payments WHERE id = ?", id).Scan(&invoiceID)
		if errors.Is(err, sql.ErrNoRows) {
			return &models.NotFoundError{Entity: "payment", ID: id}
		}
		if err != nil {
			return fmt.Errorf("failed to check payment existence: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM payments WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}

		next, err = s.refreshStatus(ctx, tx, invoiceID)
		return err
	})
	if err != nil {
		return "", err
	}
	return next, nil
}

// ListPayments returns the payments of an invoice, newest first.
func (s *SQLiteStore) ListPayments(ctx context.Context, invoiceID int64) ([]*models.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE invoice_id = ? ORDER BY date DESC, id DESC",
		invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

// InvoiceBalance returns the payment position of an invoice.
func (s *SQLiteStore) InvoiceBalance(ctx context.Context, invoiceID int64) (calculator.Balance, error) {
	inv, err := loadInvoice(ctx, s.db, invoiceID)
	if err != nil {
		return calculator.Balance{}, err
	}
	payments, err := s.ListPayments(ctx, invoiceID)
	if err != nil {
		return calculator.Balance{}, err
	}

	amounts := make([]decimal.Decimal, len(payments))
	for i, p := range payments {
		amounts[i] = p.Amount
	}
	return calculator.CalculateBalance(inv.TotalGross, amounts), nil
}
