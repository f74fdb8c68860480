package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/vibebill/internal/calculator"
	"github.com/mmynk/vibebill/internal/models"
	"github.com/mmynk/vibebill/internal/storage"
)

// PaymentService records money received against invoices.
type PaymentService struct {
	store storage.Store
	run   *runner
}

// NewPaymentService creates a new PaymentService with the given storage backend.
func NewPaymentService(store storage.Store, opts Options) *PaymentService {
	return &PaymentService{store: store, run: newRunner(opts)}
}

// RecordPayment stores a payment and returns the resulting invoice status.
func (s *PaymentService) RecordPayment(ctx context.Context, p *models.Payment) (models.InvoiceStatus, error) {
	slog.Info("RecordPayment request received",
		"invoice_id", p.InvoiceID,
		"amount", p.Amount,
		"date", p.Date,
		"method", p.Method,
	)

	st, err := call(ctx, s.run, "add_payment", func(ctx context.Context) (models.InvoiceStatus, error) {
		return s.store.AddPayment(ctx, p)
	})
	if err != nil {
		slog.Error("RecordPayment failed", "invoice_id", p.InvoiceID, "error", err)
		return "", err
	}
	s.run.metrics.PaymentsRecorded.Inc()

	slog.Info("Payment recorded", "payment_id", p.ID, "invoice_id", p.InvoiceID, "status", st)
	return st, nil
}

// DeletePayment removes a payment and returns the resulting invoice status.
func (s *PaymentService) DeletePayment(ctx context.Context, id int64) (models.InvoiceStatus, error) {
	slog.Info("DeletePayment request received", "payment_id", id)

	st, err := call(ctx, s.run, "delete_payment", func(ctx context.Context) (models.InvoiceStatus, error) {
		return s.store.DeletePayment(ctx, id)
	})
	if err != nil {
		slog.Error("DeletePayment failed", "payment_id", id, "error", err)
		return "", err
	}
	s.run.metrics.PaymentsDeleted.Inc()

	slog.Info("Payment deleted", "payment_id", id, "status", st)
	return st, nil
}

// ListPayments returns the payments of an invoice, newest first.
func (s *PaymentService) ListPayments(ctx context.Context, invoiceID int64) ([]*models.Payment, error) {
	slog.Debug("ListPayments request received", "invoice_id", invoiceID)

	payments, err := call(ctx, s.run, "list_payments", func(ctx context.Context) ([]*models.Payment, error) {
		return s.store.ListPayments(ctx, invoiceID)
	})
	if err != nil {
		slog.Error("ListPayments failed", "invoice_id", invoiceID, "error", err)
		return nil, err
	}
	return payments, nil
}

// Balance returns the payment position of an invoice.
func (s *PaymentService) Balance(ctx context.Context, invoiceID int64) (calculator.Balance, error) {
	slog.Debug("Balance request received", "invoice_id", invoiceID)

	balance, err := call(ctx, s.run, "invoice_balance", func(ctx context.Context) (calculator.Balance, error) {
		return s.store.InvoiceBalance(ctx, invoiceID)
	})
	if err != nil {
		slog.Error("Balance failed", "invoice_id", invoiceID, "error", err)
		return calculator.Balance{}, err
	}

	slog.Debug("Balance successful",
		"invoice_id", invoiceID,
		"gross", balance.Gross,
		"paid", balance.Paid,
		"outstanding", balance.Outstanding,
	)
	return balance, nil
}
