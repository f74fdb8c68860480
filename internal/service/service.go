// Package service is the caller-facing API of the invoicing core. It wraps a
// storage.Store with request logging, metrics and bounded retries of
// operations that hit a locked database.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mmynk/vibebill/internal/metrics"
	"github.com/mmynk/vibebill/internal/models"
	"github.com/mmynk/vibebill/internal/storage"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 50 * time.Millisecond
)

// Options configure the services.
type Options struct {
	// RetryAttempts is the total number of tries of an operation that fails
	// with models.ErrConflict. Defaults to 3.
	RetryAttempts int

	// RetryBackoff is the wait before the second try; the n-th retry waits
	// n times as long. Defaults to 50ms.
	RetryBackoff time.Duration

	// Metrics receives counters. A private registry is used when nil.
	Metrics *metrics.Metrics
}

// Services bundles all services over one store.
type Services struct {
	Invoices *InvoiceService
	Payments *PaymentService
	Catalog  *CatalogService
	Settings *SettingsService
	Reports  *ReportService
}

// New creates all services for store.
func New(store storage.Store, opts Options) *Services {
	r := newRunner(opts)
	return &Services{
		Invoices: &InvoiceService{store: store, run: r},
		Payments: &PaymentService{store: store, run: r},
		Catalog:  &CatalogService{store: store, run: r},
		Settings: &SettingsService{store: store, run: r},
		Reports:  &ReportService{store: store, run: r},
	}
}

// runner executes store operations with retry and bookkeeping.
type runner struct {
	attempts int
	backoff  time.Duration
	metrics  *metrics.Metrics
}

func newRunner(opts Options) *runner {
	r := &runner{
		attempts: opts.RetryAttempts,
		backoff:  opts.RetryBackoff,
		metrics:  opts.Metrics,
	}
	if r.attempts < 1 {
		r.attempts = defaultRetryAttempts
	}
	if r.backoff <= 0 {
		r.backoff = defaultRetryBackoff
	}
	if r.metrics == nil {
		r.metrics = metrics.New()
	}
	return r
}

// do runs fn until it succeeds, fails with an error other than a conflict,
// or the attempts are used up. Each try starts from a fresh read because
// every store operation is its own transaction.
func (r *runner) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	defer r.metrics.TrackOperation(op)(time.Now())

	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, models.ErrConflict) {
			break
		}
		r.metrics.RecordConflict(op)
		if attempt == r.attempts {
			break
		}

		wait := r.backoff * time.Duration(attempt)
		slog.Warn("Database locked, retrying", "op", op, "attempt", attempt, "wait", wait)
		select {
		case <-ctx.Done():
			r.metrics.RecordError(op)
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	r.metrics.RecordError(op)
	return err
}

// call is do for operations that return a value.
func call[T any](ctx context.Context, r *runner, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
