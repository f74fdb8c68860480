// Package status derives and guards invoice status changes.
//
// Two kinds of change exist. Automatic evaluation (Evaluate) follows payments
// and the due date and only moves between sent, paid and overdue. Explicit
// transitions (Transition) are user actions such as sending or cancelling.
package status

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/vibebill/internal/models"
)

// Input is everything automatic evaluation looks at.
type Input struct {
	Current models.InvoiceStatus
	Gross   decimal.Decimal
	Paid    decimal.Decimal

	// DueDate is the zero time when the invoice has no due date.
	DueDate time.Time

	// Today is compared by calendar day.
	Today time.Time
}

// Evaluate returns the status an invoice should have given its payments and
// due date. Cancelled invoices keep their status.
func Evaluate(in Input) models.InvoiceStatus {
	if in.Current == models.StatusCancelled {
		return in.Current
	}

	if in.Gross.IsPositive() && in.Paid.GreaterThanOrEqual(in.Gross) {
		return models.StatusPaid
	}

	if !in.DueDate.IsZero() && models.Day(in.Today).After(models.Day(in.DueDate)) {
		return models.StatusOverdue
	}

	switch in.Current {
	case models.StatusPaid, models.StatusOverdue:
		// A deleted payment or a moved due date reopens the invoice.
		return models.StatusSent
	case "":
		return models.StatusDraft
	}
	return in.Current
}

// allowed lists the explicit transitions a user may request.
// paid and overdue are never targets: they are derived by Evaluate.
var allowed = map[models.InvoiceStatus][]models.InvoiceStatus{
	models.StatusDraft:     {models.StatusSent, models.StatusCancelled},
	models.StatusSent:      {models.StatusDraft, models.StatusCancelled},
	models.StatusOverdue:   {models.StatusCancelled},
	models.StatusPaid:      {},
	models.StatusCancelled: {},
}

// Transition validates an explicit status change of invoice id.
// Requesting the current status is a no-op and always allowed.
func Transition(id int64, from, to models.InvoiceStatus) error {
	if !to.Valid() {
		return &models.TransitionError{InvoiceID: id, From: from, To: to, Reason: "unknown status"}
	}
	if from == to {
		return nil
	}

	switch to {
	case models.StatusPaid:
		return &models.TransitionError{InvoiceID: id, From: from, To: to, Reason: "paid is set by recording payments"}
	case models.StatusOverdue:
		return &models.TransitionError{InvoiceID: id, From: from, To: to, Reason: "overdue is derived from the due date"}
	}

	if from == models.StatusCancelled {
		return &models.TransitionError{InvoiceID: id, From: from, To: to, Reason: "cancelled invoices cannot be reopened"}
	}

	for _, next := range allowed[from] {
		if next == to {
			return nil
		}
	}
	return &models.TransitionError{InvoiceID: id, From: from, To: to, Reason: "transition not allowed"}
}

// Apply performs an explicit transition and then lets automatic evaluation
// settle the result. Sending an already overdue or fully paid invoice
// therefore lands directly in overdue or paid.
func Apply(id int64, to models.InvoiceStatus, in Input) (models.InvoiceStatus, error) {
	if err := Transition(id, in.Current, to); err != nil {
		return in.Current, err
	}
	in.Current = to
	return Evaluate(in), nil
}
