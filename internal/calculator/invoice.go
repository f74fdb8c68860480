package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/vibebill/internal/models"
)

// Places is the number of decimals kept in stored and displayed amounts.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Line is the priced part of an invoice item.
type Line struct {
	Quantity decimal.Decimal
	PriceNet decimal.Decimal
	TaxRate  decimal.Decimal // percentage, 19 means 19%
}

// LineTotals are the stored totals of one line.
type LineTotals struct {
	Net   decimal.Decimal
	Tax   decimal.Decimal
	Gross decimal.Decimal
}

// Totals are the stored totals of an invoice.
type Totals struct {
	Net   decimal.Decimal
	Tax   decimal.Decimal
	Gross decimal.Decimal
}

// Zero reports whether all totals are zero.
func (t Totals) Zero() bool {
	return t.Net.IsZero() && t.Tax.IsZero() && t.Gross.IsZero()
}

// CalculateLine computes the stored totals of a single line:
// net = round(q × p), tax = round(net × rate / 100), gross = net + tax.
func CalculateLine(l Line) (LineTotals, error) {
	if err := validateLine(l, 1); err != nil {
		return LineTotals{}, err
	}
	net := l.Quantity.Mul(l.PriceNet).Round(Places)
	tax := net.Mul(l.TaxRate).Div(hundred).Round(Places)
	return LineTotals{Net: net, Tax: tax, Gross: net.Add(tax)}, nil
}

// CalculateInvoice computes per-line totals and the invoice aggregates for
// lines given in position order.
//
// Each line keeps full precision until its stored value is rounded. Invoice
// totals are the sums of the rounded line totals, so they always match the
// item rows exactly and net + tax = gross holds without adjustment.
func CalculateInvoice(lines []Line) ([]LineTotals, Totals, error) {
	out := make([]LineTotals, len(lines))
	totals := Totals{Net: decimal.Zero, Tax: decimal.Zero, Gross: decimal.Zero}

	for i, l := range lines {
		if err := validateLine(l, i+1); err != nil {
			return nil, Totals{}, err
		}
		lt, err := CalculateLine(l)
		if err != nil {
			return nil, Totals{}, err
		}
		out[i] = lt
		totals.Net = totals.Net.Add(lt.Net)
		totals.Tax = totals.Tax.Add(lt.Tax)
		totals.Gross = totals.Gross.Add(lt.Gross)
	}
	return out, totals, nil
}

// ApplyToItems prices items in place (in slice order) and returns the invoice totals.
func ApplyToItems(items []models.InvoiceItem) (Totals, error) {
	lines := make([]Line, len(items))
	for i, it := range items {
		lines[i] = Line{Quantity: it.Quantity, PriceNet: it.PriceNet, TaxRate: it.TaxRate}
	}
	lineTotals, totals, err := CalculateInvoice(lines)
	if err != nil {
		return Totals{}, err
	}
	for i := range items {
		items[i].TotalNet = lineTotals[i].Net
		items[i].TotalTax = lineTotals[i].Tax
		items[i].TotalGross = lineTotals[i].Gross
	}
	return totals, nil
}

func validateLine(l Line, position int) error {
	switch {
	case l.Quantity.IsNegative():
		return models.NewValidationError("invoice_item", "quantity", l.Quantity, positionMsg(position))
	case l.PriceNet.IsNegative():
		return models.NewValidationError("invoice_item", "price_net", l.PriceNet, positionMsg(position))
	case l.TaxRate.IsNegative():
		return models.NewValidationError("invoice_item", "tax_rate", l.TaxRate, positionMsg(position))
	}
	return nil
}

func positionMsg(position int) string {
	return fmt.Sprintf("must not be negative (position %d)", position)
}
