package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/vibebill/internal/models"
)

// utf8BOM lets spreadsheet programs detect the encoding.
const utf8BOM = "\ufeff"

var exportHeaders = map[string][]string{
	"de": {"Rechnungsnr.", "Kunde", "Verkäufer", "Datum", "Fällig", "Status", "Netto", "MwSt", "Brutto", "Notizen"},
	"en": {"Invoice No.", "Customer", "Seller", "Date", "Due Date", "Status", "Net", "VAT", "Gross", "Notes"},
}

var statusLabels = map[string]map[models.InvoiceStatus]string{
	"de": {
		models.StatusDraft:     "Entwurf",
		models.StatusSent:      "Versendet",
		models.StatusPaid:      "Bezahlt",
		models.StatusOverdue:   "Überfällig",
		models.StatusCancelled: "Storniert",
	},
	"en": {
		models.StatusDraft:     "Draft",
		models.StatusSent:      "Sent",
		models.StatusPaid:      "Paid",
		models.StatusOverdue:   "Overdue",
		models.StatusCancelled: "Cancelled",
	},
}

// ExportFileName is the suggested file name for an export made on day.
func ExportFileName(day time.Time) string {
	return fmt.Sprintf("Rechnungen_%s.csv", day.Format("20060102"))
}

// ExportInvoicesCSV writes the invoices matching filter as semicolon
// separated CSV with a UTF-8 byte order mark. locale selects header and
// status labels; "de" also uses a decimal comma. An empty locale uses the
// stored locale setting. It returns the number of rows written.
func (s *ReportService) ExportInvoicesCSV(ctx context.Context, w io.Writer, filter models.InvoiceFilter, locale string) (int, error) {
	slog.Info("ExportInvoicesCSV request received", "locale", locale, "status", filter.Status, "year", filter.Year)

	if locale == "" {
		var err error
		locale, err = call(ctx, s.run, "get_setting", func(ctx context.Context) (string, error) {
			return s.store.GetSetting(ctx, models.SettingLocale)
		})
		if err != nil {
			return 0, err
		}
	}

	invoices, err := call(ctx, s.run, "list_invoices", func(ctx context.Context) ([]*models.Invoice, error) {
		return s.store.ListInvoices(ctx, filter)
	})
	if err != nil {
		slog.Error("ExportInvoicesCSV failed", "error", err)
		return 0, err
	}

	if err := WriteInvoicesCSV(w, invoices, locale); err != nil {
		slog.Error("ExportInvoicesCSV failed", "error", err)
		return 0, err
	}

	slog.Info("ExportInvoicesCSV successful", "rows", len(invoices))
	return len(invoices), nil
}

// WriteInvoicesCSV renders invoices in the export format.
func WriteInvoicesCSV(w io.Writer, invoices []*models.Invoice, locale string) error {
	headers, ok := exportHeaders[locale]
	if !ok {
		headers = exportHeaders["en"]
	}
	german := locale == "de"

	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'
	cw.UseCRLF = true

	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for _, inv := range invoices {
		label, ok := statusLabels[locale][inv.Status]
		if !ok {
			label = string(inv.Status)
		}
		row := []string{
			inv.InvoiceNumber,
			inv.CustomerName,
			inv.SellerName,
			inv.Date,
			inv.DueDate,
			label,
			formatAmount(inv.TotalNet, german),
			formatAmount(inv.TotalTax, german),
			formatAmount(inv.TotalGross, german),
			flattenNotes(inv.Notes),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write export row %s: %w", inv.InvoiceNumber, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}
	return nil
}

func formatAmount(d decimal.Decimal, german bool) string {
	s := d.StringFixed(2)
	if german {
		return strings.Replace(s, ".", ",", 1)
	}
	return s
}

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

// flattenNotes replaces each run of line breaks with a single space.
func flattenNotes(s string) string {
	return lineBreaks.ReplaceAllString(s, " ")
}
