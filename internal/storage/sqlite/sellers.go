package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/vibebill/internal/models"
)

// maxNumberSkips bounds how many already-taken invoice numbers are skipped
// when a counter was moved onto existing numbers by hand.
const maxNumberSkips = 1000

const sellerColumns = `id, name, COALESCE(first_name, ''), COALESCE(last_name, ''),
	COALESCE(street, ''), COALESCE(city, ''), COALESCE(zip, ''), COALESCE(country, ''),
	COALESCE(phone, ''), COALESCE(email, ''), COALESCE(website, ''),
	COALESCE(tax_id, ''), COALESCE(vat_id, ''),
	COALESCE(bank_name, ''), COALESCE(bank_iban, ''), COALESCE(bank_bic, ''),
	COALESCE(logo_data, ''), COALESCE(invoice_prefix, ''), COALESCE(next_invoice_number, 1),
	COALESCE(pdf_template, 'classic'), COALESCE(color, '#3b82f6'),
	COALESCE(default_payment_terms, ''), default_tax_rate, COALESCE(currency, ''), COALESCE(default_note, ''),
	COALESCE(created_at, '')`

func scanSeller(row interface{ Scan(...any) error }) (*models.Seller, error) {
	s := &models.Seller{}
	err := row.Scan(&s.ID, &s.Name, &s.FirstName, &s.LastName,
		&s.Street, &s.City, &s.Zip, &s.Country,
		&s.Phone, &s.Email, &s.Website,
		&s.TaxID, &s.VatID,
		&s.BankName, &s.BankIBAN, &s.BankBIC,
		&s.LogoData, &s.InvoicePrefix, &s.NextInvoiceNumber,
		&s.PDFTemplate, &s.Color,
		&s.DefaultPaymentTerms, &s.DefaultTaxRate, &s.Currency, &s.DefaultNote,
		&s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateSeller persists a new seller.
func (s *SQLiteStore) CreateSeller(ctx context.Context, seller *models.Seller) error {
	seller.ApplyDefaults()
	if err := seller.Validate(); err != nil {
		return err
	}

	return s.withTx(ctx, "create seller", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO sellers (name, first_name, last_name, street, city, zip, country, phone, email, website,
				tax_id, vat_id, bank_name, bank_iban, bank_bic, logo_data, invoice_prefix, next_invoice_number,
				pdf_template, color, default_payment_terms, default_tax_rate, currency, default_note)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 RETURNING id, COALESCE(created_at, '')`,
			seller.Name, seller.FirstName, seller.LastName, seller.Street, seller.City, seller.Zip, seller.Country,
			seller.Phone, seller.Email, seller.Website, seller.TaxID, seller.VatID,
			seller.BankName, seller.BankIBAN, seller.BankBIC, seller.LogoData,
			seller.InvoicePrefix, seller.NextInvoiceNumber, seller.PDFTemplate, seller.Color,
			seller.DefaultPaymentTerms, nullReal(seller.DefaultTaxRate), seller.Currency, seller.DefaultNote,
		).Scan(&seller.ID, &seller.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert seller: %w", err)
		}
		return nil
	})
}

// GetSeller retrieves a seller by ID.
func (s *SQLiteStore) GetSeller(ctx context.Context, id int64) (*models.Seller, error) {
	return getSeller(ctx, s.db, id)
}

func getSeller(ctx context.Context, q queryer, id int64) (*models.Seller, error) {
	seller, err := scanSeller(q.QueryRowContext(ctx, "SELECT "+sellerColumns+" FROM sellers WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "seller", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seller: %w", err)
	}
	return seller, nil
}

// ListSellers returns all sellers ordered by name.
func (s *SQLiteStore) ListSellers(ctx context.Context) ([]*models.Seller, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+sellerColumns+" FROM sellers ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list sellers: %w", err)
	}
	defer rows.Close()

	var sellers []*models.Seller
	for rows.Next() {
		seller, err := scanSeller(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan seller: %w", err)
		}
		sellers = append(sellers, seller)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sellers: %w", err)
	}
	return sellers, nil
}

// UpdateSeller overwrites a seller. A zero NextInvoiceNumber keeps the
// current counter; a lower one is rejected.
func (s *SQLiteStore) UpdateSeller(ctx context.Context, seller *models.Seller) error {
	return s.withTx(ctx, "update seller", func(tx *sql.Tx) error {
		var current int64
		err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(next_invoice_number, 1) FROM sellers WHERE id = ?", seller.ID,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return &models.NotFoundError{Entity: "seller", ID: seller.ID}
		}
		if err != nil {
			return fmt.Errorf("failed to get seller: %w", err)
		}

		if seller.NextInvoiceNumber == 0 {
			seller.NextInvoiceNumber = current
		}
		if seller.NextInvoiceNumber < current {
			return models.NewValidationError("seller", "next_invoice_number", seller.NextInvoiceNumber,
				fmt.Sprintf("must not be lowered below %d, issued numbers are never reused", current))
		}
		seller.ApplyDefaults()
		if err := seller.Validate(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE sellers SET name = ?, first_name = ?, last_name = ?, street = ?, city = ?, zip = ?, country = ?,
				phone = ?, email = ?, website = ?, tax_id = ?, vat_id = ?, bank_name = ?, bank_iban = ?, bank_bic = ?,
				logo_data = ?, invoice_prefix = ?, next_invoice_number = ?, pdf_template = ?, color = ?,
				default_payment_terms = ?, default_tax_rate = ?, currency = ?, default_note = ?
			 WHERE id = ?`,
			seller.Name, seller.FirstName, seller.LastName, seller.Street, seller.City, seller.Zip, seller.Country,
			seller.Phone, seller.Email, seller.Website, seller.TaxID, seller.VatID,
			seller.BankName, seller.BankIBAN, seller.BankBIC, seller.LogoData,
			seller.InvoicePrefix, seller.NextInvoiceNumber, seller.PDFTemplate, seller.Color,
			seller.DefaultPaymentTerms, nullReal(seller.DefaultTaxRate), seller.Currency, seller.DefaultNote,
			seller.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update seller: %w", err)
		}
		return nil
	})
}

// DeleteSeller removes a seller that no invoice or product references.
func (s *SQLiteStore) DeleteSeller(ctx context.Context, id int64) error {
	return s.withTx(ctx, "delete seller", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "sellers", id)
		if err != nil {
			return err
		}
		if !ok {
			return &models.NotFoundError{Entity: "seller", ID: id}
		}

		n, err := count(ctx, tx, "SELECT COUNT(*) FROM invoices WHERE seller_id = ?", id)
		if err != nil {
			return err
		}
		if n > 0 {
			return &models.ReferenceError{Entity: "seller", ID: id, Field: "seller_id", Target: "invoices", Dependents: n}
		}
		n, err = count(ctx, tx, "SELECT COUNT(*) FROM products WHERE seller_id = ?", id)
		if err != nil {
			return err
		}
		if n > 0 {
			return &models.ReferenceError{Entity: "seller", ID: id, Field: "seller_id", Target: "products", Dependents: n}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM sellers WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete seller: %w", err)
		}
		return nil
	})
}

// IssueInvoiceNumber consumes the next counter value of a seller.
func (s *SQLiteStore) IssueInvoiceNumber(ctx context.Context, sellerID int64) (string, error) {
	var number string
	err := s.withTx(ctx, "issue invoice number", func(tx *sql.Tx) error {
		var err error
		number, err = s.issueNumber(ctx, tx, sellerID)
		return err
	})
	return number, err
}

// issueNumber increments the seller counter in a single statement and
// formats the consumed value. The write lock held by the surrounding
// transaction makes the read-modify-write indivisible. Numbers already taken
// by existing invoices are skipped, never reused.
func (s *SQLiteStore) issueNumber(ctx context.Context, tx *sql.Tx, sellerID int64) (string, error) {
	for i := 0; i < maxNumberSkips; i++ {
		var prefix string
		var counter int64
		err := tx.QueryRowContext(ctx,
			`UPDATE sellers SET next_invoice_number = COALESCE(next_invoice_number, 1) + 1
			 WHERE id = ?
			 RETURNING COALESCE(invoice_prefix, ''), next_invoice_number - 1`,
			sellerID,
		).Scan(&prefix, &counter)
		if errors.Is(err, sql.ErrNoRows) {
			return "", &models.NotFoundError{Entity: "seller", ID: sellerID}
		}
		if err != nil {
			return "", fmt.Errorf("failed to increment invoice counter: %w", err)
		}

		number := models.FormatInvoiceNumber(prefix, counter, s.numberWidth)
		taken, err := count(ctx, tx, "SELECT COUNT(*) FROM invoices WHERE seller_id = ? AND invoice_number = ?", sellerID, number)
		if err != nil {
			return "", err
		}
		if taken == 0 {
			return number, nil
		}
	}
	return "", fmt.Errorf("failed to issue invoice number for seller %d: %d consecutive numbers already taken", sellerID, maxNumberSkips)
}
