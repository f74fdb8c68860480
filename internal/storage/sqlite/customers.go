package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/vibebill/internal/models"
)

const customerColumns = `id, name, COALESCE(street, ''), COALESCE(city, ''), COALESCE(zip, ''),
	COALESCE(country, ''), COALESCE(phone, ''), COALESCE(email, ''), COALESCE(notes, ''),
	COALESCE(created_at, '')`

func scanCustomer(row interface{ Scan(...any) error }) (*models.Customer, error) {
	c := &models.Customer{}
	err := row.Scan(&c.ID, &c.Name, &c.Street, &c.City, &c.Zip, &c.Country, &c.Phone, &c.Email, &c.Notes, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCustomer persists a new customer.
func (s *SQLiteStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	if err := customer.Validate(); err != nil {
		return err
	}
	if customer.Country == "" {
		customer.Country = models.DefaultCountry
	}

	return s.withTx(ctx, "create customer", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO customers (name, street, city, zip, country, phone, email, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 RETURNING id, COALESCE(created_at, '')`,
			customer.Name, customer.Street, customer.City, customer.Zip, customer.Country,
			customer.Phone, customer.Email, customer.Notes,
		).Scan(&customer.ID, &customer.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert customer: %w", err)
		}
		return nil
	})
}

// GetCustomer retrieves a customer by ID.
func (s *SQLiteStore) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	customer, err := scanCustomer(s.db.QueryRowContext(ctx, "SELECT "+customerColumns+" FROM customers WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "customer", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return customer, nil
}

// ListCustomers returns all customers ordered by name.
func (s *SQLiteStore) ListCustomers(ctx context.Context) ([]*models.Customer, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+customerColumns+" FROM customers ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customers: %w", err)
	}
	return customers, nil
}

// UpdateCustomer overwrites a customer.
func (s *SQLiteStore) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	if err := customer.Validate(); err != nil {
		return err
	}

	return s.withTx(ctx, "update customer", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE customers SET name = ?, street = ?, city = ?, zip = ?, country = ?, phone = ?, email = ?, notes = ?
			 WHERE id = ?`,
			customer.Name, customer.Street, customer.City, customer.Zip, customer.Country,
			customer.Phone, customer.Email, customer.Notes, customer.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update customer: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &models.NotFoundError{Entity: "customer", ID: customer.ID}
		}
		return nil
	})
}

// DeleteCustomer removes a customer that no invoice references.
func (s *SQLiteStore) DeleteCustomer(ctx context.Context, id int64) error {
	return s.withTx(ctx, "delete customer", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "customers", id)
		if err != nil {
			return err
		}
		if !ok {
			return &models.NotFoundError{Entity: "customer", ID: id}
		}

		n, err := count(ctx, tx, "SELECT COUNT(*) FROM invoices WHERE customer_id = ?", id)
		if err != nil {
			return err
		}
		if n > 0 {
			return &models.ReferenceError{Entity: "customer", ID: id, Field: "customer_id", Target: "invoices", Dependents: n}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM customers WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete customer: %w", err)
		}
		return nil
	})
}
