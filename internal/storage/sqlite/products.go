package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/vibebill/internal/models"
)

const productColumns = `id, seller_id, name, COALESCE(description, ''), type, COALESCE(unit, ''),
	price_net, tax_rate, COALESCE(stock, 0), COALESCE(active, 1), COALESCE(created_at, '')`

func scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {
	p := &models.Product{}
	var kind string
	err := row.Scan(&p.ID, &p.SellerID, &p.Name, &p.Description, &kind, &p.Unit,
		&p.PriceNet, &p.TaxRate, &p.Stock, &p.Active, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Kind = models.ProductKind(kind)
	return p, nil
}

func productSellerMissing(p *models.Product) error {
	return &models.ReferenceError{Entity: "product", ID: p.ID, Field: "seller_id", Target: "seller", TargetID: p.SellerID}
}

// CreateProduct persists a new catalog product.
func (s *SQLiteStore) CreateProduct(ctx context.Context, product *models.Product) error {
	product.Normalize()
	if err := product.Validate(); err != nil {
		return err
	}

	return s.withTx(ctx, "create product", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "sellers", product.SellerID)
		if err != nil {
			return err
		}
		if !ok {
			return productSellerMissing(product)
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO products (seller_id, name, description, type, unit, price_net, tax_rate, stock, active)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 RETURNING id, COALESCE(created_at, '')`,
			product.SellerID, product.Name, product.Description, string(product.Kind), product.Unit,
			toReal(product.PriceNet), toReal(product.TaxRate), product.Stock, product.Active,
		).Scan(&product.ID, &product.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert product: %w", err)
		}
		return nil
	})
}

// GetProduct retrieves a product by ID.
func (s *SQLiteStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := scanProduct(s.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "product", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// ListProducts returns products ordered by name, optionally for one seller.
func (s *SQLiteStore) ListProducts(ctx context.Context, sellerID int64) ([]*models.Product, error) {
	query := "SELECT " + productColumns + " FROM products"
	var args []any
	if sellerID != 0 {
		query += " WHERE seller_id = ?"
		args = append(args, sellerID)
	}
	query += " ORDER BY name, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

// UpdateProduct overwrites a product. Existing invoice items keep their
// copied price until ReapplyProductPricing is called for their invoice.
func (s *SQLiteStore) UpdateProduct(ctx context.Context, product *models.Product) error {
	product.Normalize()
	if err := product.Validate(); err != nil {
		return err
	}

	return s.withTx(ctx, "update product", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "sellers", product.SellerID)
		if err != nil {
			return err
		}
		if !ok {
			return productSellerMissing(product)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE products SET seller_id = ?, name = ?, description = ?, type = ?, unit = ?,
				price_net = ?, tax_rate = ?, stock = ?, active = ?
			 WHERE id = ?`,
			product.SellerID, product.Name, product.Description, string(product.Kind), product.Unit,
			toReal(product.PriceNet), toReal(product.TaxRate), product.Stock, product.Active, product.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &models.NotFoundError{Entity: "product", ID: product.ID}
		}
		return nil
	})
}

// DeleteProduct unlinks the product from invoice items and deletes it.
func (s *SQLiteStore) DeleteProduct(ctx context.Context, id int64) error {
	return s.withTx(ctx, "delete product", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "products", id)
		if err != nil {
			return err
		}
		if !ok {
			return &models.NotFoundError{Entity: "product", ID: id}
		}

		if _, err := tx.ExecContext(ctx, "UPDATE invoice_items SET product_id = NULL WHERE product_id = ?", id); err != nil {
			return fmt.Errorf("failed to unlink invoice items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return nil
	})
}
