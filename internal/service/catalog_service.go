package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/vibebill/internal/models"
	"github.com/mmynk/vibebill/internal/storage"
)

// CatalogService manages sellers, customers and products.
type CatalogService struct {
	store storage.Store
	run   *runner
}

// NewCatalogService creates a new CatalogService with the given storage backend.
func NewCatalogService(store storage.Store, opts Options) *CatalogService {
	return &CatalogService{store: store, run: newRunner(opts)}
}

// CreateSeller persists a new seller; seller.ID is populated.
func (s *CatalogService) CreateSeller(ctx context.Context, seller *models.Seller) error {
	slog.Info("CreateSeller request received", "name", seller.Name, "invoice_prefix", seller.InvoicePrefix)

	err := s.run.do(ctx, "create_seller", func(ctx context.Context) error {
		return s.store.CreateSeller(ctx, seller)
	})
	if err != nil {
		slog.Error("CreateSeller failed", "name", seller.Name, "error", err)
		return err
	}

	slog.Info("CreateSeller successful", "seller_id", seller.ID)
	return nil
}

// GetSeller retrieves a seller.
func (s *CatalogService) GetSeller(ctx context.Context, id int64) (*models.Seller, error) {
	return call(ctx, s.run, "get_seller", func(ctx context.Context) (*models.Seller, error) {
		return s.store.GetSeller(ctx, id)
	})
}

// ListSellers returns all sellers.
func (s *CatalogService) ListSellers(ctx context.Context) ([]*models.Seller, error) {
	return call(ctx, s.run, "list_sellers", s.store.ListSellers)
}

// UpdateSeller overwrites a seller.
func (s *CatalogService) UpdateSeller(ctx context.Context, seller *models.Seller) error {
	slog.Info("UpdateSeller request received", "seller_id", seller.ID, "next_invoice_number", seller.NextInvoiceNumber)

	err := s.run.do(ctx, "update_seller", func(ctx context.Context) error {
		return s.store.UpdateSeller(ctx, seller)
	})
	if err != nil {
		slog.Error("UpdateSeller failed", "seller_id", seller.ID, "error", err)
		return err
	}
	return nil
}

// DeleteSeller removes an unreferenced seller.
func (s *CatalogService) DeleteSeller(ctx context.Context, id int64) error {
	slog.Info("DeleteSeller request received", "seller_id", id)

	err := s.run.do(ctx, "delete_seller", func(ctx context.Context) error {
		return s.store.DeleteSeller(ctx, id)
	})
	if err != nil {
		slog.Error("DeleteSeller failed", "seller_id", id, "error", err)
		return err
	}
	return nil
}

// CreateCustomer persists a new customer; customer.ID is populated.
func (s *CatalogService) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	slog.Info("CreateCustomer request received", "name", customer.Name)

	err := s.run.do(ctx, "create_customer", func(ctx context.Context) error {
		return s.store.CreateCustomer(ctx, customer)
	})
	if err != nil {
		slog.Error("CreateCustomer failed", "name", customer.Name, "error", err)
		return err
	}

	slog.Info("CreateCustomer successful", "customer_id", customer.ID)
	return nil
}

// GetCustomer retrieves a customer.
func (s *CatalogService) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	return call(ctx, s.run, "get_customer", func(ctx context.Context) (*models.Customer, error) {
		return s.store.GetCustomer(ctx, id)
	})
}

// ListCustomers returns all customers.
func (s *CatalogService) ListCustomers(ctx context.Context) ([]*models.Customer, error) {
	return call(ctx, s.run, "list_customers", s.store.ListCustomers)
}

// UpdateCustomer overwrites a customer.
func (s *CatalogService) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	slog.Info("UpdateCustomer request received", "customer_id", customer.ID)

	err := s.run.do(ctx, "update_customer", func(ctx context.Context) error {
		return s.store.UpdateCustomer(ctx, customer)
	})
	if err != nil {
		slog.Error("UpdateCustomer failed", "customer_id", customer.ID, "error", err)
		return err
	}
	return nil
}

// DeleteCustomer removes an unreferenced customer.
func (s *CatalogService) DeleteCustomer(ctx context.Context, id int64) error {
	slog.Info("DeleteCustomer request received", "customer_id", id)

	err := s.run.do(ctx, "delete_customer", func(ctx context.Context) error {
		return s.store.DeleteCustomer(ctx, id)
	})
	if err != nil {
		slog.Error("DeleteCustomer failed", "customer_id", id, "error", err)
		return err
	}
	return nil
}

// CreateProduct persists a new product; product.ID is populated.
func (s *CatalogService) CreateProduct(ctx context.Context, product *models.Product) error {
	slog.Info("CreateProduct request received",
		"seller_id", product.SellerID,
		"name", product.Name,
		"type", product.Kind,
		"price_net", product.PriceNet,
	)

	err := s.run.do(ctx, "create_product", func(ctx context.Context) error {
		return s.store.CreateProduct(ctx, product)
	})
	if err != nil {
		slog.Error("CreateProduct failed", "name", product.Name, "error", err)
		return err
	}

	slog.Info("CreateProduct successful", "product_id", product.ID)
	return nil
}

// GetProduct retrieves a product.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return call(ctx, s.run, "get_product", func(ctx context.Context) (*models.Product, error) {
		return s.store.GetProduct(ctx, id)
	})
}

// ListProducts returns the products of a seller, or all for sellerID 0.
func (s *CatalogService) ListProducts(ctx context.Context, sellerID int64) ([]*models.Product, error) {
	return call(ctx, s.run, "list_products", func(ctx context.Context) ([]*models.Product, error) {
		return s.store.ListProducts(ctx, sellerID)
	})
}

// UpdateProduct overwrites a product. Existing invoice items keep their price.
func (s *CatalogService) UpdateProduct(ctx context.Context, product *models.Product) error {
	slog.Info("UpdateProduct request received", "product_id", product.ID, "price_net", product.PriceNet)

	err := s.run.do(ctx, "update_product", func(ctx context.Context) error {
		return s.store.UpdateProduct(ctx, product)
	})
	if err != nil {
		slog.Error("UpdateProduct failed", "product_id", product.ID, "error", err)
		return err
	}
	return nil
}

// DeleteProduct unlinks and deletes a product.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	slog.Info("DeleteProduct request received", "product_id", id)

	err := s.run.do(ctx, "delete_product", func(ctx context.Context) error {
		return s.store.DeleteProduct(ctx, id)
	})
	if err != nil {
		slog.Error("DeleteProduct failed", "product_id", id, "error", err)
		return err
	}
	return nil
}
