package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/vibebill/internal/models"
	"github.com/mmynk/vibebill/internal/storage"
)

// ReportService provides dashboard figures, revenue reports and exports.
type ReportService struct {
	store storage.Store
	run   *runner
}

// NewReportService creates a new ReportService with the given storage backend.
func NewReportService(store storage.Store, opts Options) *ReportService {
	return &ReportService{store: store, run: newRunner(opts)}
}

// Dashboard returns the summary figures of the start screen.
func (s *ReportService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	slog.Debug("Dashboard request received")

	stats, err := call(ctx, s.run, "dashboard_stats", s.store.DashboardStats)
	if err != nil {
		slog.Error("Dashboard failed", "error", err)
		return nil, err
	}
	return stats, nil
}

// MonthlyRevenue returns up to months months with revenue, oldest first.
func (s *ReportService) MonthlyRevenue(ctx context.Context, months int) ([]models.MonthRevenue, error) {
	return call(ctx, s.run, "monthly_revenue", func(ctx context.Context) ([]models.MonthRevenue, error) {
		return s.store.MonthlyRevenue(ctx, months)
	})
}

// TopCustomers returns the customers with the highest billed totals.
func (s *ReportService) TopCustomers(ctx context.Context, limit int) ([]models.CustomerRevenue, error) {
	return call(ctx, s.run, "top_customers", func(ctx context.Context) ([]models.CustomerRevenue, error) {
		return s.store.TopCustomers(ctx, limit)
	})
}

// RevenueBySellerYear returns the monthly revenue of a seller in one year.
func (s *ReportService) RevenueBySellerYear(ctx context.Context, sellerID int64, year int) ([]models.MonthRevenue, error) {
	return call(ctx, s.run, "revenue_by_seller_year", func(ctx context.Context) ([]models.MonthRevenue, error) {
		return s.store.RevenueBySellerYear(ctx, sellerID, year)
	})
}

// YearlyOverview lists the paid invoices of a seller in one year.
func (s *ReportService) YearlyOverview(ctx context.Context, sellerID int64, year int) (*models.YearlyOverview, error) {
	slog.Info("YearlyOverview request received", "seller_id", sellerID, "year", year)

	overview, err := call(ctx, s.run, "yearly_overview", func(ctx context.Context) (*models.YearlyOverview, error) {
		return s.store.YearlyOverview(ctx, sellerID, year)
	})
	if err != nil {
		slog.Error("YearlyOverview failed", "seller_id", sellerID, "year", year, "error", err)
		return nil, err
	}

	slog.Info("YearlyOverview successful",
		"seller_id", sellerID,
		"year", year,
		"invoices", len(overview.Invoices),
		"total_gross", overview.TotalGross,
	)
	return overview, nil
}
