package sqlite

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/vibebill/internal/models"
)

// billed matches invoices that count as revenue.
const billed = "status IN ('paid', 'sent')"

// DashboardStats summarizes all invoices.
func (s *SQLiteStore) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	monthStart := s.today().Format("2006-01") + "-01"

	var stats models.DashboardStats
	var revenue, monthly, open float64
	err := s.db.QueryRowContext(ctx,
		`SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'draft' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN `+billed+` THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'overdue' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN `+billed+` THEN total_gross ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN `+billed+` AND date >= ? THEN total_gross ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status IN ('draft', 'overdue') THEN total_gross ELSE 0 END), 0)
		 FROM invoices`,
		monthStart,
	).Scan(&stats.TotalInvoices, &stats.OpenInvoices, &stats.PaidInvoices, &stats.OverdueInvoices,
		&revenue, &monthly, &open)
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard stats: %w", err)
	}
	stats.TotalRevenue = money(revenue)
	stats.MonthlyRevenue = money(monthly)
	stats.OpenAmount = money(open)
	return &stats, nil
}

// MonthlyRevenue returns the most recent months with revenue, oldest first.
func (s *SQLiteStore) MonthlyRevenue(ctx context.Context, months int) ([]models.MonthRevenue, error) {
	if months <= 0 {
		months = 12
	}
	result, err := s.monthRevenue(ctx,
		`SELECT strftime('%Y-%m', date) AS month, COALESCE(SUM(total_gross), 0)
		 FROM invoices WHERE `+billed+`
		 GROUP BY month ORDER BY month DESC LIMIT ?`,
		months,
	)
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month < result[j].Month })
	return result, nil
}

// RevenueBySellerYear returns the monthly revenue of a seller in one year.
func (s *SQLiteStore) RevenueBySellerYear(ctx context.Context, sellerID int64, year int) ([]models.MonthRevenue, error) {
	return s.monthRevenue(ctx,
		`SELECT strftime('%Y-%m', date) AS month, COALESCE(SUM(total_gross), 0)
		 FROM invoices
		 WHERE seller_id = ? AND strftime('%Y', date) = ? AND `+billed+`
		 GROUP BY month ORDER BY month`,
		sellerID, fmt.Sprintf("%04d", year),
	)
}

func (s *SQLiteStore) monthRevenue(ctx context.Context, query string, args ...any) ([]models.MonthRevenue, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly revenue: %w", err)
	}
	defer rows.Close()

	var result []models.MonthRevenue
	for rows.Next() {
		var m models.MonthRevenue
		var revenue float64
		if err := rows.Scan(&m.Month, &revenue); err != nil {
			return nil, fmt.Errorf("failed to scan monthly revenue: %w", err)
		}
		m.Revenue = money(revenue)
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate monthly revenue: %w", err)
	}
	return result, nil
}

// TopCustomers returns the customers with the highest billed totals.
func (s *SQLiteStore) TopCustomers(ctx context.Context, limit int) ([]models.CustomerRevenue, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.name, COALESCE(SUM(i.total_gross), 0) AS total, COUNT(i.id)
		 FROM invoices i
		 JOIN customers c ON i.customer_id = c.id
		 WHERE i.`+billed+`
		 GROUP BY c.id
		 ORDER BY total DESC, c.name LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get top customers: %w", err)
	}
	defer rows.Close()

	var result []models.CustomerRevenue
	for rows.Next() {
		var c models.CustomerRevenue
		var total float64
		if err := rows.Scan(&c.CustomerID, &c.Name, &total, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan top customer: %w", err)
		}
		c.Total = money(total)
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top customers: %w", err)
	}
	return result, nil
}

// YearlyOverview lists the paid invoices of a seller in one year, oldest
// first, with summed totals.
func (s *SQLiteStore) YearlyOverview(ctx context.Context, sellerID int64, year int) (*models.YearlyOverview, error) {
	if _, err := s.GetSeller(ctx, sellerID); err != nil {
		return nil, err
	}
	invoices, err := s.ListInvoices(ctx, models.InvoiceFilter{SellerID: sellerID, Status: models.StatusPaid, Year: year})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(invoices, func(i, j int) bool { return invoices[i].Date < invoices[j].Date })

	overview := &models.YearlyOverview{
		SellerID:   sellerID,
		Year:       year,
		Invoices:   invoices,
		TotalNet:   decimal.Zero,
		TotalTax:   decimal.Zero,
		TotalGross: decimal.Zero,
	}
	for _, inv := range invoices {
		overview.TotalNet = overview.TotalNet.Add(inv.TotalNet)
		overview.TotalTax = overview.TotalTax.Add(inv.TotalTax)
		overview.TotalGross = overview.TotalGross.Add(inv.TotalGross)
	}
	return overview, nil
}
