package models

import "github.com/shopspring/decimal"

// DashboardStats summarizes all invoices for the start screen.
// Revenue counts invoices that were billed (sent) or paid.
type DashboardStats struct {
	TotalInvoices   int
	OpenInvoices    int
	PaidInvoices    int
	OverdueInvoices int
	TotalRevenue    decimal.Decimal
	MonthlyRevenue  decimal.Decimal
	OpenAmount      decimal.Decimal
}

// MonthRevenue is the gross revenue of one calendar month ("2006-01").
type MonthRevenue struct {
	Month   string
	Revenue decimal.Decimal
}

// CustomerRevenue is the billed gross total of one customer.
type CustomerRevenue struct {
	CustomerID int64
	Name       string
	Total      decimal.Decimal
	Count      int
}

// YearlyOverview lists the paid invoices of a seller in one year.
type YearlyOverview struct {
	SellerID   int64
	Year       int
	Invoices   []*Invoice
	TotalNet   decimal.Decimal
	TotalTax   decimal.Decimal
	TotalGross decimal.Decimal
}
