package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period is an analytics window ending now.
type Period string

const (
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
)

// TopProductsLimit caps the top products list.
const TopProductsLimit = 10

// ParsePeriod maps s to a Period; anything unrecognized is a month.
func ParsePeriod(s string) Period {
	switch p := Period(s); p {
	case PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear:
		return p
	default:
		return PeriodMonth
	}
}

// Start returns the first instant of the period containing now. Weeks are
// the trailing seven days; the other periods start on calendar boundaries
// in now's location.
func (p Period) Start(now time.Time) time.Time {
	y, m, _ := now.Date()
	loc := now.Location()
	switch p {
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodQuarter:
		q := time.Month((int(m)-1)/3*3 + 1)
		return time.Date(y, q, 1, 0, 0, 0, 0, loc)
	case PeriodYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	}
}

// SalesSummary aggregates the sales in a window.
type SalesSummary struct {
	TotalSales        int             `json:"totalSales"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
	TotalItems        int             `json:"totalItems"`
}

// ProductSales is one row of the top products list, grouped by item name.
type ProductSales struct {
	Name          string          `json:"name"`
	TotalQuantity decimal.Decimal `json:"totalQuantity"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
}

// StatusCount is the number of sales in one status.
type StatusCount struct {
	Status SaleStatus `json:"status"`
	Count  int        `json:"count"`
}

// SalesAnalytics is the analytics report for a farm and period.
type SalesAnalytics struct {
	FarmID        string         `json:"farmId"`
	Period        Period         `json:"period"`
	StartDate     time.Time      `json:"startDate"`
	EndDate       time.Time      `json:"endDate"`
	Summary       SalesSummary   `json:"summary"`
	TopProducts   []ProductSales `json:"topProducts"`
	SalesByStatus []StatusCount  `json:"salesByStatus"`
}
