// Package report implements the time-window filtering and financial
// aggregation over the sales ledger and product catalog. Everything here is
// pure: callers pass the collections and the clock, nothing is cached.
package report

import (
	"time"

	"kitani/backend/internal/domain"
)

type Filter string

const (
	FilterDay    Filter = "day"
	FilterWeek   Filter = "week"
	FilterMonth  Filter = "month"
	FilterAll    Filter = "all"
	FilterCustom Filter = "custom"
)

// TitheRate is the fixed informational deduction applied to window profit.
const TitheRate = 0.10

// Range bounds a custom filter. Zero values mean the bound is missing, in
// which case custom filtering degrades to the unfiltered set.
type Range struct {
	Start time.Time
	End   time.Time
}

// ParseFilter falls back to FilterAll for unknown selectors.
func ParseFilter(raw string) Filter {
	switch Filter(raw) {
	case FilterDay, FilterWeek, FilterMonth, FilterAll, FilterCustom:
		return Filter(raw)
	default:
		return FilterAll
	}
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}

// NormalizeSaleDate pins a sale timestamp to 12:00 UTC of its calendar day so
// timezone boundaries cannot shift it into a neighboring day.
func NormalizeSaleDate(t time.Time) time.Time {
	return Day(t).Add(12 * time.Hour)
}

// WeekStart returns the Monday of the ISO week containing day.
func WeekStart(day time.Time) time.Time {
	day = Day(day)
	wd := int(day.Weekday())
	if wd == 0 {
		// Sunday belongs to the week that started six days earlier.
		return day.AddDate(0, 0, -6)
	}
	return day.AddDate(0, 0, -(wd - 1))
}

// FilterSales selects the sales falling inside the requested window relative
// to now. All selectors except custom compare calendar days; custom compares
// the raw sale timestamp against start-of-day and end-of-day bounds.
func FilterSales(sales []domain.Sale, filter Filter, rng Range, now time.Time) []domain.Sale {
	switch filter {
	case FilterAll:
		return sales
	case FilterCustom:
		if rng.Start.IsZero() || rng.End.IsZero() {
			return sales
		}
		start := Day(rng.Start)
		end := Day(rng.End).Add(24*time.Hour - time.Nanosecond)
		filtered := make([]domain.Sale, 0, len(sales))
		for _, sale := range sales {
			if !sale.Date.Before(start) && !sale.Date.After(end) {
				filtered = append(filtered, sale)
			}
		}
		return filtered
	}

	today := Day(now)
	filtered := make([]domain.Sale, 0, len(sales))
	for _, sale := range sales {
		day := Day(sale.Date)
		switch filter {
		case FilterDay:
			if day.Equal(today) {
				filtered = append(filtered, sale)
			}
		case FilterWeek:
			start := WeekStart(today)
			if !day.Before(start) && !day.After(today) {
				filtered = append(filtered, sale)
			}
		case FilterMonth:
			if day.Month() == today.Month() && day.Year() == today.Year() {
				filtered = append(filtered, sale)
			}
		}
	}
	return filtered
}

// Summarize computes the window aggregates from the filtered sales plus the
// inventory valuation over the full catalog. Profit sums the stored per-sale
// snapshots, so later product edits never change historical figures.
func Summarize(filter Filter, filtered []domain.Sale, products []domain.Product, lowStockThreshold int) domain.Summary {
	summary := domain.Summary{
		Filter:   string(filter),
		LowStock: []domain.Product{},
	}

	for _, sale := range filtered {
		summary.TotalSales += sale.SellingPrice * float64(sale.Quantity)
		summary.TotalProfit += sale.Profit
	}
	summary.Tithe = summary.TotalProfit * TitheRate

	for _, product := range products {
		summary.TotalInventoryValue += product.CostPrice * float64(product.Stock)
		summary.PotentialRevenue += product.SellingPrice * float64(product.Stock)
		summary.TotalStockUnits += product.Stock
		if product.Stock < lowStockThreshold {
			summary.LowStock = append(summary.LowStock, product)
		}
	}
	summary.PotentialProfit = summary.PotentialRevenue - summary.TotalInventoryValue
	summary.ProductCount = len(products)

	return summary
}
