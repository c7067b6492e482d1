// Package finance derives summary figures from ledger records: per-entity
// returns, portfolio totals, cash-flow buckets, loan amortization, risk
// statistics, income tax and currency conversion.
//
// Every function is pure. Degenerate denominators (zero purchase price, zero
// initial amount, zero deviation, empty series) yield 0 instead of an error, so
// a 0 result does not by itself mean "no data"; callers that care must look at
// the size of their input.
package finance

import (
	"math"
	"time"

	"wealthtrack/internal/core"
)

const daysPerYear = 365.25

// PropertyROI returns the operating yield of a property as a percentage of its
// purchase price: (rent collected - property expenses) / purchase price.
func PropertyROI(p core.Property, rentals []core.RentalIncome, expenses []core.PropertyExpense) float64 {
	if p.PurchasePrice == 0 {
		return 0
	}
	net := sumRentals(rentals) - sumPropertyExpenses(expenses)
	return net / p.PurchasePrice * 100
}

// PropertyAppreciation returns the signed change in value against the purchase
// price, in percent.
func PropertyAppreciation(p core.Property) float64 {
	if p.PurchasePrice == 0 {
		return 0
	}
	return (p.Value() - p.PurchasePrice) / p.PurchasePrice * 100
}

// PropertyTotalReturn adds appreciation and ROI. Both are measured against the
// purchase price; the sum is not a blended or risk-adjusted return.
func PropertyTotalReturn(p core.Property, rentals []core.RentalIncome, expenses []core.PropertyExpense) float64 {
	return PropertyAppreciation(p) + PropertyROI(p, rentals, expenses)
}

// InvestmentROI returns the simple return of an investment in percent.
func InvestmentROI(inv core.Investment) float64 {
	if inv.InitialAmount == 0 {
		return 0
	}
	return (inv.CurrentValue - inv.InitialAmount) / inv.InitialAmount * 100
}

// AnnualizedReturn converts the total return between start and end into a
// compound annual rate, in percent. When no time has elapsed the simple total
// return is reported instead.
func AnnualizedReturn(initial, current float64, start, end time.Time) float64 {
	if initial == 0 {
		return 0
	}
	r := (current - initial) / initial
	years := ElapsedYears(start, end)
	if years <= 0 {
		return r * 100
	}
	return (math.Pow(1+r, 1/years) - 1) * 100
}

// ElapsedYears returns the number of calendar days between start and end
// divided by 365.25. Only the calendar dates matter, not the clock.
func ElapsedYears(start, end time.Time) float64 {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	days := math.Round(e.Sub(s).Hours() / 24)
	return days / daysPerYear
}

// InvestmentAnnualizedReturn annualizes an investment from its recorded date
// until now.
func InvestmentAnnualizedReturn(inv core.Investment, now time.Time) float64 {
	return AnnualizedReturn(inv.InitialAmount, inv.CurrentValue, inv.Date.Time, now)
}

func sumRentals(rentals []core.RentalIncome) float64 {
	var total float64
	for _, r := range rentals {
		total += r.Amount
	}
	return total
}

func sumPropertyExpenses(expenses []core.PropertyExpense) float64 {
	var total float64
	for _, e := range expenses {
		total += e.Amount
	}
	return total
}
