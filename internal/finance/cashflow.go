package finance

import (
	"fmt"
	"sort"
	"time"

	"wealthtrack/internal/core"
)

// Period is a reporting window ending now.
type Period string

const (
	Period1M Period = "1m"
	Period3M Period = "3m"
	Period6M Period = "6m"
	Period1Y Period = "1y"

	DefaultPeriod = Period6M
)

// RentalIncomeCategory is the synthetic income bucket holding property rent.
// It is deliberately different from core.IncomeRental.
const RentalIncomeCategory = "rental_income"

// ParsePeriod maps a query value to a Period; unknown values mean 6 months.
func ParsePeriod(s string) Period {
	switch p := Period(s); p {
	case Period1M, Period3M, Period6M, Period1Y:
		return p
	}
	return DefaultPeriod
}

// Months is the length of the period in calendar months.
func (p Period) Months() int {
	switch ParsePeriod(string(p)) {
	case Period1M:
		return 1
	case Period3M:
		return 3
	case Period1Y:
		return 12
	}
	return 6
}

// DateRangeForPeriod returns [now - period, now]. Months are subtracted on the
// calendar: the year rolls back when needed and the day is clamped to the end
// of a shorter month (March 31 minus one month is February 28 or 29).
func DateRangeForPeriod(period Period, now time.Time) (start, end time.Time) {
	return AddMonths(now, -period.Months()), now
}

// AddMonths moves t by n calendar months keeping the clock, clamping the day to
// the length of the target month.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > last {
		d = last
	}
	hh, mm, ss := t.Clock()
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

// FilterByDateRange keeps the records dated within [start, end].
func FilterByDateRange[T any](records []T, dateOf func(T) time.Time, start, end time.Time) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		d := dateOf(r)
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SumByCategory totals amounts per category. Keys are compared verbatim.
func SumByCategory[T any](records []T, categoryOf func(T) string, amountOf func(T) float64) map[string]float64 {
	out := make(map[string]float64)
	for _, r := range records {
		out[categoryOf(r)] += amountOf(r)
	}
	return out
}

// SumByMonth totals amounts per YYYY-MM month key.
func SumByMonth[T any](records []T, dateOf func(T) time.Time, amountOf func(T) float64) map[string]float64 {
	out := make(map[string]float64)
	for _, r := range records {
		out[MonthKey(dateOf(r))] += amountOf(r)
	}
	return out
}

// MonthKey formats the calendar month of t, in t's own location, as YYYY-MM.
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// MergeRentalIntoIncome adds the rental series into the general income series
// month by month. Neither input is modified.
func MergeRentalIntoIncome(general, rental map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(general)+len(rental))
	for k, v := range general {
		out[k] += v
	}
	for k, v := range rental {
		out[k] += v
	}
	return out
}

// MonthPoint is one month of a cash-flow series.
type MonthPoint struct {
	Month    string  `json:"month"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Profit   float64 `json:"profit"`
}

// CashFlow is the cash-flow breakdown of a date range.
type CashFlow struct {
	Start              time.Time          `json:"start"`
	End                time.Time          `json:"end"`
	TotalIncome        float64            `json:"totalIncome"`
	TotalRentalIncome  float64            `json:"totalRentalIncome"`
	TotalExpenses      float64            `json:"totalExpenses"`
	NetCashFlow        float64            `json:"netCashFlow"`
	IncomeByCategory   map[string]float64 `json:"incomeByCategory"`
	ExpensesByCategory map[string]float64 `json:"expensesByCategory"`
	RentalByMonth      map[string]float64 `json:"rentalByMonth"`
	Monthly            []MonthPoint       `json:"monthly"`
}

func incomeDate(i core.Income) time.Time       { return i.Date.Time }
func incomeAmount(i core.Income) float64       { return i.Amount }
func expenseDate(e core.Expense) time.Time     { return e.Date.Time }
func expenseAmount(e core.Expense) float64     { return e.Amount }
func rentalDate(r core.RentalIncome) time.Time { return r.Date.Time }
func rentalAmount(r core.RentalIncome) float64 { return r.Amount }

// BuildCashFlow filters the records to [start, end] and buckets them.
//
// Income categories come from the income records; rent collected on
// properties is added under RentalIncomeCategory and folded into the monthly
// income series. The monthly series is sparse: only months holding at least one
// record appear, in ascending order.
func BuildCashFlow(incomes []core.Income, expenses []core.Expense, rentals []core.RentalIncome, start, end time.Time) CashFlow {
	incomes = FilterByDateRange(incomes, incomeDate, start, end)
	expenses = FilterByDateRange(expenses, expenseDate, start, end)
	rentals = FilterByDateRange(rentals, rentalDate, start, end)

	cf := CashFlow{
		Start: start,
		End:   end,
		IncomeByCategory: SumByCategory(incomes,
			func(i core.Income) string { return string(i.Category) }, incomeAmount),
		ExpensesByCategory: SumByCategory(expenses,
			func(e core.Expense) string { return string(e.Category) }, expenseAmount),
		RentalByMonth: SumByMonth(rentals, rentalDate, rentalAmount),
	}

	for _, r := range rentals {
		cf.TotalRentalIncome += r.Amount
	}
	if len(rentals) > 0 {
		cf.IncomeByCategory[RentalIncomeCategory] += cf.TotalRentalIncome
	}
	for _, i := range incomes {
		cf.TotalIncome += i.Amount
	}
	cf.TotalIncome += cf.TotalRentalIncome
	for _, e := range expenses {
		cf.TotalExpenses += e.Amount
	}
	cf.NetCashFlow = cf.TotalIncome - cf.TotalExpenses

	incomeByMonth := MergeRentalIntoIncome(SumByMonth(incomes, incomeDate, incomeAmount), cf.RentalByMonth)
	expensesByMonth := SumByMonth(expenses, expenseDate, expenseAmount)
	cf.Monthly = sparseSeries(incomeByMonth, expensesByMonth)
	return cf
}

func sparseSeries(income, expenses map[string]float64) []MonthPoint {
	keys := make([]string, 0, len(income)+len(expenses))
	for k := range income {
		keys = append(keys, k)
	}
	for k := range expenses {
		if _, ok := income[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]MonthPoint, 0, len(keys))
	for _, k := range keys {
		out = append(out, MonthPoint{
			Month:    k,
			Income:   income[k],
			Expenses: expenses[k],
			Profit:   income[k] - expenses[k],
		})
	}
	return out
}

// MonthlyIncomeExpenseSeries returns exactly twelve points, January to
// December of year, with zeros for months without records. Rent collected on
// properties counts as income.
func MonthlyIncomeExpenseSeries(incomes []core.Income, expenses []core.Expense, rentals []core.RentalIncome, year int) []MonthPoint {
	incomeByMonth := MergeRentalIntoIncome(
		SumByMonth(incomes, incomeDate, incomeAmount),
		SumByMonth(rentals, rentalDate, rentalAmount))
	expensesByMonth := SumByMonth(expenses, expenseDate, expenseAmount)

	out := make([]MonthPoint, 12)
	for m := 1; m <= 12; m++ {
		k := fmt.Sprintf("%04d-%02d", year, m)
		out[m-1] = MonthPoint{
			Month:    k,
			Income:   incomeByMonth[k],
			Expenses: expensesByMonth[k],
			Profit:   incomeByMonth[k] - expensesByMonth[k],
		}
	}
	return out
}

// SavingsRate is the share of income left after expenses, in percent.
func SavingsRate(income, expenses float64) float64 {
	if income == 0 {
		return 0
	}
	return (income - expenses) / income * 100
}
