package finance

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"wealthtrack/internal/core"
)

// MonthlyPayment returns the fixed payment of a fully amortizing loan. With a
// zero rate the principal is spread evenly over the term. A non-positive term
// yields 0.
func MonthlyPayment(principal, annualRatePercent float64, years int) float64 {
	n := years * 12
	if n <= 0 {
		return 0
	}
	if annualRatePercent == 0 {
		return principal / float64(n)
	}
	r := annualRatePercent / 100 / 12
	f := math.Pow(1+r, float64(n))
	return principal * r * f / (f - 1)
}

// RemainingBalance projects the balance after monthsPaid payments. The result
// never goes below 0; an overpaid loan reports 0, not a credit.
func RemainingBalance(original, payment, annualRatePercent float64, monthsPaid int) float64 {
	var balance float64
	if annualRatePercent == 0 {
		balance = original - payment*float64(monthsPaid)
	} else {
		r := annualRatePercent / 100 / 12
		f := math.Pow(1+r, float64(monthsPaid))
		balance = original*f - payment*(f-1)/r
	}
	return math.Max(balance, 0)
}

// AmortizationRow is one month of a repayment schedule.
type AmortizationRow struct {
	Number    int       `json:"number"`
	Date      core.Date `json:"date"`
	Payment   float64   `json:"payment"`
	Principal float64   `json:"principal"`
	Interest  float64   `json:"interest"`
	Balance   float64   `json:"balance"`
}

// AmortizationSchedule lists every payment of the loan, first due one month
// after start. Amounts are kept in cents; the last payment absorbs the rounding
// so the final balance is exactly 0.
func AmortizationSchedule(principal, annualRatePercent float64, years int, start time.Time) []AmortizationRow {
	n := years * 12
	if n <= 0 || principal <= 0 || !finite(principal) || !finite(annualRatePercent) {
		return nil
	}
	monthly := MonthlyPayment(principal, annualRatePercent, years)
	if !finite(monthly) {
		return nil
	}
	payment := decimal.NewFromFloat(monthly).Round(2)
	rate := decimal.NewFromFloat(annualRatePercent).Div(decimal.NewFromInt(1200))
	balance := decimal.NewFromFloat(principal).Round(2)

	rows := make([]AmortizationRow, 0, n)
	for i := 1; i <= n; i++ {
		interest := balance.Mul(rate).Round(2)
		principalPart := payment.Sub(interest)
		if i == n || principalPart.GreaterThan(balance) {
			principalPart = balance
		}
		balance = balance.Sub(principalPart)
		rows = append(rows, AmortizationRow{
			Number:    i,
			Date:      core.Date{Time: AddMonths(start, i)},
			Payment:   principalPart.Add(interest).InexactFloat64(),
			Principal: principalPart.InexactFloat64(),
			Interest:  interest.InexactFloat64(),
			Balance:   balance.InexactFloat64(),
		})
		if balance.IsZero() {
			break
		}
	}
	return rows
}

// MonthsBetween counts the whole calendar months from start to end, 0 when end
// is before start.
func MonthsBetween(start, end time.Time) int {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// MortgageProjection compares a mortgage's recorded balance with the balance
// its payment schedule implies today.
type MortgageProjection struct {
	MortgageID      string  `json:"mortgageId"`
	PropertyID      string  `json:"propertyId"`
	MonthsPaid      int     `json:"monthsPaid"`
	RecordedBalance float64 `json:"recordedBalance"`
	ExpectedBalance float64 `json:"expectedBalance"`
	Drift           float64 `json:"drift"`
}

// ProjectMortgage recomputes the expected balance of m at now. Recorded
// balances are not trusted to be current, so Drift reports the difference.
func ProjectMortgage(m core.Mortgage, now time.Time) MortgageProjection {
	months := MonthsBetween(m.StartDate.Time, now)
	expected := RemainingBalance(m.OriginalAmount, m.MonthlyPayment, m.InterestRate, months)
	return MortgageProjection{
		MortgageID:      m.ID,
		PropertyID:      m.PropertyID,
		MonthsPaid:      months,
		RecordedBalance: m.CurrentBalance,
		ExpectedBalance: expected,
		Drift:           m.CurrentBalance - expected,
	}
}
