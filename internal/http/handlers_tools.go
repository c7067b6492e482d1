package http

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"wealthtrack/internal/finance"
	"wealthtrack/internal/services"
)

const maxYears = 50

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", services.ErrValidation, fmt.Sprintf(format, args...))
}

type mortgageQuote struct {
	Principal      float64                   `json:"principal"`
	AnnualRate     float64                   `json:"annualRate"`
	Years          int                       `json:"years"`
	MonthlyPayment float64                   `json:"monthlyPayment"`
	TotalPaid      float64                   `json:"totalPaid"`
	TotalInterest  float64                   `json:"totalInterest"`
	Formatted      map[string]string         `json:"formatted"`
	Schedule       []finance.AmortizationRow `json:"schedule,omitempty"`
}

// handleMortgageTool quotes the monthly payment of a loan. schedule=true adds
// the full amortization table.
func (s *Server) handleMortgageTool(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParams(r)
	principal := q.Float("principal", 0)
	rate := q.Float("rate", 0)
	years := q.Int("years", 0)
	start := q.Date("start")
	withSchedule := q.String("schedule", "") == "true"
	if err := q.Err(); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	switch {
	case principal <= 0:
		ErrorFor(r, invalid("principal must be positive")).Write(w)
		return
	case rate < 0 || rate > 100:
		ErrorFor(r, invalid("rate must be between 0 and 100")).Write(w)
		return
	case years <= 0 || years > maxYears:
		ErrorFor(r, invalid("years must be between 1 and %d", maxYears)).Write(w)
		return
	}
	if start.IsZero() {
		now := time.Now().UTC()
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	schedule := finance.AmortizationSchedule(principal, rate, years, start)
	quote := mortgageQuote{
		Principal:      principal,
		AnnualRate:     rate,
		Years:          years,
		MonthlyPayment: finance.MonthlyPayment(principal, rate, years),
	}
	for _, row := range schedule {
		quote.TotalPaid += row.Payment
		quote.TotalInterest += row.Interest
	}
	cur := s.reports.BaseCurrency()
	quote.Formatted = map[string]string{
		"monthlyPayment": s.formatted(quote.MonthlyPayment, cur),
		"totalPaid":      s.formatted(quote.TotalPaid, cur),
		"totalInterest":  s.formatted(quote.TotalInterest, cur),
	}
	if withSchedule {
		quote.Schedule = schedule
	}
	NewResponse().JSON(quote).Write(w)
}

// handleTaxTool estimates income tax on an annual income.
func (s *Server) handleTaxTool(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParams(r)
	income := q.Float("income", -1)
	if err := q.Err(); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	if income < 0 {
		ErrorFor(r, invalid("income must be zero or positive")).Write(w)
		return
	}
	est := s.reports.TaxTable().Estimate(income)
	cur := s.reports.BaseCurrency()
	NewResponse().JSON(map[string]any{
		"estimate": est,
		"formatted": map[string]string{
			"tax":       s.formatted(est.Tax, cur),
			"netIncome": s.formatted(est.NetIncome, cur),
		},
	}).Write(w)
}

// handleConvertTool converts an amount between the supported currencies.
func (s *Server) handleConvertTool(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParams(r)
	amount := q.Float("amount", 0)
	from := q.Currency("from")
	to := q.Currency("to")
	if err := q.Err(); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	if from == "" {
		from = s.reports.BaseCurrency()
	}
	if to == "" {
		ErrorFor(r, invalid("missing target currency")).Write(w)
		return
	}

	conv := s.reports.Converter()
	result := conv.Convert(amount, from, to)
	resp := map[string]any{
		"amount":    amount,
		"from":      from,
		"to":        to,
		"result":    result,
		"formatted": s.formatted(result, to),
	}
	if rate, ok := conv.Rate(from, to); ok {
		resp["rate"] = rate.InexactFloat64()
	}
	NewResponse().JSON(resp).Write(w)
}

// handleProjectionTool projects savings growth year by year.
func (s *Server) handleProjectionTool(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParams(r)
	initial := q.Float("initial", 0)
	monthly := q.Float("monthly", 0)
	rate := q.Float("rate", 0)
	years := q.Int("years", 10)
	if err := q.Err(); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	if initial < 0 || monthly < 0 {
		ErrorFor(r, invalid("amounts must be zero or positive")).Write(w)
		return
	}
	if years <= 0 || years > maxYears {
		ErrorFor(r, invalid("years must be between 1 and %d", maxYears)).Write(w)
		return
	}
	points := finance.ProjectFutureValue(initial, monthly, rate, years)
	final := points[len(points)-1]
	if math.IsNaN(final.Value) || math.IsInf(final.Value, 0) {
		ErrorFor(r, invalid("projection exceeds the representable range")).Write(w)
		return
	}
	NewResponse().JSON(map[string]any{
		"points":         points,
		"finalValue":     final.Value,
		"formattedFinal": s.formatted(final.Value, s.reports.BaseCurrency()),
	}).Write(w)
}

// formatted renders amount for the configured locale.
func (s *Server) formatted(amount float64, cur finance.Currency) string {
	return finance.Format(amount, cur, s.reports.Locale())
}
