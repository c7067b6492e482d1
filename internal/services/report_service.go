package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"wealthtrack/internal/core"
	"wealthtrack/internal/finance"
	"wealthtrack/internal/ledger"
)

// ReportConfig holds the reporting settings.
type ReportConfig struct {
	BaseCurrency finance.Currency
	Locale       string
	RiskFreeRate float64
	TaxTable     finance.TaxTable
	Converter    *finance.Converter
}

// ReportService assembles dashboards, reports and analytics from the ledger.
type ReportService struct {
	store ledger.Store
	cfg   ReportConfig
	now   func() time.Time
}

func NewReportService(store ledger.Store, cfg ReportConfig) *ReportService {
	if cfg.BaseCurrency == "" {
		cfg.BaseCurrency = finance.ILS
	}
	if cfg.Locale == "" {
		cfg.Locale = "he-IL"
	}
	if cfg.TaxTable == nil {
		cfg.TaxTable = finance.DefaultTaxTable
	}
	if cfg.Converter == nil {
		cfg.Converter = finance.NewConverter()
	}
	return &ReportService{store: store, cfg: cfg, now: time.Now}
}

// KPIs are the headline figures shown on the dashboard and reports. Amounts
// are in Currency; Formatted holds the same amounts rendered for the locale.
type KPIs struct {
	Currency      finance.Currency  `json:"currency"`
	TotalAssets   float64           `json:"totalAssets"`
	TotalDebt     float64           `json:"totalDebt"`
	NetWorth      float64           `json:"netWorth"`
	DebtToEquity  float64           `json:"debtToEquity"`
	TotalIncome   float64           `json:"totalIncome"`
	TotalExpenses float64           `json:"totalExpenses"`
	NetCashFlow   float64           `json:"netCashFlow"`
	SavingsRate   float64           `json:"savingsRate"`
	Formatted     map[string]string `json:"formatted"`
}

type PropertyMetrics struct {
	Property        core.Property `json:"property"`
	Value           float64       `json:"value"`
	MortgageBalance float64       `json:"mortgageBalance"`
	Equity          float64       `json:"equity"`
	TotalRent       float64       `json:"totalRent"`
	TotalExpenses   float64       `json:"totalExpenses"`
	ROI             float64       `json:"roi"`
	Appreciation    float64       `json:"appreciation"`
	TotalReturn     float64       `json:"totalReturn"`
}

type InvestmentMetrics struct {
	Investment       core.Investment `json:"investment"`
	ROI              float64         `json:"roi"`
	AnnualizedReturn float64         `json:"annualizedReturn"`
}

// Dashboard is the overview for one calendar year.
type Dashboard struct {
	GeneratedAt time.Time            `json:"generatedAt"`
	Year        int                  `json:"year"`
	KPIs        KPIs                 `json:"kpis"`
	Properties  []PropertyMetrics    `json:"properties"`
	Investments []InvestmentMetrics  `json:"investments"`
	Monthly     []finance.MonthPoint `json:"monthly"`
}

// Report is the cash-flow report for a period ending now.
type Report struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	Period      finance.Period   `json:"period"`
	KPIs        KPIs             `json:"kpis"`
	CashFlow    finance.CashFlow `json:"cashFlow"`
}

// RiskStats summarize the net worth history.
type RiskStats struct {
	Snapshots   int     `json:"snapshots"`
	SharpeRatio float64 `json:"sharpeRatio"`
	MaxDrawdown float64 `json:"maxDrawdown"`
}

type Analytics struct {
	GeneratedAt  time.Time                    `json:"generatedAt"`
	TotalAssets  float64                      `json:"totalAssets"`
	TotalDebt    float64                      `json:"totalDebt"`
	DebtToEquity float64                      `json:"debtToEquity"`
	Allocation   []finance.Allocation         `json:"allocation"`
	Mortgages    []finance.MortgageProjection `json:"mortgages"`
	Risk         RiskStats                    `json:"risk"`
	Tax          finance.TaxEstimate          `json:"tax"`
}

// ledgerData is one consistent read of the ledger.
type ledgerData struct {
	properties       []core.Property
	rentals          []core.RentalIncome
	propertyExpenses []core.PropertyExpense
	mortgages        []core.Mortgage
	investments      []core.Investment
	incomes          []core.Income
	expenses         []core.Expense
}

// fetch reads the ledger concurrently. dr limits the dated cash-flow records
// (rentals, incomes and expenses); the rest is always read in full.
func (s *ReportService) fetch(ctx context.Context, dr ledger.DateRange) (*ledgerData, error) {
	var d ledgerData
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		d.properties, err = s.store.ListProperties(ctx)
		return wrap("list properties", err)
	})
	g.Go(func() (err error) {
		d.rentals, err = s.store.ListRentalIncomes(ctx, dr)
		return wrap("list rental incomes", err)
	})
	g.Go(func() (err error) {
		d.propertyExpenses, err = s.store.ListPropertyExpenses(ctx, ledger.All)
		return wrap("list property expenses", err)
	})
	g.Go(func() (err error) {
		d.mortgages, err = s.store.ListMortgages(ctx)
		return wrap("list mortgages", err)
	})
	g.Go(func() (err error) {
		d.investments, err = s.store.ListInvestments(ctx)
		return wrap("list investments", err)
	})
	g.Go(func() (err error) {
		d.incomes, err = s.store.ListIncomes(ctx, dr)
		return wrap("list incomes", err)
	})
	g.Go(func() (err error) {
		d.expenses, err = s.store.ListExpenses(ctx, dr)
		return wrap("list expenses", err)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}

func wrap(op string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DayRange widens [start, end] to whole UTC days. Ledger dates carry no
// clock, so a period starting mid-day still includes its first day.
func DayRange(start, end time.Time) ledger.DateRange {
	start = start.UTC()
	end = end.UTC()
	return ledger.DateRange{
		Start: time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		End:   time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 999999999, time.UTC),
	}
}

// kpis computes the headline figures in the base currency, then converts
// them to cur.
func (s *ReportService) kpis(d *ledgerData, cf finance.CashFlow, cur finance.Currency) KPIs {
	holdings := finance.GroupByProperty(d.properties, nil, nil, d.mortgages)
	assets := finance.TotalAssetValue(d.properties, d.investments)
	debt := finance.TotalMortgageDebt(holdings)
	income := cf.TotalIncome

	conv := func(v float64) float64 { return s.cfg.Converter.Convert(v, s.cfg.BaseCurrency, cur) }
	k := KPIs{
		Currency:      cur,
		TotalAssets:   conv(assets),
		TotalDebt:     conv(debt),
		NetWorth:      conv(finance.NetWorth(d.properties, d.investments, debt)),
		DebtToEquity:  finance.DebtToEquityRatio(debt, assets),
		TotalIncome:   conv(income),
		TotalExpenses: conv(cf.TotalExpenses),
		NetCashFlow:   conv(cf.NetCashFlow),
		SavingsRate:   finance.SavingsRate(income, cf.TotalExpenses),
	}
	k.Formatted = map[string]string{
		"totalAssets":   finance.Format(k.TotalAssets, cur, s.cfg.Locale),
		"totalDebt":     finance.Format(k.TotalDebt, cur, s.cfg.Locale),
		"netWorth":      finance.Format(k.NetWorth, cur, s.cfg.Locale),
		"totalIncome":   finance.Format(k.TotalIncome, cur, s.cfg.Locale),
		"totalExpenses": finance.Format(k.TotalExpenses, cur, s.cfg.Locale),
		"netCashFlow":   finance.Format(k.NetCashFlow, cur, s.cfg.Locale),
	}
	return k
}

func (s *ReportService) currency(cur finance.Currency) finance.Currency {
	if cur == "" {
		return s.cfg.BaseCurrency
	}
	return cur
}

// Dashboard builds the overview for year. KPIs cover the trailing period
// ending now; the monthly series covers the calendar year. Property and
// investment metrics use the whole history.
func (s *ReportService) Dashboard(ctx context.Context, year int, period finance.Period, cur finance.Currency) (*Dashboard, error) {
	now := s.now()
	if year == 0 {
		year = now.Year()
	}
	d, err := s.fetch(ctx, ledger.All)
	if err != nil {
		return nil, err
	}

	dr := DayRange(finance.DateRangeForPeriod(period, now))
	cf := finance.BuildCashFlow(d.incomes, d.expenses, d.rentals, dr.Start, dr.End)

	dash := &Dashboard{
		GeneratedAt: now,
		Year:        year,
		KPIs:        s.kpis(d, cf, s.currency(cur)),
		Properties:  make([]PropertyMetrics, 0, len(d.properties)),
		Investments: make([]InvestmentMetrics, 0, len(d.investments)),
		Monthly:     finance.MonthlyIncomeExpenseSeries(d.incomes, d.expenses, d.rentals, year),
	}

	for _, h := range finance.GroupByProperty(d.properties, d.rentals, d.propertyExpenses, d.mortgages) {
		var balance, rent, spent float64
		for _, m := range h.Mortgages {
			balance += m.CurrentBalance
		}
		for _, r := range h.Rentals {
			rent += r.Amount
		}
		for _, e := range h.Expenses {
			spent += e.Amount
		}
		dash.Properties = append(dash.Properties, PropertyMetrics{
			Property:        h.Property,
			Value:           h.Property.Value(),
			MortgageBalance: balance,
			Equity:          h.Property.Value() - balance,
			TotalRent:       rent,
			TotalExpenses:   spent,
			ROI:             finance.PropertyROI(h.Property, h.Rentals, h.Expenses),
			Appreciation:    finance.PropertyAppreciation(h.Property),
			TotalReturn:     finance.PropertyTotalReturn(h.Property, h.Rentals, h.Expenses),
		})
	}
	for _, inv := range d.investments {
		dash.Investments = append(dash.Investments, InvestmentMetrics{
			Investment:       inv,
			ROI:              finance.InvestmentROI(inv),
			AnnualizedReturn: finance.InvestmentAnnualizedReturn(inv, now),
		})
	}

	slog.DebugContext(ctx, "Built dashboard", "year", year, "period", period, "properties", len(dash.Properties))
	return dash, nil
}

// Report builds the cash-flow report for period, ending now.
func (s *ReportService) Report(ctx context.Context, period finance.Period, cur finance.Currency) (*Report, error) {
	now := s.now()
	dr := DayRange(finance.DateRangeForPeriod(period, now))
	d, err := s.fetch(ctx, dr)
	if err != nil {
		return nil, err
	}

	cf := finance.BuildCashFlow(d.incomes, d.expenses, d.rentals, dr.Start, dr.End)
	return &Report{
		GeneratedAt: now,
		Period:      period,
		KPIs:        s.kpis(d, cf, s.currency(cur)),
		CashFlow:    cf,
	}, nil
}

// Analytics computes portfolio and risk figures. Risk statistics come from
// the net worth snapshot history; the tax estimate uses income of the last
// twelve months.
func (s *ReportService) Analytics(ctx context.Context) (*Analytics, error) {
	now := s.now()
	d, err := s.fetch(ctx, ledger.All)
	if err != nil {
		return nil, err
	}
	snapshots, err := s.store.ListSnapshots(ctx, ledger.All)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	holdings := finance.GroupByProperty(d.properties, nil, nil, d.mortgages)
	assets := finance.TotalAssetValue(d.properties, d.investments)
	debt := finance.TotalMortgageDebt(holdings)

	a := &Analytics{
		GeneratedAt:  now,
		TotalAssets:  assets,
		TotalDebt:    debt,
		DebtToEquity: finance.DebtToEquityRatio(debt, assets),
		Allocation:   finance.AllocationByType(d.investments),
		Mortgages:    make([]finance.MortgageProjection, 0, len(d.mortgages)),
	}
	for _, m := range d.mortgages {
		a.Mortgages = append(a.Mortgages, finance.ProjectMortgage(m, now))
	}

	values := make([]float64, len(snapshots))
	for i, snap := range snapshots {
		values[i] = snap.NetWorth
	}
	a.Risk = RiskStats{
		Snapshots:   len(snapshots),
		SharpeRatio: finance.SharpeRatio(finance.PeriodReturns(values), s.cfg.RiskFreeRate),
		MaxDrawdown: finance.MaxDrawdown(values),
	}

	yr := DayRange(finance.DateRangeForPeriod(finance.Period1Y, now))
	cf := finance.BuildCashFlow(d.incomes, nil, d.rentals, yr.Start, yr.End)
	a.Tax = s.cfg.TaxTable.Estimate(cf.TotalIncome)

	return a, nil
}

// Converter is the converter used for display currencies.
func (s *ReportService) Converter() *finance.Converter { return s.cfg.Converter }

// Locale is the locale amounts are formatted for.
func (s *ReportService) Locale() string { return s.cfg.Locale }

// TaxTable is the table used for tax estimates.
func (s *ReportService) TaxTable() finance.TaxTable { return s.cfg.TaxTable }

// BaseCurrency is the currency ledger amounts are recorded in.
func (s *ReportService) BaseCurrency() finance.Currency { return s.cfg.BaseCurrency }
