package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthtrack/internal/amqp"
	"wealthtrack/internal/core"
	"wealthtrack/internal/finance"
	"wealthtrack/internal/ledger"
	"wealthtrack/internal/ledger/memory"
)

type fakePublisher struct {
	mu       sync.Mutex
	messages []*amqp.LedgerChangeMessage
	err      error
	closeErr error
}

func (p *fakePublisher) PublishLedgerChange(_ context.Context, msg *amqp.LedgerChangeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakePublisher) Close() error { return p.closeErr }

// seedScenario loads one mortgaged rental flat.
func seedScenario(t *testing.T, s ledger.Store) core.Property {
	t.Helper()
	ctx := context.Background()
	p, err := s.CreateProperty(ctx, core.Property{
		Name:          "Flat",
		PurchasePrice: 2_000_000,
		CurrentValue:  core.Amount(2_200_000),
		PurchaseDate:  core.NewDate(2018, 7, 1),
	})
	require.NoError(t, err)
	_, err = s.AddRentalIncome(ctx, core.RentalIncome{PropertyID: p.ID, Amount: 8_000, Date: core.NewDate(2024, 6, 1)})
	require.NoError(t, err)
	_, err = s.AddPropertyExpense(ctx, core.PropertyExpense{PropertyID: p.ID, Amount: 1_000, Date: core.NewDate(2024, 6, 2), Category: core.PropertyRepairs})
	require.NoError(t, err)
	_, err = s.AddMortgage(ctx, core.Mortgage{PropertyID: p.ID, OriginalAmount: 1_600_000, CurrentBalance: 1_500_000, MonthlyPayment: 8_000, InterestRate: 4.5, StartDate: core.NewDate(2018, 7, 1), TermYears: 25})
	require.NoError(t, err)
	return p
}

func TestLedgerServicePublishesChanges(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewLedgerService(memory.New(), pub)

	var seen []string
	svc.OnChange(func(entity, op, id string) { seen = append(seen, entity+":"+op) })

	in, err := svc.CreateIncome(ctx, core.Income{Source: "ACME", Amount: 100, Category: core.IncomeSalary, Date: core.NewDate(2024, 1, 1)})
	require.NoError(t, err)
	in.Amount = 200
	require.NoError(t, svc.UpdateIncome(ctx, in))
	require.NoError(t, svc.DeleteIncome(ctx, in.ID))

	require.Len(t, pub.messages, 3)
	assert.Equal(t, amqp.EntityIncome, pub.messages[0].Entity)
	assert.Equal(t, amqp.OpCreated, pub.messages[0].Op)
	assert.Equal(t, in.ID, pub.messages[0].ID)
	assert.Equal(t, amqp.OpDeleted, pub.messages[2].Op)
	assert.Equal(t, []string{"income:created", "income:updated", "income:deleted"}, seen)
}

func TestLedgerServiceValidation(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewLedgerService(memory.New(), pub)

	_, err := svc.CreateExpense(ctx, core.Expense{Category: "food", Amount: 10, Date: core.NewDate(2024, 1, 1)})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, core.ErrInvalidCategory)

	_, err = svc.CreateInvestment(ctx, core.Investment{Name: "", Type: core.InvestmentBonds, InitialAmount: 1, Date: core.NewDate(2024, 1, 1)})
	assert.ErrorIs(t, err, core.ErrEmptyName)

	err = svc.UpdateProperty(ctx, core.Property{ID: "missing", Name: "x", PurchaseDate: core.NewDate(2024, 1, 1)})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)

	assert.Empty(t, pub.messages)
}

func TestLedgerServicePublishFailureKeepsWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewLedgerService(store, &fakePublisher{err: amqp.ErrCircuitOpen})

	p, err := svc.CreateProperty(ctx, core.Property{Name: "Plot", PurchasePrice: 100, PurchaseDate: core.NewDate(2020, 1, 1)})
	require.NoError(t, err)

	got, err := store.GetProperty(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plot", got.Name)
}

func TestLedgerServiceWithoutPublisher(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(memory.New(), nil)
	p := seedScenario(t, svc.Store())

	m, err := svc.AddMortgage(ctx, core.Mortgage{PropertyID: p.ID, OriginalAmount: 10, CurrentBalance: 5, StartDate: core.NewDate(2020, 1, 1)})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteMortgage(ctx, m.ID))
	require.NoError(t, svc.DeleteProperty(ctx, p.ID))
	assert.NoError(t, svc.Close())
}

func TestLedgerServiceClose(t *testing.T) {
	svc := NewLedgerService(memory.New(), &fakePublisher{closeErr: errors.New("broker gone")})
	err := svc.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amqp: broker gone")
}

func newReportService(store ledger.Store, now time.Time) *ReportService {
	svc := NewReportService(store, ReportConfig{BaseCurrency: finance.ILS, Locale: "en-US", RiskFreeRate: finance.DefaultRiskFreeRate})
	svc.now = func() time.Time { return now }
	return svc
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p := seedScenario(t, store)
	_, err := store.CreateInvestment(ctx, core.Investment{Name: "ETF", Type: core.InvestmentStocks, InitialAmount: 100_000, CurrentValue: 110_000, Date: core.NewDate(2023, 6, 15)})
	require.NoError(t, err)

	svc := newReportService(store, time.Date(2024, 6, 15, 14, 0, 0, 0, time.UTC))
	dash, err := svc.Dashboard(ctx, 0, finance.Period6M, "")
	require.NoError(t, err)

	assert.Equal(t, 2024, dash.Year)
	assert.Equal(t, finance.ILS, dash.KPIs.Currency)
	assert.InDelta(t, 2_310_000, dash.KPIs.TotalAssets, 1e-6)
	assert.InDelta(t, 1_500_000, dash.KPIs.TotalDebt, 1e-6)
	assert.InDelta(t, 810_000, dash.KPIs.NetWorth, 1e-6)
	assert.InDelta(t, 8_000, dash.KPIs.TotalIncome, 1e-6)
	assert.Equal(t, "₪810,000", dash.KPIs.Formatted["netWorth"])

	require.Len(t, dash.Monthly, 12)
	assert.Equal(t, "2024-06", dash.Monthly[5].Month)
	assert.InDelta(t, 8_000, dash.Monthly[5].Income, 1e-6)

	require.Len(t, dash.Properties, 1)
	pm := dash.Properties[0]
	assert.Equal(t, p.ID, pm.Property.ID)
	assert.InDelta(t, 700_000, pm.Equity, 1e-6)
	assert.InDelta(t, 0.35, pm.ROI, 1e-9)
	assert.InDelta(t, 10, pm.Appreciation, 1e-9)
	assert.InDelta(t, 10.35, pm.TotalReturn, 1e-9)

	require.Len(t, dash.Investments, 1)
	assert.InDelta(t, 10, dash.Investments[0].ROI, 1e-9)
	assert.InDelta(t, 10, dash.Investments[0].AnnualizedReturn, 0.1)
}

func TestDashboardInOtherCurrency(t *testing.T) {
	store := memory.New()
	seedScenario(t, store)
	svc := newReportService(store, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))

	dash, err := svc.Dashboard(context.Background(), 2024, finance.Period1Y, finance.USD)
	require.NoError(t, err)
	assert.Equal(t, finance.USD, dash.KPIs.Currency)
	assert.InDelta(t, 189_000, dash.KPIs.NetWorth, 1e-6)
	assert.Equal(t, "$189,000.00", dash.KPIs.Formatted["netWorth"])
	// Ratios do not depend on the currency.
	assert.InDelta(t, 1_500_000.0/2_200_000.0, dash.KPIs.DebtToEquity, 1e-12)
}

func TestReportIncludesWholeFirstDay(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedScenario(t, store)
	for _, d := range []core.Date{core.NewDate(2024, 5, 14), core.NewDate(2024, 5, 15)} {
		_, err := store.CreateIncome(ctx, core.Income{Source: "ACME", Amount: 10_000, Category: core.IncomeSalary, Date: d})
		require.NoError(t, err)
	}
	_, err := store.CreateExpense(ctx, core.Expense{Category: core.ExpenseLiving, Amount: 2_000, Date: core.NewDate(2024, 6, 10)})
	require.NoError(t, err)

	svc := newReportService(store, time.Date(2024, 6, 15, 14, 0, 0, 0, time.UTC))
	rep, err := svc.Report(ctx, finance.Period1M, "")
	require.NoError(t, err)

	cf := rep.CashFlow
	assert.InDelta(t, 18_000, cf.TotalIncome, 1e-6)
	assert.InDelta(t, 8_000, cf.TotalRentalIncome, 1e-6)
	assert.InDelta(t, 2_000, cf.TotalExpenses, 1e-6)
	assert.InDelta(t, 16_000, cf.NetCashFlow, 1e-6)
	assert.Equal(t, map[string]float64{"salary": 10_000, finance.RentalIncomeCategory: 8_000}, cf.IncomeByCategory)
	require.Len(t, cf.Monthly, 2)
	assert.Equal(t, "2024-05", cf.Monthly[0].Month)
	assert.Equal(t, "2024-06", cf.Monthly[1].Month)
	assert.InDelta(t, 6_000, cf.Monthly[1].Profit, 1e-6)
	assert.InDelta(t, 16_000.0/18_000*100, rep.KPIs.SavingsRate, 1e-9)
}

func TestReportEmptyLedger(t *testing.T) {
	svc := newReportService(memory.New(), time.Now())
	rep, err := svc.Report(context.Background(), finance.ParsePeriod("bogus"), "")
	require.NoError(t, err)
	assert.Zero(t, rep.KPIs.NetWorth)
	assert.Zero(t, rep.KPIs.DebtToEquity)
	assert.Empty(t, rep.CashFlow.Monthly)
}

func TestAnalytics(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedScenario(t, store)
	_, err := store.CreateInvestment(ctx, core.Investment{Name: "Pension", Type: core.InvestmentPension, InitialAmount: 50_000, CurrentValue: 75_000, Date: core.NewDate(2015, 1, 1)})
	require.NoError(t, err)
	_, err = store.CreateIncome(ctx, core.Income{Source: "ACME", Amount: 67_960, Category: core.IncomeSalary, Date: core.NewDate(2024, 1, 31)})
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, nw := range []float64{100, 120, 90, 130} {
		_, err := store.SaveSnapshot(ctx, core.Snapshot{TakenAt: base.AddDate(0, i, 0), NetWorth: nw})
		require.NoError(t, err)
	}

	svc := newReportService(store, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	a, err := svc.Analytics(ctx)
	require.NoError(t, err)

	require.Len(t, a.Allocation, 1)
	assert.Equal(t, core.InvestmentPension, a.Allocation[0].Type)
	assert.InDelta(t, 100, a.Allocation[0].Percent, 1e-9)

	require.Len(t, a.Mortgages, 1)
	assert.Equal(t, 71, a.Mortgages[0].MonthsPaid)

	assert.Equal(t, 4, a.Risk.Snapshots)
	assert.InDelta(t, 25, a.Risk.MaxDrawdown, 1e-9)
	assert.NotZero(t, a.Risk.SharpeRatio)

	// 67,960 salary + 8,000 rent = 75,960, the top of the first bracket.
	assert.InDelta(t, 75_960, a.Tax.Income, 1e-6)
	assert.InDelta(t, 7_596, a.Tax.Tax, 1e-6)
	assert.InDelta(t, 10, a.Tax.EffectiveRate, 1e-9)
}

func TestDayRange(t *testing.T) {
	dr := DayRange(time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC), time.Date(2024, 2, 29, 1, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), dr.Start)
	assert.True(t, dr.Contains(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)))
	assert.False(t, dr.Contains(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestSnapshotService(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedScenario(t, store)

	svc := NewSnapshotService(store)
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }

	snap, err := svc.Take(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.InDelta(t, 2_200_000, snap.Assets, 1e-6)
	assert.InDelta(t, 1_500_000, snap.Debt, 1e-6)
	assert.InDelta(t, 700_000, snap.NetWorth, 1e-6)

	history, err := svc.History(ctx, ledger.All)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, snap.ID, history[0].ID)
}
