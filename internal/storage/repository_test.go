package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthtrack/internal/core"
	"wealthtrack/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}

func TestPropertyWithChildren(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p, err := repo.CreateProperty(ctx, core.Property{
		Name:          "Flat",
		PurchasePrice: 2_000_000,
		CurrentValue:  core.Amount(2_200_000),
		PurchaseDate:  core.NewDate(2018, 7, 1),
	})
	require.NoError(t, err)

	got, err := repo.GetProperty(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = repo.AddRentalIncome(ctx, core.RentalIncome{PropertyID: p.ID, Amount: 8_000, Date: core.NewDate(2024, 3, 1)})
	require.NoError(t, err)
	_, err = repo.AddPropertyExpense(ctx, core.PropertyExpense{PropertyID: p.ID, Amount: 1_000, Date: core.NewDate(2024, 3, 2), Category: core.PropertyMaintenance})
	require.NoError(t, err)
	m, err := repo.AddMortgage(ctx, core.Mortgage{PropertyID: p.ID, OriginalAmount: 1_600_000, CurrentBalance: 1_500_000, MonthlyPayment: 8_000, InterestRate: 4.5, StartDate: core.NewDate(2018, 7, 1), TermYears: 25})
	require.NoError(t, err)

	m.CurrentBalance = 1_490_000
	require.NoError(t, repo.UpdateMortgage(ctx, m))
	gotM, err := repo.GetMortgage(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m, gotM)

	_, err = repo.AddRentalIncome(ctx, core.RentalIncome{PropertyID: "missing", Amount: 1, Date: core.NewDate(2024, 3, 1)})
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	require.NoError(t, repo.DeleteProperty(ctx, p.ID))
	rentals, err := repo.ListRentalIncomes(ctx, ledger.All)
	require.NoError(t, err)
	assert.Empty(t, rentals)
	mortgages, err := repo.ListMortgages(ctx)
	require.NoError(t, err)
	assert.Empty(t, mortgages)
}

func TestPropertyWithoutCurrentValue(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p, err := repo.CreateProperty(ctx, core.Property{Name: "Plot", PurchasePrice: 300_000, PurchaseDate: core.NewDate(2021, 1, 1)})
	require.NoError(t, err)
	got, err := repo.GetProperty(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CurrentValue)
	assert.Equal(t, 300_000.0, got.Value())
}

func TestListExpensesClosedRange(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, d := range []core.Date{core.NewDate(2024, 1, 31), core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 29), core.NewDate(2024, 3, 1)} {
		_, err := repo.CreateExpense(ctx, core.Expense{Category: core.ExpenseLiving, Amount: 10, Date: d})
		require.NoError(t, err)
	}

	got, err := repo.ListExpenses(ctx, ledger.DateRange{
		Start: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, core.NewDate(2024, 2, 1), got[0].Date)
	assert.Equal(t, core.NewDate(2024, 2, 29), got[1].Date)

	// A start after midnight excludes that day, as the in-memory store does.
	got, err = repo.ListExpenses(ctx, ledger.DateRange{Start: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, core.NewDate(2024, 2, 29), got[0].Date)
}

func TestInvestmentAndIncomeRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	inv, err := repo.CreateInvestment(ctx, core.Investment{Name: "ETF", Type: core.InvestmentMutualFund, InitialAmount: 10_000, CurrentValue: 12_500, Date: core.NewDate(2022, 5, 1), ReturnRate: core.Amount(6.5)})
	require.NoError(t, err)
	gotInv, err := repo.GetInvestment(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv, gotInv)

	inv.CurrentValue = 13_000
	require.NoError(t, repo.UpdateInvestment(ctx, inv))
	list, err := repo.ListInvestments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 13_000.0, list[0].CurrentValue)

	in, err := repo.CreateIncome(ctx, core.Income{Source: "ACME", Amount: 20_000, Category: core.IncomeSalary, Date: core.NewDate(2024, 1, 10), Description: "January"})
	require.NoError(t, err)
	gotIn, err := repo.GetIncome(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, in, gotIn)

	require.NoError(t, repo.DeleteIncome(ctx, in.ID))
	_, err = repo.GetIncome(ctx, in.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteIncome(ctx, in.ID), ledger.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateExpense(ctx, core.Expense{ID: "nope", Category: core.ExpenseOther, Amount: 1, Date: core.NewDate(2024, 1, 1)}), ledger.ErrNotFound)
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, nw := range []float64{100, 90, 120} {
		_, err := repo.SaveSnapshot(ctx, core.Snapshot{TakenAt: base.AddDate(0, 0, i), NetWorth: nw})
		require.NoError(t, err)
	}

	all, err := repo.ListSnapshots(ctx, ledger.All)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []float64{100, 90, 120}, []float64{all[0].NetWorth, all[1].NetWorth, all[2].NetWorth})
	assert.True(t, all[0].TakenAt.Equal(base))

	recent, err := repo.ListSnapshots(ctx, ledger.DateRange{Start: base.AddDate(0, 0, 1)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestDumpAndLoadAcrossStores(t *testing.T) {
	ctx := context.Background()
	src := newTestRepo(t)
	p, err := src.CreateProperty(ctx, core.Property{Name: "Flat", PurchasePrice: 1, PurchaseDate: core.NewDate(2020, 1, 1)})
	require.NoError(t, err)
	_, err = src.AddRentalIncome(ctx, core.RentalIncome{PropertyID: p.ID, Amount: 5, Date: core.NewDate(2020, 2, 1)})
	require.NoError(t, err)

	d, err := ledger.Dump(ctx, src)
	require.NoError(t, err)

	dst := newTestRepo(t)
	require.NoError(t, ledger.Load(ctx, dst, d))
	rentals, err := dst.ListRentalIncomes(ctx, ledger.All)
	require.NoError(t, err)
	require.Len(t, rentals, 1)
	assert.Equal(t, p.ID, rentals[0].PropertyID)
}

func TestOffsetDateKeepsItsMonth(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	var in core.Income
	require.NoError(t, json.Unmarshal([]byte(`{"source":"Acme","amount":100,"category":"salary","date":"2024-03-01T01:00:00+03:00"}`), &in))
	_, err := repo.CreateIncome(ctx, in)
	require.NoError(t, err)

	march := ledger.DateRange{
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	got, err := repo.ListIncomes(ctx, march)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-03-01", got[0].Date.String())
}
