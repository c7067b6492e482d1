package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthtrack/internal/core"
)

func TestPropertyAppreciation(t *testing.T) {
	tests := []struct {
		name     string
		property core.Property
		want     float64
	}{
		{"gain", core.Property{PurchasePrice: 2_000_000, CurrentValue: core.Amount(2_200_000)}, 10},
		{"loss", core.Property{PurchasePrice: 1_000_000, CurrentValue: core.Amount(900_000)}, -10},
		{"no current value", core.Property{PurchasePrice: 1_000_000}, 0},
		{"zero purchase price", core.Property{PurchasePrice: 0, CurrentValue: core.Amount(500_000)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PropertyAppreciation(tt.property), 1e-9)
		})
	}
}

func TestPropertyROI(t *testing.T) {
	p := core.Property{ID: "p1", PurchasePrice: 2_000_000}
	rentals := []core.RentalIncome{{PropertyID: "p1", Amount: 5_000}, {PropertyID: "p1", Amount: 3_000}}
	expenses := []core.PropertyExpense{{PropertyID: "p1", Amount: 1_000}}

	assert.InDelta(t, 0.35, PropertyROI(p, rentals, expenses), 1e-9)
	assert.Zero(t, PropertyROI(core.Property{}, rentals, expenses))
	assert.InDelta(t, -0.05, PropertyROI(p, nil, expenses), 1e-9, "expenses without rent give a negative yield")
}

func TestPropertyTotalReturn(t *testing.T) {
	p := core.Property{PurchasePrice: 2_000_000, CurrentValue: core.Amount(2_200_000)}
	rentals := []core.RentalIncome{{Amount: 8_000}}
	expenses := []core.PropertyExpense{{Amount: 1_000}}

	assert.InDelta(t, 10.35, PropertyTotalReturn(p, rentals, expenses), 1e-9)
}

func TestInvestmentROI(t *testing.T) {
	assert.InDelta(t, 25, InvestmentROI(core.Investment{InitialAmount: 100, CurrentValue: 125}), 1e-9)
	assert.InDelta(t, -40, InvestmentROI(core.Investment{InitialAmount: 100, CurrentValue: 60}), 1e-9)
	assert.Zero(t, InvestmentROI(core.Investment{InitialAmount: 0, CurrentValue: 60}))
}

func TestAnnualizedReturn(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("doubling over elapsed years", func(t *testing.T) {
		end := start.AddDate(0, 0, 1461) // 4 * 365.25 days
		got := AnnualizedReturn(1000, 2000, start, end)
		assert.InDelta(t, 18.9207, got, 1e-4)
	})

	t.Run("same day reports simple return", func(t *testing.T) {
		assert.InDelta(t, 50, AnnualizedReturn(100, 150, start, start.Add(5*time.Hour)), 1e-9)
	})

	t.Run("end before start reports simple return", func(t *testing.T) {
		assert.InDelta(t, 50, AnnualizedReturn(100, 150, start, start.AddDate(-1, 0, 0)), 1e-9)
	})

	t.Run("zero initial", func(t *testing.T) {
		assert.Zero(t, AnnualizedReturn(0, 150, start, start.AddDate(2, 0, 0)))
	})
}

func TestElapsedYearsIgnoresClock(t *testing.T) {
	start := time.Date(2023, 6, 1, 23, 59, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 0, 1, 0, 0, time.UTC)
	assert.InDelta(t, 366/daysPerYear, ElapsedYears(start, end), 1e-12)
}

func TestPortfolioAggregates(t *testing.T) {
	properties := []core.Property{
		{ID: "a", PurchasePrice: 1_000_000, CurrentValue: core.Amount(1_200_000)},
		{ID: "b", PurchasePrice: 800_000},
	}
	investments := []core.Investment{
		{ID: "i1", Type: core.InvestmentStocks, InitialAmount: 50_000, CurrentValue: 60_000},
		{ID: "i2", Type: core.InvestmentPension, InitialAmount: 100_000, CurrentValue: 140_000},
	}
	mortgages := []core.Mortgage{
		{ID: "m1", PropertyID: "a", CurrentBalance: 400_000},
		{ID: "m2", PropertyID: "a", CurrentBalance: 100_000},
		{ID: "m3", PropertyID: "b", CurrentBalance: 300_000},
		{ID: "orphan", PropertyID: "gone", CurrentBalance: 999},
	}

	holdings := GroupByProperty(properties, nil, nil, mortgages)
	require.Len(t, holdings, 2)
	assert.Len(t, holdings[0].Mortgages, 2)
	assert.Len(t, holdings[1].Mortgages, 1)

	debt := TotalMortgageDebt(holdings)
	assert.InDelta(t, 800_000, debt, 1e-9)
	assert.InDelta(t, 2_200_000, TotalAssetValue(properties, investments), 1e-9)
	assert.InDelta(t, 1_400_000, NetWorth(properties, investments, debt), 1e-9)
	assert.InDelta(t, -500, NetWorth(nil, nil, 500), 1e-9, "net worth is not floored")
	assert.Zero(t, NetWorth(nil, nil, 0))
}

func TestTotalAssetValueEmpty(t *testing.T) {
	assert.Zero(t, TotalAssetValue(nil, nil))
}

func TestDebtToEquityRatio(t *testing.T) {
	assert.InDelta(t, 0.5, DebtToEquityRatio(50, 100), 1e-12)
	assert.Zero(t, DebtToEquityRatio(1_000_000, 0))
	assert.Zero(t, DebtToEquityRatio(0, 0))
}

func TestAllocationByType(t *testing.T) {
	investments := []core.Investment{
		{Type: core.InvestmentStocks, CurrentValue: 30},
		{Type: core.InvestmentBonds, CurrentValue: 10},
		{Type: core.InvestmentStocks, CurrentValue: 60},
	}
	got := AllocationByType(investments)
	require.Len(t, got, 2)
	assert.Equal(t, core.InvestmentStocks, got[0].Type)
	assert.InDelta(t, 90, got[0].Value, 1e-9)
	assert.InDelta(t, 90, got[0].Percent, 1e-9)
	assert.InDelta(t, 10, got[1].Percent, 1e-9)

	zero := AllocationByType([]core.Investment{{Type: core.InvestmentCrypto}})
	require.Len(t, zero, 1)
	assert.Zero(t, zero[0].Percent)
}

// One property with rent and an expense inside the window and a mortgage
// against it, taken through every figure the dashboard shows.
func TestSinglePropertyScenario(t *testing.T) {
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	start, end := DateRangeForPeriod(Period6M, now)

	property := core.Property{
		ID:            "home",
		PurchasePrice: 2_000_000,
		CurrentValue:  core.Amount(2_200_000),
		PurchaseDate:  core.NewDate(2019, 5, 1),
	}
	rentals := []core.RentalIncome{{PropertyID: "home", Amount: 8_000, Date: core.NewDate(2024, 4, 1)}}
	expenses := []core.PropertyExpense{{PropertyID: "home", Amount: 1_000, Date: core.NewDate(2024, 5, 10), Category: core.PropertyRepairs}}
	mortgages := []core.Mortgage{{PropertyID: "home", CurrentBalance: 1_500_000}}

	rentals = FilterByDateRange(rentals, rentalDate, start, end)
	expenses = FilterByDateRange(expenses, func(e core.PropertyExpense) time.Time { return e.Date.Time }, start, end)
	require.Len(t, rentals, 1)
	require.Len(t, expenses, 1)

	holdings := GroupByProperty([]core.Property{property}, rentals, expenses, mortgages)
	debt := TotalMortgageDebt(holdings)
	assets := TotalAssetValue([]core.Property{property}, nil)

	assert.InDelta(t, 10, PropertyAppreciation(property), 1e-9)
	assert.InDelta(t, 0.35, PropertyROI(property, holdings[0].Rentals, holdings[0].Expenses), 1e-9)
	assert.InDelta(t, 2_200_000, assets, 1e-9)
	assert.InDelta(t, 700_000, NetWorth([]core.Property{property}, nil, debt), 1e-9)
	assert.InDelta(t, 68.18, DebtToEquityRatio(debt, assets)*100, 0.01)
}
