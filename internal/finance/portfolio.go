package finance

import (
	"sort"

	"wealthtrack/internal/core"
)

// PropertyHolding is a property together with the records that belong to it.
type PropertyHolding struct {
	Property  core.Property
	Rentals   []core.RentalIncome
	Expenses  []core.PropertyExpense
	Mortgages []core.Mortgage
}

// GroupByProperty attaches rentals, expenses and mortgages to their property by
// property ID. Records whose property is not in the list are dropped. The
// result follows the order of properties.
func GroupByProperty(properties []core.Property, rentals []core.RentalIncome, expenses []core.PropertyExpense, mortgages []core.Mortgage) []PropertyHolding {
	holdings := make([]PropertyHolding, len(properties))
	index := make(map[string]int, len(properties))
	for i, p := range properties {
		holdings[i].Property = p
		index[p.ID] = i
	}
	for _, r := range rentals {
		if i, ok := index[r.PropertyID]; ok {
			holdings[i].Rentals = append(holdings[i].Rentals, r)
		}
	}
	for _, e := range expenses {
		if i, ok := index[e.PropertyID]; ok {
			holdings[i].Expenses = append(holdings[i].Expenses, e)
		}
	}
	for _, m := range mortgages {
		if i, ok := index[m.PropertyID]; ok {
			holdings[i].Mortgages = append(holdings[i].Mortgages, m)
		}
	}
	return holdings
}

// TotalAssetValue sums property values and investment current values.
func TotalAssetValue(properties []core.Property, investments []core.Investment) float64 {
	var total float64
	for _, p := range properties {
		total += p.Value()
	}
	for _, inv := range investments {
		total += inv.CurrentValue
	}
	return total
}

// NetWorth is total assets minus debt. It is not floored at zero.
func NetWorth(properties []core.Property, investments []core.Investment, totalDebt float64) float64 {
	return TotalAssetValue(properties, investments) - totalDebt
}

// TotalMortgageDebt sums the current balance of every mortgage of every
// holding. Balances are taken as recorded, even when stale.
func TotalMortgageDebt(holdings []PropertyHolding) float64 {
	var total float64
	for _, h := range holdings {
		for _, m := range h.Mortgages {
			total += m.CurrentBalance
		}
	}
	return total
}

// DebtToEquityRatio returns totalDebt / totalAssets as a fraction. It is 0
// whenever there are no assets, whatever the debt.
func DebtToEquityRatio(totalDebt, totalAssets float64) float64 {
	if totalAssets <= 0 {
		return 0
	}
	return totalDebt / totalAssets
}

// Allocation is the value held in one investment type.
type Allocation struct {
	Type    core.InvestmentType `json:"type"`
	Value   float64             `json:"value"`
	Percent float64             `json:"percent"`
}

// AllocationByType groups investment current values by type, largest first.
// Percent is each type's share of the investment total; all shares are 0 when
// the total is 0.
func AllocationByType(investments []core.Investment) []Allocation {
	sums := SumByCategory(investments,
		func(inv core.Investment) string { return string(inv.Type) },
		func(inv core.Investment) float64 { return inv.CurrentValue })

	var total float64
	for _, v := range sums {
		total += v
	}
	out := make([]Allocation, 0, len(sums))
	for t, v := range sums {
		a := Allocation{Type: core.InvestmentType(t), Value: v}
		if total > 0 {
			a.Percent = v / total * 100
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Type < out[j].Type
	})
	return out
}
