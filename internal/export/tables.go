package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wealthtrack/internal/core"
	"wealthtrack/internal/finance"
	"wealthtrack/internal/ledger"
)

// ErrUnknownEntity is returned by ForEntity for an unsupported entity name.
var ErrUnknownEntity = errors.New("unknown export entity")

// Entities accepted by ForEntity.
const (
	EntityProperties  = "properties"
	EntityInvestments = "investments"
	EntityIncomes     = "incomes"
	EntityExpenses    = "expenses"
	EntityRentals     = "rentals"
	EntityPropertyExp = "property_expenses"
	EntityMortgages   = "mortgages"
	EntitySnapshots   = "snapshots"
)

func PropertiesTable(properties []core.Property) Table {
	t := Table{Columns: []string{"id", "name", "address", "purchase_price", "current_value", "purchase_date"}}
	for _, p := range properties {
		t.Rows = append(t.Rows, []any{p.ID, p.Name, p.Address, p.PurchasePrice, p.CurrentValue, p.PurchaseDate})
	}
	return t
}

func InvestmentsTable(investments []core.Investment) Table {
	t := Table{Columns: []string{"id", "name", "type", "initial_amount", "current_value", "date", "return_rate", "roi"}}
	for _, inv := range investments {
		t.Rows = append(t.Rows, []any{inv.ID, inv.Name, inv.Type, inv.InitialAmount, inv.CurrentValue, inv.Date, inv.ReturnRate, finance.InvestmentROI(inv)})
	}
	return t
}

func IncomesTable(incomes []core.Income) Table {
	t := Table{Columns: []string{"id", "date", "source", "category", "amount", "description"}}
	for _, i := range incomes {
		t.Rows = append(t.Rows, []any{i.ID, i.Date, i.Source, i.Category, i.Amount, i.Description})
	}
	return t
}

func ExpensesTable(expenses []core.Expense) Table {
	t := Table{Columns: []string{"id", "date", "category", "amount", "description"}}
	for _, e := range expenses {
		t.Rows = append(t.Rows, []any{e.ID, e.Date, e.Category, e.Amount, e.Description})
	}
	return t
}

func RentalsTable(rentals []core.RentalIncome) Table {
	t := Table{Columns: []string{"id", "property_id", "date", "amount", "tenant_name"}}
	for _, r := range rentals {
		t.Rows = append(t.Rows, []any{r.ID, r.PropertyID, r.Date, r.Amount, r.TenantName})
	}
	return t
}

func PropertyExpensesTable(expenses []core.PropertyExpense) Table {
	t := Table{Columns: []string{"id", "property_id", "date", "category", "amount", "description"}}
	for _, e := range expenses {
		t.Rows = append(t.Rows, []any{e.ID, e.PropertyID, e.Date, e.Category, e.Amount, e.Description})
	}
	return t
}

func MortgagesTable(mortgages []core.Mortgage) Table {
	t := Table{Columns: []string{"id", "property_id", "original_amount", "current_balance", "monthly_payment", "interest_rate", "start_date", "term_years"}}
	for _, m := range mortgages {
		t.Rows = append(t.Rows, []any{m.ID, m.PropertyID, m.OriginalAmount, m.CurrentBalance, m.MonthlyPayment, m.InterestRate, m.StartDate, m.TermYears})
	}
	return t
}

// CashFlowTable has one row per month of the series.
func CashFlowTable(series []finance.MonthPoint) Table {
	t := Table{Columns: []string{"month", "income", "expenses", "profit"}}
	for _, m := range series {
		t.Rows = append(t.Rows, []any{m.Month, m.Income, m.Expenses, m.Profit})
	}
	return t
}

func SnapshotsTable(snapshots []core.Snapshot) Table {
	t := Table{Columns: []string{"taken_at", "assets", "debt", "net_worth"}}
	for _, s := range snapshots {
		t.Rows = append(t.Rows, []any{s.TakenAt, s.Assets, s.Debt, s.NetWorth})
	}
	return t
}

// ForEntity reads one record family from store and tabulates it. The date
// range applies to dated records: incomes, expenses, rentals, property
// expenses and snapshots. A snapshot range includes the whole end day.
func ForEntity(ctx context.Context, store ledger.Store, entity string, dr ledger.DateRange) (Table, error) {
	switch entity {
	case EntityProperties:
		ps, err := store.ListProperties(ctx)
		if err != nil {
			return Table{}, fmt.Errorf("list properties: %w", err)
		}
		return PropertiesTable(ps), nil
	case EntityInvestments:
		invs, err := store.ListInvestments(ctx)
		if err != nil {
			return Table{}, fmt.Errorf("list investments: %w", err)
		}
		return InvestmentsTable(invs), nil
	case EntityIncomes:
		is, err := store.ListIncomes(ctx, dr)
		if err != nil {
			return Table{}, fmt.Errorf("list incomes: %w", err)
		}
		return IncomesTable(is), nil
	case EntityExpenses:
		es, err := store.ListExpenses(ctx, dr)
		if err != nil {
			return Table{}, fmt.Errorf("list expenses: %w", err)
		}
		return ExpensesTable(es), nil
	case EntityRentals:
		rs, err := store.ListRentalIncomes(ctx, dr)
		if err != nil {
			return Table{}, fmt.Errorf("list rental incomes: %w", err)
		}
		return RentalsTable(rs), nil
	case EntityPropertyExp:
		es, err := store.ListPropertyExpenses(ctx, dr)
		if err != nil {
			return Table{}, fmt.Errorf("list property expenses: %w", err)
		}
		return PropertyExpensesTable(es), nil
	case EntityMortgages:
		ms, err := store.ListMortgages(ctx)
		if err != nil {
			return Table{}, fmt.Errorf("list mortgages: %w", err)
		}
		return MortgagesTable(ms), nil
	case EntitySnapshots:
		snaps, err := store.ListSnapshots(ctx, WholeDays(dr))
		if err != nil {
			return Table{}, fmt.Errorf("list snapshots: %w", err)
		}
		return SnapshotsTable(snaps), nil
	default:
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
}

// WholeDays extends a non-zero End to the last instant of its day, for
// records that carry a clock.
func WholeDays(dr ledger.DateRange) ledger.DateRange {
	if !dr.End.IsZero() {
		dr.End = dr.End.Add(24*time.Hour - time.Nanosecond)
	}
	return dr
}
