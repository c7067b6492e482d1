// Package ledger defines the storage ports used by services: one store per
// record family plus the aggregate Store implemented by each backend.
package ledger

import (
	"context"
	"errors"
	"time"

	"wealthtrack/internal/core"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// DateRange is a closed interval of dates. A zero bound leaves that side open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// All matches every date.
var All = DateRange{}

// Contains reports whether t falls within the range, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// PropertyStore holds properties and the records attached to them. Deleting a
// property deletes its rentals, expenses and mortgages.
type PropertyStore interface {
	CreateProperty(ctx context.Context, p core.Property) (core.Property, error)
	GetProperty(ctx context.Context, id string) (core.Property, error)
	ListProperties(ctx context.Context) ([]core.Property, error)
	UpdateProperty(ctx context.Context, p core.Property) error
	DeleteProperty(ctx context.Context, id string) error

	AddRentalIncome(ctx context.Context, r core.RentalIncome) (core.RentalIncome, error)
	ListRentalIncomes(ctx context.Context, dr DateRange) ([]core.RentalIncome, error)
	DeleteRentalIncome(ctx context.Context, id string) error

	AddPropertyExpense(ctx context.Context, e core.PropertyExpense) (core.PropertyExpense, error)
	ListPropertyExpenses(ctx context.Context, dr DateRange) ([]core.PropertyExpense, error)
	DeletePropertyExpense(ctx context.Context, id string) error

	AddMortgage(ctx context.Context, m core.Mortgage) (core.Mortgage, error)
	GetMortgage(ctx context.Context, id string) (core.Mortgage, error)
	ListMortgages(ctx context.Context) ([]core.Mortgage, error)
	UpdateMortgage(ctx context.Context, m core.Mortgage) error
	DeleteMortgage(ctx context.Context, id string) error
}

type InvestmentStore interface {
	CreateInvestment(ctx context.Context, inv core.Investment) (core.Investment, error)
	GetInvestment(ctx context.Context, id string) (core.Investment, error)
	ListInvestments(ctx context.Context) ([]core.Investment, error)
	UpdateInvestment(ctx context.Context, inv core.Investment) error
	DeleteInvestment(ctx context.Context, id string) error
}

type IncomeStore interface {
	CreateIncome(ctx context.Context, i core.Income) (core.Income, error)
	GetIncome(ctx context.Context, id string) (core.Income, error)
	ListIncomes(ctx context.Context, dr DateRange) ([]core.Income, error)
	UpdateIncome(ctx context.Context, i core.Income) error
	DeleteIncome(ctx context.Context, id string) error
}

type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	ListExpenses(ctx context.Context, dr DateRange) ([]core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, id string) error
}

// SnapshotStore keeps the net worth history, oldest first.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s core.Snapshot) (core.Snapshot, error)
	ListSnapshots(ctx context.Context, dr DateRange) ([]core.Snapshot, error)
}

// Store is everything a backend provides.
type Store interface {
	PropertyStore
	InvestmentStore
	IncomeStore
	ExpenseStore
	SnapshotStore
	Close() error
}

// Dataset is a full copy of the ledger, used for backup and seeding.
type Dataset struct {
	Properties       []core.Property        `json:"properties"`
	RentalIncomes    []core.RentalIncome    `json:"rentalIncomes"`
	PropertyExpenses []core.PropertyExpense `json:"propertyExpenses"`
	Mortgages        []core.Mortgage        `json:"mortgages"`
	Investments      []core.Investment      `json:"investments"`
	Incomes          []core.Income          `json:"incomes"`
	Expenses         []core.Expense         `json:"expenses"`
	Snapshots        []core.Snapshot        `json:"snapshots,omitempty"`
}

// Dump reads every record from s.
func Dump(ctx context.Context, s Store) (Dataset, error) {
	var d Dataset
	var err error
	if d.Properties, err = s.ListProperties(ctx); err != nil {
		return d, err
	}
	if d.RentalIncomes, err = s.ListRentalIncomes(ctx, All); err != nil {
		return d, err
	}
	if d.PropertyExpenses, err = s.ListPropertyExpenses(ctx, All); err != nil {
		return d, err
	}
	if d.Mortgages, err = s.ListMortgages(ctx); err != nil {
		return d, err
	}
	if d.Investments, err = s.ListInvestments(ctx); err != nil {
		return d, err
	}
	if d.Incomes, err = s.ListIncomes(ctx, All); err != nil {
		return d, err
	}
	if d.Expenses, err = s.ListExpenses(ctx, All); err != nil {
		return d, err
	}
	if d.Snapshots, err = s.ListSnapshots(ctx, All); err != nil {
		return d, err
	}
	return d, nil
}

// Load writes every record of d into s, keeping ids. Properties go first so
// child records find their parent.
func Load(ctx context.Context, s Store, d Dataset) error {
	for _, p := range d.Properties {
		if _, err := s.CreateProperty(ctx, p); err != nil {
			return err
		}
	}
	for _, r := range d.RentalIncomes {
		if _, err := s.AddRentalIncome(ctx, r); err != nil {
			return err
		}
	}
	for _, e := range d.PropertyExpenses {
		if _, err := s.AddPropertyExpense(ctx, e); err != nil {
			return err
		}
	}
	for _, m := range d.Mortgages {
		if _, err := s.AddMortgage(ctx, m); err != nil {
			return err
		}
	}
	for _, inv := range d.Investments {
		if _, err := s.CreateInvestment(ctx, inv); err != nil {
			return err
		}
	}
	for _, i := range d.Incomes {
		if _, err := s.CreateIncome(ctx, i); err != nil {
			return err
		}
	}
	for _, e := range d.Expenses {
		if _, err := s.CreateExpense(ctx, e); err != nil {
			return err
		}
	}
	for _, snap := range d.Snapshots {
		if _, err := s.SaveSnapshot(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}
