package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"wealthtrack/internal/core"
	"wealthtrack/internal/ledger"
)

// table keeps records of one kind by id, remembering insertion order.
type table[T any] struct {
	byID  map[string]T
	order []string
}

func newTable[T any]() *table[T] {
	return &table[T]{byID: make(map[string]T)}
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.byID[id]; !ok {
		t.order = append(t.order, id)
	}
	t.byID[id] = v
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.byID[id]
	return v, ok
}

func (t *table[T]) remove(id string) bool {
	if _, ok := t.byID[id]; !ok {
		return false
	}
	delete(t.byID, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// list returns the records matching keep in insertion order.
func (t *table[T]) list(keep func(T) bool) []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		v := t.byID[id]
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Store is an in-memory ledger. It is safe for concurrent use and loses
// everything on exit.
type Store struct {
	mu         sync.RWMutex
	properties *table[core.Property]
	rentals    *table[core.RentalIncome]
	propExp    *table[core.PropertyExpense]
	mortgages  *table[core.Mortgage]
	invest     *table[core.Investment]
	incomes    *table[core.Income]
	expenses   *table[core.Expense]
	snapshots  *table[core.Snapshot]
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		properties: newTable[core.Property](),
		rentals:    newTable[core.RentalIncome](),
		propExp:    newTable[core.PropertyExpense](),
		mortgages:  newTable[core.Mortgage](),
		invest:     newTable[core.Investment](),
		incomes:    newTable[core.Income](),
		expenses:   newTable[core.Expense](),
		snapshots:  newTable[core.Snapshot](),
	}
}

// SeedFile is the dataset read by NewFromFiles.
const SeedFile = "seed.json"

// NewFromFiles returns a store preloaded from base/seed.json. A missing file
// gives an empty store.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	data, err := os.ReadFile(filepath.Join(base, SeedFile))
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var d ledger.Dataset
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := ledger.Load(context.Background(), s, d); err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return nil }

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func byDate[T any](items []T, dateOf func(T) time.Time) []T {
	sort.SliceStable(items, func(i, j int) bool { return dateOf(items[i]).Before(dateOf(items[j])) })
	return items
}

// Properties

func (s *Store) CreateProperty(_ context.Context, p core.Property) (core.Property, error) {
	if err := p.Validate(); err != nil {
		return core.Property{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = newID(p.ID)
	s.properties.put(p.ID, p)
	return p, nil
}

func (s *Store) GetProperty(_ context.Context, id string) (core.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties.get(id)
	if !ok {
		return core.Property{}, fmt.Errorf("property %s: %w", id, ledger.ErrNotFound)
	}
	return p, nil
}

func (s *Store) ListProperties(_ context.Context) ([]core.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.properties.list(nil), nil
}

func (s *Store) UpdateProperty(_ context.Context, p core.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties.get(p.ID); !ok {
		return fmt.Errorf("property %s: %w", p.ID, ledger.ErrNotFound)
	}
	s.properties.put(p.ID, p)
	return nil
}

func (s *Store) DeleteProperty(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.properties.remove(id) {
		return fmt.Errorf("property %s: %w", id, ledger.ErrNotFound)
	}
	for _, r := range s.rentals.list(func(r core.RentalIncome) bool { return r.PropertyID == id }) {
		s.rentals.remove(r.ID)
	}
	for _, e := range s.propExp.list(func(e core.PropertyExpense) bool { return e.PropertyID == id }) {
		s.propExp.remove(e.ID)
	}
	for _, m := range s.mortgages.list(func(m core.Mortgage) bool { return m.PropertyID == id }) {
		s.mortgages.remove(m.ID)
	}
	return nil
}

func (s *Store) requireProperty(id string) error {
	if _, ok := s.properties.get(id); !ok {
		return fmt.Errorf("property %s: %w", id, ledger.ErrNotFound)
	}
	return nil
}

// Rental incomes

func (s *Store) AddRentalIncome(_ context.Context, r core.RentalIncome) (core.RentalIncome, error) {
	if err := r.Validate(); err != nil {
		return core.RentalIncome{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProperty(r.PropertyID); err != nil {
		return core.RentalIncome{}, err
	}
	r.ID = newID(r.ID)
	s.rentals.put(r.ID, r)
	return r, nil
}

func (s *Store) ListRentalIncomes(_ context.Context, dr ledger.DateRange) ([]core.RentalIncome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.rentals.list(func(r core.RentalIncome) bool { return dr.Contains(r.Date.Time) })
	return byDate(out, func(r core.RentalIncome) time.Time { return r.Date.Time }), nil
}

func (s *Store) DeleteRentalIncome(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.rentals.remove(id) {
		return fmt.Errorf("rental income %s: %w", id, ledger.ErrNotFound)
	}
	return nil
}

// Property expenses

func (s *Store) AddPropertyExpense(_ context.Context, e core.PropertyExpense) (core.PropertyExpense, error) {
	if err := e.Validate(); err != nil {
		return core.PropertyExpense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProperty(e.PropertyID); err != nil {
		return core.PropertyExpense{}, err
	}
	e.ID = newID(e.ID)
	s.propExp.put(e.ID, e)
	return e, nil
}

func (s *Store) ListPropertyExpenses(_ context.Context, dr ledger.DateRange) ([]core.PropertyExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.propExp.list(func(e core.PropertyExpense) bool { return dr.Contains(e.Date.Time) })
	return byDate(out, func(e core.PropertyExpense) time.Time { return e.Date.Time }), nil
}

func (s *Store) DeletePropertyExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.propExp.remove(id) {
		return fmt.Errorf("property expense %s: %w", id, ledger.ErrNotFound)
	}
	return nil
}

// Mortgages

func (s *Store) AddMortgage(_ context.Context, m core.Mortgage) (core.Mortgage, error) {
	if err := m.Validate(); err != nil {
		return core.Mortgage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProperty(m.PropertyID); err != nil {
		return core.Mortgage{}, err
	}
	m.ID = newID(m.ID)
	s.mortgages.put(m.ID, m)
	return m, nil
}

func (s *Store) GetMortgage(_ context.Context, id string) (core.Mortgage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mortgages.get(id)
	if !ok {
		return core.Mortgage{}, fmt.Errorf("mortgage %s: %w", id, ledger.ErrNotFound)
	}
	return m, nil
}

func (s *Store) ListMortgages(_ context.Context) ([]core.Mortgage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mortgages.list(nil), nil
}

func (s *Store) UpdateMortgage(_ context.Context, m core.Mortgage) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mortgages.get(m.ID); !ok {
		return fmt.Errorf("mortgage %s: %w", m.ID, ledger.ErrNotFound)
	}
	if err := s.requireProperty(m.PropertyID); err != nil {
		return err
	}
	s.mortgages.put(m.ID, m)
	return nil
}

func (s *Store) DeleteMortgage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mortgages.remove(id) {
		return fmt.Errorf("mortgage %s: %w", id, ledger.ErrNotFound)
	}
	return nil
}

// Investments

func (s *Store) CreateInvestment(_ context.Context, inv core.Investment) (core.Investment, error) {
	if err := inv.Validate(); err != nil {
		return core.Investment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv.ID = newID(inv.ID)
	s.invest.put(inv.ID, inv)
	return inv, nil
}

func (s *Store) GetInvestment(_ context.Context, id string) (core.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invest.get(id)
	if !ok {
		return core.Investment{}, fmt.Errorf("investment %s: %w", id, ledger.ErrNotFound)
	}
	return inv, nil
}

func (s *Store) ListInvestments(_ context.Context) ([]core.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.invest.list(nil), nil
}

func (s *Store) UpdateInvestment(_ context.Context, inv core.Investment) error {
	if err := inv.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invest.get(inv.ID); !ok {
		return fmt.Errorf("investment %s: %w", inv.ID, ledger.ErrNotFound)
	}
	s.invest.put(inv.ID, inv)
	return nil
}

func (s *Store) DeleteInvestment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.invest.remove(id) {
		return fmt.Errorf("investment %s: %w", id, ledger.ErrNotFound)
	}
	return nil
}

// Incomes

func (s *Store) CreateIncome(_ context.Context, i core.Income) (core.Income, error) {
	if err := i.Validate(); err != nil {
		return core.Income{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i.ID = newID(i.ID)
	s.incomes.put(i.ID, i)
	return i, nil
}

func (s *Store) GetIncome(_ context.Context, id string) (core.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.incomes.get(id)
	if !ok {
		return core.Income{}, fmt.Errorf("income %s: %w", id, ledger.ErrNotFound)
	}
	return i, nil
}

func (s *Store) ListIncomes(_ context.Context, dr ledger.DateRange) ([]core.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.incomes.list(func(i core.Income) bool { return dr.Contains(i.Date.Time) })
	return byDate(out, func(i core.Income) time.Time { return i.Date.Time }), nil
}

func (s *Store) UpdateIncome(_ context.Context, i core.Income) error {
	if err := i.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incomes.get(i.ID); !ok {
		return fmt.Errorf("income %s: %w", i.ID, ledger.ErrNotFound)
	}
	s.incomes.put(i.ID, i)
	return nil
}

func (s *Store) DeleteIncome(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.incomes.remove(id) {
		return fmt.Errorf("income %s: %w", id, ledger.ErrNotFound)
	}
	return nil
}

// Expenses

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = newID(e.ID)
	s.expenses.put(e.ID, e)
	return e, nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses.get(id)
	if !ok {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, ledger.ErrNotFound)
	}
	return e, nil
}

func (s *Store) ListExpenses(_ context.Context, dr ledger.DateRange) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.expenses.list(func(e core.Expense) bool { return dr.Contains(e.Date.Time) })
	return byDate(out, func(e core.Expense) time.Time { return e.Date.Time }), nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses.get(e.ID); !ok {
		return fmt.Errorf("expense %s: %w", e.ID, ledger.ErrNotFound)
	}
	s.expenses.put(e.ID, e)
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.expenses.remove(id) {
		return fmt.Errorf("expense %s: %w", id, ledger.ErrNotFound)
	}
	return nil
}

// Snapshots

func (s *Store) SaveSnapshot(_ context.Context, snap core.Snapshot) (core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.ID = newID(snap.ID)
	s.snapshots.put(snap.ID, snap)
	return snap, nil
}

func (s *Store) ListSnapshots(_ context.Context, dr ledger.DateRange) ([]core.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snapshots.list(func(sn core.Snapshot) bool { return dr.Contains(sn.TakenAt) })
	return byDate(out, func(sn core.Snapshot) time.Time { return sn.TakenAt }), nil
}
