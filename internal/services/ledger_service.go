package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"wealthtrack/internal/amqp"
	"wealthtrack/internal/core"
	"wealthtrack/internal/ledger"
	"wealthtrack/internal/log"
)

// ErrValidation wraps every record validation failure returned by the
// service, so transports can tell bad input from storage errors.
var ErrValidation = errors.New("validation failed")

// Publisher announces ledger changes. *amqp.Client implements it.
type Publisher interface {
	PublishLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error
	Close() error
}

// LedgerService validates and writes ledger records, then announces each
// change. The store is the source of truth: a failed announcement is logged
// and never fails the write.
type LedgerService struct {
	store     ledger.Store
	publisher Publisher
	logger    *log.StructuredLogger

	mu        sync.RWMutex
	listeners []func(entity, op, id string)
}

// NewLedgerService takes ownership of store and publisher; publisher may be nil.
func NewLedgerService(store ledger.Store, publisher Publisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    log.NewStructuredLogger(log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentLedger})),
	}
}

// Store returns the underlying store for reads.
func (s *LedgerService) Store() ledger.Store {
	return s.store
}

// OnChange registers fn to run after every successful write.
func (s *LedgerService) OnChange(fn func(entity, op, id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func validate(v interface{ Validate() error }) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// changed runs after a successful write.
func (s *LedgerService) changed(ctx context.Context, entity, op, id string) {
	s.logger.LogRecordWritten(ctx, entity, op, id)

	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(entity, op, id)
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping change message", "entity", entity, "id", id)
		return
	}
	if err := s.publisher.PublishLedgerChange(ctx, amqp.NewLedgerChangeMessage(entity, op, id)); err != nil {
		s.logger.LogError(ctx, "Failed to publish ledger change", err, log.OpPublish,
			log.NewFields().WithRecord(entity, id).WithErrorType(log.ErrorTypeNetwork))
	}
}

// Properties

func (s *LedgerService) CreateProperty(ctx context.Context, p core.Property) (core.Property, error) {
	if err := validate(p); err != nil {
		return core.Property{}, err
	}
	created, err := s.store.CreateProperty(ctx, p)
	if err != nil {
		return core.Property{}, fmt.Errorf("create property: %w", err)
	}
	s.changed(ctx, amqp.EntityProperty, amqp.OpCreated, created.ID)
	return created, nil
}

func (s *LedgerService) UpdateProperty(ctx context.Context, p core.Property) error {
	if err := validate(p); err != nil {
		return err
	}
	if err := s.store.UpdateProperty(ctx, p); err != nil {
		return fmt.Errorf("update property: %w", err)
	}
	s.changed(ctx, amqp.EntityProperty, amqp.OpUpdated, p.ID)
	return nil
}

// DeleteProperty removes the property and everything attached to it.
func (s *LedgerService) DeleteProperty(ctx context.Context, id string) error {
	if err := s.store.DeleteProperty(ctx, id); err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	s.changed(ctx, amqp.EntityProperty, amqp.OpDeleted, id)
	return nil
}

func (s *LedgerService) AddRentalIncome(ctx context.Context, r core.RentalIncome) (core.RentalIncome, error) {
	if err := validate(r); err != nil {
		return core.RentalIncome{}, err
	}
	created, err := s.store.AddRentalIncome(ctx, r)
	if err != nil {
		return core.RentalIncome{}, fmt.Errorf("add rental income: %w", err)
	}
	s.changed(ctx, amqp.EntityRentalIncome, amqp.OpCreated, created.ID)
	return created, nil
}

func (s *LedgerService) DeleteRentalIncome(ctx context.Context, id string) error {
	if err := s.store.DeleteRentalIncome(ctx, id); err != nil {
		return fmt.Errorf("delete rental income: %w", err)
	}
	s.changed(ctx, amqp.EntityRentalIncome, amqp.OpDeleted, id)
	return nil
}

func (s *LedgerService) AddPropertyExpense(ctx context.Context, e core.PropertyExpense) (core.PropertyExpense, error) {
	if err := validate(e); err != nil {
		return core.PropertyExpense{}, err
	}
	created, err := s.store.AddPropertyExpense(ctx, e)
	if err != nil {
		return core.PropertyExpense{}, fmt.Errorf("add property expense: %w", err)
	}
	s.changed(ctx, amqp.EntityPropertyExpense, amqp.OpCreated, created.ID)
	return created, nil
}

func (s *LedgerService) DeletePropertyExpense(ctx context.Context, id string) error {
	if err := s.store.DeletePropertyExpense(ctx, id); err != nil {
		return fmt.Errorf("delete property expense: %w", err)
	}
	s.changed(ctx, amqp.EntityPropertyExpense, amqp.OpDeleted, id)
	return nil
}

func (s *LedgerService) AddMortgage(ctx context.Context, m core.Mortgage) (core.Mortgage, error) {
	if err := validate(m); err != nil {
		return core.Mortgage{}, err
	}
	created, err := s.store.AddMortgage(ctx, m)
	if err != nil {
		return core.Mortgage{}, fmt.Errorf("add mortgage: %w", err)
	}
	s.changed(ctx, amqp.EntityMortgage, amqp.OpCreated, created.ID)
	return created, nil
}

func (s *LedgerService) UpdateMortgage(ctx context.Context, m core.Mortgage) error {
	if err := validate(m); err != nil {
		return err
	}
	if err := s.store.UpdateMortgage(ctx, m); err != nil {
		return fmt.Errorf("update mortgage: %w", err)
	}
	s.changed(ctx, amqp.EntityMortgage, amqp.OpUpdated, m.ID)
	return nil
}

func (s *LedgerService) DeleteMortgage(ctx context.Context, id string) error {
	if err := s.store.DeleteMortgage(ctx, id); err != nil {
		return fmt.Errorf("delete mortgage: %w", err)
	}
	s.changed(ctx, amqp.EntityMortgage, amqp.OpDeleted, id)
	return nil
}

// Investments

func (s *LedgerService) CreateInvestment(ctx context.Context, inv core.Investment) (core.Investment, error) {
	if err := validate(inv); err != nil {
		return core.Investment{}, err
	}
	created, err := s.store.CreateInvestment(ctx, inv)
	if err != nil {
		return core.Investment{}, fmt.Errorf("create investment: %w", err)
	}
	s.changed(ctx, amqp.EntityInvestment, amqp.OpCreated, created.ID)
	return created, nil
}

func (s *LedgerService) UpdateInvestment(ctx context.Context, inv core.Investment) error {
	if err := validate(inv); err != nil {
		return err
	}
	if err := s.store.UpdateInvestment(ctx, inv); err != nil {
		return fmt.Errorf("update investment: %w", err)
	}
	s.changed(ctx, amqp.EntityInvestment, amqp.OpUpdated, inv.ID)
	return nil
}

func (s *LedgerService) DeleteInvestment(ctx context.Context, id string) error {
	if err := s.store.DeleteInvestment(ctx, id); err != nil {
		return fmt.Errorf("delete investment: %w", err)
	}
	s.changed(ctx, amqp.EntityInvestment, amqp.OpDeleted, id)
	return nil
}

// Incomes

func (s *LedgerService) CreateIncome(ctx context.Context, i core.Income) (core.Income, error) {
	if err := validate(i); err != nil {
		return core.Income{}, err
	}
	created, err := s.store.CreateIncome(ctx, i)
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	s.changed(ctx, amqp.EntityIncome, amqp.OpCreated, created.ID)
	return created, nil
}

func (s *LedgerService) UpdateIncome(ctx context.Context, i core.Income) error {
	if err := validate(i); err != nil {
		return err
	}
	if err := s.store.UpdateIncome(ctx, i); err != nil {
		return fmt.Errorf("update income: %w", err)
	}
	s.changed(ctx, amqp.EntityIncome, amqp.OpUpdated, i.ID)
	return nil
}

func (s *LedgerService) DeleteIncome(ctx context.Context, id string) error {
	if err := s.store.DeleteIncome(ctx, id); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	s.changed(ctx, amqp.EntityIncome, amqp.OpDeleted, id)
	return nil
}

// Expenses

func (s *LedgerService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := validate(e); err != nil {
		return core.Expense{}, err
	}
	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	s.changed(ctx, amqp.EntityExpense, amqp.OpCreated, created.ID)
	return created, nil
}

func (s *LedgerService) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := validate(e); err != nil {
		return err
	}
	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	s.changed(ctx, amqp.EntityExpense, amqp.OpUpdated, e.ID)
	return nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id string) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.changed(ctx, amqp.EntityExpense, amqp.OpDeleted, id)
	return nil
}

// Close closes both storage and AMQP connections
func (s *LedgerService) Close() error {
	var errs []error

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
