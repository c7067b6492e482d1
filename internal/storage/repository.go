package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"wealthtrack/internal/core"
	"wealthtrack/internal/ledger"

	_ "modernc.org/sqlite"
)

// timestampLayout keeps snapshot times sortable as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRepository is the persistent ledger.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ledger.ErrNotFound)
}

func dateKey(t time.Time) string {
	return t.UTC().Format(core.DateLayout)
}

// dateRangeWhere turns a closed instant range into bounds on a YYYY-MM-DD
// column. Stored dates are midnight UTC, so a start later than midnight
// excludes its own day.
func dateRangeWhere(col string, dr ledger.DateRange) (string, []any) {
	var conds []string
	var args []any
	if !dr.Start.IsZero() {
		s := dr.Start.UTC()
		day := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
		if s.After(day) {
			day = day.AddDate(0, 0, 1)
		}
		conds = append(conds, col+" >= ?")
		args = append(args, dateKey(day))
	}
	if !dr.End.IsZero() {
		conds = append(conds, col+" <= ?")
		args = append(args, dateKey(dr.End))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func parseDate(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("stored date: %w", err)
	}
	return d, nil
}

func (r *SQLiteRepository) exec(ctx context.Context, kind, id, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

func (r *SQLiteRepository) requireProperty(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM properties WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("property", id)
	}
	if err != nil {
		return fmt.Errorf("check property: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// queryAll runs query and scans every row with scan.
func queryAll[T any](ctx context.Context, db *sql.DB, kind, query string, scan func(scanner) (T, error), args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return out, nil
}

func queryOne[T any](ctx context.Context, db *sql.DB, kind, id, query string, scan func(scanner) (T, error)) (T, error) {
	v, err := scan(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, notFound(kind, id)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("get %s: %w", kind, err)
	}
	return v, nil
}

// Properties

const propertyColumns = `id, name, address, purchase_price, current_value, purchase_date`

func scanProperty(s scanner) (core.Property, error) {
	var p core.Property
	var current sql.NullFloat64
	var date string
	if err := s.Scan(&p.ID, &p.Name, &p.Address, &p.PurchasePrice, &current, &date); err != nil {
		return p, err
	}
	if current.Valid {
		p.CurrentValue = core.Amount(current.Float64)
	}
	var err error
	p.PurchaseDate, err = parseDate(date)
	return p, err
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func (r *SQLiteRepository) CreateProperty(ctx context.Context, p core.Property) (core.Property, error) {
	if err := p.Validate(); err != nil {
		return core.Property{}, err
	}
	p.ID = newID(p.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO properties (`+propertyColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Address, p.PurchasePrice, nullable(p.CurrentValue), dateKey(p.PurchaseDate.Time))
	if err != nil {
		return core.Property{}, fmt.Errorf("create property: %w", err)
	}
	slog.InfoContext(ctx, "Property saved to SQLite", "id", p.ID, "name", p.Name)
	return p, nil
}

func (r *SQLiteRepository) GetProperty(ctx context.Context, id string) (core.Property, error) {
	return queryOne(ctx, r.db, "property", id,
		`SELECT `+propertyColumns+` FROM properties WHERE id = ?`, scanProperty)
}

func (r *SQLiteRepository) ListProperties(ctx context.Context) ([]core.Property, error) {
	return queryAll(ctx, r.db, "properties",
		`SELECT `+propertyColumns+` FROM properties ORDER BY created_at, id`, scanProperty)
}

func (r *SQLiteRepository) UpdateProperty(ctx context.Context, p core.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return r.exec(ctx, "property", p.ID,
		`UPDATE properties SET name = ?, address = ?, purchase_price = ?, current_value = ?, purchase_date = ? WHERE id = ?`,
		p.Name, p.Address, p.PurchasePrice, nullable(p.CurrentValue), dateKey(p.PurchaseDate.Time), p.ID)
}

// DeleteProperty removes the property; its child rows go with it through
// ON DELETE CASCADE.
func (r *SQLiteRepository) DeleteProperty(ctx context.Context, id string) error {
	return r.exec(ctx, "property", id, `DELETE FROM properties WHERE id = ?`, id)
}

// Rental incomes

const rentalColumns = `id, property_id, amount, date, tenant_name`

func scanRental(s scanner) (core.RentalIncome, error) {
	var ri core.RentalIncome
	var date string
	if err := s.Scan(&ri.ID, &ri.PropertyID, &ri.Amount, &date, &ri.TenantName); err != nil {
		return ri, err
	}
	var err error
	ri.Date, err = parseDate(date)
	return ri, err
}

func (r *SQLiteRepository) AddRentalIncome(ctx context.Context, ri core.RentalIncome) (core.RentalIncome, error) {
	if err := ri.Validate(); err != nil {
		return core.RentalIncome{}, err
	}
	if err := r.requireProperty(ctx, ri.PropertyID); err != nil {
		return core.RentalIncome{}, err
	}
	ri.ID = newID(ri.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rental_incomes (`+rentalColumns+`) VALUES (?, ?, ?, ?, ?)`,
		ri.ID, ri.PropertyID, ri.Amount, dateKey(ri.Date.Time), ri.TenantName)
	if err != nil {
		return core.RentalIncome{}, fmt.Errorf("create rental income: %w", err)
	}
	return ri, nil
}

func (r *SQLiteRepository) ListRentalIncomes(ctx context.Context, dr ledger.DateRange) ([]core.RentalIncome, error) {
	where, args := dateRangeWhere("date", dr)
	return queryAll(ctx, r.db, "rental incomes",
		`SELECT `+rentalColumns+` FROM rental_incomes`+where+` ORDER BY date, id`, scanRental, args...)
}

func (r *SQLiteRepository) DeleteRentalIncome(ctx context.Context, id string) error {
	return r.exec(ctx, "rental income", id, `DELETE FROM rental_incomes WHERE id = ?`, id)
}

// Property expenses

const propertyExpenseColumns = `id, property_id, amount, date, category, description`

func scanPropertyExpense(s scanner) (core.PropertyExpense, error) {
	var e core.PropertyExpense
	var date, category string
	if err := s.Scan(&e.ID, &e.PropertyID, &e.Amount, &date, &category, &e.Description); err != nil {
		return e, err
	}
	e.Category = core.PropertyExpenseCategory(category)
	var err error
	e.Date, err = parseDate(date)
	return e, err
}

func (r *SQLiteRepository) AddPropertyExpense(ctx context.Context, e core.PropertyExpense) (core.PropertyExpense, error) {
	if err := e.Validate(); err != nil {
		return core.PropertyExpense{}, err
	}
	if err := r.requireProperty(ctx, e.PropertyID); err != nil {
		return core.PropertyExpense{}, err
	}
	e.ID = newID(e.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO property_expenses (`+propertyExpenseColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.PropertyID, e.Amount, dateKey(e.Date.Time), string(e.Category), e.Description)
	if err != nil {
		return core.PropertyExpense{}, fmt.Errorf("create property expense: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListPropertyExpenses(ctx context.Context, dr ledger.DateRange) ([]core.PropertyExpense, error) {
	where, args := dateRangeWhere("date", dr)
	return queryAll(ctx, r.db, "property expenses",
		`SELECT `+propertyExpenseColumns+` FROM property_expenses`+where+` ORDER BY date, id`, scanPropertyExpense, args...)
}

func (r *SQLiteRepository) DeletePropertyExpense(ctx context.Context, id string) error {
	return r.exec(ctx, "property expense", id, `DELETE FROM property_expenses WHERE id = ?`, id)
}

// Mortgages

const mortgageColumns = `id, property_id, original_amount, current_balance, monthly_payment, interest_rate, start_date, term_years`

func scanMortgage(s scanner) (core.Mortgage, error) {
	var m core.Mortgage
	var date string
	if err := s.Scan(&m.ID, &m.PropertyID, &m.OriginalAmount, &m.CurrentBalance, &m.MonthlyPayment,
		&m.InterestRate, &date, &m.TermYears); err != nil {
		return m, err
	}
	var err error
	m.StartDate, err = parseDate(date)
	return m, err
}

func (r *SQLiteRepository) AddMortgage(ctx context.Context, m core.Mortgage) (core.Mortgage, error) {
	if err := m.Validate(); err != nil {
		return core.Mortgage{}, err
	}
	if err := r.requireProperty(ctx, m.PropertyID); err != nil {
		return core.Mortgage{}, err
	}
	m.ID = newID(m.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mortgages (`+mortgageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.PropertyID, m.OriginalAmount, m.CurrentBalance, m.MonthlyPayment, m.InterestRate,
		dateKey(m.StartDate.Time), m.TermYears)
	if err != nil {
		return core.Mortgage{}, fmt.Errorf("create mortgage: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) GetMortgage(ctx context.Context, id string) (core.Mortgage, error) {
	return queryOne(ctx, r.db, "mortgage", id,
		`SELECT `+mortgageColumns+` FROM mortgages WHERE id = ?`, scanMortgage)
}

func (r *SQLiteRepository) ListMortgages(ctx context.Context) ([]core.Mortgage, error) {
	return queryAll(ctx, r.db, "mortgages",
		`SELECT `+mortgageColumns+` FROM mortgages ORDER BY start_date, id`, scanMortgage)
}

func (r *SQLiteRepository) UpdateMortgage(ctx context.Context, m core.Mortgage) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := r.requireProperty(ctx, m.PropertyID); err != nil {
		return err
	}
	return r.exec(ctx, "mortgage", m.ID,
		`UPDATE mortgages SET property_id = ?, original_amount = ?, current_balance = ?, monthly_payment = ?,
		 interest_rate = ?, start_date = ?, term_years = ? WHERE id = ?`,
		m.PropertyID, m.OriginalAmount, m.CurrentBalance, m.MonthlyPayment, m.InterestRate,
		dateKey(m.StartDate.Time), m.TermYears, m.ID)
}

func (r *SQLiteRepository) DeleteMortgage(ctx context.Context, id string) error {
	return r.exec(ctx, "mortgage", id, `DELETE FROM mortgages WHERE id = ?`, id)
}

// Investments

const investmentColumns = `id, name, type, initial_amount, current_value, date, return_rate`

func scanInvestment(s scanner) (core.Investment, error) {
	var inv core.Investment
	var typ, date string
	var rate sql.NullFloat64
	if err := s.Scan(&inv.ID, &inv.Name, &typ, &inv.InitialAmount, &inv.CurrentValue, &date, &rate); err != nil {
		return inv, err
	}
	inv.Type = core.InvestmentType(typ)
	if rate.Valid {
		inv.ReturnRate = core.Amount(rate.Float64)
	}
	var err error
	inv.Date, err = parseDate(date)
	return inv, err
}

func (r *SQLiteRepository) CreateInvestment(ctx context.Context, inv core.Investment) (core.Investment, error) {
	if err := inv.Validate(); err != nil {
		return core.Investment{}, err
	}
	inv.ID = newID(inv.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO investments (`+investmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Name, string(inv.Type), inv.InitialAmount, inv.CurrentValue, dateKey(inv.Date.Time), nullable(inv.ReturnRate))
	if err != nil {
		return core.Investment{}, fmt.Errorf("create investment: %w", err)
	}
	slog.InfoContext(ctx, "Investment saved to SQLite", "id", inv.ID, "type", inv.Type)
	return inv, nil
}

func (r *SQLiteRepository) GetInvestment(ctx context.Context, id string) (core.Investment, error) {
	return queryOne(ctx, r.db, "investment", id,
		`SELECT `+investmentColumns+` FROM investments WHERE id = ?`, scanInvestment)
}

func (r *SQLiteRepository) ListInvestments(ctx context.Context) ([]core.Investment, error) {
	return queryAll(ctx, r.db, "investments",
		`SELECT `+investmentColumns+` FROM investments ORDER BY date, id`, scanInvestment)
}

func (r *SQLiteRepository) UpdateInvestment(ctx context.Context, inv core.Investment) error {
	if err := inv.Validate(); err != nil {
		return err
	}
	return r.exec(ctx, "investment", inv.ID,
		`UPDATE investments SET name = ?, type = ?, initial_amount = ?, current_value = ?, date = ?, return_rate = ? WHERE id = ?`,
		inv.Name, string(inv.Type), inv.InitialAmount, inv.CurrentValue, dateKey(inv.Date.Time), nullable(inv.ReturnRate), inv.ID)
}

func (r *SQLiteRepository) DeleteInvestment(ctx context.Context, id string) error {
	return r.exec(ctx, "investment", id, `DELETE FROM investments WHERE id = ?`, id)
}

// Incomes

const incomeColumns = `id, source, amount, date, category, description`

func scanIncome(s scanner) (core.Income, error) {
	var i core.Income
	var date, category string
	if err := s.Scan(&i.ID, &i.Source, &i.Amount, &date, &category, &i.Description); err != nil {
		return i, err
	}
	i.Category = core.IncomeCategory(category)
	var err error
	i.Date, err = parseDate(date)
	return i, err
}

func (r *SQLiteRepository) CreateIncome(ctx context.Context, i core.Income) (core.Income, error) {
	if err := i.Validate(); err != nil {
		return core.Income{}, err
	}
	i.ID = newID(i.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes (`+incomeColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		i.ID, i.Source, i.Amount, dateKey(i.Date.Time), string(i.Category), i.Description)
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	slog.InfoContext(ctx, "Income saved to SQLite", "id", i.ID, "amount", i.Amount, "date", i.Date)
	return i, nil
}

func (r *SQLiteRepository) GetIncome(ctx context.Context, id string) (core.Income, error) {
	return queryOne(ctx, r.db, "income", id, `SELECT `+incomeColumns+` FROM incomes WHERE id = ?`, scanIncome)
}

func (r *SQLiteRepository) ListIncomes(ctx context.Context, dr ledger.DateRange) ([]core.Income, error) {
	where, args := dateRangeWhere("date", dr)
	return queryAll(ctx, r.db, "incomes",
		`SELECT `+incomeColumns+` FROM incomes`+where+` ORDER BY date, id`, scanIncome, args...)
}

func (r *SQLiteRepository) UpdateIncome(ctx context.Context, i core.Income) error {
	if err := i.Validate(); err != nil {
		return err
	}
	return r.exec(ctx, "income", i.ID,
		`UPDATE incomes SET source = ?, amount = ?, date = ?, category = ?, description = ? WHERE id = ?`,
		i.Source, i.Amount, dateKey(i.Date.Time), string(i.Category), i.Description, i.ID)
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, id string) error {
	return r.exec(ctx, "income", id, `DELETE FROM incomes WHERE id = ?`, id)
}

// Expenses

const expenseColumns = `id, category, amount, date, description`

func scanExpense(s scanner) (core.Expense, error) {
	var e core.Expense
	var date, category string
	if err := s.Scan(&e.ID, &category, &e.Amount, &date, &e.Description); err != nil {
		return e, err
	}
	e.Category = core.ExpenseCategory(category)
	var err error
	e.Date, err = parseDate(date)
	return e, err
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.ID = newID(e.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?)`,
		e.ID, string(e.Category), e.Amount, dateKey(e.Date.Time), e.Description)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"category", e.Category,
		"amount", e.Amount,
		"date", e.Date)
	return e, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	return queryOne(ctx, r.db, "expense", id, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, scanExpense)
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, dr ledger.DateRange) ([]core.Expense, error) {
	where, args := dateRangeWhere("date", dr)
	return queryAll(ctx, r.db, "expenses",
		`SELECT `+expenseColumns+` FROM expenses`+where+` ORDER BY date, id`, scanExpense, args...)
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return r.exec(ctx, "expense", e.ID,
		`UPDATE expenses SET category = ?, amount = ?, date = ?, description = ? WHERE id = ?`,
		string(e.Category), e.Amount, dateKey(e.Date.Time), e.Description, e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	return r.exec(ctx, "expense", id, `DELETE FROM expenses WHERE id = ?`, id)
}

// Snapshots

func scanSnapshot(s scanner) (core.Snapshot, error) {
	var snap core.Snapshot
	var takenAt string
	if err := s.Scan(&snap.ID, &takenAt, &snap.Assets, &snap.Debt, &snap.NetWorth); err != nil {
		return snap, err
	}
	t, err := time.Parse(timestampLayout, takenAt)
	if err != nil {
		return snap, fmt.Errorf("stored timestamp: %w", err)
	}
	snap.TakenAt = t
	return snap, nil
}

func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, snap core.Snapshot) (core.Snapshot, error) {
	snap.ID = newID(snap.ID)
	snap.TakenAt = snap.TakenAt.UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO net_worth_snapshots (id, taken_at, assets, debt, net_worth) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.TakenAt.Format(timestampLayout), snap.Assets, snap.Debt, snap.NetWorth)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("create snapshot: %w", err)
	}
	return snap, nil
}

func (r *SQLiteRepository) ListSnapshots(ctx context.Context, dr ledger.DateRange) ([]core.Snapshot, error) {
	var conds []string
	var args []any
	if !dr.Start.IsZero() {
		conds = append(conds, "taken_at >= ?")
		args = append(args, dr.Start.UTC().Format(timestampLayout))
	}
	if !dr.End.IsZero() {
		conds = append(conds, "taken_at <= ?")
		args = append(args, dr.End.UTC().Format(timestampLayout))
	}
	query := `SELECT id, taken_at, assets, debt, net_worth FROM net_worth_snapshots`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	return queryAll(ctx, r.db, "snapshots", query+` ORDER BY taken_at, id`, scanSnapshot, args...)
}
