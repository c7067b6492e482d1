package core

import (
	"errors"
	"strings"
	"time"
)

// Expense categories.
const (
	ExpenseLiving         ExpenseCategory = "living"
	ExpenseTransportation ExpenseCategory = "transportation"
	ExpenseHealthcare     ExpenseCategory = "healthcare"
	ExpenseEntertainment  ExpenseCategory = "entertainment"
	ExpenseEducation      ExpenseCategory = "education"
	ExpenseShopping       ExpenseCategory = "shopping"
	ExpenseUtilities      ExpenseCategory = "utilities"
	ExpenseInsurance      ExpenseCategory = "insurance"
	ExpenseTaxes          ExpenseCategory = "taxes"
	ExpenseOther          ExpenseCategory = "other"
)

// Income categories. IncomeRental tags generic income records and is unrelated
// to RentalIncome records attached to a property.
const (
	IncomeSalary    IncomeCategory = "salary"
	IncomeFreelance IncomeCategory = "freelance"
	IncomeRental    IncomeCategory = "rental"
	IncomeDividends IncomeCategory = "dividends"
	IncomeBonus     IncomeCategory = "bonus"
	IncomeOther     IncomeCategory = "other"
)

// Property expense categories.
const (
	PropertyMaintenance PropertyExpenseCategory = "maintenance"
	PropertyTaxes       PropertyExpenseCategory = "taxes"
	PropertyInsurance   PropertyExpenseCategory = "insurance"
	PropertyManagement  PropertyExpenseCategory = "management"
	PropertyUtilities   PropertyExpenseCategory = "utilities"
	PropertyRepairs     PropertyExpenseCategory = "repairs"
)

// Investment types.
const (
	InvestmentStocks     InvestmentType = "stocks"
	InvestmentMutualFund InvestmentType = "mutual_fund"
	InvestmentPension    InvestmentType = "pension"
	InvestmentStudyFund  InvestmentType = "study_fund"
	InvestmentSavings    InvestmentType = "savings"
	InvestmentBonds      InvestmentType = "bonds"
	InvestmentCrypto     InvestmentType = "crypto"
	InvestmentOther      InvestmentType = "other"
)

type (
	ExpenseCategory         string
	IncomeCategory          string
	PropertyExpenseCategory string
	InvestmentType          string

	Property struct {
		ID            string   `json:"id"`
		Name          string   `json:"name"`
		Address       string   `json:"address,omitempty"`
		PurchasePrice float64  `json:"purchasePrice"`
		CurrentValue  *float64 `json:"currentValue,omitempty"` // nil falls back to PurchasePrice
		PurchaseDate  Date     `json:"purchaseDate"`
	}

	RentalIncome struct {
		ID         string  `json:"id"`
		PropertyID string  `json:"propertyId"`
		Amount     float64 `json:"amount"`
		Date       Date    `json:"date"`
		TenantName string  `json:"tenantName,omitempty"`
	}

	PropertyExpense struct {
		ID          string                  `json:"id"`
		PropertyID  string                  `json:"propertyId"`
		Amount      float64                 `json:"amount"`
		Date        Date                    `json:"date"`
		Category    PropertyExpenseCategory `json:"category"`
		Description string                  `json:"description,omitempty"`
	}

	Mortgage struct {
		ID             string  `json:"id"`
		PropertyID     string  `json:"propertyId"`
		OriginalAmount float64 `json:"originalAmount"`
		CurrentBalance float64 `json:"currentBalance"`
		MonthlyPayment float64 `json:"monthlyPayment"`
		InterestRate   float64 `json:"interestRate"` // annual percent
		StartDate      Date    `json:"startDate"`
		TermYears      int     `json:"termYears,omitempty"`
	}

	Investment struct {
		ID            string         `json:"id"`
		Name          string         `json:"name"`
		Type          InvestmentType `json:"type"`
		InitialAmount float64        `json:"initialAmount"`
		CurrentValue  float64        `json:"currentValue"`
		Date          Date           `json:"date"`
		ReturnRate    *float64       `json:"returnRate,omitempty"`
	}

	Income struct {
		ID          string         `json:"id"`
		Source      string         `json:"source"`
		Amount      float64        `json:"amount"`
		Date        Date           `json:"date"`
		Category    IncomeCategory `json:"category"`
		Description string         `json:"description,omitempty"`
	}

	Expense struct {
		ID          string          `json:"id"`
		Category    ExpenseCategory `json:"category"`
		Amount      float64         `json:"amount"`
		Date        Date            `json:"date"`
		Description string          `json:"description,omitempty"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidRate     = errors.New("invalid interest rate")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptySource     = errors.New("empty source")
	ErrMissingProperty = errors.New("missing property id")
)

// Value returns the current value, or the purchase price when none was recorded.
func (p Property) Value() float64 {
	if p.CurrentValue != nil {
		return *p.CurrentValue
	}
	return p.PurchasePrice
}

// Amount returns a pointer to v, for optional amount fields.
func Amount(v float64) *float64 {
	return &v
}

func (c ExpenseCategory) Valid() bool {
	switch c {
	case ExpenseLiving, ExpenseTransportation, ExpenseHealthcare, ExpenseEntertainment,
		ExpenseEducation, ExpenseShopping, ExpenseUtilities, ExpenseInsurance, ExpenseTaxes, ExpenseOther:
		return true
	}
	return false
}

func (c IncomeCategory) Valid() bool {
	switch c {
	case IncomeSalary, IncomeFreelance, IncomeRental, IncomeDividends, IncomeBonus, IncomeOther:
		return true
	}
	return false
}

func (c PropertyExpenseCategory) Valid() bool {
	switch c {
	case PropertyMaintenance, PropertyTaxes, PropertyInsurance, PropertyManagement, PropertyUtilities, PropertyRepairs:
		return true
	}
	return false
}

func (t InvestmentType) Valid() bool {
	switch t {
	case InvestmentStocks, InvestmentMutualFund, InvestmentPension, InvestmentStudyFund,
		InvestmentSavings, InvestmentBonds, InvestmentCrypto, InvestmentOther:
		return true
	}
	return false
}

func validateAmount(v float64, allowZero bool) error {
	if v < 0 || (!allowZero && v == 0) {
		return ErrInvalidAmount
	}
	return nil
}

func (p Property) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := validateAmount(p.PurchasePrice, true); err != nil {
		return err
	}
	if p.CurrentValue != nil {
		if err := validateAmount(*p.CurrentValue, true); err != nil {
			return err
		}
	}
	return p.PurchaseDate.Validate()
}

func (r RentalIncome) Validate() error {
	if strings.TrimSpace(r.PropertyID) == "" {
		return ErrMissingProperty
	}
	if err := validateAmount(r.Amount, false); err != nil {
		return err
	}
	return r.Date.Validate()
}

func (e PropertyExpense) Validate() error {
	if strings.TrimSpace(e.PropertyID) == "" {
		return ErrMissingProperty
	}
	if err := validateAmount(e.Amount, false); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	return e.Date.Validate()
}

func (m Mortgage) Validate() error {
	if strings.TrimSpace(m.PropertyID) == "" {
		return ErrMissingProperty
	}
	for _, v := range []float64{m.OriginalAmount, m.CurrentBalance, m.MonthlyPayment} {
		if err := validateAmount(v, true); err != nil {
			return err
		}
	}
	if m.InterestRate < 0 || m.InterestRate > 100 {
		return ErrInvalidRate
	}
	if m.TermYears < 0 {
		return errors.New("invalid term")
	}
	return m.StartDate.Validate()
}

func (i Investment) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if !i.Type.Valid() {
		return ErrInvalidCategory
	}
	if err := validateAmount(i.InitialAmount, false); err != nil {
		return err
	}
	if err := validateAmount(i.CurrentValue, true); err != nil {
		return err
	}
	return i.Date.Validate()
}

func (i Income) Validate() error {
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	if err := validateAmount(i.Amount, false); err != nil {
		return err
	}
	if !i.Category.Valid() {
		return ErrInvalidCategory
	}
	if len(i.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return i.Date.Validate()
}

func (e Expense) Validate() error {
	if err := validateAmount(e.Amount, false); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return e.Date.Validate()
}

// Snapshot is a point-in-time net worth reading.
type Snapshot struct {
	ID       string    `json:"id"`
	TakenAt  time.Time `json:"takenAt"`
	Assets   float64   `json:"assets"`
	Debt     float64   `json:"debt"`
	NetWorth float64   `json:"netWorth"`
}
