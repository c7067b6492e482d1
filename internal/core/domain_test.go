package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(struct{ D Date }{NewDate(2024, 3, 5)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"D":"2024-03-05"}` {
		t.Fatalf("unexpected json %s", b)
	}

	var v struct{ D Date }
	if err := json.Unmarshal([]byte(`{"D":"2023-09-15"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !v.D.Equal(NewDate(2023, 9, 15).Time) {
		t.Fatalf("unexpected date %v", v.D)
	}
	if err := json.Unmarshal([]byte(`{"D":"2023-09-15T10:00:00Z"}`), &v); err != nil {
		t.Fatalf("unmarshal rfc3339: %v", err)
	}
	if err := json.Unmarshal([]byte(`{"D":"15/09/2023"}`), &v); err == nil {
		t.Fatalf("expected error for bad layout")
	}
}

func TestDateJSONKeepsCalendarDayOfOffset(t *testing.T) {
	tests := []struct {
		in   string
		want Date
	}{
		{`"2024-03-01T01:00:00+03:00"`, NewDate(2024, 3, 1)},
		{`"2024-02-29T23:30:00-05:00"`, NewDate(2024, 2, 29)},
		{`"2023-09-15T10:00:00Z"`, NewDate(2023, 9, 15)},
	}
	for _, tt := range tests {
		var d Date
		if err := json.Unmarshal([]byte(tt.in), &d); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.in, err)
		}
		if !d.Equal(tt.want.Time) || d.Location() != time.UTC {
			t.Errorf("unmarshal %s = %v, want %v", tt.in, d.Time, tt.want.Time)
		}
		if got := d.UTC().Format(DateLayout); got != tt.want.String() {
			t.Errorf("stored day for %s = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestPropertyValueFallsBackToPurchasePrice(t *testing.T) {
	p := Property{Name: "Flat", PurchasePrice: 100}
	if p.Value() != 100 {
		t.Fatalf("expected fallback to purchase price, got %v", p.Value())
	}
	p.CurrentValue = Amount(150)
	if p.Value() != 150 {
		t.Fatalf("expected current value, got %v", p.Value())
	}
	p.CurrentValue = Amount(0)
	if p.Value() != 0 {
		t.Fatalf("explicit zero must not fall back, got %v", p.Value())
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Date:        NewDate(2025, 1, 1),
		Description: "ok",
		Amount:      12.5,
		Category:    ExpenseLiving,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Date: Date{Time: time.Time{}}, Amount: 1, Category: ExpenseLiving}, // zero date
		{Date: NewDate(2025, 1, 1), Amount: 0, Category: ExpenseLiving},
		{Date: NewDate(2025, 1, 1), Amount: -3, Category: ExpenseLiving},
		{Date: NewDate(2025, 1, 1), Amount: 1, Category: "groceries"},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestIncomeValidate(t *testing.T) {
	good := Income{Source: "ACME", Amount: 100, Date: NewDate(2025, 2, 1), Category: IncomeSalary}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Income{
		{Source: "", Amount: 100, Date: NewDate(2025, 2, 1), Category: IncomeSalary},
		{Source: "x", Amount: 100, Date: NewDate(2025, 2, 1), Category: "rental_income"},
		{Source: "x", Amount: 0, Date: NewDate(2025, 2, 1), Category: IncomeRental},
	}
	for i, in := range bads {
		if err := in.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestPropertyChildrenValidate(t *testing.T) {
	day := NewDate(2024, 5, 1)
	if err := (RentalIncome{PropertyID: "p1", Amount: 8000, Date: day}).Validate(); err != nil {
		t.Fatalf("rental: %v", err)
	}
	if err := (RentalIncome{Amount: 8000, Date: day}).Validate(); err != ErrMissingProperty {
		t.Fatalf("rental without property: got %v", err)
	}
	if err := (PropertyExpense{PropertyID: "p1", Amount: 10, Date: day, Category: PropertyRepairs}).Validate(); err != nil {
		t.Fatalf("property expense: %v", err)
	}
	if err := (PropertyExpense{PropertyID: "p1", Amount: 10, Date: day, Category: "living"}).Validate(); err != ErrInvalidCategory {
		t.Fatalf("property expense category: got %v", err)
	}
	m := Mortgage{PropertyID: "p1", OriginalAmount: 1_000_000, CurrentBalance: 1_200_000, InterestRate: 4, StartDate: day}
	if err := m.Validate(); err != nil {
		t.Fatalf("stale balances are accepted: %v", err)
	}
	m.InterestRate = -1
	if err := m.Validate(); err != ErrInvalidRate {
		t.Fatalf("negative rate: got %v", err)
	}
}

func TestInvestmentValidate(t *testing.T) {
	inv := Investment{Name: "ETF", Type: InvestmentStocks, InitialAmount: 1000, CurrentValue: 0, Date: NewDate(2020, 1, 1)}
	if err := inv.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	inv.Type = "gold"
	if err := inv.Validate(); err != ErrInvalidCategory {
		t.Fatalf("expected invalid category, got %v", err)
	}
}
