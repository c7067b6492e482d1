package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthtrack/internal/core"
	"wealthtrack/internal/finance"
	"wealthtrack/internal/ledger"
	"wealthtrack/internal/ledger/memory"
)

func TestCell(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "a,b", "a,b"},
		{"float shortest", 1234.5, "1234.5"},
		{"float integral", 2_000_000.0, "2000000"},
		{"int", 42, "42"},
		{"bool", true, "true"},
		{"nil pointer", (*float64)(nil), ""},
		{"pointer", core.Amount(7.25), "7.25"},
		{"time", time.Date(2024, 3, 9, 15, 4, 0, 0, time.UTC), "2024-03-09"},
		{"date", core.NewDate(2024, 3, 9), "2024-03-09"},
		{"string kind", core.IncomeSalary, "salary"},
		{"map", map[string]float64{"a": 1}, `{"a":1}`},
		{"slice", []int{1, 2}, "[1,2]"},
		{"struct", struct {
			A int `json:"a"`
		}{3}, `{"a":3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cell(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	table := IncomesTable([]core.Income{
		{ID: "i1", Source: "ACME, Inc", Amount: 20_000, Category: core.IncomeSalary, Date: core.NewDate(2024, 1, 10)},
		{ID: "i2", Source: "Client", Amount: 1_500.5, Category: core.IncomeFreelance, Date: core.NewDate(2024, 1, 20), Description: "site"},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))

	want := "id,date,source,category,amount,description\n" +
		"i1,2024-01-10,\"ACME, Inc\",salary,20000,\n" +
		"i2,2024-01-20,Client,freelance,1500.5,site\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ExpensesTable(nil)))
	assert.Equal(t, "id,date,category,amount,description\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, CashFlowTable([]finance.MonthPoint{{Month: "2024-01", Income: 10, Expenses: 4, Profit: 6}})))
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \"columns\": [\n    \"month\""), buf.String())
	assert.Contains(t, buf.String(), "\"2024-01\"")
	assert.True(t, strings.HasSuffix(buf.String(), "}\n"))
}

func TestTablesAreRectangular(t *testing.T) {
	tables := []Table{
		PropertiesTable([]core.Property{{ID: "p", Name: "Flat", PurchasePrice: 1, PurchaseDate: core.NewDate(2020, 1, 1)}}),
		InvestmentsTable([]core.Investment{{ID: "v", Name: "ETF", Type: core.InvestmentStocks, InitialAmount: 100, CurrentValue: 150}}),
		ExpensesTable([]core.Expense{{ID: "e", Category: core.ExpenseLiving, Amount: 1}}),
		SnapshotsTable([]core.Snapshot{{NetWorth: 5}}),
	}
	for _, table := range tables {
		for _, row := range table.Rows {
			assert.Len(t, row, len(table.Columns), table.Columns)
		}
	}
	assert.Equal(t, 50.0, tables[1].Rows[0][7])
}

func TestForEntity(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := store.CreateExpense(ctx, core.Expense{Date: core.NewDate(2024, 3, 1), Category: core.ExpenseLiving, Amount: 10})
	require.NoError(t, err)
	_, err = store.CreateExpense(ctx, core.Expense{Date: core.NewDate(2024, 5, 1), Category: core.ExpenseLiving, Amount: 20})
	require.NoError(t, err)

	all, err := ForEntity(ctx, store, EntityExpenses, ledger.All)
	require.NoError(t, err)
	assert.Len(t, all.Rows, 2)

	march := ledger.DateRange{
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	some, err := ForEntity(ctx, store, EntityExpenses, march)
	require.NoError(t, err)
	require.Len(t, some.Rows, 1)
	assert.Equal(t, 10.0, some.Rows[0][3])

	props, err := ForEntity(ctx, store, EntityProperties, ledger.All)
	require.NoError(t, err)
	assert.Empty(t, props.Rows)

	_, err = store.SaveSnapshot(ctx, core.Snapshot{TakenAt: time.Date(2024, 3, 31, 18, 0, 0, 0, time.UTC), Assets: 500, Debt: 200, NetWorth: 300})
	require.NoError(t, err)
	snaps, err := ForEntity(ctx, store, EntitySnapshots, march)
	require.NoError(t, err)
	require.Len(t, snaps.Rows, 1, "the evening snapshot of the last day is included")
	assert.Equal(t, []string{"taken_at", "assets", "debt", "net_worth"}, snaps.Columns)
	assert.Equal(t, 300.0, snaps.Rows[0][3])

	for _, entity := range []string{EntityRentals, EntityPropertyExp, EntityMortgages} {
		tbl, err := ForEntity(ctx, store, entity, ledger.All)
		require.NoError(t, err, entity)
		assert.NotEmpty(t, tbl.Columns, entity)
		assert.Empty(t, tbl.Rows, entity)
	}

	_, err = ForEntity(ctx, store, "pets", ledger.All)
	assert.ErrorIs(t, err, ErrUnknownEntity)
}
