package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"wealthtrack/internal/config"
	"wealthtrack/internal/core"
	"wealthtrack/internal/ledger"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite with path", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sheets is gone", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "db.sqlite", DataDirectory: "seed"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "db.sqlite" || cfg.DataDirectory != "seed" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestCreateMemoryBackendWithSeed(t *testing.T) {
	dir := t.TempDir()
	seed := `{"properties":[{"id":"p1","name":"Flat","purchasePrice":1000,"purchaseDate":"2020-01-01"}]}`
	if err := os.WriteFile(filepath.Join(dir, "seed.json"), []byte(seed), 0o600); err != nil {
		t.Fatal(err)
	}

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()

	if res.Publisher != nil {
		t.Error("memory backend should not publish")
	}
	props, err := res.Store.ListProperties(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(props) != 1 || props[0].ID != "p1" {
		t.Errorf("seeded properties = %+v", props)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := res.Store.CreateExpense(ctx, core.Expense{Category: core.ExpenseLiving, Amount: 10, Date: core.NewDate(2024, 1, 1)}); err != nil {
		t.Fatal(err)
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	// Data survives reopening.
	res, err = NewFactory(nil).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()
	got, err := res.Store.ListExpenses(ctx, ledger.All)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 expense after reopen, got %d", len(got))
	}
}
