package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wealthtrack/internal/core"
	"wealthtrack/internal/finance"
	"wealthtrack/internal/ledger"
)

// SnapshotService records the net worth history used by risk statistics.
type SnapshotService struct {
	store ledger.Store
	now   func() time.Time
}

func NewSnapshotService(store ledger.Store) *SnapshotService {
	return &SnapshotService{store: store, now: time.Now}
}

// Take computes assets, debt and net worth from the current ledger and stores
// the reading.
func (s *SnapshotService) Take(ctx context.Context) (core.Snapshot, error) {
	properties, err := s.store.ListProperties(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("list properties: %w", err)
	}
	investments, err := s.store.ListInvestments(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("list investments: %w", err)
	}
	mortgages, err := s.store.ListMortgages(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("list mortgages: %w", err)
	}

	debt := finance.TotalMortgageDebt(finance.GroupByProperty(properties, nil, nil, mortgages))
	snap := core.Snapshot{
		TakenAt:  s.now().UTC(),
		Assets:   finance.TotalAssetValue(properties, investments),
		Debt:     debt,
		NetWorth: finance.NetWorth(properties, investments, debt),
	}

	saved, err := s.store.SaveSnapshot(ctx, snap)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	slog.InfoContext(ctx, "Recorded net worth snapshot",
		"id", saved.ID,
		"net_worth", saved.NetWorth,
		"assets", saved.Assets,
		"debt", saved.Debt)
	return saved, nil
}

// History returns the snapshots taken within dr, oldest first.
func (s *SnapshotService) History(ctx context.Context, dr ledger.DateRange) ([]core.Snapshot, error) {
	snaps, err := s.store.ListSnapshots(ctx, dr)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}
