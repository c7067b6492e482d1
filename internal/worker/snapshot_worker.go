// Package worker keeps the net worth history current: it records a snapshot
// for every ledger change announced over AMQP and on a cron schedule.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"wealthtrack/internal/amqp"
	"wealthtrack/internal/core"
	"wealthtrack/internal/ledger"
	"wealthtrack/internal/log"
)

// Snapshotter records and lists net worth snapshots. *services.SnapshotService
// implements it.
type Snapshotter interface {
	Take(ctx context.Context) (core.Snapshot, error)
	History(ctx context.Context, dr ledger.DateRange) ([]core.Snapshot, error)
}

// SnapshotWorker records snapshots in response to ledger changes and on a
// schedule. Takes are serialized.
type SnapshotWorker struct {
	snapshots Snapshotter
	now       func() time.Time

	mu   sync.Mutex
	cron *cron.Cron

	takeMu sync.Mutex

	taken  atomic.Int64
	failed atomic.Int64
}

// Stats counts snapshot attempts.
type Stats struct {
	Taken  int64 `json:"taken"`
	Failed int64 `json:"failed"`
}

func NewSnapshotWorker(snapshots Snapshotter) *SnapshotWorker {
	return &SnapshotWorker{snapshots: snapshots, now: time.Now}
}

// HandleLedgerChange processes a single ledger change message from AMQP. An
// error makes the consumer requeue the message.
func (w *SnapshotWorker) HandleLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		"entity", msg.Entity,
		"op", msg.Op,
		"id", msg.ID)

	if _, err := w.take(ctx); err != nil {
		return fmt.Errorf("snapshot after %s %s: %w", msg.Entity, msg.Op, err)
	}
	return nil
}

// StartupSnapshot records a snapshot unless one was already taken today, so
// a restarted worker does not leave a gap in the history.
func (w *SnapshotWorker) StartupSnapshot(ctx context.Context) error {
	now := w.now().UTC()
	today := ledger.DateRange{
		Start: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		End:   now,
	}
	existing, err := w.snapshots.History(ctx, today)
	if err != nil {
		return fmt.Errorf("read snapshot history: %w", err)
	}
	if len(existing) > 0 {
		slog.InfoContext(ctx, "Snapshot already taken today", "count", len(existing))
		return nil
	}
	_, err = w.take(ctx)
	return err
}

// StartSchedule runs a snapshot on spec, a standard cron expression or a
// descriptor such as "@daily". A run still in progress makes the next one
// skip.
func (w *SnapshotWorker) StartSchedule(spec string) error {
	logger := cronLogger{logger: slog.Default().With(log.FieldComponent, log.ComponentWorker)}
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)), cron.WithLogger(logger))
	if _, err := c.AddFunc(spec, w.scheduled); err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", spec, err)
	}

	w.mu.Lock()
	w.cron = c
	w.mu.Unlock()

	c.Start()
	slog.Info("Snapshot schedule started", "schedule", spec)
	return nil
}

func (w *SnapshotWorker) scheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := w.take(ctx); err != nil {
		slog.ErrorContext(ctx, "Scheduled snapshot failed", "error", err)
	}
}

// Stop ends the schedule and waits for a running snapshot, up to ctx.
func (w *SnapshotWorker) Stop(ctx context.Context) {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		slog.Warn("Snapshot schedule did not stop in time")
	}
}

func (w *SnapshotWorker) Stats() Stats {
	return Stats{Taken: w.taken.Load(), Failed: w.failed.Load()}
}

func (w *SnapshotWorker) take(ctx context.Context) (core.Snapshot, error) {
	w.takeMu.Lock()
	defer w.takeMu.Unlock()

	snap, err := w.snapshots.Take(ctx)
	if err != nil {
		w.failed.Add(1)
		return core.Snapshot{}, err
	}
	w.taken.Add(1)
	return snap, nil
}

// cronLogger routes cron's logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
