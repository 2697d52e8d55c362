// Package worker applies ledger events to the spreadsheet mirror.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"warung/internal/core"
	applog "warung/internal/log"
	"warung/internal/sheets"
)

// EventConsumer delivers ledger events one at a time. A handler error must
// cause redelivery.
type EventConsumer interface {
	ConsumeEvents(ctx context.Context, handler func(context.Context, core.TransactionEvent) error) error
}

// Stats counts handled events since start.
type Stats struct {
	Recorded int64
	Deleted  int64
	Failed   int64
}

// SyncWorker mirrors recorded and deleted transactions into Google Sheets.
type SyncWorker struct {
	consumer EventConsumer
	mirror   sheets.Mirror
	logger   *applog.Logger
	timeout  time.Duration

	recorded int64
	deleted  int64
	failed   int64
}

func NewSyncWorker(consumer EventConsumer, mirror sheets.Mirror, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &SyncWorker{
		consumer: consumer,
		mirror:   mirror,
		logger:   logger.WithComponent(applog.ComponentWorker),
		timeout:  30 * time.Second,
	}
}

// Run consumes events until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Sync worker started")
	err := w.consumer.ConsumeEvents(ctx, w.HandleEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume events: %w", err)
	}
	w.logger.InfoContext(ctx, "Sync worker stopped", "stats", w.Stats())
	return nil
}

// HandleEvent applies one event to the mirror. Both operations are keyed by
// transaction id, so a redelivered event is safe.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev core.TransactionEvent) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	if err := sheets.Apply(ctx, w.mirror, ev); err != nil {
		atomic.AddInt64(&w.failed, 1)
		w.logger.ErrorContext(ctx, "Failed to sync transaction",
			applog.FieldEvent, ev.Type,
			applog.FieldTransaction, ev.Transaction.ID,
			applog.FieldError, err)
		return fmt.Errorf("sync %s %s: %w", ev.Type, ev.Transaction.ID, err)
	}

	switch ev.Type {
	case core.EventRecorded:
		atomic.AddInt64(&w.recorded, 1)
	case core.EventDeleted:
		atomic.AddInt64(&w.deleted, 1)
	}

	w.logger.InfoContext(ctx, "Transaction synced",
		applog.FieldEvent, ev.Type,
		applog.FieldTransaction, ev.Transaction.ID,
		applog.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func (w *SyncWorker) Stats() Stats {
	return Stats{
		Recorded: atomic.LoadInt64(&w.recorded),
		Deleted:  atomic.LoadInt64(&w.deleted),
		Failed:   atomic.LoadInt64(&w.failed),
	}
}
