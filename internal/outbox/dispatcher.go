package outbox

import (
	"context"
	"log/slog"
	"time"
)

// Enqueuer hands a claimed record to the background queue.
type Enqueuer interface {
	EnqueueOutboxRecord(ctx context.Context, kind string, payload []byte) error
}

// RecordStore is the slice of Store the dispatcher needs.
type RecordStore interface {
	ClaimPending(ctx context.Context, limit int) ([]Record, error)
	MarkDone(ctx context.Context, rec Record) error
	Requeue(ctx context.Context, rec Record) error
}

// Dispatcher drains pending records into the queue.
type Dispatcher struct {
	store    RecordStore
	enqueuer Enqueuer
	logger   *slog.Logger
	batch    int
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(store RecordStore, enqueuer Enqueuer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{store: store, enqueuer: enqueuer, logger: logger, batch: 50}
}

// Drain claims one batch and hands each record to the queue. It returns the
// number of records settled; enqueue failures are requeued, never surfaced.
func (d *Dispatcher) Drain(ctx context.Context) (int, error) {
	records, err := d.store.ClaimPending(ctx, d.batch)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, rec := range records {
		if err := d.enqueuer.EnqueueOutboxRecord(ctx, rec.Kind, rec.Payload); err != nil {
			d.logger.Warn("outbox enqueue failed", slog.String("kind", rec.Kind), slog.String("id", rec.ID.String()), slog.Any("error", err))
			if err := d.store.Requeue(ctx, rec); err != nil {
				d.logger.Error("outbox requeue failed", slog.String("id", rec.ID.String()), slog.Any("error", err))
			}
			continue
		}
		if err := d.store.MarkDone(ctx, rec); err != nil {
			d.logger.Error("outbox mark done failed", slog.String("id", rec.ID.String()), slog.Any("error", err))
			continue
		}
		done++
	}
	return done, nil
}

// Run sweeps the outbox on the given interval until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.Drain(ctx); err != nil {
				d.logger.Warn("outbox drain", slog.Any("error", err))
			}
		}
	}
}
