package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/shift-scheduler/internal/metrics"
	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmehdipour/shift-scheduler/internal/outbox"
	"github.com/jmehdipour/shift-scheduler/internal/projection"
	"github.com/jmehdipour/shift-scheduler/internal/util"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize    = 20
	DefaultInterval     = 2 * time.Second
	DefaultClaimFor     = 30 * time.Second
	DefaultParkFor      = 5 * time.Minute
	DefaultBatchTimeout = 30 * time.Second
)

// Applier replays one event into the secondary store.
type Applier interface {
	Apply(ctx context.Context, ev model.OutboxEvent) (projection.Outcome, error)
}

// Publisher announces replayed changes. Failures are logged, never retried.
type Publisher interface {
	PublishChange(ctx context.Context, n model.ChangeNotification) error
}

// Lease lets one worker instance at a time drain the outbox.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// PendingCounter feeds the pending-events gauge.
type PendingCounter interface {
	CountPending(ctx context.Context) (int, error)
}

// Sync drains the outbox into the secondary store:
// - claims a batch of pending events, oldest first,
// - applies each one independently,
// - acks, fails (retry / dead-letter) or parks it.
type Sync struct {
	// Dependencies
	Queue     outbox.Queue
	Applier   Applier
	Publisher Publisher      // optional
	Lease     Lease          // optional
	Pending   PendingCounter // optional
	Clock     clockwork.Clock
	Log       *zap.Logger

	// Behavior
	ID           string        // claim owner
	BatchSize    int           // max events per cycle
	Interval     time.Duration // sleep between cycles
	MaxRetries   int           // 0 = retry forever
	ClaimFor     time.Duration // how long a claimed batch stays invisible to others
	ParkFor      time.Duration // how long events with an unknown aggregate are set aside
	BatchTimeout time.Duration // upper bound for one cycle, also after shutdown
}

// NewSync builds a worker with sane defaults.
func NewSync(queue outbox.Queue, applier Applier) *Sync {
	return &Sync{
		Queue:        queue,
		Applier:      applier,
		Clock:        clockwork.NewRealClock(),
		Log:          zap.NewNop(),
		ID:           util.InstanceID("sync"),
		BatchSize:    DefaultBatchSize,
		Interval:     DefaultInterval,
		ClaimFor:     DefaultClaimFor,
		ParkFor:      DefaultParkFor,
		BatchTimeout: DefaultBatchTimeout,
	}
}

// CycleStats summarizes one RunOnce.
type CycleStats struct {
	Idle         bool // lease held elsewhere
	Dequeued     int
	Processed    int
	Failed       int
	DeadLettered int
	Parked       int
}

func (w *Sync) validate() error {
	if w.Queue == nil || w.Applier == nil {
		return errors.New("outbox-sync: queue and applier are required")
	}
	if w.Clock == nil {
		w.Clock = clockwork.NewRealClock()
	}
	if w.Log == nil {
		w.Log = zap.NewNop()
	}
	if w.ID == "" {
		w.ID = util.InstanceID("sync")
	}
	if w.BatchSize <= 0 {
		w.BatchSize = DefaultBatchSize
	}
	if w.Interval <= 0 {
		w.Interval = DefaultInterval
	}
	if w.ClaimFor <= 0 {
		w.ClaimFor = DefaultClaimFor
	}
	if w.ParkFor <= 0 {
		w.ParkFor = DefaultParkFor
	}
	if w.BatchTimeout <= 0 {
		w.BatchTimeout = DefaultBatchTimeout
	}
	if w.MaxRetries < 0 {
		w.MaxRetries = 0
	}
	return nil
}

// Run polls until ctx is cancelled. Cancellation is only observed between
// cycles: a batch that has started runs to completion.
func (w *Sync) Run(ctx context.Context) error {
	if err := w.validate(); err != nil {
		return err
	}

	w.Log.Info("outbox sync started",
		zap.String("worker", w.ID),
		zap.Int("batch_size", w.BatchSize),
		zap.Duration("interval", w.Interval),
		zap.Int("max_retries", w.MaxRetries),
	)
	defer w.Release()

	for {
		if ctx.Err() != nil {
			w.Log.Info("outbox sync stopped", zap.String("worker", w.ID))
			return nil
		}

		stats, err := w.cycle(ctx)
		if err != nil {
			w.Log.Error("outbox sync cycle failed", zap.String("worker", w.ID), zap.Error(err))
		} else if stats.Dequeued > 0 {
			w.Log.Debug("outbox sync cycle",
				zap.Int("dequeued", stats.Dequeued),
				zap.Int("processed", stats.Processed),
				zap.Int("failed", stats.Failed),
				zap.Int("dead_lettered", stats.DeadLettered),
				zap.Int("parked", stats.Parked),
			)
		}

		select {
		case <-ctx.Done():
			w.Log.Info("outbox sync stopped", zap.String("worker", w.ID))
			return nil
		case <-w.Clock.After(w.Interval):
		}
	}
}

// cycle runs one batch detached from ctx cancellation.
func (w *Sync) cycle(ctx context.Context) (CycleStats, error) {
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.BatchTimeout)
	defer cancel()
	return w.RunOnce(bctx)
}

// RunOnce claims and processes a single batch.
func (w *Sync) RunOnce(ctx context.Context) (CycleStats, error) {
	var stats CycleStats
	if err := w.validate(); err != nil {
		return stats, err
	}

	start := w.Clock.Now()
	defer func() { metrics.SyncCycleSeconds.Observe(w.Clock.Since(start).Seconds()) }()

	if w.Lease != nil {
		ok, err := w.Lease.Acquire(ctx)
		if err != nil {
			return stats, fmt.Errorf("acquire lease: %w", err)
		}
		if !ok {
			stats.Idle = true
			return stats, nil
		}
	}

	now := w.Clock.Now().UTC()
	events, err := w.Queue.DequeueBatch(ctx, model.OutboxClaim{
		Owner: w.ID,
		Now:   now,
		Until: now.Add(w.ClaimFor),
	}, w.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("dequeue: %w", err)
	}
	stats.Dequeued = len(events)

	for _, ev := range events {
		w.handle(ctx, ev, &stats)
	}

	if w.Pending != nil {
		if n, err := w.Pending.CountPending(ctx); err == nil {
			metrics.OutboxPending.Set(float64(n))
		}
	}
	return stats, nil
}

// handle applies one event. Its outcome never affects other events.
func (w *Sync) handle(ctx context.Context, ev model.OutboxEvent, stats *CycleStats) {
	tag := ev.AggregateType.String()
	log := w.Log.With(
		zap.Int64("outbox_id", ev.ID),
		zap.String("aggregate_type", tag),
		zap.Int64("aggregate_id", ev.AggregateID),
		zap.String("event_type", ev.EventType.String()),
	)

	outcome, err := w.Applier.Apply(ctx, ev)
	switch {
	case err == nil:
		at := w.Clock.Now().UTC()
		if err := w.Queue.Ack(ctx, ev.ID, at); err != nil {
			// Claim expiry redelivers it; replay is idempotent.
			log.Error("ack outbox event", zap.Error(err))
			return
		}
		stats.Processed++
		metrics.OutboxEventsTotal.WithLabelValues(tag, "processed").Inc()
		w.publish(ctx, log, model.ChangeNotification{
			OutboxID:      ev.ID,
			AggregateType: ev.AggregateType,
			AggregateID:   ev.AggregateID,
			EventType:     ev.EventType,
			Outcome:       string(outcome),
			ProcessedUTC:  at,
		})

	case errors.Is(err, projection.ErrUnknownAggregate):
		log.Warn("unknown aggregate type, parking outbox event", zap.Duration("park_for", w.ParkFor))
		if err := w.Queue.Defer(ctx, ev.ID, w.Clock.Now().UTC().Add(w.ParkFor)); err != nil {
			log.Error("park outbox event", zap.Error(err))
			return
		}
		stats.Parked++
		metrics.OutboxEventsTotal.WithLabelValues(tag, "parked").Inc()

	default:
		if ferr := w.Queue.Fail(ctx, ev.ID, err.Error(), w.MaxRetries); ferr != nil {
			log.Error("record outbox failure", zap.Error(ferr), zap.NamedError("cause", err))
			return
		}
		stats.Failed++
		if w.MaxRetries > 0 && ev.RetryCount+1 >= w.MaxRetries {
			stats.DeadLettered++
			metrics.OutboxEventsTotal.WithLabelValues(tag, "dead_lettered").Inc()
			log.Error("outbox event dead-lettered", zap.Int("retry_count", ev.RetryCount+1), zap.Error(err))
			return
		}
		metrics.OutboxEventsTotal.WithLabelValues(tag, "failed").Inc()
		log.Warn("outbox event replay failed", zap.Int("retry_count", ev.RetryCount+1), zap.Error(err))
	}
}

func (w *Sync) publish(ctx context.Context, log *zap.Logger, n model.ChangeNotification) {
	if w.Publisher == nil {
		return
	}
	if err := w.Publisher.PublishChange(ctx, n); err != nil {
		log.Warn("publish change notification", zap.Error(err))
	}
}

// Release gives up the lease, if any. Run calls it on exit; callers of
// RunOnce call it when done.
func (w *Sync) Release() {
	if w.Lease == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Lease.Release(ctx); err != nil {
		w.Log.Warn("release sync lease", zap.Error(err))
	}
}
