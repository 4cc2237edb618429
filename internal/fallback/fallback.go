// Package fallback routes repository calls to the primary store and, when
// the primary fails transiently, to the secondary store with the same
// arguments.
package fallback

import (
	"context"

	"github.com/jmehdipour/shift-scheduler/internal/metrics"
	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmehdipour/shift-scheduler/internal/repository"
	"go.uber.org/zap"
)

type Option func(*failover)

// WithBreaker gates primary calls with b. The same breaker is normally
// shared by every repository on one primary.
func WithBreaker(b *Breaker) Option {
	return func(f *failover) { f.breaker = b }
}

func WithLogger(l *zap.Logger) Option {
	return func(f *failover) {
		if l != nil {
			f.log = l
		}
	}
}

type failover struct {
	aggregate string
	breaker   *Breaker
	log       *zap.Logger
}

func newFailover(agg model.AggregateType, opts []Option) failover {
	f := failover{aggregate: agg.String(), log: zap.NewNop()}
	for _, o := range opts {
		o(&f)
	}
	return f
}

// do calls primary, and secondary exactly once when primary fails
// transiently or the breaker is open. Permanent errors and cancelled
// requests are returned as they are.
func do[R any](ctx context.Context, f *failover, op string, primary, secondary func(context.Context) (R, error)) (R, error) {
	if f.breaker.TryAcquire() {
		res, err := primary(ctx)
		if err == nil {
			f.breaker.OnSuccess()
			return res, nil
		}
		if ctx.Err() != nil {
			f.breaker.Abandon()
			return res, err
		}
		if !repository.IsTransient(err) {
			// The primary answered; only the request was bad.
			f.breaker.OnSuccess()
			return res, err
		}
		f.breaker.OnFailure()
		f.log.Warn("primary store failed, using secondary",
			zap.String("aggregate", f.aggregate),
			zap.String("op", op),
			zap.Error(err),
		)
	} else {
		if err := ctx.Err(); err != nil {
			var zero R
			return zero, err
		}
		f.log.Warn("primary breaker open, using secondary",
			zap.String("aggregate", f.aggregate),
			zap.String("op", op),
		)
	}

	metrics.FailoverTotal.WithLabelValues(f.aggregate, op).Inc()
	return secondary(ctx)
}

// Repository is the fallback repository of one aggregate.
type Repository[T any] struct {
	failover
	primary   repository.CRUD[T]
	secondary repository.CRUD[T]
}

func New[T any](agg model.AggregateType, primary, secondary repository.CRUD[T], opts ...Option) *Repository[T] {
	return &Repository[T]{
		failover:  newFailover(agg, opts),
		primary:   primary,
		secondary: secondary,
	}
}

var _ repository.CRUD[model.Employee] = (*Repository[model.Employee])(nil)

func (r *Repository[T]) Get(ctx context.Context, id int64) (*T, error) {
	return do(ctx, &r.failover, "get",
		func(ctx context.Context) (*T, error) { return r.primary.Get(ctx, id) },
		func(ctx context.Context) (*T, error) { return r.secondary.Get(ctx, id) },
	)
}

func (r *Repository[T]) List(ctx context.Context) ([]T, error) {
	return do(ctx, &r.failover, "list", r.primary.List, r.secondary.List)
}

func (r *Repository[T]) Add(ctx context.Context, e *T) (*T, error) {
	return do(ctx, &r.failover, "add",
		func(ctx context.Context) (*T, error) { return r.primary.Add(ctx, e) },
		func(ctx context.Context) (*T, error) { return r.secondary.Add(ctx, e) },
	)
}

func (r *Repository[T]) Update(ctx context.Context, e *T) (*T, error) {
	return do(ctx, &r.failover, "update",
		func(ctx context.Context) (*T, error) { return r.primary.Update(ctx, e) },
		func(ctx context.Context) (*T, error) { return r.secondary.Update(ctx, e) },
	)
}

func (r *Repository[T]) Delete(ctx context.Context, id int64) error {
	_, err := do(ctx, &r.failover, "delete",
		func(ctx context.Context) (struct{}, error) { return struct{}{}, r.primary.Delete(ctx, id) },
		func(ctx context.Context) (struct{}, error) { return struct{}{}, r.secondary.Delete(ctx, id) },
	)
	return err
}

// Shifts is the fallback repository for shifts.
type Shifts struct {
	*Repository[model.Shift]
	primary   repository.ShiftsRepository
	secondary repository.ShiftsRepository
}

func NewShifts(primary, secondary repository.ShiftsRepository, opts ...Option) *Shifts {
	return &Shifts{
		Repository: New[model.Shift](model.AggregateShift, primary, secondary, opts...),
		primary:    primary,
		secondary:  secondary,
	}
}

var _ repository.ShiftsRepository = (*Shifts)(nil)

func (r *Shifts) RecordWorkHours(ctx context.Context, id int64, hours float64) (*model.Shift, error) {
	return do(ctx, &r.failover, "record_work_hours",
		func(ctx context.Context) (*model.Shift, error) { return r.primary.RecordWorkHours(ctx, id, hours) },
		func(ctx context.Context) (*model.Shift, error) { return r.secondary.RecordWorkHours(ctx, id, hours) },
	)
}

func (r *Shifts) Substitute(ctx context.Context, id, employeeID int64) (*model.Shift, error) {
	return do(ctx, &r.failover, "substitute",
		func(ctx context.Context) (*model.Shift, error) { return r.primary.Substitute(ctx, id, employeeID) },
		func(ctx context.Context) (*model.Shift, error) { return r.secondary.Substitute(ctx, id, employeeID) },
	)
}
