package repository

import (
	"context"

	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmoiron/sqlx"
)

// CRUD is the persistence contract shared by the primary adapter, the
// secondary adapter and the fallback repository of one aggregate.
//
// Get returns (nil, nil) when the entity does not exist. Update and Delete
// return ErrNotFound (permanent) in that case.
type CRUD[T any] interface {
	Get(ctx context.Context, id int64) (*T, error)
	List(ctx context.Context) ([]T, error)
	Add(ctx context.Context, e *T) (*T, error)
	Update(ctx context.Context, e *T) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// ShiftsRepository adds the shift-specific mutations.
type ShiftsRepository interface {
	CRUD[model.Shift]
	RecordWorkHours(ctx context.Context, id int64, hours float64) (*model.Shift, error)
	Substitute(ctx context.Context, id, employeeID int64) (*model.Shift, error)
}

// Reader is the read side the projection applier re-reads the primary with.
type Reader[T any] interface {
	Get(ctx context.Context, id int64) (*T, error)
}

// Sink is the write side the projection applier replays into.
type Sink[T any] interface {
	// Upsert stores e under its own id, creating or replacing.
	Upsert(ctx context.Context, e *T) error
	// Remove deletes id; a missing entity is not an error.
	Remove(ctx context.Context, id int64) error
}

// entity constrains a pointer-to-aggregate type parameter.
type entity[T any] interface {
	*T
	model.Aggregate
}

// withTx runs fn in the provided tx, or starts a new transaction when tx is nil.
func withTx(ctx context.Context, db *sqlx.DB, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}

	t, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}

	return t.Commit()
}
