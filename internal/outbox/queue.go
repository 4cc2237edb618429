// Package outbox defines the durable queue the sync worker drains, and an
// in-memory implementation of it.
package outbox

import (
	"context"
	"time"

	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmehdipour/shift-scheduler/internal/repository"
)

// Queue is the worker's view of the outbox.
type Queue interface {
	// DequeueBatch claims up to limit pending events, oldest first by
	// (CreatedUTC, ID).
	DequeueBatch(ctx context.Context, claim model.OutboxClaim, limit int) ([]model.OutboxEvent, error)
	// Ack marks the event processed at the given time and clears LastError.
	Ack(ctx context.Context, id int64, at time.Time) error
	// Fail increments RetryCount once and overwrites LastError. With
	// maxRetries > 0 the event is dead-lettered when the count reaches it.
	Fail(ctx context.Context, id int64, reason string, maxRetries int) error
	// Defer leaves the event pending but invisible until the given time.
	Defer(ctx context.Context, id int64, until time.Time) error
}

// Admin is the operator surface over dead-lettered events.
type Admin interface {
	ListDeadLettered(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	Requeue(ctx context.Context, id int64) error
}

var (
	_ Queue = (*repository.OutboxRepositoryImpl)(nil)
	_ Admin = (*repository.OutboxRepositoryImpl)(nil)
	_ Queue = (*MemQueue)(nil)
	_ Admin = (*MemQueue)(nil)
)
