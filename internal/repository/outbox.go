package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmoiron/sqlx"
)

// OutboxRepository defines persistence methods for the outbox_events table.
type OutboxRepository interface {
	// Append writes a single outbox event. If tx is nil, it will open/commit
	// an internal transaction; otherwise it uses the given tx.
	Append(ctx context.Context, tx *sqlx.Tx, ev model.OutboxEvent) error
	DequeueBatch(ctx context.Context, claim model.OutboxClaim, limit int) ([]model.OutboxEvent, error)
	Ack(ctx context.Context, id int64, at time.Time) error
	Fail(ctx context.Context, id int64, reason string, maxRetries int) error
	Defer(ctx context.Context, id int64, until time.Time) error
	ListDeadLettered(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	Requeue(ctx context.Context, id int64) error
	CountPending(ctx context.Context) (int, error)
}

// OutboxRepositoryImpl is a sqlx-backed implementation.
type OutboxRepositoryImpl struct {
	db *sqlx.DB
}

// NewOutboxRepository constructs an OutboxRepositoryImpl.
func NewOutboxRepository(db *sqlx.DB) *OutboxRepositoryImpl {
	return &OutboxRepositoryImpl{db: db}
}

var _ OutboxRepository = (*OutboxRepositoryImpl)(nil)

const outboxColumns = `id, aggregate_type, aggregate_id, event_type, COALESCE(payload_json, '') AS payload_json, created_utc,
		       processed_utc, retry_count, last_error, status, claimed_by, claimed_until`

// Append adds a pending event row. The sync worker picks it up by
// (created_utc, id) order.
func (r *OutboxRepositoryImpl) Append(ctx context.Context, tx *sqlx.Tx, ev model.OutboxEvent) error {
	const q = `
		INSERT INTO outbox_events
		    (aggregate_type, aggregate_id, event_type, payload_json, created_utc, retry_count, status)
		VALUES
		    (?,              ?,            ?,          ?,            ?,           0,           'pending')
	`
	var payload any
	if len(ev.PayloadJSON) > 0 {
		payload = []byte(ev.PayloadJSON)
	}
	err := withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			ev.AggregateType.String(), ev.AggregateID, ev.EventType.String(), payload, ev.CreatedUTC.UTC(),
		)
		return err
	})
	return classifyMySQL("outbox.append", err)
}

// DequeueBatch claims up to limit pending events, oldest first. Rows locked
// by a concurrent claimer are skipped, and rows whose claim has not expired
// yet are left alone.
func (r *OutboxRepositoryImpl) DequeueBatch(ctx context.Context, claim model.OutboxClaim, limit int) ([]model.OutboxEvent, error) {
	if limit <= 0 {
		return nil, nil
	}
	const sel = `
		SELECT ` + outboxColumns + `
		  FROM outbox_events
		 WHERE status = 'pending'
		   AND processed_utc IS NULL
		   AND (claimed_until IS NULL OR claimed_until <= ?)
		 ORDER BY created_utc, id
		 LIMIT ?
		 FOR UPDATE SKIP LOCKED
	`
	var events []model.OutboxEvent
	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &events, sel, claim.Now.UTC(), limit); err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		ids := make([]int64, len(events))
		for i := range events {
			ids[i] = events[i].ID
		}
		query, args, err := sqlx.In(
			`UPDATE outbox_events SET claimed_by = ?, claimed_until = ? WHERE id IN (?)`,
			claim.Owner, claim.Until.UTC(), ids,
		)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return err
		}

		until := claim.Until.UTC()
		for i := range events {
			owner := claim.Owner
			events[i].ClaimedBy = &owner
			events[i].ClaimedUntil = &until
		}
		return nil
	})
	if err != nil {
		return nil, classifyMySQL("outbox.dequeue", err)
	}
	return events, nil
}

// Ack marks an event processed. Processed events are never touched again.
func (r *OutboxRepositoryImpl) Ack(ctx context.Context, id int64, at time.Time) error {
	const q = `
		UPDATE outbox_events
		   SET processed_utc = ?, last_error = NULL, status = 'processed',
		       claimed_by = NULL, claimed_until = NULL
		 WHERE id = ? AND processed_utc IS NULL
	`
	_, err := r.db.ExecContext(ctx, q, at.UTC(), id)
	return classifyMySQL("outbox.ack", err)
}

// Fail records one failed replay: retry_count grows by exactly one and
// last_error is overwritten. With maxRetries > 0 the event is dead-lettered
// once the new count reaches it.
func (r *OutboxRepositoryImpl) Fail(ctx context.Context, id int64, reason string, maxRetries int) error {
	// MySQL evaluates SET left to right, so status must read the old count.
	const q = `
		UPDATE outbox_events
		   SET status = CASE WHEN ? > 0 AND retry_count + 1 >= ? THEN 'dead_lettered' ELSE 'pending' END,
		       retry_count = retry_count + 1,
		       last_error = ?,
		       claimed_by = NULL, claimed_until = NULL
		 WHERE id = ? AND processed_utc IS NULL
	`
	_, err := r.db.ExecContext(ctx, q, maxRetries, maxRetries, reason, id)
	return classifyMySQL("outbox.fail", err)
}

// Defer keeps the event claimed until the given time without counting a retry.
func (r *OutboxRepositoryImpl) Defer(ctx context.Context, id int64, until time.Time) error {
	const q = `UPDATE outbox_events SET claimed_until = ? WHERE id = ? AND processed_utc IS NULL`
	_, err := r.db.ExecContext(ctx, q, until.UTC(), id)
	return classifyMySQL("outbox.defer", err)
}

// ListDeadLettered returns dead-lettered events, oldest first.
func (r *OutboxRepositoryImpl) ListDeadLettered(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + outboxColumns + ` FROM outbox_events WHERE status = 'dead_lettered' ORDER BY created_utc, id LIMIT ?`
	var events []model.OutboxEvent
	if err := r.db.SelectContext(ctx, &events, q, limit); err != nil {
		return nil, classifyMySQL("outbox.list_dead_lettered", err)
	}
	return events, nil
}

// Requeue moves a dead-lettered event back to pending with a fresh retry budget.
func (r *OutboxRepositoryImpl) Requeue(ctx context.Context, id int64) error {
	const q = `
		UPDATE outbox_events
		   SET status = 'pending', retry_count = 0, claimed_by = NULL, claimed_until = NULL
		 WHERE id = ? AND status = 'dead_lettered'
	`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return classifyMySQL("outbox.requeue", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classifyMySQL("outbox.requeue", err)
	}
	if n == 0 {
		return NotFound("outbox.requeue")
	}
	return nil
}

// CountPending returns the number of events still waiting for replay.
func (r *OutboxRepositoryImpl) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM outbox_events WHERE status = 'pending'`)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, classifyMySQL("outbox.count_pending", err)
	}
	return n, nil
}
