package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmoiron/sqlx"
)

// MySQLTable is the primary store adapter of one aggregate. Every mutation
// and its outbox event are committed in a single transaction.
type MySQLTable[T any, PT entity[T]] struct {
	db     *sqlx.DB
	outbox *OutboxRepositoryImpl
	typ    model.AggregateType
	table  string
	now    func() time.Time

	selectCols string
	insertQ    string
	updateQ    string
}

func newMySQLTable[T any, PT entity[T]](db *sqlx.DB, outbox *OutboxRepositoryImpl, typ model.AggregateType, table string, cols ...string) *MySQLTable[T, PT] {
	named := make([]string, len(cols))
	sets := make([]string, 0, len(cols))
	for i, c := range cols {
		named[i] = ":" + c
		if c != "created_at" {
			sets = append(sets, c+" = :"+c)
		}
	}

	return &MySQLTable[T, PT]{
		db:         db,
		outbox:     outbox,
		typ:        typ,
		table:      table,
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		selectCols: "id, " + strings.Join(cols, ", "),
		insertQ:    fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(named, ", ")),
		updateQ:    fmt.Sprintf("UPDATE %s SET %s WHERE id = :id", table, strings.Join(sets, ", ")),
	}
}

func (r *MySQLTable[T, PT]) op(name string) string { return r.table + "." + name }

// Get returns (nil, nil) when the row does not exist.
func (r *MySQLTable[T, PT]) Get(ctx context.Context, id int64) (*T, error) {
	var v T
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", r.selectCols, r.table)
	err := r.db.GetContext(ctx, &v, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyMySQL(r.op("get"), err)
	}
	return &v, nil
}

func (r *MySQLTable[T, PT]) List(ctx context.Context) ([]T, error) {
	var out []T
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", r.selectCols, r.table)
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, classifyMySQL(r.op("list"), err)
	}
	return out, nil
}

// Add inserts e and returns the stored copy with its assigned id.
func (r *MySQLTable[T, PT]) Add(ctx context.Context, e *T) (*T, error) {
	v := *e
	p := PT(&v)
	now := r.now()
	ts := p.Times()
	ts.CreatedAt, ts.UpdatedAt = now, now

	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, r.insertQ, p)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		p.SetAggregateID(id)

		return r.appendEvent(ctx, tx, r.typ, model.EventCreated, p, now)
	})
	if err != nil {
		return nil, classifyMySQL(r.op("add"), err)
	}
	return &v, nil
}

// Update replaces every column of the row except created_at.
func (r *MySQLTable[T, PT]) Update(ctx context.Context, e *T) (*T, error) {
	v := *e
	p := PT(&v)
	now := r.now()

	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		var createdAt time.Time
		q := fmt.Sprintf("SELECT created_at FROM %s WHERE id = ? FOR UPDATE", r.table)
		if err := tx.GetContext(ctx, &createdAt, q, p.AggregateID()); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return NotFound(r.op("update"))
			}
			return err
		}
		ts := p.Times()
		ts.CreatedAt, ts.UpdatedAt = createdAt, now

		if _, err := tx.NamedExecContext(ctx, r.updateQ, p); err != nil {
			return err
		}
		return r.appendEvent(ctx, tx, r.typ, model.EventUpdated, p, now)
	})
	if err != nil {
		return nil, classifyMySQL(r.op("update"), err)
	}
	return &v, nil
}

// Delete removes the row; the event payload carries its last state.
func (r *MySQLTable[T, PT]) Delete(ctx context.Context, id int64) error {
	now := r.now()
	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		var v T
		q := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? FOR UPDATE", r.selectCols, r.table)
		if err := tx.GetContext(ctx, &v, q, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return NotFound(r.op("delete"))
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", r.table), id); err != nil {
			return err
		}
		return r.appendEvent(ctx, tx, r.typ, model.EventDeleted, PT(&v), now)
	})
	return classifyMySQL(r.op("delete"), err)
}

// modify applies fn to the locked row and records the change under tag.
func (r *MySQLTable[T, PT]) modify(ctx context.Context, op string, id int64, tag model.AggregateType, fn func(PT)) (*T, error) {
	var v T
	p := PT(&v)
	now := r.now()

	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		q := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? FOR UPDATE", r.selectCols, r.table)
		if err := tx.GetContext(ctx, &v, q, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return NotFound(r.op(op))
			}
			return err
		}
		fn(p)
		p.Times().UpdatedAt = now

		if _, err := tx.NamedExecContext(ctx, r.updateQ, p); err != nil {
			return err
		}
		return r.appendEvent(ctx, tx, tag, model.EventUpdated, p, now)
	})
	if err != nil {
		return nil, classifyMySQL(r.op(op), err)
	}
	return &v, nil
}

func (r *MySQLTable[T, PT]) appendEvent(ctx context.Context, tx *sqlx.Tx, tag model.AggregateType, typ model.EventType, p PT, now time.Time) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return Permanent(r.op("payload"), err)
	}
	return r.outbox.Append(ctx, tx, model.OutboxEvent{
		AggregateType: tag,
		AggregateID:   p.AggregateID(),
		EventType:     typ,
		PayloadJSON:   payload,
		CreatedUTC:    now,
	})
}
