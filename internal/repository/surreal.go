package repository

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// FailoverIDBase is the first id handed out by the secondary store when it
// accepts inserts during a primary outage. It sits far above any primary
// AUTO_INCREMENT value so the two ranges never collide.
const FailoverIDBase int64 = 1_000_000_000

const sequenceTable = "id_sequence"

// document is how an aggregate is stored in SurrealDB: the entity lives
// under data and the record key is the logical id.
type document[T any] struct {
	ID       *models.RecordID `json:"id,omitempty"`
	Data     T                `json:"data"`
	SyncedAt time.Time        `json:"synced_at"`
}

// SurrealCollection is the secondary store adapter of one aggregate.
type SurrealCollection[T any, PT entity[T]] struct {
	db    *surrealdb.DB
	table string
	now   func() time.Time
}

func newSurrealCollection[T any, PT entity[T]](db *surrealdb.DB, table string) *SurrealCollection[T, PT] {
	return &SurrealCollection[T, PT]{
		db:    db,
		table: table,
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (r *SurrealCollection[T, PT]) op(name string) string { return "surreal." + r.table + "." + name }

func (r *SurrealCollection[T, PT]) rid(id int64) models.RecordID {
	return models.NewRecordID(r.table, id)
}

// Get returns (nil, nil) when the record does not exist.
func (r *SurrealCollection[T, PT]) Get(ctx context.Context, id int64) (*T, error) {
	doc, err := surrealdb.Select[document[T]](ctx, r.db, r.rid(id))
	if err != nil {
		if isNoResult(err) {
			return nil, nil
		}
		return nil, classifySurreal(r.op("get"), err)
	}
	if doc == nil {
		return nil, nil
	}
	return r.unwrap(doc, id), nil
}

func (r *SurrealCollection[T, PT]) List(ctx context.Context) ([]T, error) {
	res, err := surrealdb.Query[[]document[T]](ctx, r.db,
		"SELECT * FROM type::table($tb) ORDER BY id",
		map[string]any{"tb": r.table},
	)
	if err != nil {
		return nil, classifySurreal(r.op("list"), err)
	}
	if res == nil || len(*res) == 0 {
		return nil, nil
	}

	docs := (*res)[0].Result
	out := make([]T, 0, len(docs))
	for i := range docs {
		key, ok := recordKey(docs[i].ID)
		if !ok {
			continue
		}
		out = append(out, *r.unwrap(&docs[i], key))
	}
	return out, nil
}

// Add stores e under a freshly allocated id from the failover range.
func (r *SurrealCollection[T, PT]) Add(ctx context.Context, e *T) (*T, error) {
	id, err := r.nextID(ctx)
	if err != nil {
		return nil, err
	}

	v := *e
	p := PT(&v)
	now := r.now()
	p.SetAggregateID(id)
	ts := p.Times()
	ts.CreatedAt, ts.UpdatedAt = now, now

	if _, err := surrealdb.Create[document[T]](ctx, r.db, r.rid(id), document[T]{Data: v, SyncedAt: now}); err != nil {
		return nil, classifySurreal(r.op("add"), err)
	}
	return &v, nil
}

// Update replaces an existing record, keeping its created_at.
func (r *SurrealCollection[T, PT]) Update(ctx context.Context, e *T) (*T, error) {
	v := *e
	p := PT(&v)
	current, err := r.Get(ctx, p.AggregateID())
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, NotFound(r.op("update"))
	}

	ts := p.Times()
	ts.CreatedAt, ts.UpdatedAt = PT(current).Times().CreatedAt, r.now()
	if err := r.put(ctx, "update", p); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *SurrealCollection[T, PT]) Delete(ctx context.Context, id int64) error {
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return NotFound(r.op("delete"))
	}
	return r.Remove(ctx, id)
}

// Upsert writes e under its own id as-is. Used by the projection applier.
func (r *SurrealCollection[T, PT]) Upsert(ctx context.Context, e *T) error {
	return r.put(ctx, "upsert", PT(e))
}

// Remove deletes the record; a missing record is not an error.
func (r *SurrealCollection[T, PT]) Remove(ctx context.Context, id int64) error {
	_, err := surrealdb.Delete[document[T]](ctx, r.db, r.rid(id))
	if err != nil && !isNoResult(err) {
		return classifySurreal(r.op("remove"), err)
	}
	return nil
}

func (r *SurrealCollection[T, PT]) modify(ctx context.Context, op string, id int64, fn func(PT)) (*T, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, NotFound(r.op(op))
	}

	p := PT(current)
	fn(p)
	p.Times().UpdatedAt = r.now()
	if err := r.put(ctx, op, p); err != nil {
		return nil, err
	}
	return current, nil
}

func (r *SurrealCollection[T, PT]) put(ctx context.Context, op string, p PT) error {
	doc := document[T]{Data: *p, SyncedAt: r.now()}
	if _, err := surrealdb.Upsert[document[T]](ctx, r.db, r.rid(p.AggregateID()), doc); err != nil {
		return classifySurreal(r.op(op), err)
	}
	return nil
}

func (r *SurrealCollection[T, PT]) unwrap(doc *document[T], id int64) *T {
	v := doc.Data
	PT(&v).SetAggregateID(id)
	return &v
}

func (r *SurrealCollection[T, PT]) nextID(ctx context.Context) (int64, error) {
	res, err := surrealdb.Query[[]int64](ctx, r.db,
		"UPSERT type::thing($seq, $tb) SET value = (value OR $base) + 1 RETURN VALUE value",
		map[string]any{"seq": sequenceTable, "tb": r.table, "base": FailoverIDBase - 1},
	)
	if err != nil {
		return 0, classifySurreal(r.op("next_id"), err)
	}
	if res == nil || len(*res) == 0 || len((*res)[0].Result) == 0 {
		return 0, Permanent(r.op("next_id"), fmt.Errorf("sequence %s returned no value", r.table))
	}
	return (*res)[0].Result[0], nil
}

// recordKey extracts the integer key of a record id. SurrealDB hands keys
// back as whatever numeric type the codec picked, or as a string.
func recordKey(rid *models.RecordID) (int64, bool) {
	if rid == nil {
		return 0, false
	}
	switch k := rid.ID.(type) {
	case int:
		return int64(k), true
	case int64:
		return k, true
	case uint64:
		if k > math.MaxInt64 {
			return 0, false
		}
		return int64(k), true
	case float64:
		if k != math.Trunc(k) {
			return 0, false
		}
		return int64(k), true
	case string:
		n, err := strconv.ParseInt(strings.Trim(k, "⟨⟩`"), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// isNoResult reports the codec errors SurrealDB produces for an empty
// result instead of a nil document.
func isNoResult(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Expected a single or multiple results but got 0") ||
		strings.Contains(msg, "cannot unmarshal array into Go value")
}
