package outbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmehdipour/shift-scheduler/internal/repository"
)

// MemQueue is an in-memory Queue with the same ordering, claim and
// dead-letter rules as the MySQL outbox.
type MemQueue struct {
	mu     sync.Mutex
	events []model.OutboxEvent
	nextID int64
}

func NewMemQueue() *MemQueue {
	return &MemQueue{nextID: 1}
}

// Enqueue appends a pending event and returns its id. A zero CreatedUTC is
// replaced with the current time.
func (q *MemQueue) Enqueue(ev model.OutboxEvent) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	ev.ID = q.nextID
	q.nextID++
	if ev.CreatedUTC.IsZero() {
		ev.CreatedUTC = time.Now().UTC()
	}
	ev.Status = model.OutboxPending
	ev.ProcessedUTC = nil
	q.events = append(q.events, ev)
	return ev.ID
}

// Snapshot returns a copy of every event ordered by (CreatedUTC, ID).
func (q *MemQueue) Snapshot() []model.OutboxEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]model.OutboxEvent, len(q.events))
	copy(out, q.events)
	sortEvents(out)
	return out
}

// Event returns a copy of one event.
func (q *MemQueue) Event(id int64) (model.OutboxEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if ev := q.find(id); ev != nil {
		return *ev, true
	}
	return model.OutboxEvent{}, false
}

func (q *MemQueue) DequeueBatch(_ context.Context, claim model.OutboxClaim, limit int) ([]model.OutboxEvent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var eligible []*model.OutboxEvent
	for i := range q.events {
		ev := &q.events[i]
		if ev.Status != model.OutboxPending || ev.ProcessedUTC != nil {
			continue
		}
		if ev.ClaimedUntil != nil && ev.ClaimedUntil.After(claim.Now) {
			continue
		}
		eligible = append(eligible, ev)
	}
	sort.SliceStable(eligible, func(i, j int) bool { return less(eligible[i], eligible[j]) })
	if len(eligible) > limit {
		eligible = eligible[:max(limit, 0)]
	}

	out := make([]model.OutboxEvent, 0, len(eligible))
	for _, ev := range eligible {
		owner, until := claim.Owner, claim.Until
		ev.ClaimedBy, ev.ClaimedUntil = &owner, &until
		out = append(out, *ev)
	}
	return out, nil
}

func (q *MemQueue) Ack(_ context.Context, id int64, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	ev := q.find(id)
	if ev == nil || ev.ProcessedUTC != nil {
		return nil
	}
	ev.ProcessedUTC = &at
	ev.LastError = nil
	ev.Status = model.OutboxProcessed
	ev.ClaimedBy, ev.ClaimedUntil = nil, nil
	return nil
}

func (q *MemQueue) Fail(_ context.Context, id int64, reason string, maxRetries int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	ev := q.find(id)
	if ev == nil || ev.ProcessedUTC != nil {
		return nil
	}
	ev.RetryCount++
	ev.LastError = &reason
	if maxRetries > 0 && ev.RetryCount >= maxRetries {
		ev.Status = model.OutboxDeadLettered
	}
	ev.ClaimedBy, ev.ClaimedUntil = nil, nil
	return nil
}

func (q *MemQueue) Defer(_ context.Context, id int64, until time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if ev := q.find(id); ev != nil && ev.ProcessedUTC == nil {
		ev.ClaimedUntil = &until
	}
	return nil
}

func (q *MemQueue) ListDeadLettered(_ context.Context, limit int) ([]model.OutboxEvent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []model.OutboxEvent
	for _, ev := range q.events {
		if ev.Status == model.OutboxDeadLettered {
			out = append(out, ev)
		}
	}
	sortEvents(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *MemQueue) Requeue(_ context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	ev := q.find(id)
	if ev == nil || ev.Status != model.OutboxDeadLettered {
		return repository.NotFound("memqueue.requeue")
	}
	ev.Status = model.OutboxPending
	ev.RetryCount = 0
	ev.ClaimedBy, ev.ClaimedUntil = nil, nil
	return nil
}

func (q *MemQueue) find(id int64) *model.OutboxEvent {
	for i := range q.events {
		if q.events[i].ID == id {
			return &q.events[i]
		}
	}
	return nil
}

func less(a, b *model.OutboxEvent) bool {
	if !a.CreatedUTC.Equal(b.CreatedUTC) {
		return a.CreatedUTC.Before(b.CreatedUTC)
	}
	return a.ID < b.ID
}

func sortEvents(evs []model.OutboxEvent) {
	sort.Slice(evs, func(i, j int) bool { return less(&evs[i], &evs[j]) })
}
