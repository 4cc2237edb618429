package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmehdipour/shift-scheduler/internal/outbox"
	"github.com/jmehdipour/shift-scheduler/internal/projection"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// store is a tiny in-memory employee store usable as primary or secondary.
type store struct {
	mu        sync.Mutex
	items     map[int64]model.Employee
	failNext  int // number of upcoming Upsert/Remove calls to fail
	failErr   error
	upsertLog []int64
}

func newStore() *store {
	return &store{items: map[int64]model.Employee{}, failErr: errors.New("secondary unavailable")}
}

func (s *store) put(e model.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[e.ID] = e
}

func (s *store) get(id int64) (model.Employee, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	return e, ok
}

func (s *store) Get(_ context.Context, id int64) (*model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *store) fail() error {
	if s.failNext > 0 {
		s.failNext--
		return s.failErr
	}
	return nil
}

func (s *store) Upsert(_ context.Context, e *model.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	s.items[e.ID] = *e
	s.upsertLog = append(s.upsertLog, e.ID)
	return nil
}

func (s *store) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	delete(s.items, id)
	return nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) PublishChange(_ context.Context, n model.ChangeNotification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, n.Key())
	return p.err
}

type fixture struct {
	clock     *clockwork.FakeClock
	queue     *outbox.MemQueue
	primary   *store
	secondary *store
	worker    *Sync
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:     clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
		queue:     outbox.NewMemQueue(),
		primary:   newStore(),
		secondary: newStore(),
	}
	applier := projection.NewApplier().
		Register(model.AggregateEmployee, projection.Bind[model.Employee](f.primary, f.secondary))
	f.worker = NewSync(f.queue, applier)
	f.worker.Clock = f.clock
	f.worker.ID = "test-worker"
	return f
}

func (f *fixture) enqueue(id int64, typ model.EventType) int64 {
	f.clock.Advance(time.Millisecond)
	return f.queue.Enqueue(model.OutboxEvent{
		AggregateType: model.AggregateEmployee,
		AggregateID:   id,
		EventType:     typ,
		CreatedUTC:    f.clock.Now(),
	})
}

func TestRunOnce_ReplaysCreatedIntoSecondary(t *testing.T) {
	f := newFixture(t)
	f.primary.put(model.Employee{ID: 1, FirstName: "Ada"})
	evID := f.enqueue(1, model.EventCreated)

	stats, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)

	got, ok := f.secondary.get(1)
	require.True(t, ok)
	assert.Equal(t, "Ada", got.FirstName)

	ev, _ := f.queue.Event(evID)
	require.NotNil(t, ev.ProcessedUTC)
	assert.Nil(t, ev.LastError)
	assert.Equal(t, 0, ev.RetryCount)
}

func TestRunOnce_FailureIsRetriedNextCycle(t *testing.T) {
	f := newFixture(t)
	f.primary.put(model.Employee{ID: 1, FirstName: "Ada"})
	f.secondary.failNext = 1
	evID := f.enqueue(1, model.EventCreated)

	stats, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	ev, _ := f.queue.Event(evID)
	assert.Nil(t, ev.ProcessedUTC)
	assert.Equal(t, 1, ev.RetryCount)
	require.NotNil(t, ev.LastError)
	assert.Contains(t, *ev.LastError, "secondary unavailable")

	stats, err = f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)

	ev, _ = f.queue.Event(evID)
	require.NotNil(t, ev.ProcessedUTC)
	assert.Nil(t, ev.LastError)
	assert.Equal(t, 1, ev.RetryCount)
	_, ok := f.secondary.get(1)
	assert.True(t, ok)
}

func TestRunOnce_FailureDoesNotBlockLaterEvents(t *testing.T) {
	f := newFixture(t)
	f.primary.put(model.Employee{ID: 1, FirstName: "Ada"})
	f.primary.put(model.Employee{ID: 2, FirstName: "Grace"})
	f.secondary.failNext = 1
	first := f.enqueue(1, model.EventCreated)
	second := f.enqueue(2, model.EventCreated)

	stats, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Dequeued)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Processed)

	ev1, _ := f.queue.Event(first)
	ev2, _ := f.queue.Event(second)
	assert.Nil(t, ev1.ProcessedUTC)
	assert.NotNil(t, ev2.ProcessedUTC)
}

func TestRunOnce_UnknownAggregateIsParked(t *testing.T) {
	f := newFixture(t)
	f.primary.put(model.Employee{ID: 2, FirstName: "Grace"})
	f.clock.Advance(time.Millisecond)
	unknown := f.queue.Enqueue(model.OutboxEvent{
		AggregateType: "Invoice", AggregateID: 9, EventType: model.EventCreated, CreatedUTC: f.clock.Now(),
	})
	known := f.enqueue(2, model.EventCreated)

	stats, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Parked)
	assert.Equal(t, 1, stats.Processed)

	ev, _ := f.queue.Event(unknown)
	assert.Nil(t, ev.ProcessedUTC)
	assert.Equal(t, 0, ev.RetryCount)
	assert.Nil(t, ev.LastError)
	ev2, _ := f.queue.Event(known)
	assert.NotNil(t, ev2.ProcessedUTC)

	stats, err = f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Dequeued, "parked event stays aside")

	f.clock.Advance(f.worker.ParkFor + time.Second)
	stats, err = f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Parked)
	ev, _ = f.queue.Event(unknown)
	assert.Equal(t, 0, ev.RetryCount)
}

func TestRunOnce_CreateThenDeleteConverges(t *testing.T) {
	f := newFixture(t)
	f.enqueue(1, model.EventCreated) // row already gone from the primary
	f.enqueue(1, model.EventDeleted)
	f.secondary.put(model.Employee{ID: 1, FirstName: "Stale"})

	stats, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)

	_, ok := f.secondary.get(1)
	assert.False(t, ok)
}

func TestRunOnce_DeadLettersAfterMaxRetries(t *testing.T) {
	f := newFixture(t)
	f.worker.MaxRetries = 2
	f.primary.put(model.Employee{ID: 1})
	f.secondary.failNext = 100
	evID := f.enqueue(1, model.EventUpdated)

	stats, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DeadLettered)

	stats, err = f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DeadLettered)

	ev, _ := f.queue.Event(evID)
	assert.Equal(t, model.OutboxDeadLettered, ev.Status)
	assert.Equal(t, 2, ev.RetryCount)

	stats, err = f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Dequeued)
}

func TestRunOnce_RespectsBatchSizeOldestFirst(t *testing.T) {
	f := newFixture(t)
	f.worker.BatchSize = 2
	for id := int64(1); id <= 3; id++ {
		f.primary.put(model.Employee{ID: id})
		f.enqueue(id, model.EventCreated)
	}

	stats, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, []int64{1, 2}, f.secondary.upsertLog)
}

func TestRunOnce_PublishesAfterSuccess(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{err: errors.New("broker down")}
	f.worker.Publisher = pub
	f.primary.put(model.Employee{ID: 4})
	evID := f.enqueue(4, model.EventCreated)

	_, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Employee:4"}, pub.keys)

	ev, _ := f.queue.Event(evID)
	assert.NotNil(t, ev.ProcessedUTC, "publish failures do not undo the ack")
}

type stubLease struct{ ok bool }

func (l stubLease) Acquire(context.Context) (bool, error) { return l.ok, nil }
func (l stubLease) Release(context.Context) error         { return nil }

func TestRunOnce_IdleWithoutLease(t *testing.T) {
	f := newFixture(t)
	f.worker.Lease = stubLease{ok: false}
	f.primary.put(model.Employee{ID: 1})
	f.enqueue(1, model.EventCreated)

	stats, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.Idle)
	assert.Equal(t, 0, stats.Dequeued)
}

func TestRun_StopsBetweenCycles(t *testing.T) {
	f := newFixture(t)
	f.primary.put(model.Employee{ID: 1})
	evID := f.enqueue(1, model.EventCreated)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.worker.Run(ctx) }()

	// the worker sleeps on the clock after its first cycle
	wctx, wcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer wcancel()
	require.NoError(t, f.clock.BlockUntilContext(wctx, 1))
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	ev, _ := f.queue.Event(evID)
	assert.NotNil(t, ev.ProcessedUTC)
}

func TestRun_AlreadyCancelledDoesNothing(t *testing.T) {
	f := newFixture(t)
	f.primary.put(model.Employee{ID: 1})
	evID := f.enqueue(1, model.EventCreated)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.worker.Run(ctx))

	ev, _ := f.queue.Event(evID)
	assert.Nil(t, ev.ProcessedUTC)
}

func TestRun_RequiresQueueAndApplier(t *testing.T) {
	w := &Sync{}
	require.Error(t, w.Run(context.Background()))
}
