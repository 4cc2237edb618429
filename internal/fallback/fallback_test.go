package fallback

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmehdipour/shift-scheduler/internal/repository"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmployees is an in-memory CRUD that fails every call with err when set.
type fakeEmployees struct {
	mu     sync.Mutex
	items  map[int64]model.Employee
	nextID int64
	err    error
	calls  int
}

func newFakeEmployees(nextID int64) *fakeEmployees {
	return &fakeEmployees{items: map[int64]model.Employee{}, nextID: nextID}
}

func (f *fakeEmployees) enter() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeEmployees) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeEmployees) Get(_ context.Context, id int64) (*model.Employee, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	e, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeEmployees) List(context.Context) ([]model.Employee, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	out := make([]model.Employee, 0, len(f.items))
	for _, e := range f.items {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEmployees) Add(_ context.Context, e *model.Employee) (*model.Employee, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	v := *e
	v.ID = f.nextID
	f.nextID++
	f.items[v.ID] = v
	return &v, nil
}

func (f *fakeEmployees) Update(_ context.Context, e *model.Employee) (*model.Employee, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	if _, ok := f.items[e.ID]; !ok {
		return nil, repository.NotFound("fake.update")
	}
	f.items[e.ID] = *e
	v := *e
	return &v, nil
}

func (f *fakeEmployees) Delete(_ context.Context, id int64) error {
	if err := f.enter(); err != nil {
		return err
	}
	if _, ok := f.items[id]; !ok {
		return repository.NotFound("fake.delete")
	}
	delete(f.items, id)
	return nil
}

var errRefused = repository.Transient("employees.add", syscall.ECONNREFUSED)

func TestRepository_PrimaryHealthyNeverTouchesSecondary(t *testing.T) {
	primary, secondary := newFakeEmployees(1), newFakeEmployees(1_000_000_000)
	repo := New[model.Employee](model.AggregateEmployee, primary, secondary)
	ctx := context.Background()

	added, err := repo.Add(ctx, &model.Employee{FirstName: "Ada"})
	require.NoError(t, err)
	_, err = repo.Get(ctx, added.ID)
	require.NoError(t, err)
	_, err = repo.List(ctx)
	require.NoError(t, err)
	added.LastName = "Lovelace"
	_, err = repo.Update(ctx, added)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, added.ID))

	assert.Equal(t, 5, primary.Calls())
	assert.Equal(t, 0, secondary.Calls())
}

func TestRepository_TransientPrimaryFailsOverOnce(t *testing.T) {
	primary, secondary := newFakeEmployees(1), newFakeEmployees(1_000_000_000)
	primary.err = errRefused
	repo := New[model.Employee](model.AggregateEmployee, primary, secondary)

	got, err := repo.Add(context.Background(), &model.Employee{FirstName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), got.ID)
	assert.Equal(t, "Ada", got.FirstName)
	assert.Equal(t, 1, primary.Calls())
	assert.Equal(t, 1, secondary.Calls())
}

func TestRepository_PermanentErrorIsNotFailedOver(t *testing.T) {
	primary, secondary := newFakeEmployees(1), newFakeEmployees(1)

	repo := New[model.Employee](model.AggregateEmployee, primary, secondary)
	err := repo.Delete(context.Background(), 99)

	require.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 0, secondary.Calls())
}

func TestRepository_SecondaryErrorIsReturned(t *testing.T) {
	primary, secondary := newFakeEmployees(1), newFakeEmployees(1)
	primary.err = errRefused
	secondaryErr := repository.Transient("surreal.employees.list", errors.New("connection closed"))
	secondary.err = secondaryErr

	repo := New[model.Employee](model.AggregateEmployee, primary, secondary)
	_, err := repo.List(context.Background())

	require.ErrorIs(t, err, secondaryErr)
	assert.Equal(t, 1, secondary.Calls())
}

func TestRepository_CancelledRequestIsNotFailedOver(t *testing.T) {
	primary, secondary := newFakeEmployees(1), newFakeEmployees(1)
	primary.err = repository.Transient("employees.get", context.Canceled)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := New[model.Employee](model.AggregateEmployee, primary, secondary)
	_, err := repo.Get(ctx, 1)

	require.Error(t, err)
	assert.Equal(t, 0, secondary.Calls())
}

func TestRepository_BreakerDivertsThenRetriesPrimary(t *testing.T) {
	clock := clockwork.NewFakeClock()
	breaker := NewBreaker(2, 10*time.Second, clock)
	primary, secondary := newFakeEmployees(1), newFakeEmployees(1)
	primary.err = errRefused
	repo := New[model.Employee](model.AggregateEmployee, primary, secondary, WithBreaker(breaker))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := repo.Get(ctx, 1)
		require.NoError(t, err)
	}
	require.True(t, breaker.Open())

	_, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, primary.Calls(), "open breaker must skip the primary")
	assert.Equal(t, 3, secondary.Calls())

	primary.mu.Lock()
	primary.err = nil
	primary.mu.Unlock()
	clock.Advance(11 * time.Second)

	_, err = repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, primary.Calls(), "trial call goes to the primary")
	assert.False(t, breaker.Open())
}

func TestBreaker_DisabledWhenThresholdZero(t *testing.T) {
	b := NewBreaker(0, time.Second, nil)
	assert.Nil(t, b)
	assert.True(t, b.TryAcquire())
	b.OnFailure()
	assert.False(t, b.Open())
}

func TestBreaker_FailedTrialCallReopens(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := NewBreaker(1, time.Second, clock)

	b.OnFailure()
	assert.False(t, b.TryAcquire())

	clock.Advance(2 * time.Second)
	assert.True(t, b.TryAcquire())
	assert.False(t, b.TryAcquire(), "only one trial call in flight")

	b.OnFailure()
	assert.False(t, b.TryAcquire())
	assert.True(t, b.Open())
}

func TestRepository_CancelledTrialCallDoesNotStickBreaker(t *testing.T) {
	clock := clockwork.NewFakeClock()
	breaker := NewBreaker(1, 10*time.Second, clock)
	primary, secondary := newFakeEmployees(1), newFakeEmployees(1)
	primary.err = errRefused
	repo := New[model.Employee](model.AggregateEmployee, primary, secondary, WithBreaker(breaker))

	_, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, breaker.Open())

	clock.Advance(11 * time.Second)
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = repo.Get(cancelled, 1)
	require.Error(t, err)
	assert.Equal(t, 2, primary.Calls(), "trial call reached the primary")
	assert.Equal(t, 1, secondary.Calls())

	primary.mu.Lock()
	primary.err = nil
	primary.mu.Unlock()
	clock.Advance(time.Hour)

	_, err = repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, primary.Calls(), "primary is tried again after a cancelled trial call")
	assert.False(t, breaker.Open())
}

func TestBreaker_AbandonFreesTrialSlot(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := NewBreaker(1, time.Second, clock)

	b.OnFailure()
	clock.Advance(2 * time.Second)
	require.True(t, b.TryAcquire())
	require.False(t, b.TryAcquire())

	b.Abandon()
	assert.True(t, b.Open())
	assert.True(t, b.TryAcquire(), "a new trial call may start")

	var nilBreaker *Breaker
	nilBreaker.Abandon()
}

// recordingShifts remembers the arguments of every call.
type recordingShifts struct {
	mu    sync.Mutex
	err   error
	calls []string
	ids   []int64
	ents  []model.Shift
	hours []float64
}

func (r *recordingShifts) record(op string, e *model.Shift, hours float64, ids ...int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, op)
	r.ids = append(r.ids, ids...)
	if e != nil {
		r.ents = append(r.ents, *e)
	}
	if hours != 0 {
		r.hours = append(r.hours, hours)
	}
	return r.err
}

func (r *recordingShifts) Get(_ context.Context, id int64) (*model.Shift, error) {
	if err := r.record("get", nil, 0, id); err != nil {
		return nil, err
	}
	return &model.Shift{ID: id}, nil
}

func (r *recordingShifts) List(context.Context) ([]model.Shift, error) {
	if err := r.record("list", nil, 0); err != nil {
		return nil, err
	}
	return []model.Shift{}, nil
}

func (r *recordingShifts) Add(_ context.Context, e *model.Shift) (*model.Shift, error) {
	if err := r.record("add", e, 0, e.ID); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *recordingShifts) Update(_ context.Context, e *model.Shift) (*model.Shift, error) {
	if err := r.record("update", e, 0, e.ID); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *recordingShifts) Delete(_ context.Context, id int64) error {
	return r.record("delete", nil, 0, id)
}

func (r *recordingShifts) RecordWorkHours(_ context.Context, id int64, hours float64) (*model.Shift, error) {
	if err := r.record("record_work_hours", nil, hours, id); err != nil {
		return nil, err
	}
	return &model.Shift{ID: id, HoursWorked: &hours}, nil
}

func (r *recordingShifts) Substitute(_ context.Context, id, employeeID int64) (*model.Shift, error) {
	if err := r.record("substitute", nil, 0, id, employeeID); err != nil {
		return nil, err
	}
	return &model.Shift{ID: id, SubstituteEmployeeID: &employeeID}, nil
}

func TestShifts_EveryOperationFailsOverOnceWithSameArguments(t *testing.T) {
	shift := &model.Shift{ID: 7, EmployeeID: 3, Status: model.ShiftPlanned}

	cases := []struct {
		op   string
		call func(ctx context.Context, r *Shifts) error
	}{
		{"get", func(ctx context.Context, r *Shifts) error { _, err := r.Get(ctx, 7); return err }},
		{"list", func(ctx context.Context, r *Shifts) error { _, err := r.List(ctx); return err }},
		{"add", func(ctx context.Context, r *Shifts) error { _, err := r.Add(ctx, shift); return err }},
		{"update", func(ctx context.Context, r *Shifts) error { _, err := r.Update(ctx, shift); return err }},
		{"delete", func(ctx context.Context, r *Shifts) error { return r.Delete(ctx, 7) }},
		{"record_work_hours", func(ctx context.Context, r *Shifts) error { _, err := r.RecordWorkHours(ctx, 7, 7.5); return err }},
		{"substitute", func(ctx context.Context, r *Shifts) error { _, err := r.Substitute(ctx, 7, 9); return err }},
	}

	for _, tc := range cases {
		t.Run(tc.op, func(t *testing.T) {
			primary := &recordingShifts{err: repository.Transient("shifts."+tc.op, syscall.ECONNREFUSED)}
			secondary := &recordingShifts{}
			repo := NewShifts(primary, secondary)

			require.NoError(t, tc.call(context.Background(), repo))

			assert.Equal(t, []string{tc.op}, primary.calls)
			assert.Equal(t, []string{tc.op}, secondary.calls)
			assert.Equal(t, primary.ids, secondary.ids)
			assert.Equal(t, primary.ents, secondary.ents)
			assert.Equal(t, primary.hours, secondary.hours)
		})
	}
}
