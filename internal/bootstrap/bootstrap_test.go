package bootstrap

import (
	"testing"
	"time"

	"github.com/jmehdipour/shift-scheduler/internal/config"
	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmehdipour/shift-scheduler/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApplier_KnowsEveryTag(t *testing.T) {
	a := NewApplier(NewPrimary(nil), NewSecondary(nil))

	for _, tag := range []model.AggregateType{
		model.AggregateEmployee,
		model.AggregateBicycle,
		model.AggregateRoute,
		model.AggregateShiftPlan,
		model.AggregateShift,
		model.AggregateWorkHours,
		model.AggregateSubstituted,
	} {
		assert.True(t, a.Knows(tag), tag)
	}
	assert.False(t, a.Knows("Invoice"))
}

func TestNewRepositories(t *testing.T) {
	cfg := config.Config{}
	cfg.Failover.BreakerFailThreshold = 3
	cfg.Failover.BreakerOpenFor = time.Second

	r := NewRepositories(cfg, NewPrimary(nil), NewSecondary(nil), nil, nil)
	assert.NotNil(t, r.Breaker)
	assert.Nil(t, r.Hours)
	assert.NotNil(t, r.Shifts)

	cfg.Failover.BreakerFailThreshold = 0
	r = NewRepositories(cfg, NewPrimary(nil), NewSecondary(nil), nil, nil)
	assert.Nil(t, r.Breaker)
	assert.False(t, r.Breaker.Open())
}

func TestNewSyncWorker_AppliesConfig(t *testing.T) {
	cfg := config.Config{}
	cfg.Sync.BatchSize = 5
	cfg.Sync.Interval = time.Second
	cfg.Sync.MaxRetries = 3

	w, closeFn, err := NewSyncWorker(cfg, &Stores{}, NewPrimary(nil), NewSecondary(nil), nil)
	require.NoError(t, err)
	defer closeFn()

	assert.Equal(t, 5, w.BatchSize)
	assert.Equal(t, time.Second, w.Interval)
	assert.Equal(t, 3, w.MaxRetries)
	assert.Equal(t, worker.DefaultClaimFor, w.ClaimFor)
	assert.Nil(t, w.Lease)
	assert.Nil(t, w.Publisher)
	assert.NotNil(t, w.Pending)
}

func TestNewSyncWorker_KafkaNeedsTopic(t *testing.T) {
	cfg := config.Config{}
	cfg.Kafka.Brokers = []string{"127.0.0.1:9092"}

	_, _, err := NewSyncWorker(cfg, &Stores{}, NewPrimary(nil), NewSecondary(nil), nil)
	assert.Error(t, err)
}
