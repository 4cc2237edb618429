// Package bootstrap builds the stores, repositories and workers shared by the
// CLI commands.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/shift-scheduler/internal/config"
	"github.com/jmehdipour/shift-scheduler/internal/db"
	"github.com/jmehdipour/shift-scheduler/internal/fallback"
	"github.com/jmehdipour/shift-scheduler/internal/kafka"
	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmehdipour/shift-scheduler/internal/projection"
	"github.com/jmehdipour/shift-scheduler/internal/repository"
	"github.com/jmehdipour/shift-scheduler/internal/worker"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/surrealdb/surrealdb.go"
	"go.uber.org/zap"
)

// Stores holds the open connections. Redis and ClickHouse are nil when not
// configured.
type Stores struct {
	MySQL      *sqlx.DB
	Surreal    *surrealdb.DB
	Redis      *redis.Client
	ClickHouse *sqlx.DB
}

func MySQLOpts(cfg config.Config) db.MySQLOpts {
	return db.MySQLOpts{
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
		PingTimeout:     cfg.MySQL.PingTimeout,
	}
}

// OpenStores connects every configured store. MySQL is opened lazily so the
// service can start, and fail over, while the primary is down; an
// unreachable primary is only logged.
func OpenStores(cfg config.Config, log *zap.Logger) (*Stores, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Stores{}

	mysqlDB, err := db.OpenMySQL(cfg.MySQL.DSN, MySQLOpts(cfg))
	if err != nil {
		return nil, fmt.Errorf("mysql open: %w", err)
	}
	s.MySQL = mysqlDB
	if err := db.PingMySQL(mysqlDB, MySQLOpts(cfg)); err != nil {
		log.Warn("mysql unreachable at startup, serving from secondary until it recovers", zap.Error(err))
	}

	s.Surreal, err = db.NewSurrealConnection(db.SurrealOpts{
		URL:         cfg.Surreal.URL,
		Namespace:   cfg.Surreal.Namespace,
		Database:    cfg.Surreal.Database,
		Username:    cfg.Surreal.Username,
		Password:    cfg.Surreal.Password,
		DialTimeout: cfg.Surreal.DialTimeout,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("surreal connect: %w", err)
	}

	s.Redis, err = db.NewRedisClient(db.RedisOpts{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	if err != nil {
		// rate limiting and the lease are optional; row claims still keep workers apart
		log.Warn("redis unavailable, rate limit and sync lease disabled", zap.Error(err))
		s.Redis = nil
	}

	s.ClickHouse, err = db.NewClickHouseConnection(db.ClickHouseOpts{
		DSN:             cfg.ClickHouse.DSN,
		MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
		PingTimeout:     cfg.ClickHouse.PingTimeout,
	})
	if err != nil {
		// reports are optional
		log.Warn("clickhouse unavailable, reports disabled", zap.Error(err))
		s.ClickHouse = nil
	}

	return s, nil
}

func (s *Stores) Close() {
	if s.MySQL != nil {
		_ = s.MySQL.Close()
	}
	if s.Surreal != nil {
		_ = s.Surreal.Close(context.Background())
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.ClickHouse != nil {
		_ = s.ClickHouse.Close()
	}
}

// Primary holds the MySQL adapters; the sync worker re-reads through them.
type Primary struct {
	Employees  *repository.EmployeesRepositoryImpl
	Bicycles   *repository.BicyclesRepositoryImpl
	Routes     *repository.RoutesRepositoryImpl
	ShiftPlans *repository.ShiftPlansRepositoryImpl
	Shifts     *repository.ShiftsRepositoryImpl
	Outbox     *repository.OutboxRepositoryImpl
}

func NewPrimary(mysqlDB *sqlx.DB) *Primary {
	ob := repository.NewOutboxRepository(mysqlDB)
	return &Primary{
		Employees:  repository.NewEmployeesRepository(mysqlDB, ob),
		Bicycles:   repository.NewBicyclesRepository(mysqlDB, ob),
		Routes:     repository.NewRoutesRepository(mysqlDB, ob),
		ShiftPlans: repository.NewShiftPlansRepository(mysqlDB, ob),
		Shifts:     repository.NewShiftsRepository(mysqlDB, ob),
		Outbox:     ob,
	}
}

// Secondary holds the SurrealDB adapters.
type Secondary struct {
	Employees  *repository.SurrealEmployees
	Bicycles   *repository.SurrealBicycles
	Routes     *repository.SurrealRoutes
	ShiftPlans *repository.SurrealShiftPlans
	Shifts     *repository.SurrealShifts
}

func NewSecondary(sdb *surrealdb.DB) *Secondary {
	return &Secondary{
		Employees:  repository.NewSurrealEmployees(sdb),
		Bicycles:   repository.NewSurrealBicycles(sdb),
		Routes:     repository.NewSurrealRoutes(sdb),
		ShiftPlans: repository.NewSurrealShiftPlans(sdb),
		Shifts:     repository.NewSurrealShifts(sdb),
	}
}

// Repositories is what request handlers use.
type Repositories struct {
	Employees  repository.EmployeesRepository
	Bicycles   repository.BicyclesRepository
	Routes     repository.RoutesRepository
	ShiftPlans repository.ShiftPlansRepository
	Shifts     repository.ShiftsRepository
	Outbox     *repository.OutboxRepositoryImpl
	Hours      repository.CHHoursRepository // nil without ClickHouse
	Breaker    *fallback.Breaker            // nil when disabled
}

// NewRepositories puts one fallback repository in front of each
// primary/secondary pair. All of them share one breaker since they share one
// primary.
func NewRepositories(cfg config.Config, p *Primary, s *Secondary, ch *sqlx.DB, log *zap.Logger) *Repositories {
	if log == nil {
		log = zap.NewNop()
	}
	br := fallback.NewBreaker(cfg.Failover.BreakerFailThreshold, cfg.Failover.BreakerOpenFor, clockwork.NewRealClock())
	opts := []fallback.Option{fallback.WithBreaker(br), fallback.WithLogger(log.Named("fallback"))}

	r := &Repositories{
		Employees:  fallback.New[model.Employee](model.AggregateEmployee, p.Employees, s.Employees, opts...),
		Bicycles:   fallback.New[model.Bicycle](model.AggregateBicycle, p.Bicycles, s.Bicycles, opts...),
		Routes:     fallback.New[model.Route](model.AggregateRoute, p.Routes, s.Routes, opts...),
		ShiftPlans: fallback.New[model.ShiftPlan](model.AggregateShiftPlan, p.ShiftPlans, s.ShiftPlans, opts...),
		Shifts:     fallback.NewShifts(p.Shifts, s.Shifts, opts...),
		Outbox:     p.Outbox,
		Breaker:    br,
	}
	if ch != nil {
		r.Hours = repository.NewCHHoursRepository(ch)
	}
	return r
}

// NewApplier registers a projector per aggregate tag. The shift sub-events
// project onto the shifts collection.
func NewApplier(p *Primary, s *Secondary) *projection.Applier {
	shifts := projection.Bind[model.Shift](p.Shifts, s.Shifts)
	return projection.NewApplier().
		Register(model.AggregateEmployee, projection.Bind[model.Employee](p.Employees, s.Employees)).
		Register(model.AggregateBicycle, projection.Bind[model.Bicycle](p.Bicycles, s.Bicycles)).
		Register(model.AggregateRoute, projection.Bind[model.Route](p.Routes, s.Routes)).
		Register(model.AggregateShiftPlan, projection.Bind[model.ShiftPlan](p.ShiftPlans, s.ShiftPlans)).
		Register(model.AggregateShift, shifts).
		Register(model.AggregateWorkHours, shifts).
		Register(model.AggregateSubstituted, shifts)
}

// NewSyncWorker builds the outbox sync worker from config. The returned
// close func releases the Kafka writer.
func NewSyncWorker(cfg config.Config, st *Stores, p *Primary, s *Secondary, log *zap.Logger) (*worker.Sync, func(), error) {
	if log == nil {
		log = zap.NewNop()
	}
	w := worker.NewSync(p.Outbox, NewApplier(p, s))
	w.Log = log.Named("outbox-sync")
	w.Pending = p.Outbox
	w.MaxRetries = cfg.Sync.MaxRetries
	if cfg.Sync.BatchSize > 0 {
		w.BatchSize = cfg.Sync.BatchSize
	}
	if cfg.Sync.Interval > 0 {
		w.Interval = cfg.Sync.Interval
	}
	if cfg.Sync.ClaimFor > 0 {
		w.ClaimFor = cfg.Sync.ClaimFor
	}
	if cfg.Sync.ParkFor > 0 {
		w.ParkFor = cfg.Sync.ParkFor
	}
	if cfg.Sync.BatchTimeout > 0 {
		w.BatchTimeout = cfg.Sync.BatchTimeout
	}

	if st.Redis != nil {
		key := cfg.Sync.LeaseKey
		if key == "" {
			key = worker.DefaultLeaseKey
		}
		ttl := cfg.Sync.LeaseTTL
		if ttl <= 0 {
			ttl = 2 * w.ClaimFor
		}
		w.Lease = worker.NewRedisLease(st.Redis, key, w.ID, ttl)
	}

	closeFn := func() {}
	if len(cfg.Kafka.Brokers) > 0 {
		if cfg.Kafka.Topic == "" {
			return nil, nil, fmt.Errorf("kafka.topic is required when kafka.brokers is set")
		}
		prod := kafka.NewProducerFromConfig(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			WriteTimeout: 5 * time.Second,
		})
		w.Publisher = prod
		closeFn = func() { _ = prod.Close() }
	}

	return w, closeFn, nil
}
