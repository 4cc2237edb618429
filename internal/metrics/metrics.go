package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FailoverTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftsched_failover_total",
			Help: "Repository calls served by the secondary store",
		},
		[]string{"aggregate", "op"},
	)

	OutboxEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftsched_outbox_events_total",
			Help: "Outbox events handled by the sync worker by result",
		},
		[]string{"aggregate", "result"}, // processed|failed|dead_lettered|parked
	)

	OutboxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shiftsched_outbox_pending",
			Help: "Outbox events waiting for replay, sampled once per sync cycle",
		},
	)

	SyncCycleSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shiftsched_sync_cycle_seconds",
			Help:    "Duration of one outbox sync cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	BreakerOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shiftsched_primary_breaker_open",
			Help: "1 while the primary store circuit breaker is open",
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		FailoverTotal,
		OutboxEventsTotal,
		OutboxPending,
		SyncCycleSeconds,
		BreakerOpen,
	)
}

// Router exposes g at /metrics for processes that run without the API.
func Router(g prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
	return e
}
