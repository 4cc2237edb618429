package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jmehdipour/shift-scheduler/internal/config"
	"github.com/jmehdipour/shift-scheduler/internal/fallback"
	"github.com/jmehdipour/shift-scheduler/internal/http/middleware"
	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmehdipour/shift-scheduler/internal/outbox"
	"github.com/jmehdipour/shift-scheduler/internal/repository"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps are the collaborators the API serves from. Hours, Breaker and Redis
// may be nil.
type Deps struct {
	Employees  repository.EmployeesRepository
	Bicycles   repository.BicyclesRepository
	Routes     repository.RoutesRepository
	ShiftPlans repository.ShiftPlansRepository
	Shifts     repository.ShiftsRepository
	Outbox     outbox.Admin
	Hours      repository.CHHoursRepository
	Breaker    *fallback.Breaker
	Redis      *redis.Client
	Log        *zap.Logger
}

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

func NewServer(cfg config.Config, d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	// echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(echoLogLevel(cfg.Log.Level))
	e.Use(echoMid.Recover(), echoMid.Logger())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", healthHandler(d.Breaker))

	// middlewares
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          d.Redis,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:ip:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", rlMW)
	registerCRUD[model.Employee](v1, "/employees", d.Employees, checkEmployee(cfg.Phone.DefaultCountryCode))
	registerCRUD[model.Bicycle](v1, "/bicycles", d.Bicycles, checkBicycle)
	registerCRUD[model.Route](v1, "/routes", d.Routes, checkRoute)
	registerCRUD[model.ShiftPlan](v1, "/shift-plans", d.ShiftPlans, checkShiftPlan)
	registerCRUD[model.Shift](v1, "/shifts", d.Shifts, checkShift)
	v1.POST("/shifts/:id/hours", recordHoursHandler(d.Shifts))
	v1.POST("/shifts/:id/substitute", substituteHandler(d.Shifts))
	v1.GET("/reports/monthly-hours", monthlyHoursHandler(d.Hours))

	if cfg.HTTP.AdminAPIKey != "" && d.Outbox != nil {
		admin := e.Group("/admin", middleware.AdminKeyMiddleware(cfg.HTTP.AdminAPIKey))
		admin.GET("/outbox/dead-letters", deadLettersHandler(d.Outbox))
		admin.POST("/outbox/:id/requeue", requeueHandler(d.Outbox))
	}

	return &Server{e: e, log: d.Log}
}

func healthHandler(br *fallback.Breaker) echo.HandlerFunc {
	return func(c echo.Context) error {
		primary := "closed"
		if br.Open() {
			primary = "open"
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":          "ok",
			"primary_breaker": primary,
		})
	}
}

func echoLogLevel(level string) log.Lvl {
	switch level {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}

// ServeHTTP lets tests drive the router without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.e.ServeHTTP(w, r) }

func (s *Server) Start(addr string) error {
	s.log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
