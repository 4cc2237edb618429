package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/shift-scheduler/internal/bootstrap"
	httpSrv "github.com/jmehdipour/shift-scheduler/internal/http"
	"github.com/jmehdipour/shift-scheduler/internal/logger"
	"github.com/jmehdipour/shift-scheduler/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server (and the outbox sync worker when sync.embedded is set)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.Log

		metrics.MustRegister(prometheus.DefaultRegisterer)

		stores, err := bootstrap.OpenStores(cfg, log)
		if err != nil {
			return err
		}
		defer stores.Close()

		primary := bootstrap.NewPrimary(stores.MySQL)
		secondary := bootstrap.NewSecondary(stores.Surreal)
		repos := bootstrap.NewRepositories(cfg, primary, secondary, stores.ClickHouse, log)

		server := httpSrv.NewServer(cfg, httpSrv.Deps{
			Employees:  repos.Employees,
			Bicycles:   repos.Bicycles,
			Routes:     repos.Routes,
			ShiftPlans: repos.ShiftPlans,
			Shifts:     repos.Shifts,
			Outbox:     repos.Outbox,
			Hours:      repos.Hours,
			Breaker:    repos.Breaker,
			Redis:      stores.Redis,
			Log:        log.Named("http"),
		})

		ctx, stop := context.WithCancel(context.Background())
		defer stop()

		workerDone := make(chan struct{})
		if cfg.Sync.Embedded {
			w, closeWorker, err := bootstrap.NewSyncWorker(cfg, stores, primary, secondary, log)
			if err != nil {
				return fmt.Errorf("sync worker: %w", err)
			}
			defer closeWorker()
			go func() {
				defer close(workerDone)
				if err := w.Run(ctx); err != nil {
					log.Error("outbox sync exited", zap.Error(err))
				}
			}()
		} else {
			close(workerDone)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil {
				log.Error("http server exited", zap.Error(err))
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)

		// the worker finishes its current batch before returning
		stop()
		<-workerDone

		return nil
	},
}
