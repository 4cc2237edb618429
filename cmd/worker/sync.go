package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/shift-scheduler/internal/bootstrap"
	"github.com/jmehdipour/shift-scheduler/internal/config"
	"github.com/jmehdipour/shift-scheduler/internal/logger"
	"github.com/jmehdipour/shift-scheduler/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncOnce bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replay the outbox into the secondary store",
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncOnce, "once", false, "process a single batch and exit")
}

func runSync(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)
	log := logger.Log

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) stores
	stores, err := bootstrap.OpenStores(cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	// 3) worker
	w, closeWorker, err := bootstrap.NewSyncWorker(cfg, stores,
		bootstrap.NewPrimary(stores.MySQL), bootstrap.NewSecondary(stores.Surreal), log)
	if err != nil {
		return err
	}
	defer closeWorker()

	// 4) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if syncOnce {
		stats, err := w.RunOnce(ctx)
		w.Release()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dequeued=%d processed=%d failed=%d dead_lettered=%d parked=%d idle=%t\n",
			stats.Dequeued, stats.Processed, stats.Failed, stats.DeadLettered, stats.Parked, stats.Idle)
		return nil
	}

	if addr := cfg.Sync.MetricsAddr; addr != "" {
		m := metrics.Router(prometheus.DefaultGatherer)
		go func() {
			log.Info("metrics: listening", zap.String("addr", addr))
			if err := m.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server exited", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = m.Shutdown(shutdownCtx)
		}()
	}
	return w.Run(ctx)
}
