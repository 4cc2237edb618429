package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/shift-scheduler/internal/config"
	"github.com/jmehdipour/shift-scheduler/internal/kafka"
	"github.com/jmehdipour/shift-scheduler/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Tail the change-notification topic",
	RunE:  runChanges,
}

func runChanges(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)
	log := logger.Named("changes")

	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" {
		return errors.New("kafka.brokers and kafka.topic are required")
	}
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "shiftsched-changes"
	}

	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Kafka.Topic,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	for {
		m, err := consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch: %w", err)
		}
		n, err := kafka.DecodeChange(m)
		if err != nil {
			log.Warn("skip undecodable message", zap.Int64("offset", m.Offset), zap.Error(err))
		} else {
			fmt.Fprintf(out, "%s %s %s outbox=%d outcome=%s\n",
				n.ProcessedUTC.Format(time.RFC3339), n.Key(), n.EventType, n.OutboxID, n.Outcome)
		}
		if err := consumer.Commit(ctx, m); err != nil && ctx.Err() == nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
}
