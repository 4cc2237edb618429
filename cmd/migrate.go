package cmd

import (
	"fmt"

	"github.com/jmehdipour/shift-scheduler/internal/bootstrap"
	"github.com/jmehdipour/shift-scheduler/internal/db"
	"github.com/jmehdipour/shift-scheduler/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateVersion int64

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status|version|redo|reset|up-to|down-to]",
	Short:     "Run MySQL schema migrations",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"up", "down", "status", "version", "redo", "reset", "up-to", "down-to"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		action := "up"
		if len(args) == 1 {
			action = args[0]
		}
		if (action == "up-to" || action == "down-to") && migrateVersion <= 0 {
			return fmt.Errorf("%s needs --version", action)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, bootstrap.MySQLOpts(cfg))
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer sqlDB.Close()

		if err := db.Migrate(sqlDB.DB, action, migrateVersion); err != nil {
			return fmt.Errorf("migrate %s: %w", action, err)
		}

		logger.Log.Info("migration complete", zap.String("action", action))
		return nil
	},
}

func init() {
	migrateCmd.Flags().Int64Var(&migrateVersion, "version", 0, "target version for up-to / down-to")
}
