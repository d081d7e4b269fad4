package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/monocle-dev/taskflow/db"
	"github.com/monocle-dev/taskflow/internal/config"
	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "taskflow",
	Short: "Multi-tenant task tracking backend",
	Long: `taskflow serves the task tracking API: companies own users and tasks,
tasks are logged day by day as sub-tasks, and progress and dashboard
statistics are derived from that log.`,
	SilenceUsage: true,
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "YAML configuration file (environment only when empty)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(versionCmd)
}

// bootstrap loads configuration, builds the logger and connects db.DB.
func bootstrap() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}

	log := config.NewLogger(cfg.LogLevel)

	if err := db.ConnectDatabase(cfg.Database.Driver, cfg.Database.DSN, logger.Warn); err != nil {
		return cfg, nil, fmt.Errorf("connect %s database: %w", cfg.Database.Driver, err)
	}

	return cfg, log, nil
}
