package commands

import (
	"fmt"

	"github.com/monocle-dev/taskflow/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close(db.DB) }()

		if err := db.MigrateDatabase(db.DB); err != nil {
			return err
		}

		log.Info("schema migrated", "driver", cfg.Database.Driver)
		fmt.Fprintln(cmd.OutOrStdout(), "Database schema is up to date")

		return nil
	},
}
