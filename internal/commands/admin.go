package commands

import (
	"fmt"

	"github.com/monocle-dev/taskflow/db"
	"github.com/monocle-dev/taskflow/internal/services"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrator accounts",
}

var adminName, adminEmail, adminPassword string

// Public registration only creates staff, so the first admin comes from here.
var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an administrator",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close(db.DB) }()

		if err := db.MigrateDatabase(db.DB); err != nil {
			return err
		}

		users := services.NewUserService(db.DB, log)

		admin, err := users.CreateAdmin(cmd.Context(), adminName, adminEmail, adminPassword)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s <%s> (id %s)\n", admin.Name, admin.Email, admin.ID)

		return nil
	},
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminName, "name", "", "display name")
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "login email")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "initial password")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")

	adminCmd.AddCommand(adminCreateCmd)
}
