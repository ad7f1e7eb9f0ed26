package cmd

import (
	"go-journal-app/internal/data"
	"go-journal-app/internal/service"

	"github.com/spf13/cobra"
)

var (
	superuserName     string
	superuserEmail    string
	superuserPassword string
)

// superuserCmd creates the first staff account. Values not given as flags
// come from the superuser section of the configuration.
var superuserCmd = &cobra.Command{
	Use:   "create-superuser",
	Short: "Create a staff account if it does not exist yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if superuserName == "" {
			superuserName = cfg.Superuser.Username
		}
		if superuserEmail == "" {
			superuserEmail = cfg.Superuser.Email
		}
		if superuserPassword == "" {
			superuserPassword = cfg.Superuser.Password
		}

		if err := data.ApplyMigrations(cfg.DB.Driver, cfg.DB.DSN, cfg.DB.Migrations); err != nil {
			return err
		}
		db, err := data.NewDB(cfg.DB)
		if err != nil {
			return err
		}
		defer db.Close()

		users := service.NewUserService(data.NewSQLUserRepository(db), log)
		_, err = users.CreateSuperuser(cmd.Context(), superuserName, superuserEmail, superuserPassword)
		return err
	},
}

func init() {
	superuserCmd.Flags().StringVar(&superuserName, "username", "", "staff username")
	superuserCmd.Flags().StringVar(&superuserEmail, "email", "", "staff e-mail address")
	superuserCmd.Flags().StringVar(&superuserPassword, "password", "", "staff password (prefer JOURNAL_SUPERUSER_PASSWORD)")
}
