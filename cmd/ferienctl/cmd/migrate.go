package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/ferienplan-sync/internal/adapters/database"
	"github.com/comitanigiacomo/ferienplan-sync/internal/config"
)

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db := opts.cfg.DB

			var driver, dsn string
			switch db.Driver {
			case config.DBDriverPostgres:
				driver = database.DriverPostgres
				dsn = database.PostgresDSN(db.User, db.Password, db.Host, db.Port, db.Name, db.SSLMode)
			case config.DBDriverSQLite:
				driver, dsn = database.DriverSQLite, db.SQLitePath
			default:
				return fmt.Errorf("nothing to migrate for DB_DRIVER=%s", db.Driver)
			}

			conn, err := database.Open(cmd.Context(), driver, dsn)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := database.Migrate(conn, driver); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date (%s)\n", driver)
			return nil
		},
	}
}
