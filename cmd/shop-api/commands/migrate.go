package commands

import (
	"github.com/spf13/cobra"

	"github.com/SirPen9uin/shop-api/config"
	"github.com/SirPen9uin/shop-api/db"
	"github.com/SirPen9uin/shop-api/pkg/database"
)

var (
	migrateVersion uint
	migrateForce   int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply the schema migrations and exit.

Examples:
  shop-api migrate                # migrate to DB_MIGRATION_VERSION or latest
  shop-api migrate --version 1    # migrate up or down to version 1
  shop-api migrate --force 1      # mark a dirty database as version 1 first`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("version") {
			cfg.DatabaseMigrationVersion = int(migrateVersion)
		}
		if cmd.Flags().Changed("force") {
			cfg.DatabaseMigrationForce = migrateForce
		}
		return migrateDatabase(cfg)
	},
}

func init() {
	migrateCmd.Flags().UintVar(&migrateVersion, "version", 0, "Target schema version (0 migrates to latest)")
	migrateCmd.Flags().IntVar(&migrateForce, "force", 0, "Force the recorded version before migrating")
}

func migrateDatabase(cfg config.Config) error {
	service := database.NewMigrationService(logger, db.Migrations(), &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return service.Migrate(cfg.DatabaseURL())
}
