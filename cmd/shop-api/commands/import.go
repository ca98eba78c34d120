package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/SirPen9uin/shop-api/pkg/database"
	"github.com/SirPen9uin/shop-api/pkg/pricelist"
)

var importPrune bool

var importCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import a shop price list",
	Long: `Import a YAML price list for one shop in a single transaction and print
the import report as JSON.

Examples:
  shop-api import acme.yaml            # create or update the shop's listings
  shop-api import acme.yaml --prune    # also drop listings missing from the file`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		list, err := pricelist.ParseFile(args[0])
		if err != nil {
			return err
		}

		conn, err := database.Open(ctx, cfg.DatabaseDSN(), poolConfig(), logger)
		if err != nil {
			return err
		}
		defer conn.Close()

		importer := pricelist.NewImporter(conn, pricelist.NewRepositories(conn, logger), logger)
		report, err := importer.Import(ctx, list, pricelist.Options{Prune: importPrune})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	importCmd.Flags().BoolVar(&importPrune, "prune", false, "Delete the shop's listings that are not in the file")
}

func poolConfig() database.PoolConfig {
	return database.PoolConfig{
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}
}
