package commands

import (
	"fmt"
	"os"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SirPen9uin/shop-api/config"
)

var (
	cfg    config.Config
	logger ectologger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "shop-api",
	Short: "Shop catalog and ordering service",
	Long: `shop-api owns the shop catalog and order schema.

Commands:
  serve    - run the service (identity consumer and ops endpoints)
  migrate  - apply database migrations and exit
  import   - load a shop price list from YAML`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		logger, err = newLogger(cfg)
		return err
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, importCmd)
}

func newLogger(cfg config.Config) (ectologger.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid LOG_LEVEL %q", cfg.LogLevel)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level

	zapLogger, err := zapCfg.Build(zap.Fields(
		zap.String("service", cfg.AppName),
		zap.String("version", cfg.Version),
	))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), nil
}
