package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/provenance-cli/internal/config"
)

var (
	cfg *config.Config

	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "provenance-cli",
	Short: "Vehicle value provenance and market positioning",
	Long: `provenance-cli decides which evidence backs a vehicle's financial fields
(current_value, sale_price, purchase_price, asking_price, high_bid), how far
that value can be trusted, who may change it, and where it sits against
comparable sales.

Settings come from config.yaml, .env.local / .env and PROVENANCE_* variables,
e.g. PROVENANCE_STORE_DRIVER=sqlite PROVENANCE_STORE_DATABASE_URL=provenance.db.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		cfg = c

		return eris.Wrap(config.InitLogger(cfg.Log), "init logger")
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
