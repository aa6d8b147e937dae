package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/wa-outreach/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "wa-outreach",
	Short: "WhatsApp lead outreach",
	Long:  "Parses lead exports, pre-flight validates phone numbers, sends personalized WhatsApp messages through a browser session and keeps a local contact ledger.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyOverrides(cmd, c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		zap.L().Debug("config loaded",
			zap.String("store_driver", cfg.Store.Driver),
			zap.String("state_dir", cfg.Store.Dir),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// applyOverrides lets persistent flags win over file and env settings.
func applyOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("state-dir") {
		c.Store.Dir, _ = flags.GetString("state-dir")
	}
	if flags.Changed("log-level") {
		c.Log.Level, _ = flags.GetString("log-level")
	}
}

func init() {
	rootCmd.PersistentFlags().String("state-dir", "", "directory holding the contact ledger and tracking files")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
