package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xl-idp/reference-inn/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "reference-inn",
	Short: "Company identity resolution pipeline",
	Long:  "Resolves free-text company mentions to taxpayer identifiers and canonical names through search, national registries and the customs declaration reference.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
