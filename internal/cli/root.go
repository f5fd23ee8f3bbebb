package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"compliance/config"
	"compliance/internal/logger"
)

// Version is set at build time.
var Version = "dev"

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	log     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "compliance",
	Short: "Pilot Compliance AI System - check duty schedules against a rulebook",
	Long: `compliance embeds a pilot-duty rulebook into a local vector collection and
checks uploaded schedules (PDFs or images) or plain questions against it.

Example usage:
  compliance ingest rules.pdf                  # Replace the rule collection
  compliance check -f "roster/*.png"           # Check a schedule
  compliance check -q "Max duty after 2 sectors?"
  compliance search -q "rest period"           # Inspect retrieval
  compliance serve                             # Start the HTTP API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			config.LoadEnv(rootDir)
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log = logger.New(cfg.Logging)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./compliance.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
