// Package cmd wires the demopipe CLI.
package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"demopipe/config"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Configuration
)

var rootCmd = &cobra.Command{
	Use:   "demopipe",
	Short: "CS2 demo analytics: ingest event dumps, index parquet datasets, compute metrics",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel == "" {
			logLevel = cfg.LogLevel
		}
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).
			With().Timestamp().Logger()
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default demopipe.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")
}

func Execute() error {
	return rootCmd.Execute()
}
