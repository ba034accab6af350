package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"demopipe/config"
	"demopipe/index"
	"demopipe/model"
)

var (
	indexProcessed string
	indexStrategy  string
	indexFilter    string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the global dataset manifest over the processed root",
	RunE: func(cmd *cobra.Command, args []string) error {
		processed := indexProcessed
		if processed == "" {
			processed = cfg.ProcessedRoot
		}

		var strategy *model.IndexingStrategy
		strategyFile := indexStrategy
		if strategyFile == "" {
			strategyFile = cfg.StrategyFile
		}
		if strategyFile != "" {
			var err error
			strategy, err = config.LoadStrategy(strategyFile)
			if err != nil {
				return err
			}
		}

		var opts []index.Option
		if indexFilter != "" {
			opts = append(opts, index.WithDemoFilter(indexFilter))
		}

		indexer, err := index.New(processed, strategy, opts...)
		if err != nil {
			return err
		}
		path, err := indexer.WriteManifest(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexProcessed, "processed", "", "processed output root")
	indexCmd.Flags().StringVar(&indexStrategy, "strategy", "", "indexing strategy yaml file")
	indexCmd.Flags().StringVar(&indexFilter, "filter", "", "expression selecting demos, e.g. metadata.map == \"de_inferno\"")
	rootCmd.AddCommand(indexCmd)
}
