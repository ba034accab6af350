package cmd

import (
	"github.com/spf13/cobra"

	"demopipe/ingest"
)

var (
	ingestSource    string
	ingestProcessed string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [demo files...]",
	Short: "Parse demo event dumps and persist them as parquet tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		source := ingestSource
		if source == "" {
			source = cfg.SourceRoot
		}
		processed := ingestProcessed
		if processed == "" {
			processed = cfg.ProcessedRoot
		}

		ingestor, err := ingest.New(ingest.Config{
			SourceRoot:    source,
			ProcessedRoot: processed,
		}, ingest.NewNDJSONParser())
		if err != nil {
			return err
		}

		var paths []string
		if len(args) > 0 {
			paths = args
		}
		return ingestor.Ingest(cmd.Context(), paths)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "source root with demo event dumps")
	ingestCmd.Flags().StringVar(&ingestProcessed, "processed", "", "processed output root")
	rootCmd.AddCommand(ingestCmd)
}
