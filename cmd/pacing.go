package cmd

import (
	"encoding/json"
	"path/filepath"

	"github.com/spf13/cobra"

	"demopipe/metrics"
)

var pacingCmd = &cobra.Command{
	Use:   "pacing <kills.parquet>",
	Short: "Print time-to-first-kill per round for a kills table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		db, err := metrics.ConnectDuckDB("")
		if err != nil {
			return err
		}
		defer db.Close()

		points, err := metrics.TimeToFirstKill(cmd.Context(), db, metrics.ParquetRelation(path), nil)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(points)
	},
}

func init() {
	rootCmd.AddCommand(pacingCmd)
}
