package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var normalizeDate string

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize raw price rows for one date",
	Long:  "Resolves identities, selects a winning unit per commodity, writes canonical price/arrival rows and refreshes trend and yield summaries.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("normalize"); err != nil {
			return err
		}
		ctx := cmd.Context()

		n, st, err := initNormalizer(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		report, err := n.Run(ctx, normalizeDate)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeDate, "date", time.Now().Format("2006-01-02"), "report date (YYYY-MM-DD)")
	rootCmd.AddCommand(normalizeCmd)
}
