package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	statusDate  string
	statusLimit int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent normalization runs and yield for a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("status"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, statusLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tDATE\tSTATUS\tRAW\tPROCESSED\tSKIPPED\tSTARTED\tERROR")
		for _, r := range runs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
				r.ID, r.ReportDate, r.Status, r.RawCount, r.Processed, r.Skipped,
				r.StartedAt.Format(time.RFC3339), r.Error)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		stats, err := st.YieldByDate(ctx, statusDate)
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Printf("\nno yield stats for %s\n", statusDate)
			return nil
		}

		fmt.Printf("\nyield for %s\n", statusDate)
		w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCOPE\tRAW\tPROCESSED\tYIELD")
		for _, ys := range stats {
			fmt.Fprintf(w, "%s\t%d\t%d\t%.1f%%\n", ys.Scope, ys.RawCount, ys.Processed, ys.YieldPct)
		}
		return w.Flush()
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusDate, "date", time.Now().Format("2006-01-02"), "date for yield stats (YYYY-MM-DD)")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "number of runs to show")
	rootCmd.AddCommand(statusCmd)
}
