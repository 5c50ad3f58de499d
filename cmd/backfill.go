package main

import (
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	backfillFrom string
	backfillTo   string
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Normalize an inclusive date range",
	Long:  "Runs normalization for every date in [from, to], continuing past per-date failures. Dates run in parallel; each date is still processed atomically.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("backfill"); err != nil {
			return err
		}
		ctx := cmd.Context()

		dates, err := dateRange(backfillFrom, backfillTo)
		if err != nil {
			return err
		}

		n, st, err := initNormalizer(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var failed atomic.Int64
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Backfill.Parallelism)
		for _, date := range dates {
			g.Go(func() error {
				report, err := n.Run(gctx, date)
				if err != nil {
					failed.Add(1)
					zap.L().Error("backfill date failed", zap.String("date", date), zap.Error(err))
					return nil
				}
				zap.L().Info("backfill date complete",
					zap.String("date", date),
					zap.Int("raw", report.RawCount),
					zap.Int("processed", report.Processed),
					zap.Int("skipped", report.Skipped),
				)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("backfill complete",
			zap.Int("dates", len(dates)),
			zap.Int64("failed", failed.Load()),
		)
		if nf := failed.Load(); nf > 0 {
			return eris.Errorf("backfill: %d of %d dates failed", nf, len(dates))
		}
		return nil
	},
}

// dateRange expands [from, to] into individual ISO dates, inclusive.
func dateRange(from, to string) ([]string, error) {
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, eris.Wrapf(err, "parse from date %s", from)
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, eris.Wrapf(err, "parse to date %s", to)
	}
	if end.Before(start) {
		return nil, eris.Errorf("to date %s is before from date %s", to, from)
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates, nil
}

func init() {
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "start date (YYYY-MM-DD, required)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "end date (YYYY-MM-DD, required)")
	_ = backfillCmd.MarkFlagRequired("from")
	_ = backfillCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(backfillCmd)
}
