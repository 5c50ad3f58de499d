package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mandi-pipeline/internal/model"
)

var (
	purgeDate      string
	purgeSource    string
	purgeCanonical bool
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete a date's raw rows ahead of a re-fetch",
	Long:  "Deletes raw rows for a date and source so the fetch collaborator can re-insert them. With --canonical, the date's canonical and summary rows are dropped too, forcing a full rebuild on the next run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("purge"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var sources []model.Source
		switch purgeSource {
		case "agmark":
			sources = []model.Source{model.SourceAgmark}
		case "enam":
			sources = []model.Source{model.SourceEnam}
		case "all":
			sources = []model.Source{model.SourceAgmark, model.SourceEnam}
		default:
			return eris.Errorf("unknown source %q (want agmark, enam or all)", purgeSource)
		}

		var raw int
		for _, source := range sources {
			n, err := st.PurgeRawDate(ctx, source, purgeDate)
			if err != nil {
				return err
			}
			raw += n
		}

		var canonical int
		if purgeCanonical {
			canonical, err = st.PurgeCanonicalDate(ctx, purgeDate)
			if err != nil {
				return err
			}
		}

		zap.L().Info("purge complete",
			zap.String("date", purgeDate),
			zap.String("source", purgeSource),
			zap.Int("raw_rows", raw),
			zap.Int("canonical_rows", canonical),
		)
		return nil
	},
}

func init() {
	purgeCmd.Flags().StringVar(&purgeDate, "date", "", "report date (YYYY-MM-DD, required)")
	purgeCmd.Flags().StringVar(&purgeSource, "source", "all", "source to purge: agmark, enam or all")
	purgeCmd.Flags().BoolVar(&purgeCanonical, "canonical", false, "also drop the date's canonical and summary rows")
	_ = purgeCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(purgeCmd)
}
