package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/mandi-pipeline/internal/ingest"
	"github.com/sells-group/mandi-pipeline/internal/model"
)

var (
	seedFile   string
	seedSource string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a CSV drop of raw price rows into the store",
	Long:  "Seeds raw rows from a fetch collaborator's CSV file. Re-seeding the same rows refreshes their prices without resetting the processed flag.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		ctx := cmd.Context()

		var source model.Source
		switch seedSource {
		case "agmark":
			source = model.SourceAgmark
		case "enam":
			source = model.SourceEnam
		default:
			return eris.Errorf("unknown source %q (want agmark or enam)", seedSource)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		res, err := ingest.New(st).LoadCSV(ctx, seedFile, source)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "CSV file of raw rows (required)")
	seedCmd.Flags().StringVar(&seedSource, "source", "", "source the rows belong to: agmark or enam (required)")
	_ = seedCmd.MarkFlagRequired("file")
	_ = seedCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(seedCmd)
}
