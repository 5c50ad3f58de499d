package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mandi-pipeline/internal/export"
)

var (
	exportFrom      string
	exportTo        string
	exportCommodity string
	exportOut       string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export canonical prices and arrivals to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("export"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		out := exportOut
		if out == "" {
			out = filepath.Join(cfg.Export.Dir, fmt.Sprintf("mandi_%s_%s.xlsx", exportFrom, exportTo))
		}

		prices, arrivals, err := export.New(st).Write(ctx, exportFrom, exportTo, exportCommodity, out)
		if err != nil {
			return err
		}
		zap.L().Info("export complete",
			zap.String("path", out),
			zap.Int("prices", prices),
			zap.Int("arrivals", arrivals),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "start date (YYYY-MM-DD, required)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "end date (YYYY-MM-DD, required)")
	exportCmd.Flags().StringVar(&exportCommodity, "commodity", "", "filter by commodity name")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default <export.dir>/mandi_<from>_<to>.xlsx)")
	_ = exportCmd.MarkFlagRequired("from")
	_ = exportCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(exportCmd)
}
