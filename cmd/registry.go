package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mandi-pipeline/internal/registry"
)

var registryImportFile string

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect and maintain the commodity registry",
}

var registryImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace the registry with a metadata snapshot JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("registry"); err != nil {
			return err
		}

		data, err := os.ReadFile(registryImportFile)
		if err != nil {
			return eris.Wrapf(err, "read snapshot %s", registryImportFile)
		}
		var snap registry.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return eris.Wrapf(err, "parse snapshot %s", registryImportFile)
		}

		reg, err := initRegistry()
		if err != nil {
			return err
		}
		if err := reg.Replace(&snap); err != nil {
			return err
		}

		zap.L().Info("registry imported",
			zap.String("file", registryImportFile),
			zap.Int("groups", len(reg.Groups())),
			zap.Int("commodities", len(reg.Commodities())),
		)
		return nil
	},
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all registered commodity identities",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("registry"); err != nil {
			return err
		}

		reg, err := initRegistry()
		if err != nil {
			return err
		}

		groups := make(map[int]string)
		for _, g := range reg.Groups() {
			groups[g.ID] = g.Name
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tID\tNAME\tGROUP")
		for _, c := range reg.Commodities() {
			group := groups[c.GroupID]
			if group == "" {
				group = fmt.Sprintf("#%d", c.GroupID)
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", c.Code, c.NumericID, c.Name, group)
		}
		return w.Flush()
	},
}

func init() {
	registryImportCmd.Flags().StringVar(&registryImportFile, "file", "", "snapshot JSON file (required)")
	_ = registryImportCmd.MarkFlagRequired("file")
	registryCmd.AddCommand(registryImportCmd)
	registryCmd.AddCommand(registryListCmd)
	rootCmd.AddCommand(registryCmd)
}
