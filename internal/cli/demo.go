package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/snarg/meeting-intel/internal/demo"
	"github.com/snarg/meeting-intel/internal/present"
)

func NewDemoCmd(deps *Dependencies) *cobra.Command {
	var xlsxPath string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Summarize the pre-computed demo meetings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := deps.Config
			f := present.NewFormatter(deps.stdout)

			src, err := demoSource(cfg, deps.Log)
			if err != nil {
				return err
			}
			snap, err := demo.NewCorpus(src, deps.Log).Reload(cmd.Context())
			if err != nil {
				return err
			}
			if len(snap.Entries) == 0 {
				f.Warning(fmt.Sprintf("No demo meetings found (%s %s)", snap.Source, snap.Location))
			}

			records := snap.Records()
			f.Overview(present.Summarize(records))
			for _, e := range snap.Entries {
				v := present.View(e.Record)
				f.Info(fmt.Sprintf("%s (%s) - %s", v.Title, v.Language, e.Name))
			}
			for _, le := range snap.Errors {
				f.Warning(fmt.Sprintf("%s: %s", le.Name, le.Error))
			}

			if xlsxPath != "" {
				out, err := os.Create(xlsxPath)
				if err != nil {
					return err
				}
				if err := present.WriteXLSX(out, records); err != nil {
					out.Close()
					return err
				}
				if err := out.Close(); err != nil {
					return err
				}
				f.Saved(xlsxPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "export the corpus to an Excel workbook")
	return cmd
}
