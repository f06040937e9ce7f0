package cli

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/evcraddock/churchdesk/internal/config"
	"github.com/evcraddock/churchdesk/internal/report"
)

func newExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:       "export <equipment|visitors|maintenance>",
		Short:     "Export records as CSV",
		Long:      "Writes a CSV export to --out, or to stdout. Equipment and visitor rows carry their due status as of today.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(report.ExportEquipment), string(report.ExportVisitors), string(report.ExportMaintenance)},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := report.ParseExport(args[0])
			if err != nil {
				return err
			}
			return withDB(func(d *sqlx.DB, cfg config.Config) error {
				svc := report.NewService(d, calendar(cfg))
				if out == "" {
					return svc.WriteCSV(cmd.Context(), e, cmd.OutOrStdout())
				}
				return writeExportFile(cmd, svc, e, out)
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")

	return cmd
}

func writeExportFile(cmd *cobra.Command, svc *report.Service, e report.Export, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	if err := svc.WriteCSV(cmd.Context(), e, f); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s export to %s\n", e, path)
	return nil
}

