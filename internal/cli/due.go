package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/evcraddock/churchdesk/internal/config"
	"github.com/evcraddock/churchdesk/internal/duedate"
	"github.com/evcraddock/churchdesk/internal/report"
)

type dueOptions struct {
	days   int
	remote bool
	server string
}

func newDueCmd() *cobra.Command {
	var opts dueOptions

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List overdue and upcoming maintenance and follow-ups",
		Long: "Lists equipment whose next maintenance and visitors whose next follow-up fall on or before today plus --days. " +
			"Reads the local database unless --remote or --server is given.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.days < 0 {
				return fmt.Errorf("--days must be zero or more")
			}
			due, err := loadDue(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), due)
			}
			return printDue(cmd.OutOrStdout(), due)
		},
	}

	cmd.Flags().IntVar(&opts.days, "days", duedate.DueSoonWindow, "look this many days ahead")
	cmd.Flags().BoolVar(&opts.remote, "remote", false, "ask the configured server instead of the local database")
	cmd.Flags().StringVar(&opts.server, "server", "", "server URL to ask (implies --remote)")

	return cmd
}

func loadDue(ctx context.Context, opts dueOptions) (*report.Due, error) {
	if opts.remote || opts.server != "" {
		return newAPIClient(opts.server).Due(ctx, opts.days)
	}

	var due *report.Due
	err := withDB(func(d *sqlx.DB, cfg config.Config) error {
		var err error
		due, err = report.NewService(d, calendar(cfg)).Due(ctx, opts.days)
		return err
	})
	return due, err
}

func printDue(out io.Writer, due *report.Due) error {
	fmt.Fprintf(out, "Due through %s (today %s)\n\n", due.Through, due.Today)

	fmt.Fprintln(out, "Equipment")
	if len(due.Equipment) == 0 {
		fmt.Fprintln(out, "  Nothing due.")
	} else {
		rows := make([][]string, 0, len(due.Equipment))
		for _, a := range due.Equipment {
			rows = append(rows, []string{
				a.Code, truncate(a.Name, 30), dash(a.Location),
				a.NextMaintenanceDate.String(), formatDays(a.DaysUntilDue), a.MaintenanceStatus.Label(),
			})
		}
		if err := printTable(out, []string{"CODE", "NAME", "LOCATION", "NEXT", "WHEN", "STATUS"}, rows); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "\nFollow-ups")
	if len(due.Followups) == 0 {
		fmt.Fprintln(out, "  Nothing due.")
		return nil
	}
	rows := make([][]string, 0, len(due.Followups))
	for _, v := range due.Followups {
		rows = append(rows, []string{
			truncate(v.FullName(), 30), dash(v.Phone), dash(v.AssignedName),
			v.NextFollowupDate.String(), formatDays(v.DaysUntilFollowup), v.FollowupStatus.Label(),
		})
	}
	return printTable(out, []string{"VISITOR", "PHONE", "ASSIGNED", "NEXT", "WHEN", "STATUS"}, rows)
}
