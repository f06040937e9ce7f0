package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/evcraddock/churchdesk/internal/auth"
	"github.com/evcraddock/churchdesk/internal/config"
	"github.com/evcraddock/churchdesk/internal/duedate"
	"github.com/evcraddock/churchdesk/internal/email"
	"github.com/evcraddock/churchdesk/internal/report"
)

type remindOptions struct {
	to     []string
	days   int
	dryRun bool
}

func newRemindCmd() *cobra.Command {
	var opts remindOptions

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Email a digest of overdue and upcoming maintenance and follow-ups",
		Long: "Builds the due report from the local database and emails it over SMTP. " +
			"Without --to the digest goes to every admin and staff account. Nothing is sent when nothing is due.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.days < 0 {
				return fmt.Errorf("--days must be zero or more")
			}
			return withDB(func(d *sqlx.DB, cfg config.Config) error {
				return runRemind(cmd, d, cfg, opts)
			})
		},
	}

	cmd.Flags().StringSliceVar(&opts.to, "to", nil, "recipient addresses (default: admin and staff users)")
	cmd.Flags().IntVar(&opts.days, "days", duedate.DueSoonWindow, "look this many days ahead")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the email instead of sending it")

	return cmd
}

func runRemind(cmd *cobra.Command, d *sqlx.DB, cfg config.Config, opts remindOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	due, err := report.NewService(d, calendar(cfg)).Due(ctx, opts.days)
	if err != nil {
		return err
	}
	if len(due.Equipment) == 0 && len(due.Followups) == 0 {
		fmt.Fprintln(out, "Nothing due; no email sent.")
		return nil
	}

	to := opts.to
	if len(to) == 0 {
		to, err = officeRecipients(ctx, d)
		if err != nil {
			return err
		}
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients: pass --to or add an admin or staff user")
	}

	subject := email.Subject(due)
	body := email.FormatDigest(due, cfg.BaseURL)

	if opts.dryRun {
		fmt.Fprintf(out, "To: %s\nSubject: %s\n\n%s", strings.Join(to, ", "), subject, body)
		return nil
	}

	if !cfg.SMTP.IsConfigured() {
		return fmt.Errorf("SMTP not configured: set smtp.host and smtp.from in the config file or DESK_SMTP_* variables")
	}
	if err := email.Send(cfg.SMTP, to, subject, body); err != nil {
		return err
	}
	slog.Info("reminder sent", "recipients", len(to), "equipment", len(due.Equipment), "followups", len(due.Followups))
	fmt.Fprintf(out, "Sent reminder to %s\n", plural(len(to), "recipient"))
	return nil
}

// officeRecipients returns the emails of every admin and staff account.
func officeRecipients(ctx context.Context, d *sqlx.DB) ([]string, error) {
	users, err := auth.NewUserStore(d).List(ctx)
	if err != nil {
		return nil, err
	}
	var to []string
	for _, u := range users {
		if u.Role == auth.Admin || u.Role == auth.Staff {
			to = append(to, u.Email)
		}
	}
	return to, nil
}

