package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/churchdesk/internal/client"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the connection to a churchdesk server",
		Long:  "Calls the server's dashboard report with the stored API key and prints the alert counts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runStatus(ctx context.Context, out io.Writer) error {
	r := remote()
	serverURL, apiKey := r.ServerURL, r.APIKey

	fmt.Fprintf(out, "Server:  %s\n", serverURL)

	if apiKey == "" {
		fmt.Fprintln(out, "API Key: not configured")
		fmt.Fprintln(out, "\nRun 'desk login' to store one.")
		return nil
	}

	prefix := apiKey
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	fmt.Fprintf(out, "API Key: %s…\n", prefix)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	d, err := client.New(serverURL, apiKey).Dashboard(ctx)
	if err != nil {
		fmt.Fprintf(out, "Status:  ✗ %v\n", err)
		fmt.Fprintln(out, "\nCheck the server URL, or run 'desk login' to store a new key.")
		return nil
	}

	fmt.Fprintln(out, "Status:  ✓ connected and authenticated")
	fmt.Fprintf(out, "Alerts:  %d equipment overdue, %d due soon; %d follow-ups overdue, %d due soon\n",
		d.EquipmentOverdue, d.EquipmentDueSoon, d.FollowupsOverdue, d.FollowupsDueSoon)

	return nil
}
