package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/churchdesk/internal/config"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored API key",
		Long:  "Removes the API key from cli.yaml. The saved server URL stays.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.OutOrStdout())
		},
	}
}

func runLogout(out io.Writer) error {
	removed := false
	err := updateRemote(func(r *config.Remote) bool {
		removed = r.APIKey != ""
		r.APIKey = ""
		return removed
	})
	if err != nil {
		return fmt.Errorf("removing API key: %w", err)
	}
	if removed {
		fmt.Fprintln(out, "✓ API key removed.")
	} else {
		fmt.Fprintln(out, "No API key stored.")
	}
	if os.Getenv("DESK_API_KEY") != "" {
		fmt.Fprintln(out, "DESK_API_KEY is still set in the environment.")
	}
	return nil
}
