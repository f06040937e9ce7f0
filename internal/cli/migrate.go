package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database",
		Long:  "Opens the database, creating it if needed, and applies any pending schema changes. 'desk serve' does this on start as well.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServerConfig()
			if err != nil {
				return err
			}
			d, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(d)

			fmt.Fprintf(cmd.OutOrStdout(), "Database ready: %s\n", cfg.DBPath)
			return nil
		},
	}
}
