// Package cli defines the cobra command tree for churchdesk.
package cli

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/evcraddock/churchdesk/internal/client"
	"github.com/evcraddock/churchdesk/internal/config"
	"github.com/evcraddock/churchdesk/internal/db"
	"github.com/evcraddock/churchdesk/internal/duedate"
)

var (
	flagFormat string
	flagDB     string
	flagConfig string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "desk",
		Short:         "Church office back office",
		Long:          "Track church equipment and its maintenance schedule, visitors and their follow-ups. Run the web UI with 'desk serve' or query a running server from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: ~/.churchdesk/desk.db)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "server config file (default: ~/.config/churchdesk/config.yaml)")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newUserCmd(),
		newAPIKeyCmd(),
		newDueCmd(),
		newExportCmd(),
		newRemindCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// loadServerConfig reads the server configuration and applies --db.
func loadServerConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	return cfg, nil
}

// openDB opens the SQLite database named by cfg, running migrations.
func openDB(cfg config.Config) (*sqlx.DB, error) {
	return db.Open(cfg.DBPath)
}

// calendar is the local "today" for commands that read the database directly.
func calendar(cfg config.Config) duedate.Calendar {
	return duedate.Calendar{Location: cfg.Location()}
}

// newAPIClient creates an HTTP client for a churchdesk server. An empty
// server uses the configured one.
func newAPIClient(server string) *client.Client {
	r := remote()
	if server == "" {
		server = r.ServerURL
	}
	return client.New(server, r.APIKey)
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sqlx.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
