package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/evcraddock/churchdesk/internal/auth"
	"github.com/evcraddock/churchdesk/internal/config"
)

func newAPIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "apikey",
		Aliases: []string{"apikeys"},
		Short:   "Manage API keys for the /api routes",
	}
	cmd.AddCommand(newAPIKeyCreateCmd(), newAPIKeyListCmd(), newAPIKeyRevokeCmd())
	return cmd
}

func newAPIKeyCreateCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an API key acting as a user",
		Long:  "Creates an API key. The key is printed once and cannot be shown again.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(d *sqlx.DB, _ config.Config) error {
				u, err := auth.NewUserStore(d).GetByEmail(cmd.Context(), email)
				if err != nil {
					return fmt.Errorf("user %s: %w", email, err)
				}
				raw, key, err := auth.NewAPIKeyStore(d).Create(cmd.Context(), args[0], u.ID)
				if err != nil {
					return err
				}
				if isJSON() {
					return printJSON(cmd.OutOrStdout(), struct {
						Key string `json:"key"`
						*auth.APIKey
					}{raw, key})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created API key #%d %q for %s.\n\n", key.ID, key.Name, u.Email)
				fmt.Fprintf(out, "  %s\n\n", raw)
				fmt.Fprintln(out, "Store it now; it will not be shown again.")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "user", "", "email of the user the key acts as")
	if err := cmd.MarkFlagRequired("user"); err != nil {
		panic(err)
	}

	return cmd
}

func newAPIKeyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(d *sqlx.DB, _ config.Config) error {
				keys, err := auth.NewAPIKeyStore(d).List(cmd.Context(), 0)
				if err != nil {
					return err
				}
				if isJSON() {
					return printJSON(cmd.OutOrStdout(), keys)
				}
				return printKeyTable(cmd.OutOrStdout(), keys)
			})
		},
	}
}

func newAPIKeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid key ID %q", args[0])
			}
			return withDB(func(d *sqlx.DB, _ config.Config) error {
				if err := auth.NewAPIKeyStore(d).Delete(cmd.Context(), id, 0); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Revoked API key #%d.\n", id)
				return nil
			})
		},
	}
}

func printKeyTable(out io.Writer, keys []auth.APIKey) error {
	if len(keys) == 0 {
		fmt.Fprintln(out, "No API keys.")
		return nil
	}
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		used := "never"
		if k.LastUsedAt != nil {
			used = k.LastUsedAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			fmt.Sprint(k.ID), k.Name, k.KeyPrefix + "…", k.UserEmail, k.CreatedAt.Format("2006-01-02"), used,
		})
	}
	return printTable(out, []string{"ID", "NAME", "PREFIX", "USER", "CREATED", "LAST USED"}, rows)
}
