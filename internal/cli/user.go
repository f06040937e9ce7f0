package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/evcraddock/churchdesk/internal/auth"
	"github.com/evcraddock/churchdesk/internal/config"
)

// withDB loads the server config, opens its database and runs fn.
func withDB(fn func(d *sqlx.DB, cfg config.Config) error) error {
	cfg, err := loadServerConfig()
	if err != nil {
		return err
	}
	d, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(d)
	return fn(d, cfg)
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff accounts",
	}
	cmd.AddCommand(newUserAddCmd(), newUserListCmd(), newUserRemoveCmd(), newUserPasswordCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var name, role, password string

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Add a user",
		Long:  "Adds a user. Without --password the account can only sign in with a passkey registered later.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := auth.Role(strings.ToLower(role))
			if !r.IsValid() {
				return fmt.Errorf("invalid role %q (want admin, staff or volunteer)", role)
			}
			return withDB(func(d *sqlx.DB, _ config.Config) error {
				u, err := auth.NewUserStore(d).Add(cmd.Context(), args[0], name, r, password)
				if err != nil {
					return err
				}
				if isJSON() {
					return printJSON(cmd.OutOrStdout(), u)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) as user #%d.\n", u.Email, u.Role.Label(), u.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(auth.Volunteer), "role (admin|staff|volunteer)")
	cmd.Flags().StringVar(&password, "password", "", "password (omit for passkey-only)")

	return cmd
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(d *sqlx.DB, _ config.Config) error {
				users, err := auth.NewUserStore(d).List(cmd.Context())
				if err != nil {
					return err
				}
				if isJSON() {
					return printJSON(cmd.OutOrStdout(), users)
				}
				return printUserTable(cmd.OutOrStdout(), users)
			})
		},
	}
}

func newUserRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <email>",
		Short: "Remove a user and their sessions, passkeys and API keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(d *sqlx.DB, _ config.Config) error {
				users := auth.NewUserStore(d)
				u, err := users.GetByEmail(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := users.Delete(cmd.Context(), u.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", u.Email)
				return nil
			})
		},
	}
}

func newUserPasswordCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "passwd <email>",
		Short: "Set a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}
			return withDB(func(d *sqlx.DB, _ config.Config) error {
				users := auth.NewUserStore(d)
				u, err := users.GetByEmail(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := users.SetPassword(cmd.Context(), u.ID, password); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s.\n", u.Email)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "new password")
	if err := cmd.MarkFlagRequired("password"); err != nil {
		panic(err)
	}

	return cmd
}

func printUserTable(out io.Writer, users []*auth.User) error {
	if len(users) == 0 {
		fmt.Fprintln(out, "No users.")
		return nil
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			fmt.Sprint(u.ID), u.Email, dash(u.Name), u.Role.Label(), u.CreatedAt.Format("2006-01-02"),
		})
	}
	return printTable(out, []string{"ID", "EMAIL", "NAME", "ROLE", "CREATED"}, rows)
}
