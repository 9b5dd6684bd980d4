package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/ecotrack-console/internal/users"
)

func newUsersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "List and remove console users",
	}
	cmd.AddCommand(
		newUsersListCmd(opts),
		newUsersDeleteCmd(opts),
	)
	return cmd
}

func newUsersListCmd(opts *rootOptions) *cobra.Command {
	var (
		f      = users.Filter{Role: users.FilterAll, Status: users.FilterAll}
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := opts.rt
			if err := rt.users.Load(cmd.Context()); err != nil {
				return err
			}

			out := rt.users.List(f)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			if len(out) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users found.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderUsers(out))

			st := rt.users.Stats()
			printf(cmd.OutOrStdout(), "%d users, %d active, %d admins\n", st.Total, st.Active, st.Admins)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.Role, "role", users.FilterAll, "Admin, User or All")
	cmd.Flags().StringVar(&f.Status, "status", users.FilterAll, "Active, Inactive or All")
	cmd.Flags().StringVarP(&f.Search, "search", "q", "", "match name or email")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newUsersDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := opts.rt
			if err := rt.users.Load(cmd.Context()); err != nil {
				return err
			}
			if err := rt.users.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Deleted user %s.\n", args[0])
			return nil
		},
	}
}
