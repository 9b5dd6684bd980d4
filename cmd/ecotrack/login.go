package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/ecotrack-console/internal/credential"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the admin API token in the system keyring",
		Long: `Store the admin API token in the system keyring.

Without --token the token is read from an interactive prompt.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noRuntime: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				err := huh.NewInput().
					Title("API Token").
					Description("Paste an admin API token.").
					EchoMode(huh.EchoModePassword).
					Validate(credential.ValidateToken).
					Value(&token).
					Run()
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("reading token: %w", err)
				}
			}
			token = strings.TrimSpace(token)
			if err := credential.ValidateToken(token); err != nil {
				return err
			}

			if err := credential.NewStore().Set(credential.TokenKey, token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token saved.")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "token to store")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:         "logout",
		Short:       "Remove the stored API token",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noRuntime: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credential.NewStore().Delete(credential.TokenKey); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}
