package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/ecotrack-console/internal/model"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}
	cmd.AddCommand(
		newConfigInitCmd(opts),
		newConfigShowCmd(opts),
	)
	return cmd
}

func newConfigInitCmd(opts *rootOptions) *cobra.Command {
	var (
		apiURL string
		force  bool
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a config file with default settings",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noRuntime: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(opts.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", opts.configPath)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			cfg, err := model.LoadConfig(opts.configPath)
			if err != nil && !force {
				return err
			}
			if cfg == nil {
				cfg = model.DefaultConfig()
			}
			if apiURL != "" {
				cfg.API.BaseURL = apiURL
			}
			if err := model.SaveConfig(opts.configPath, cfg); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Wrote %s.\n", opts.configPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiURL, "api-url", "", "admin API origin")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Print the effective configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noRuntime: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := model.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), cfg)
		},
	}
}
