package main

import (
	"github.com/spf13/cobra"

	"github.com/nhle/ecotrack-console/internal/model"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	rt         *runtime

	// opened is set when the runtime was opened by the command itself
	// and must be closed after it runs.
	opened bool
}

// newRootCmd builds the command tree. With no subcommand it opens the TUI.
func newRootCmd() *cobra.Command {
	return newRootCmdWith(&rootOptions{})
}

// newRootCmdWith builds the command tree around opts. A runtime already
// set in opts is used as is.
func newRootCmdWith(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "ecotrack",
		Short: "Admin console for environmental incident reports",
		Long: `Admin console for environmental incident reports.

Run without a subcommand to open the interactive console. Subcommands
query and change the same cached state from scripts.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.rt != nil || !needsRuntime(cmd) {
				return nil
			}
			rt, err := openRuntime(cmd.Context(), opts.configPath)
			if err != nil {
				return err
			}
			opts.rt = rt
			opts.opened = true
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.opened {
				opts.rt.Close()
				opts.rt = nil
				opts.opened = false
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts.rt)
		},
	}

	root.CompletionOptions.HiddenDefaultCmd = true
	root.PersistentFlags().StringVar(&opts.configPath, "config", model.DefaultConfigPath(),
		"path to the config file")

	root.AddCommand(
		newTUICmd(opts),
		newReportsCmd(opts),
		newNotificationsCmd(opts),
		newUsersCmd(opts),
		newSchedulesCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newConfigCmd(opts),
	)

	return root
}

// noRuntime marks commands that run without opening the state database.
const noRuntime = "no-runtime"

func needsRuntime(cmd *cobra.Command) bool {
	_, skip := cmd.Annotations[noRuntime]
	return !skip
}
