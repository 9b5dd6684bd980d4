package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/ecotrack-console/internal/app"
)

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive console (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts.rt)
		},
	}
}

// runTUI starts polling and runs the console until the operator quits.
func runTUI(rt *runtime) error {
	poller := rt.newPoller()
	defer poller.Stop()

	m := app.New(app.Deps{
		Store:       rt.store,
		Reports:     rt.reports,
		Users:       rt.users,
		Schedules:   rt.schedules,
		Notify:      rt.notify,
		Poller:      poller,
		Credentials: rt.creds,
		APIURL:      rt.cfg.API.BaseURL,
		Logger:      rt.logger.WithPrefix("ui"),
	})

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running console: %w", err)
	}
	return nil
}
