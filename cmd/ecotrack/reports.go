package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/reports"
)

func newReportsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reports",
		Aliases: []string{"report"},
		Short:   "List and change incident reports",
	}
	cmd.AddCommand(
		newReportsListCmd(opts),
		newReportsStatusCmd(opts),
		newReportsDeleteCmd(opts),
	)
	return cmd
}

func newReportsListCmd(opts *rootOptions) *cobra.Command {
	var (
		status  string
		search  string
		asJSON  bool
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports",
		Long: `List reports, optionally narrowed by status and a search term.

The search term matches the report id, issue type, submitter and location.
With --offline the last saved collection is shown without contacting the
server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := opts.rt
			c := reports.Criteria{StatusFilter: reports.StatusAll, SearchTerm: search}
			if status != "" {
				st, ok := model.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q (want one of %s)", status, statusNames())
				}
				c.StatusFilter = string(st)
			}

			if offline {
				if err := rt.reports.Restore(cmd.Context()); err != nil {
					return err
				}
			} else if err := rt.reports.Load(cmd.Context()); err != nil {
				return err
			}

			out := rt.reports.GetFiltered(c)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			if len(out) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No reports found.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderReports(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "only reports with this status")
	cmd.Flags().StringVarP(&search, "search", "q", "", "search term")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().BoolVar(&offline, "offline", false, "use the saved snapshot")
	return cmd
}

func newReportsStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change a report's status",
		Long: `Change a report's status.

Status may be written as "Pending", "In Progress", "in_progress" or
"resolved"; case, spaces and separators are ignored.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := opts.rt
			st, ok := model.ParseStatus(args[1])
			if !ok {
				return fmt.Errorf("unknown status %q (want one of %s)", args[1], statusNames())
			}
			if err := rt.reports.Load(cmd.Context()); err != nil {
				return err
			}
			if err := rt.reports.UpdateStatus(cmd.Context(), args[0], st); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Report %s is now %s.\n", args[0], st)
			return nil
		},
	}
}

func newReportsDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := opts.rt
			if err := rt.reports.Load(cmd.Context()); err != nil {
				return err
			}
			if err := rt.reports.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Deleted report %s.\n", args[0])
			return nil
		},
	}
}

func statusNames() string {
	names := make([]string, len(model.Statuses))
	for i, s := range model.Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
