package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/ecotrack-console/internal/model"
)

func newSchedulesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedules",
		Aliases: []string{"schedule"},
		Short:   "Manage the weekly waste collection schedule",
	}
	cmd.AddCommand(
		newSchedulesListCmd(opts),
		newSchedulesEditCmd(opts),
		newSchedulesDeleteCmd(opts),
	)
	return cmd
}

func newSchedulesListCmd(opts *rootOptions) *cobra.Command {
	var (
		day    string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the weekly schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := opts.rt
			if err := rt.schedules.Load(cmd.Context()); err != nil {
				return err
			}

			if day != "" {
				name, err := weekday(day)
				if err != nil {
					return err
				}
				day = name
			}

			if asJSON {
				out := rt.schedules.List()
				if day != "" {
					out = slices.DeleteFunc(out, func(s model.Schedule) bool { return s.Day != day })
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			t := newTable("DAY", "DATE", "ID", "TYPE", "TIME")
			for _, d := range rt.schedules.Week() {
				if day != "" && d.Name != day {
					continue
				}
				if len(d.Slots) == 0 {
					t.Row(d.Name, d.Date, "", "No Collection", "")
					continue
				}
				for _, s := range d.Slots {
					t.Row(d.Name, d.Date, s.ID, s.Type, s.StartTime+" - "+s.EndTime)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "show a single weekday")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newSchedulesEditCmd(opts *rootOptions) *cobra.Command {
	var patch model.Schedule

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a collection slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := opts.rt
			if err := rt.schedules.Load(cmd.Context()); err != nil {
				return err
			}

			s, ok := rt.schedules.Get(args[0])
			if !ok {
				return fmt.Errorf("schedule %s not found", args[0])
			}

			flags := cmd.Flags()
			if flags.Changed("day") {
				name, err := weekday(patch.Day)
				if err != nil {
					return err
				}
				s.Day = name
			}
			if flags.Changed("date") {
				s.CollectionDate = patch.CollectionDate
			}
			if flags.Changed("type") {
				s.Type = wasteType(patch.Type)
			}
			if flags.Changed("start") {
				s.StartTime = patch.StartTime
			}
			if flags.Changed("end") {
				s.EndTime = patch.EndTime
			}

			if err := rt.schedules.Update(cmd.Context(), s); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Schedule %s: %s %s, %s - %s\n", s.ID, s.Day, s.Type, s.StartTime, s.EndTime)
			return nil
		},
	}

	cmd.Flags().StringVar(&patch.Day, "day", "", "weekday, e.g. Monday")
	cmd.Flags().StringVar(&patch.CollectionDate, "date", "", "collection date, YYYY-MM-DD")
	cmd.Flags().StringVar(&patch.Type, "type", "", "general, recyclables or organic")
	cmd.Flags().StringVar(&patch.StartTime, "start", "", "start time, HH:MM")
	cmd.Flags().StringVar(&patch.EndTime, "end", "", "end time, HH:MM")
	return cmd
}

func newSchedulesDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a collection slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := opts.rt
			if err := rt.schedules.Load(cmd.Context()); err != nil {
				return err
			}
			if err := rt.schedules.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Deleted schedule %s.\n", args[0])
			return nil
		},
	}
}

// weekday resolves a case-insensitive day name or its three-letter prefix.
func weekday(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, d := range model.Weekdays {
		if strings.ToLower(d) == s || (len(s) >= 3 && strings.HasPrefix(strings.ToLower(d), s)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown day %q", s)
}

// wasteType accepts the short names alongside the display names. Anything
// else is passed through for validation to reject.
func wasteType(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "general", "general waste":
		return model.WasteGeneral
	case "recyclables", "recycle", "recyclable":
		return model.WasteRecyclable
	case "organic", "organic waste":
		return model.WasteOrganic
	}
	return s
}
