package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"practice/internal/practice"
)

func newStatsCmd(o *options) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show practice time for today and the past week",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store := practice.NewStore(o.cfg.Practice.DBPath)
			defer store.Close()
			tracker := practice.NewTracker(store)

			if reset {
				if err := tracker.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Practice history cleared.")
				return nil
			}

			today, err := tracker.Today(ctx)
			if err != nil {
				return err
			}
			week, err := tracker.Week(ctx)
			if err != nil {
				return err
			}
			recent, err := store.Sessions(ctx, time.Now().Add(-7*24*time.Hour))
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), today, week, recent, time.Now())
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "clear", false, "Delete all recorded sessions")
	return cmd
}

func printStats(w io.Writer, today practice.TodayStats, week practice.WeekStats, recent []practice.Session, now time.Time) {
	tools := "none"
	if len(today.Tools) > 0 {
		tools = strings.Join(today.Tools, ", ")
	}
	fmt.Fprintf(w, "Today:     %s in %d sessions (%s)\n", practice.FormatMinutes(today.Minutes), today.Sessions, tools)
	fmt.Fprintf(w, "This week: %s in %d sessions over %d days\n", practice.FormatMinutes(week.Minutes), week.Sessions, week.Days)

	if len(recent) == 0 {
		return
	}
	fmt.Fprintln(w, "\nRecent sessions:")
	for i := len(recent) - 1; i >= 0 && i >= len(recent)-5; i-- {
		s := recent[i]
		fmt.Fprintf(w, "  %-10s %6s  %s\n", s.Tool, practice.FormatDuration(s.Duration), practice.FormatAgo(s.Start, now))
	}
}
