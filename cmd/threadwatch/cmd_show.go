package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/threadwatch/internal/monitor"
	"github.com/nvandessel/threadwatch/internal/scheduler"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <root-uri>",
		Short: "Show the briefing and schedule state for a tracked thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadCmdEnv(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			st, err := env.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			th, err := st.GetThread(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("loading thread: %w", err)
			}

			out := cmd.OutOrStdout()
			if th == nil {
				if env.jsonOut {
					return json.NewEncoder(out).Encode(map[string]any{
						"error":    "thread not tracked",
						"root_uri": args[0],
					})
				}
				fmt.Fprintf(out, "Thread not tracked: %s\n", args[0])
				return nil
			}

			if env.jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{
					"thread":   th,
					"briefing": monitor.Briefing(th),
				})
			}

			policy := scheduler.NewPolicy(env.cfg.Scheduler.BackoffIntervalsMin, env.cfg.Scheduler.SilenceHours)

			fmt.Fprintln(out, monitor.Briefing(th))
			fmt.Fprintln(out, "Schedule:")
			if th.Enabled {
				fmt.Fprintf(out, "  State: watching (level %d, interval %s)\n", th.BackoffLevel, policy.IntervalAt(th.BackoffLevel))
			} else {
				fmt.Fprintln(out, "  State: retired")
			}
			if !th.LastCheckAt.IsZero() {
				fmt.Fprintf(out, "  Last check: %s\n", th.LastCheckAt.Format(time.RFC3339))
			}
			if !th.LastNewActivityAt.IsZero() {
				fmt.Fprintf(out, "  Last new activity: %s\n", th.LastNewActivityAt.Format(time.RFC3339))
			}
			if !th.CreatedAt.IsZero() {
				fmt.Fprintf(out, "  Tracked since: %s\n", th.CreatedAt.Format(time.RFC3339))
			}
			if th.JobID != "" {
				fmt.Fprintf(out, "  Job: %s (%s)\n", th.JobID, monitor.JobName(env.cfg.Monitor.JobPrefix, th.RootURI))
			}
			return nil
		},
	}
}
