package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/threadwatch/internal/models"
	"github.com/nvandessel/threadwatch/internal/monitor"
	"github.com/nvandessel/threadwatch/internal/scheduler"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Print the monitor job config for every tracked thread",
		Long: `Render the recurring monitor job for each tracked thread: name,
polling interval at the thread's current backoff level, and the
briefing payload the job delivers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			emit, _ := cmd.Flags().GetBool("emit")

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

			threads, err := st.ListThreads(context.Background())
			if err != nil {
				return fmt.Errorf("listing threads: %w", err)
			}

			policy := scheduler.NewPolicy(env.cfg.Scheduler.BackoffIntervalsMin, env.cfg.Scheduler.SilenceHours)
			jobs := make([]models.MonitorJob, 0, len(threads))
			for _, th := range threads {
				jobs = append(jobs, monitor.BuildJob(th, policy, env.cfg.Monitor))
			}

			if emit {
				if _, err := writeJobFiles(env.stateDir, jobs); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if env.jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{
					"jobs":  jobs,
					"count": len(jobs),
				})
			}

			if len(jobs) == 0 {
				fmt.Fprintln(out, "No monitor jobs; no threads tracked yet.")
				return nil
			}

			fmt.Fprintf(out, "Monitor jobs (%d):\n\n", len(jobs))
			for i, job := range jobs {
				state := "[enabled]"
				if !job.Enabled {
					state = "[disabled]"
				}
				fmt.Fprintf(out, "%d. %s  every %s  %s\n", i+1, job.Name, msDuration(job.Schedule.IntervalMs), state)
			}
			if emit {
				fmt.Fprintf(out, "\nWrote %d job file(s) to jobs/\n", len(jobs))
			}
			return nil
		},
	}

	cmd.Flags().Bool("emit", false, "Also write job configs to <state-dir>/jobs/")

	return cmd
}
