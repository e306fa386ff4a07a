package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/threadwatch/internal/engine"
	"github.com/nvandessel/threadwatch/internal/models"
)

func newDiscoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan notifications for conversations worth tracking",
		Long: `Run one discovery pass over the agent's notifications.

Reply, mention and quote notifications are grouped by thread root,
each root is analyzed and scored, and threads clearing the relevance
threshold are registered for monitoring. Already-tracked threads are
refreshed in place.

Example:
  threadwatch discover --emit-jobs`,
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

			ctx := context.Background()
			client := env.newTransport()
			if env.cfg.Account.AppPassword != "" {
				if err := client.Login(ctx); err != nil {
					return fmt.Errorf("logging in: %w", err)
				}
				if env.cfg.Account.DID == "" {
					env.cfg.Account.DID = client.DID()
				}
			}
			if env.cfg.Account.DID == "" {
				return fmt.Errorf("agent DID unknown: set account.did or configure credentials")
			}

			report, err := env.newEngine(st, client).Discover(ctx)
			if err != nil {
				return fmt.Errorf("discovery failed: %w", err)
			}

			emitJobs, _ := cmd.Flags().GetBool("emit-jobs")
			written := 0
			if emitJobs {
				written, err = writeJobFiles(env.stateDir, report.Jobs)
				if err != nil {
					return err
				}
			}

			return printDiscoverReport(cmd.OutOrStdout(), env.jsonOut, report, emitJobs, written)
		},
	}

	cmd.Flags().Bool("emit-jobs", false, "Write monitor job configs to <state-dir>/jobs/")

	return cmd
}

// writeJobFiles writes one JSON file per monitor job under the state
// directory's jobs/ folder, named after the job. Returns how many
// files were written.
func writeJobFiles(stateDir string, jobs []models.MonitorJob) (int, error) {
	if len(jobs) == 0 {
		return 0, nil
	}
	dir := filepath.Join(stateDir, "jobs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("creating jobs directory: %w", err)
	}
	for _, job := range jobs {
		data, err := json.MarshalIndent(job, "", "  ")
		if err != nil {
			return 0, fmt.Errorf("encoding job %s: %w", job.Name, err)
		}
		path := filepath.Join(dir, job.Name+".json")
		if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
			return 0, fmt.Errorf("writing job file: %w", err)
		}
	}
	return len(jobs), nil
}

func printDiscoverReport(w io.Writer, jsonOut bool, report *engine.DiscoverReport, emitted bool, written int) error {
	if jsonOut {
		return json.NewEncoder(w).Encode(report)
	}

	fmt.Fprintf(w, "Discovery pass: %d notifications, %d candidate roots\n", report.Notifications, report.Candidates)

	if len(report.Qualified) > 0 {
		fmt.Fprintf(w, "\nNewly tracked (%d):\n", len(report.Qualified))
		for _, uri := range report.Qualified {
			fmt.Fprintf(w, "  %s\n", uri)
		}
	}
	if len(report.Updated) > 0 {
		fmt.Fprintf(w, "\nRefreshed (%d):\n", len(report.Updated))
		for _, uri := range report.Updated {
			fmt.Fprintf(w, "  %s\n", uri)
		}
	}
	if len(report.Skipped) > 0 {
		fmt.Fprintf(w, "\nSkipped (%d):\n", len(report.Skipped))
		for _, s := range report.Skipped {
			if s.Score > 0 {
				fmt.Fprintf(w, "  %s: %s (score %.0f)\n", s.RootURI, s.Reason, s.Score)
			} else {
				fmt.Fprintf(w, "  %s: %s\n", s.RootURI, s.Reason)
			}
		}
	}

	if len(report.Qualified) == 0 && len(report.Updated) == 0 && len(report.Skipped) == 0 {
		fmt.Fprintln(w, "Nothing new to track.")
	}

	if emitted {
		fmt.Fprintf(w, "\nWrote %d job file(s) to jobs/\n", written)
	} else if len(report.Jobs) > 0 {
		fmt.Fprintf(w, "\n%d monitor job(s) pending; use --emit-jobs to write them\n", len(report.Jobs))
	}

	return nil
}
