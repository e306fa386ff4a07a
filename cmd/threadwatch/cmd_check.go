package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/threadwatch/internal/engine"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <root-uri>",
		Short: "Decide whether a tracked thread is due for a recheck",
		Long: `Evaluate a tracked thread against its backoff schedule.

Exit codes signal the decision to the job runner:
  0  due now (a retired thread also exits 0, with action "disable")
  1  not due yet
  2  thread not tracked`,
		Args: cobra.ExactArgs(1),
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

			report, err := env.newEngine(st, env.newTransport()).CheckDue(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("check failed: %w", err)
			}

			if err := printCheckReport(cmd.OutOrStdout(), env.jsonOut, report); err != nil {
				return err
			}

			if code := checkExitCode(report.Outcome); code != 0 {
				st.Close()
				env.close()
				os.Exit(code)
			}
			return nil
		},
	}
}

// checkExitCode maps a check outcome to the process exit code the job
// runner keys on.
func checkExitCode(outcome engine.CheckOutcome) int {
	switch outcome {
	case engine.OutcomeNotFound:
		return 2
	case engine.OutcomeSkip:
		return 1
	default:
		return 0
	}
}

func printCheckReport(w io.Writer, jsonOut bool, report *engine.CheckReport) error {
	if jsonOut {
		return json.NewEncoder(w).Encode(report)
	}

	switch report.Outcome {
	case engine.OutcomeCheck:
		fmt.Fprintf(w, "Due: %s (level %d, %s since last check)\n", report.RootURI, report.Level, msDuration(report.ElapsedMs))
	case engine.OutcomeRetire:
		fmt.Fprintf(w, "Retire: %s silent past the final window; disable monitoring\n", report.RootURI)
	case engine.OutcomeSkip:
		if report.Reason != "" {
			fmt.Fprintf(w, "Skip: %s (%s)\n", report.RootURI, report.Reason)
		} else {
			fmt.Fprintf(w, "Skip: %s, next check in %s (level %d)\n", report.RootURI, msDuration(report.WaitMs), report.Level)
		}
	case engine.OutcomeNotFound:
		fmt.Fprintf(w, "Not tracked: %s\n", report.RootURI)
	}
	return nil
}

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
