package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/threadwatch/internal/engine"
)

func newRecheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recheck <root-uri>",
		Short: "Run one full monitoring tick for a tracked thread",
		Long: `Recheck a tracked thread: peek at fresh notifications, evaluate the
backoff schedule, and when due re-fetch and re-score the thread.

A fresh reply under the thread preempts the schedule. Exits 2 when
the thread is not tracked.`,
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

			report, err := env.newEngine(st, client).Recheck(ctx, args[0])
			if err != nil {
				return fmt.Errorf("recheck failed: %w", err)
			}

			if err := printRecheckReport(cmd.OutOrStdout(), env.jsonOut, report); err != nil {
				return err
			}

			if report.Outcome == engine.OutcomeNotFound {
				st.Close()
				env.close()
				os.Exit(2)
			}
			return nil
		},
	}
}

func printRecheckReport(w io.Writer, jsonOut bool, report *engine.RecheckReport) error {
	if jsonOut {
		return json.NewEncoder(w).Encode(report)
	}

	switch report.Outcome {
	case engine.OutcomeCheck:
		state := "silent"
		if report.Activity {
			state = "new activity"
		}
		if report.Preempted {
			state += ", preempted by fresh notification"
		}
		fmt.Fprintf(w, "Rechecked: %s score %.0f, level %d (%s)\n", report.RootURI, report.Score, report.Level, state)
	case engine.OutcomeSkip:
		if report.Reason != "" {
			fmt.Fprintf(w, "Skip: %s (%s)\n", report.RootURI, report.Reason)
		} else {
			fmt.Fprintf(w, "Skip: %s, next check in %s (level %d)\n", report.RootURI, msDuration(report.WaitMs), report.Level)
		}
	case engine.OutcomeRetire:
		fmt.Fprintf(w, "Retired: %s after the final silence window\n", report.RootURI)
	case engine.OutcomeUnavailable:
		fmt.Fprintf(w, "Unavailable: %s could not be fetched; schedule unchanged\n", report.RootURI)
	case engine.OutcomeNotFound:
		fmt.Fprintf(w, "Not tracked: %s\n", report.RootURI)
	}
	return nil
}
