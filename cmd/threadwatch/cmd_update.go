package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <root-uri>",
		Short: "Apply a backoff transition after an external recheck",
		Long: `Record the outcome of a recheck performed outside threadwatch.

--activity=true resets the thread to the fastest polling level;
--activity=false advances it one backoff step toward retirement.
Exits 2 when the thread is not tracked.

Example:
  threadwatch update at://did:plc:abc/app.bsky.feed.post/xyz --activity=true`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			activity, _ := cmd.Flags().GetBool("activity")

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

			report, err := env.newEngine(st, env.newTransport()).ApplyUpdate(context.Background(), args[0], activity)
			if err != nil {
				return fmt.Errorf("update failed: %w", err)
			}

			if env.jsonOut {
				if err := json.NewEncoder(cmd.OutOrStdout()).Encode(report); err != nil {
					return err
				}
			} else if !report.Found {
				fmt.Fprintf(cmd.OutOrStdout(), "Not tracked: %s\n", report.RootURI)
			} else if report.Activity {
				fmt.Fprintf(cmd.OutOrStdout(), "Updated: %s reset to level %d, next check in %s\n",
					report.RootURI, report.Level, msDuration(report.NextIntervalMs))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Updated: %s advanced to level %d, next check in %s\n",
					report.RootURI, report.Level, msDuration(report.NextIntervalMs))
			}

			if !report.Found {
				st.Close()
				env.close()
				os.Exit(2)
			}
			return nil
		},
	}

	cmd.Flags().Bool("activity", false, "Whether the recheck saw new activity")
	cmd.MarkFlagRequired("activity")

	return cmd
}
