package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/threadwatch/internal/models"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked threads",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")

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

			if !all {
				kept := threads[:0]
				for _, th := range threads {
					if th.Enabled {
						kept = append(kept, th)
					}
				}
				threads = kept
			}

			out := cmd.OutOrStdout()
			if env.jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{
					"threads": threads,
					"count":   len(threads),
				})
			}

			if len(threads) == 0 {
				fmt.Fprintln(out, "No threads tracked yet.")
				fmt.Fprintln(out, "\nRun 'threadwatch discover' to scan notifications.")
				return nil
			}

			fmt.Fprintf(out, "Tracked threads (%d):\n\n", len(threads))
			for i, th := range threads {
				fmt.Fprintf(out, "%d. @%s  score %.0f  level %d  %s\n", i+1, authorLabel(th), th.Score, th.BackoffLevel, watchLabel(th))
				fmt.Fprintf(out, "   %s\n", th.RootURI)
				if len(th.RootTopics) > 0 {
					fmt.Fprintf(out, "   Topics: %s\n", strings.Join(th.RootTopics, ", "))
				}
				fmt.Fprintf(out, "   Branches: %d (%d messages), agent replies: %d\n",
					len(th.Branches), th.TotalBranchMessages(), th.AgentReplyCount)
				if !th.LastActivity.IsZero() {
					fmt.Fprintf(out, "   Last activity: %s\n", th.LastActivity.Format(time.RFC3339))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "Include retired threads")

	return cmd
}

func authorLabel(th *models.TrackedThread) string {
	if th.RootAuthorHandle != "" {
		return th.RootAuthorHandle
	}
	return th.RootAuthorDID
}

func watchLabel(th *models.TrackedThread) string {
	if th.Enabled {
		return "[watching]"
	}
	return "[retired]"
}
