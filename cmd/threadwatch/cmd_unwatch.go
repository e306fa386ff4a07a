package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newUnwatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unwatch <root-uri>",
		Short: "Stop tracking a thread and drop its record",
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

			ctx := context.Background()
			th, err := st.GetThread(ctx, args[0])
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

			if err := st.DeleteThread(ctx, args[0]); err != nil {
				return fmt.Errorf("deleting thread: %w", err)
			}
			env.decisions.Decision("unwatch", args[0], nil)

			if env.jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{
					"status":   "unwatched",
					"root_uri": args[0],
				})
			}
			fmt.Fprintf(out, "Stopped watching %s\n", args[0])
			return nil
		},
	}
}
