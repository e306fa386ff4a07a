package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/threadwatch/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server over stdio",
		Long: `Serve tracked-thread state to MCP clients over stdio.

Tools expose the thread list, per-thread briefings, due checks, and
the engaged-participant set; a resource renders the active threads as
a markdown digest. The surface is read only; mutation stays with the
CLI verbs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadCmdEnv(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "threadwatch",
				Version:  version,
				StateDir: env.stateDir,
				App:      env.cfg,
				Logger:   env.logger,
			})
			if err != nil {
				return fmt.Errorf("starting MCP server: %w", err)
			}

			return server.Run(context.Background())
		},
	}
}
