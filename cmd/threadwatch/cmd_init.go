package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/threadwatch/internal/config"
)

const configScaffold = `# threadwatch configuration
# created: %s

account:
  handle: ""
  did: ""
  host: https://bsky.social
  app_password: ${THREADWATCH_APP_PASSWORD}

topics:
  vocabulary:
%s
analysis:
  relevance_threshold: 60
  branch_respond_threshold: 40
  min_exchange_depth: 3
  max_thread_depth: 20

scheduler:
  backoff_intervals_min: [10, 20, 40, 80, 160, 240]
  silence_hours: 24

monitor:
  job_prefix: thread-monitor
  deliver: announce

logging:
  level: info
`

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the threadwatch state directory",
		Long: `Create the state directory and a config.yaml scaffold.

The scaffold carries the default relevance vocabulary and backoff
table. Set account.handle and THREADWATCH_APP_PASSWORD before running
'threadwatch discover'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			stateDir, _ := cmd.Flags().GetString("state-dir")
			jsonOut, _ := cmd.Flags().GetBool("json")

			if err := os.MkdirAll(stateDir, 0755); err != nil {
				return fmt.Errorf("creating state directory: %w", err)
			}

			configPath := filepath.Join(stateDir, "config.yaml")
			created := false
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				content := fmt.Sprintf(configScaffold, time.Now().Format(time.RFC3339), vocabularyYAML())
				if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
					return fmt.Errorf("writing config.yaml: %w", err)
				}
				created = true
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"status":         "initialized",
					"path":           stateDir,
					"config":         configPath,
					"config_created": created,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Initialized threadwatch state in %s\n", stateDir)
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Keeping existing %s\n", configPath)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "\nSet account.handle and THREADWATCH_APP_PASSWORD, then run 'threadwatch discover'.")
			return nil
		},
	}
}

// vocabularyYAML renders the default vocabulary as indented YAML list
// items for the config scaffold.
func vocabularyYAML() string {
	var b strings.Builder
	for _, term := range config.DefaultVocabulary {
		fmt.Fprintf(&b, "    - %s\n", term)
	}
	return b.String()
}
