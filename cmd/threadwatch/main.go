package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/threadwatch/internal/bsky"
	"github.com/nvandessel/threadwatch/internal/config"
	"github.com/nvandessel/threadwatch/internal/engine"
	"github.com/nvandessel/threadwatch/internal/logging"
	"github.com/nvandessel/threadwatch/internal/store"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "threadwatch",
		Short: "Thread relevance analysis and recheck scheduling for a Bluesky agent",
		Long: `threadwatch watches the conversations a Bluesky agent participates in.

It discovers threads from notifications, scores them for relevance,
and schedules rechecks on a backoff that slows as threads go quiet.
Tracked state and decisions live in the state directory.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("state-dir", defaultStateDir(), "State directory (database, config, decision log)")

	// Add subcommands
	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newDiscoverCmd(),
		newCheckCmd(),
		newUpdateCmd(),
		newRecheckCmd(),
		newListCmd(),
		newShowCmd(),
		newUnwatchCmd(),
		newJobsCmd(),
		newMCPServerCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "threadwatch version %s\n", version)
			}
		},
	}
}

// defaultStateDir resolves the state directory when --state-dir is not
// given: THREADWATCH_STATE_DIR, else .threadwatch under the working
// directory.
func defaultStateDir() string {
	if v := os.Getenv("THREADWATCH_STATE_DIR"); v != "" {
		return v
	}
	return ".threadwatch"
}

// cmdEnv is the shared runtime every verb starts from: the resolved
// state directory, loaded configuration, and loggers.
type cmdEnv struct {
	stateDir  string
	cfg       *config.Config
	logger    *slog.Logger
	decisions *logging.DecisionLogger
	jsonOut   bool
}

func loadCmdEnv(cmd *cobra.Command) (*cmdEnv, error) {
	stateDir, _ := cmd.Flags().GetString("state-dir")
	jsonOut, _ := cmd.Flags().GetBool("json")

	bootLogger := logging.NewLogger("info", os.Stderr)
	config.LoadEnvFiles(bootLogger)

	cfg, err := config.Load(stateDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cmdEnv{
		stateDir:  stateDir,
		cfg:       cfg,
		logger:    logging.NewLogger(cfg.Logging.Level, os.Stderr),
		decisions: logging.NewDecisionLogger(stateDir, cfg.Logging.Level),
		jsonOut:   jsonOut,
	}, nil
}

// close releases the decision log. Safe to call more than once.
func (env *cmdEnv) close() {
	env.decisions.Close()
}

func (env *cmdEnv) openStore() (*store.SQLiteThreadStore, error) {
	st, err := store.NewSQLiteThreadStore(env.stateDir, env.logger)
	if err != nil {
		return nil, fmt.Errorf("opening thread store: %w", err)
	}
	return st, nil
}

func (env *cmdEnv) newTransport() *bsky.Client {
	return bsky.NewClient(bsky.ClientConfig{
		Host:           env.cfg.Account.Host,
		Identifier:     env.cfg.Account.Handle,
		AppPassword:    env.cfg.Account.AppPassword,
		Timeout:        env.cfg.Transport.Timeout,
		MaxRetries:     env.cfg.Transport.MaxRetries,
		RetryBaseDelay: env.cfg.Transport.RetryBaseDelay,
		RetryMaxDelay:  env.cfg.Transport.RetryMaxDelay,
	})
}

func (env *cmdEnv) newEngine(st store.ThreadStore, transport bsky.Transport) *engine.Engine {
	return engine.New(env.cfg, st, transport, env.logger, env.decisions)
}
