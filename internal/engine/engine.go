// Package engine coordinates the two entry points of threadwatch:
// discovery (notifications → analyzed, scored, persisted threads plus
// monitoring jobs) and monitoring (per-thread backoff rechecks). The
// engine owns no algorithm of its own; it sequences the analyzer, the
// scoring-backed store records, and the scheduler policy, degrading
// every external failure to "nothing productive this tick".
package engine

import (
	"log/slog"
	"time"

	"github.com/nvandessel/threadwatch/internal/analyzer"
	"github.com/nvandessel/threadwatch/internal/bsky"
	"github.com/nvandessel/threadwatch/internal/config"
	"github.com/nvandessel/threadwatch/internal/logging"
	"github.com/nvandessel/threadwatch/internal/models"
	"github.com/nvandessel/threadwatch/internal/scheduler"
	"github.com/nvandessel/threadwatch/internal/store"
)

// notificationReasons are the notification kinds that can seed or wake
// a tracked thread.
var notificationReasons = map[string]bool{
	"reply":   true,
	"mention": true,
	"quote":   true,
}

// activityLookback is how recent a notification must be to preempt the
// backoff schedule during a recheck.
const activityLookback = 10 * time.Minute

// Engine wires the analysis pipeline to persistent state and the
// backoff policy.
type Engine struct {
	cfg       *config.Config
	store     store.ThreadStore
	transport bsky.Transport
	analyzer  *analyzer.Analyzer
	policy    scheduler.Policy
	logger    *slog.Logger
	decisions *logging.DecisionLogger

	now func() time.Time
}

func New(cfg *config.Config, st store.ThreadStore, transport bsky.Transport, logger *slog.Logger, decisions *logging.DecisionLogger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:       cfg,
		store:     st,
		transport: transport,
		analyzer:  analyzer.New(cfg, transport, logger),
		policy:    scheduler.NewPolicy(cfg.Scheduler.BackoffIntervalsMin, cfg.Scheduler.SilenceHours),
		logger:    logger,
		decisions: decisions,
		now:       time.Now,
	}
}

// Policy exposes the backoff policy the engine runs under.
func (e *Engine) Policy() scheduler.Policy {
	return e.policy
}

// CheckOutcome classifies what a check or recheck decided.
type CheckOutcome string

const (
	// OutcomeCheck: the thread is due; monitoring should re-poll now.
	OutcomeCheck CheckOutcome = "check"
	// OutcomeSkip: not due yet.
	OutcomeSkip CheckOutcome = "skip"
	// OutcomeRetire: silent past the terminal window; monitoring stops.
	OutcomeRetire CheckOutcome = "retire"
	// OutcomeNotFound: no such tracked thread.
	OutcomeNotFound CheckOutcome = "not_found"
	// OutcomeUnavailable: due, but the thread could not be fetched;
	// backoff state is left untouched so the next tick retries.
	OutcomeUnavailable CheckOutcome = "unavailable"
)

// DiscoverReport summarizes one discovery pass.
type DiscoverReport struct {
	Notifications int                 `json:"notifications"`
	Candidates    int                 `json:"candidates"`
	Qualified     []string            `json:"qualified,omitempty"`
	Updated       []string            `json:"updated,omitempty"`
	Skipped       []SkippedThread     `json:"skipped,omitempty"`
	Jobs          []models.MonitorJob `json:"jobs,omitempty"`
}

// SkippedThread records a candidate root discovery declined to track.
type SkippedThread struct {
	RootURI string  `json:"root_uri"`
	Reason  string  `json:"reason"`
	Score   float64 `json:"score,omitempty"`
}

// CheckReport is the outcome of a due-check against stored state.
type CheckReport struct {
	RootURI    string       `json:"root_uri"`
	Outcome    CheckOutcome `json:"outcome"`
	Action     string       `json:"action,omitempty"`
	Reason     string       `json:"reason,omitempty"`
	Level      int          `json:"level"`
	IntervalMs int64        `json:"interval_ms,omitempty"`
	ElapsedMs  int64        `json:"elapsed_ms,omitempty"`
	WaitMs     int64        `json:"wait_ms,omitempty"`
}

// RecheckReport is the outcome of a full monitoring tick for one
// thread.
type RecheckReport struct {
	RootURI   string       `json:"root_uri"`
	Outcome   CheckOutcome `json:"outcome"`
	Reason    string       `json:"reason,omitempty"`
	Activity  bool         `json:"activity,omitempty"`
	Preempted bool         `json:"preempted,omitempty"`
	Score     float64      `json:"score,omitempty"`
	Level     int          `json:"level"`
	WaitMs    int64        `json:"wait_ms,omitempty"`
}

// UpdateReport is the outcome of an externally driven backoff update.
type UpdateReport struct {
	RootURI        string `json:"root_uri"`
	Found          bool   `json:"found"`
	Activity       bool   `json:"activity"`
	Level          int    `json:"level"`
	NextIntervalMs int64  `json:"next_interval_ms,omitempty"`
}
