// Package scheduler implements the polling backoff state machine for
// tracked threads. A thread's backoff level indexes an ascending table
// of wait intervals; inactivity ratchets the level up, new activity
// resets it to zero, and a thread silent past the whole table plus the
// final silence window is retired from monitoring.
package scheduler

import (
	"time"

	"github.com/nvandessel/threadwatch/internal/models"
)

// Action is the outcome of a due-ness evaluation.
type Action string

const (
	// ActionCheck means the wait interval has elapsed: poll the thread now.
	ActionCheck Action = "check"

	// ActionSkip means the thread is not due yet.
	ActionSkip Action = "skip"

	// ActionRetire means the thread sat silent through the whole interval
	// table plus the final silence window: disable monitoring instead of
	// polling again.
	ActionRetire Action = "retire"
)

// Policy holds the interval table and the terminal silence window.
type Policy struct {
	// Intervals is the ascending wait table. BackoffLevel indexes it;
	// a level one past the end puts the thread in its final silence
	// window.
	Intervals []time.Duration

	// SilenceWindow is the wait applied at the terminal level. A thread
	// still silent after this window is retired.
	SilenceWindow time.Duration
}

// NewPolicy builds a Policy from the configured interval table (minutes)
// and silence window (hours).
func NewPolicy(intervalsMin []int, silenceHours int) Policy {
	intervals := make([]time.Duration, len(intervalsMin))
	for i, m := range intervalsMin {
		intervals[i] = time.Duration(m) * time.Minute
	}
	return Policy{
		Intervals:     intervals,
		SilenceWindow: time.Duration(silenceHours) * time.Hour,
	}
}

// TerminalLevel is the backoff level one past the interval table, where
// the silence window applies.
func (p Policy) TerminalLevel() int {
	return len(p.Intervals)
}

// IntervalAt returns the wait interval in force at the given level: the
// table entry within range, the silence window at or past the terminal
// level. Negative levels read as level 0.
func (p Policy) IntervalAt(level int) time.Duration {
	if level < 0 {
		level = 0
	}
	if level >= len(p.Intervals) {
		return p.SilenceWindow
	}
	return p.Intervals[level]
}

// Decision is the result of evaluating whether a thread is due for a
// check.
type Decision struct {
	// Action is check, skip, or retire.
	Action Action

	// Level is the backoff level the decision was computed at.
	Level int

	// Interval is the wait that applied at this level.
	Interval time.Duration

	// Elapsed is how long it has been since the last check.
	Elapsed time.Duration

	// Wait is the time remaining until the thread is due. Zero when the
	// thread is due now.
	Wait time.Duration
}

// Evaluate decides whether a thread at the given backoff level, last
// checked at lastCheck, is due at now. Within the interval table the
// thread is due once the level's interval has fully elapsed (an exact
// boundary counts as due). At the terminal level the silence window
// applies instead, and a due thread is retired rather than checked.
// A zero lastCheck means the thread has never been checked and is due
// immediately.
func (p Policy) Evaluate(level int, lastCheck, now time.Time) Decision {
	if level < 0 {
		level = 0
	}
	if level > p.TerminalLevel() {
		level = p.TerminalLevel()
	}

	interval := p.IntervalAt(level)
	d := Decision{
		Level:    level,
		Interval: interval,
	}
	if lastCheck.IsZero() {
		d.Elapsed = interval
	} else {
		d.Elapsed = now.Sub(lastCheck)
	}

	if d.Elapsed >= interval {
		if level >= p.TerminalLevel() {
			d.Action = ActionRetire
		} else {
			d.Action = ActionCheck
		}
		return d
	}

	d.Action = ActionSkip
	d.Wait = interval - d.Elapsed
	return d
}

// Advance applies one update-after-check transition to the thread's
// scheduling fields. With activity the level resets to zero and both
// timestamps move to now; without it the level ratchets up one step,
// capped at the terminal level, and only the check timestamp moves.
// The ratchet never regresses except through the activity reset.
func (p Policy) Advance(th *models.TrackedThread, activity bool, now time.Time) {
	if th == nil {
		return
	}
	if activity {
		th.BackoffLevel = 0
		th.LastCheckAt = now
		th.LastNewActivityAt = now
		return
	}
	if th.BackoffLevel < p.TerminalLevel() {
		th.BackoffLevel++
	} else {
		th.BackoffLevel = p.TerminalLevel()
	}
	th.LastCheckAt = now
}
