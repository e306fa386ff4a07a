package engine

import (
	"context"
	"time"

	"github.com/nvandessel/threadwatch/internal/analyzer"
	"github.com/nvandessel/threadwatch/internal/scheduler"
)

// CheckDue answers "should this thread be re-polled now" from stored
// state alone. It never touches the network and never mutates the
// record, so external schedulers can call it as often as they like.
func (e *Engine) CheckDue(ctx context.Context, rootURI string) (*CheckReport, error) {
	th, err := e.store.GetThread(ctx, rootURI)
	if err != nil {
		return nil, err
	}
	if th == nil {
		return &CheckReport{RootURI: rootURI, Outcome: OutcomeNotFound}, nil
	}
	if !th.Enabled {
		return &CheckReport{
			RootURI: rootURI,
			Outcome: OutcomeSkip,
			Reason:  "monitoring disabled",
			Level:   th.BackoffLevel,
		}, nil
	}

	d := e.policy.Evaluate(th.BackoffLevel, th.LastCheckAt, e.now())
	rep := &CheckReport{
		RootURI:    rootURI,
		Level:      d.Level,
		IntervalMs: d.Interval.Milliseconds(),
		ElapsedMs:  d.Elapsed.Milliseconds(),
	}
	switch d.Action {
	case scheduler.ActionCheck:
		rep.Outcome = OutcomeCheck
	case scheduler.ActionRetire:
		rep.Outcome = OutcomeRetire
		rep.Action = "disable"
	default:
		rep.Outcome = OutcomeSkip
		rep.WaitMs = d.Wait.Milliseconds()
	}
	e.decisions.Decision("check", rootURI, map[string]any{
		"outcome":    rep.Outcome,
		"level":      rep.Level,
		"elapsed_ms": rep.ElapsedMs,
	})
	return rep, nil
}

// Recheck runs one full monitoring tick for a tracked thread. A fresh
// notification under the root preempts the schedule outright; otherwise
// the backoff policy decides. When a poll happens, the thread is
// re-analyzed, merged over its stored state, and the ratchet advanced
// by whether anything new appeared since the last observed activity.
func (e *Engine) Recheck(ctx context.Context, rootURI string) (*RecheckReport, error) {
	th, err := e.store.GetThread(ctx, rootURI)
	if err != nil {
		return nil, err
	}
	if th == nil {
		return &RecheckReport{RootURI: rootURI, Outcome: OutcomeNotFound}, nil
	}
	if !th.Enabled {
		return &RecheckReport{
			RootURI: rootURI,
			Outcome: OutcomeSkip,
			Reason:  "monitoring disabled",
			Level:   th.BackoffLevel,
		}, nil
	}

	now := e.now()
	preempted := e.freshNotification(ctx, rootURI, now)
	if !preempted {
		d := e.policy.Evaluate(th.BackoffLevel, th.LastCheckAt, now)
		switch d.Action {
		case scheduler.ActionSkip:
			return &RecheckReport{
				RootURI: rootURI,
				Outcome: OutcomeSkip,
				Level:   d.Level,
				WaitMs:  d.Wait.Milliseconds(),
			}, nil
		case scheduler.ActionRetire:
			th.Enabled = false
			if err := e.store.PutThread(ctx, th); err != nil {
				return nil, err
			}
			e.decisions.Decision("retire", rootURI, map[string]any{
				"level":          th.BackoffLevel,
				"last_activity":  th.LastNewActivityAt,
				"silence_window": e.policy.SilenceWindow.String(),
			})
			e.logger.Info("thread retired", "root_uri", rootURI, "level", th.BackoffLevel)
			return &RecheckReport{RootURI: rootURI, Outcome: OutcomeRetire, Level: th.BackoffLevel}, nil
		}
	}

	engaged, err := e.store.EngagedAcross(ctx)
	if err != nil {
		e.logger.Warn("engaged-set lookup failed", "error", err)
		engaged = nil
	}
	fresh, err := e.analyzer.AnalyzeThread(ctx, rootURI, engaged)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		// Due but unreachable: leave the ratchet alone and let the next
		// tick retry at the same level.
		return &RecheckReport{
			RootURI:   rootURI,
			Outcome:   OutcomeUnavailable,
			Preempted: preempted,
			Level:     th.BackoffLevel,
		}, nil
	}

	activity := preempted || fresh.LastActivity.After(th.LastNewActivityAt)
	merged := analyzer.MergeState(fresh, th)
	e.policy.Advance(merged, activity, now)
	if err := e.store.PutThread(ctx, merged); err != nil {
		return nil, err
	}

	e.decisions.Decision("recheck", rootURI, map[string]any{
		"activity":  activity,
		"preempted": preempted,
		"score":     merged.Score,
		"level":     merged.BackoffLevel,
	})
	return &RecheckReport{
		RootURI:   rootURI,
		Outcome:   OutcomeCheck,
		Activity:  activity,
		Preempted: preempted,
		Score:     merged.Score,
		Level:     merged.BackoffLevel,
	}, nil
}

// ApplyUpdate feeds an externally observed poll result into the
// backoff ratchet: activity resets it, silence advances it.
func (e *Engine) ApplyUpdate(ctx context.Context, rootURI string, activity bool) (*UpdateReport, error) {
	th, err := e.store.GetThread(ctx, rootURI)
	if err != nil {
		return nil, err
	}
	if th == nil {
		return &UpdateReport{RootURI: rootURI, Found: false, Activity: activity}, nil
	}

	e.policy.Advance(th, activity, e.now())
	if err := e.store.PutThread(ctx, th); err != nil {
		return nil, err
	}
	e.decisions.Decision("update", rootURI, map[string]any{
		"activity": activity,
		"level":    th.BackoffLevel,
	})
	return &UpdateReport{
		RootURI:        rootURI,
		Found:          true,
		Activity:       activity,
		Level:          th.BackoffLevel,
		NextIntervalMs: e.policy.IntervalAt(th.BackoffLevel).Milliseconds(),
	}, nil
}

// freshNotification reports whether a relevant unevaluated notification
// under rootURI arrived within the activity lookback window.
func (e *Engine) freshNotification(ctx context.Context, rootURI string, now time.Time) bool {
	notifs, err := e.transport.ListNotifications(ctx, e.cfg.Analysis.NotificationLimit)
	if err != nil {
		e.logger.Debug("notification peek failed", "error", err)
		return false
	}
	for _, n := range notifs {
		if !notificationReasons[n.Reason] || n.RootURI != rootURI {
			continue
		}
		if n.IndexedAt.IsZero() {
			continue
		}
		if now.Sub(n.IndexedAt) <= activityLookback {
			return true
		}
	}
	return false
}
