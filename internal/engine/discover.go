package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/nvandessel/threadwatch/internal/analyzer"
	"github.com/nvandessel/threadwatch/internal/monitor"
)

// Discover runs one discovery pass: list recent notifications, group
// the not-yet-evaluated ones by thread root, analyze each root once,
// and persist every thread that either qualifies for tracking or is
// tracked already. Qualification needs both a relevant score and a
// real exchange (enough messages inside branches).
//
// Failures degrade per root: an unreachable thread is reported skipped
// and its notifications stay unevaluated, so the next pass retries
// them. Only a context cancellation aborts the batch.
func (e *Engine) Discover(ctx context.Context) (*DiscoverReport, error) {
	report := &DiscoverReport{}

	notifs, err := e.transport.ListNotifications(ctx, e.cfg.Analysis.NotificationLimit)
	if err != nil {
		e.logger.Warn("notification listing failed", "error", err)
		return report, nil
	}
	report.Notifications = len(notifs)

	var uris []string
	for _, n := range notifs {
		if notificationReasons[n.Reason] && n.URI != "" {
			uris = append(uris, n.URI)
		}
	}
	fresh, err := e.store.FilterUnevaluated(ctx, uris)
	if err != nil {
		e.logger.Warn("evaluated-notification lookup failed", "error", err)
		fresh = uris
	}
	freshSet := make(map[string]bool, len(fresh))
	for _, uri := range fresh {
		freshSet[uri] = true
	}

	// Group by thread root, preserving first appearance order.
	var roots []string
	rootNotifs := make(map[string][]string)
	for _, n := range notifs {
		if !notificationReasons[n.Reason] || !freshSet[n.URI] {
			continue
		}
		root := n.RootURI
		if root == "" {
			root = n.URI
		}
		if _, seen := rootNotifs[root]; !seen {
			roots = append(roots, root)
		}
		rootNotifs[root] = append(rootNotifs[root], n.URI)
	}
	report.Candidates = len(roots)

	engaged, err := e.store.EngagedAcross(ctx)
	if err != nil {
		e.logger.Warn("engaged-set lookup failed", "error", err)
		engaged = nil
	}

	var evaluated []string
	for _, root := range roots {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		th, err := e.analyzer.AnalyzeThread(ctx, root, engaged)
		if err != nil {
			e.logger.Warn("analysis failed", "root_uri", root, "error", err)
			continue
		}
		if th == nil {
			report.Skipped = append(report.Skipped, SkippedThread{RootURI: root, Reason: "unavailable"})
			continue
		}
		// Only successfully analyzed notifications count as evaluated;
		// the rest come around again next pass.
		evaluated = append(evaluated, rootNotifs[root]...)

		prior, err := e.store.GetThread(ctx, root)
		if err != nil {
			e.logger.Warn("prior state lookup failed", "root_uri", root, "error", err)
			prior = nil
		}
		th = analyzer.MergeState(th, prior)

		depth := th.TotalBranchMessages()
		qualifies := th.Score >= e.cfg.Analysis.RelevanceThreshold && depth >= e.cfg.Analysis.MinExchangeDepth
		e.decisions.Decision("discover", root, map[string]any{
			"score":          th.Score,
			"branches":       len(th.Branches),
			"exchange_depth": depth,
			"qualifies":      qualifies,
			"tracked":        prior != nil,
		})

		if prior == nil && !qualifies {
			report.Skipped = append(report.Skipped, SkippedThread{
				RootURI: root,
				Reason:  skipReason(th.Score < e.cfg.Analysis.RelevanceThreshold),
				Score:   th.Score,
			})
			continue
		}
		if qualifies && th.JobID == "" {
			th.JobID = uuid.NewString()
		}
		if prior == nil {
			report.Qualified = append(report.Qualified, root)
		} else {
			report.Updated = append(report.Updated, root)
		}

		if err := e.store.PutThread(ctx, th); err != nil {
			e.logger.Warn("thread persist failed", "root_uri", root, "error", err)
			continue
		}
		if th.Enabled && th.JobID != "" {
			report.Jobs = append(report.Jobs, monitor.BuildJob(th, e.policy, e.cfg.Monitor))
		}
	}

	if len(evaluated) > 0 {
		if err := e.store.MarkEvaluated(ctx, evaluated, e.cfg.Analysis.EvaluatedCap); err != nil {
			e.logger.Warn("evaluated-notification write failed", "error", err)
		}
	}
	if err := e.store.SetLastRun(ctx, e.now()); err != nil {
		e.logger.Warn("last-run write failed", "error", err)
	}

	e.logger.Info("discovery complete",
		"notifications", report.Notifications,
		"candidates", report.Candidates,
		"qualified", len(report.Qualified),
		"updated", len(report.Updated),
		"skipped", len(report.Skipped))
	return report, nil
}

func skipReason(belowScore bool) string {
	if belowScore {
		return "score below relevance threshold"
	}
	return "exchange depth below minimum"
}
