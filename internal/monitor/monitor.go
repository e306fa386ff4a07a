// Package monitor turns tracked threads into declarative job configs
// for an external scheduler, plus the human-readable briefings those
// jobs deliver. Everything here is a pure function of its inputs.
package monitor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nvandessel/threadwatch/internal/bsky"
	"github.com/nvandessel/threadwatch/internal/config"
	"github.com/nvandessel/threadwatch/internal/models"
	"github.com/nvandessel/threadwatch/internal/scheduler"
)

// Drift thresholds for briefing annotations.
const (
	driftOnTopic  = 0.3
	driftOffTopic = 0.7
)

// ScheduleKind is the only schedule shape emitted: repeat at a fixed
// interval.
const ScheduleKind = "every"

// JobName derives the scheduler job name for a thread from its root
// record key, e.g. "thread-monitor-3kabc42xyz".
func JobName(prefix, rootURI string) string {
	rkey := bsky.RKey(rootURI)
	if rkey == "" {
		rkey = "unknown"
	}
	return prefix + "-" + rkey
}

// BuildJob produces the monitoring job description for a tracked
// thread. The polling interval follows the thread's current backoff
// level; a thread past the final level polls at the silence window,
// where the next silent check retires it.
func BuildJob(th *models.TrackedThread, policy scheduler.Policy, cfg config.MonitorConfig) models.MonitorJob {
	return models.MonitorJob{
		ID:   th.JobID,
		Name: JobName(cfg.JobPrefix, th.RootURI),
		Schedule: models.JobSchedule{
			Kind:       ScheduleKind,
			IntervalMs: policy.IntervalAt(th.BackoffLevel).Milliseconds(),
		},
		Payload: models.JobPayload{
			Message: Briefing(th),
			Deliver: cfg.Deliver,
			Channel: cfg.Channel,
			To:      cfg.To,
		},
		Enabled: th.Enabled,
	}
}

// Briefing renders the digest a monitor job delivers: whose thread it
// is, what it is about, how each branch is going, and the agent's own
// recent replies so a responder can stay consistent with what it has
// already said. Branches are listed highest score first.
func Briefing(th *models.TrackedThread) string {
	var sb strings.Builder

	author := th.RootAuthorHandle
	if author == "" {
		author = th.RootAuthorDID
	}
	fmt.Fprintf(&sb, "Thread by @%s (score %.0f)\n", author, th.Score)
	if len(th.RootTopics) > 0 {
		fmt.Fprintf(&sb, "Topics: %s\n", strings.Join(th.RootTopics, ", "))
	}
	if th.RootText != "" {
		fmt.Fprintf(&sb, "Root: %s\n", th.RootText)
	}

	if len(th.Branches) > 0 {
		engaged := th.EngagedSet()
		fmt.Fprintf(&sb, "\nBranches (%d):\n", len(th.Branches))
		for _, b := range sortedBranches(th) {
			fmt.Fprintf(&sb, "- [%s] %s: %d msgs, score %.0f, drift %.2f%s\n",
				annotate(b, engaged), b.AnchorURI, b.MessageCount, b.Score, b.TopicDrift, withParticipants(b))
		}
	}

	if len(th.OwnReplyTexts) > 0 {
		sb.WriteString("\nYour recent replies in this thread:\n")
		for _, text := range th.OwnReplyTexts {
			fmt.Fprintf(&sb, "- %q\n", text)
		}
	}

	return sb.String()
}

// RespondBranches returns the anchor URIs of branches scoring at or
// above threshold, highest score first. These are the exchanges worth
// drafting a reply for; everything below is left to drift.
func RespondBranches(th *models.TrackedThread, threshold float64) []string {
	var anchors []string
	for _, b := range sortedBranches(th) {
		if b.Score >= threshold {
			anchors = append(anchors, b.AnchorURI)
		}
	}
	return anchors
}

func sortedBranches(th *models.TrackedThread) []*models.Branch {
	branches := make([]*models.Branch, 0, len(th.Branches))
	for _, b := range th.Branches {
		branches = append(branches, b)
	}
	sort.Slice(branches, func(i, j int) bool {
		if branches[i].Score != branches[j].Score {
			return branches[i].Score > branches[j].Score
		}
		return branches[i].AnchorURI < branches[j].AnchorURI
	})
	return branches
}

// annotate classifies a branch for the briefing: engagement wins, then
// topic drift decides.
func annotate(b *models.Branch, engaged map[string]bool) string {
	for _, p := range b.Participants {
		if engaged[p.DID] {
			return "engaged"
		}
	}
	switch {
	case b.TopicDrift < driftOnTopic:
		return "on-topic"
	case b.TopicDrift < driftOffTopic:
		return "drifting"
	default:
		return "off-topic"
	}
}

func withParticipants(b *models.Branch) string {
	if len(b.Participants) == 0 {
		return ""
	}
	handles := make([]string, 0, len(b.Participants))
	for _, p := range b.Participants {
		h := p.Handle
		if h == "" {
			h = p.DID
		}
		handles = append(handles, "@"+h)
	}
	return ", with " + strings.Join(handles, ", ")
}
