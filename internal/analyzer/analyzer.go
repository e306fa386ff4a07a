// Package analyzer turns fetched reply trees into scored TrackedThread
// records. It walks the tree once, extracts branches anchored at the
// agent's own replies, fetches interlocutor profiles best-effort, and
// delegates the arithmetic to the scoring package.
package analyzer

import (
	"context"
	"log/slog"
	"time"

	"github.com/nvandessel/threadwatch/internal/bsky"
	"github.com/nvandessel/threadwatch/internal/config"
	"github.com/nvandessel/threadwatch/internal/models"
	"github.com/nvandessel/threadwatch/internal/scoring"
)

// Analyzer analyzes one thread at a time. It holds no mutable state of
// its own, so a single instance is safe for concurrent use as long as
// the transport is.
type Analyzer struct {
	agentDID        string
	vocabulary      []string
	maxDepth        int
	excerptRunes    int
	ownReplyHistory int

	transport bsky.Transport
	scorer    *scoring.Scorer
	logger    *slog.Logger

	now func() time.Time
}

func New(cfg *config.Config, transport bsky.Transport, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		agentDID:        cfg.Account.DID,
		vocabulary:      cfg.Topics.Vocabulary,
		maxDepth:        cfg.Analysis.MaxThreadDepth,
		excerptRunes:    cfg.Analysis.RootExcerptRunes,
		ownReplyHistory: cfg.Analysis.OwnReplyHistory,
		transport:       transport,
		scorer:          scoring.NewScorer(cfg.Topics.Vocabulary),
		logger:          logger,
		now:             time.Now,
	}
}

// AnalyzeThread fetches the thread rooted at rootURI and builds a fresh
// TrackedThread from what it finds. knownEngaged carries DIDs the agent
// has engaged in other threads; they get the engaged override during
// branch scoring but are not recorded on this thread's engaged list.
//
// A transport failure or an empty tree returns (nil, nil): the thread
// is unavailable right now, which the caller must not confuse with the
// thread scoring poorly.
func (a *Analyzer) AnalyzeThread(ctx context.Context, rootURI string, knownEngaged map[string]bool) (*models.TrackedThread, error) {
	root, err := a.transport.GetThread(ctx, rootURI, a.maxDepth)
	if err != nil {
		a.logger.Warn("thread fetch failed", "root_uri", rootURI, "error", err)
		return nil, nil
	}
	if root == nil || root.Post == nil {
		a.logger.Warn("thread unavailable", "root_uri", rootURI)
		return nil, nil
	}

	tr := newTraversal(a.agentDID, a.vocabulary, root.Post.Text)
	tr.observe(root.Post)
	for _, child := range root.Replies {
		tr.walk(child, "", root.Post.Author.DID)
	}
	tr.finishBranches()

	profiles := a.fetchProfiles(ctx, root.Post.Author.DID, tr.participantOrder)

	engaged := make(map[string]bool, len(knownEngaged)+len(tr.engaged))
	for did := range knownEngaged {
		engaged[did] = true
	}
	for _, did := range tr.engaged {
		engaged[did] = true
	}
	for _, anchor := range tr.branchOrder {
		b := tr.branches[anchor]
		scored := a.scorer.ScoreBranch(b, profiles, engaged)
		b.Score = scored.Score
	}

	overall := a.scorer.ScoreThread(
		profiles[root.Post.Author.DID],
		tr.rootTopics,
		tr.totalPosts-1,
		tr.agentReplies,
		len(tr.branches),
	)

	now := a.now()
	lastActivity := tr.latestActivity
	if lastActivity.IsZero() {
		lastActivity = now
	}
	th := &models.TrackedThread{
		RootURI:           root.Post.URI,
		RootAuthorDID:     root.Post.Author.DID,
		RootAuthorHandle:  root.Post.Author.Handle,
		RootText:          models.Excerpt(root.Post.Text, a.excerptRunes),
		RootTopics:        tr.rootTopics,
		Score:             scoring.ClampScore(overall.Score),
		Branches:          tr.branches,
		AgentReplyCount:   tr.agentReplies,
		CreatedAt:         now,
		LastActivity:      lastActivity,
		Engaged:           tr.engaged,
		Enabled:           true,
		BackoffLevel:      0,
		LastCheckAt:       now,
		LastNewActivityAt: lastActivity,
	}
	for _, text := range tr.ownReplyTexts {
		th.RememberOwnReply(text, a.ownReplyHistory)
	}

	a.logger.Debug("thread analyzed",
		"root_uri", th.RootURI,
		"score", th.Score,
		"branches", len(th.Branches),
		"replies", tr.totalPosts-1,
		"agent_replies", tr.agentReplies)
	return th, nil
}

// fetchProfiles resolves profiles for the root author and every branch
// participant, in that order. Each lookup is best-effort: a failed
// fetch is logged and the DID simply contributes no interlocutor score.
func (a *Analyzer) fetchProfiles(ctx context.Context, rootAuthorDID string, participants []string) map[string]*models.InterlocutorProfile {
	profiles := make(map[string]*models.InterlocutorProfile, len(participants)+1)
	attempted := make(map[string]bool, len(participants)+1)
	fetch := func(did string) {
		if did == "" || did == a.agentDID || attempted[did] {
			return
		}
		attempted[did] = true
		p, err := a.transport.GetProfile(ctx, did)
		if err != nil {
			a.logger.Debug("profile fetch failed", "did", did, "error", err)
			return
		}
		if p != nil {
			profiles[did] = p
		}
	}
	fetch(rootAuthorDID)
	for _, did := range participants {
		fetch(did)
	}
	return profiles
}
