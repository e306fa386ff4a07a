// Package scoring turns profiles, branches, and thread shapes into
// relevance scores. All scorers are pure functions of their inputs;
// nothing here touches the network or the store.
package scoring

import (
	"fmt"
	"time"

	"github.com/nvandessel/threadwatch/internal/models"
	"github.com/nvandessel/threadwatch/internal/topics"
)

// Scorer computes interlocutor, branch, and thread scores against a
// fixed relevance vocabulary.
type Scorer struct {
	vocabulary []string
	now        func() time.Time
}

// NewScorer creates a scorer over the given vocabulary.
func NewScorer(vocabulary []string) *Scorer {
	return &Scorer{
		vocabulary: vocabulary,
		now:        time.Now,
	}
}

// ScoreInterlocutor rates how substantive an account looks, in [0,40],
// with human-readable reasons for each component awarded. A nil profile
// scores zero.
func (s *Scorer) ScoreInterlocutor(p *models.InterlocutorProfile) (float64, []string) {
	if p == nil {
		return 0, nil
	}

	score := 0.0
	var reasons []string

	switch {
	case p.FollowersCount >= 10000:
		score += 15
		reasons = append(reasons, "followers >= 10k (+15)")
	case p.FollowersCount >= 1000:
		score += 10
		reasons = append(reasons, "followers >= 1k (+10)")
	case p.FollowersCount >= 100:
		score += 5
		reasons = append(reasons, "followers >= 100 (+5)")
	}

	switch ratio := p.FollowerRatio(); {
	case ratio >= 5:
		score += 10
		reasons = append(reasons, "follower ratio >= 5 (+10)")
	case ratio >= 2:
		score += 5
		reasons = append(reasons, "follower ratio >= 2 (+5)")
	}

	switch {
	case p.PostsCount >= 1000:
		score += 5
		reasons = append(reasons, "posts >= 1000 (+5)")
	case p.PostsCount >= 100:
		score += 3
		reasons = append(reasons, "posts >= 100 (+3)")
	}

	switch matches := len(topics.Extract(p.Description, s.vocabulary)); {
	case matches >= 3:
		score += 10
		reasons = append(reasons, fmt.Sprintf("bio topics: %d (+10)", matches))
	case matches >= 1:
		score += 5
		reasons = append(reasons, fmt.Sprintf("bio topics: %d (+5)", matches))
	}

	return clamp(score, 0, 40), reasons
}

// ScoredBranch is a branch score with its component breakdown kept for
// decision logging.
type ScoredBranch struct {
	Score float64

	TopicalityScore   float64
	InterlocutorScore float64
	MessageScore      float64
	RecencyScore      float64

	// EngagedOverride is set when a known engaged participant earned
	// the branch its full topicality allotment regardless of drift.
	EngagedOverride bool
}

// ScoreBranch rates one branch in [0,100]. Branches containing a
// participant the agent has already engaged keep the full 40-point
// topicality allotment no matter how far the conversation drifted; an
// ongoing exchange is not abandoned for wandering off-topic. Otherwise
// topicality scales by (1 - drift). Profiles missing from the map
// simply do not influence the interlocutor component.
func (s *Scorer) ScoreBranch(branch *models.Branch, profiles map[string]*models.InterlocutorProfile, engaged map[string]bool) ScoredBranch {
	if branch == nil {
		return ScoredBranch{}
	}

	scored := ScoredBranch{}

	for _, p := range branch.Participants {
		if engaged[p.DID] {
			scored.EngagedOverride = true
			break
		}
	}
	if scored.EngagedOverride {
		scored.TopicalityScore = 40
	} else {
		scored.TopicalityScore = 40 * (1 - branch.TopicDrift)
	}

	sum := 0.0
	counted := 0
	for _, p := range branch.Participants {
		profile, ok := profiles[p.DID]
		if !ok || profile == nil {
			continue
		}
		v, _ := s.ScoreInterlocutor(profile)
		sum += v
		counted++
	}
	if counted > 0 {
		scored.InterlocutorScore = sum / float64(counted) * 0.75
	}

	switch {
	case branch.MessageCount >= 5:
		scored.MessageScore = 20
	case branch.MessageCount >= 3:
		scored.MessageScore = 15
	case branch.MessageCount >= 2:
		scored.MessageScore = 10
	}

	if age := s.now().Sub(branch.LastActivity); !branch.LastActivity.IsZero() {
		switch {
		case age < time.Hour:
			scored.RecencyScore = 10
		case age < 6*time.Hour:
			scored.RecencyScore = 5
		}
	}

	scored.Score = clamp(scored.TopicalityScore+scored.InterlocutorScore+scored.MessageScore+scored.RecencyScore, 0, 100)
	return scored
}

// ScoredThread is the overall thread score with its component
// breakdown. Score is the raw sum; callers that need a hard ceiling
// clamp it themselves.
type ScoredThread struct {
	Score float64

	RootAuthorScore float64
	TopicScore      float64
	DynamicsScore   float64
}

// ScoreThread rates the whole thread: the root author's interlocutor
// score (0 when their profile is unavailable), topic relevance of the
// root text, and a dynamics component from reply, agent-reply, and
// branch counts. The dynamics component is clamped to [0,100]; the sum
// is returned unclamped.
func (s *Scorer) ScoreThread(rootAuthor *models.InterlocutorProfile, rootTopics []string, totalReplies, agentReplies, branchCount int) ScoredThread {
	scored := ScoredThread{}

	scored.RootAuthorScore, _ = s.ScoreInterlocutor(rootAuthor)
	scored.TopicScore = topicRelevance(len(rootTopics))
	scored.DynamicsScore = dynamics(totalReplies, agentReplies, branchCount)

	scored.Score = scored.RootAuthorScore + scored.TopicScore + scored.DynamicsScore
	return scored
}

// topicRelevance maps a vocabulary match count to score tiers.
func topicRelevance(matches int) float64 {
	switch {
	case matches >= 4:
		return 30
	case matches >= 2:
		return 20
	case matches >= 1:
		return 10
	default:
		return 0
	}
}

// dynamics scores conversation shape. Busy threads with several agent
// replies and multiple branches score high; sprawling threads past 30
// replies lose the size bonus.
func dynamics(totalReplies, agentReplies, branchCount int) float64 {
	score := 0.0

	switch {
	case agentReplies >= 3:
		score += 15
	case agentReplies >= 1:
		score += 8
	}

	switch {
	case branchCount >= 3:
		score += 10
	case branchCount >= 2:
		score += 5
	}

	switch {
	case totalReplies > 30:
		score -= 5
	case totalReplies >= 3:
		score += 5
	}

	return clamp(score, 0, 100)
}

// ClampScore bounds an overall score to [0,100] for persistence.
func ClampScore(score float64) float64 {
	return clamp(score, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
