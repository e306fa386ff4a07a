// Package models defines the record shapes shared across the monitoring
// engine: tracked threads, conversation branches, interlocutor profiles,
// and scheduler jobs. Storage backends persist these records but the
// shapes are owned here, not by the storage layer.
package models

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrLegacyRecord marks a persisted thread record that predates the
// current schema and is missing required identity fields. Callers
// should treat such records as absent rather than failing the whole
// operation.
var ErrLegacyRecord = errors.New("legacy thread record missing root URI")

// Participant identifies one author seen in a conversation branch.
type Participant struct {
	DID    string `json:"did"`
	Handle string `json:"handle,omitempty"`
}

// Branch is one reply chain anchored at a post written by the agent.
// Replies from other accounts fold into the branch of their nearest
// agent-authored ancestor.
type Branch struct {
	// AnchorURI is the AT-URI of the agent post that roots this branch.
	AnchorURI string `json:"anchor_uri"`

	// Participants lists the non-agent authors active in the branch,
	// in first-seen order, deduplicated by DID.
	Participants []Participant `json:"participants,omitempty"`

	// MessageCount counts every post attributed to the branch,
	// including the agent's own.
	MessageCount int `json:"message_count"`

	// LastActivity is the creation time of the newest post in the branch.
	LastActivity time.Time `json:"last_activity"`

	// TopicDrift is the Jaccard distance between the branch vocabulary
	// and the thread root vocabulary, in [0,1].
	TopicDrift float64 `json:"topic_drift"`

	// Score is the branch relevance score in [0,100].
	Score float64 `json:"score"`
}

// HasParticipant reports whether the branch already lists the DID.
func (b *Branch) HasParticipant(did string) bool {
	for _, p := range b.Participants {
		if p.DID == did {
			return true
		}
	}
	return false
}

// AddParticipant appends the participant unless the DID is already
// present. Empty DIDs are ignored.
func (b *Branch) AddParticipant(did, handle string) {
	if did == "" || b.HasParticipant(did) {
		return
	}
	b.Participants = append(b.Participants, Participant{DID: did, Handle: handle})
}

// TrackedThread is the persistent state for one conversation the agent
// participates in. One record exists per thread root URI.
type TrackedThread struct {
	// RootURI is the AT-URI of the thread root post and the record key.
	RootURI string `json:"root_uri"`

	// RootAuthorDID and RootAuthorHandle identify the root author.
	RootAuthorDID    string `json:"root_author_did,omitempty"`
	RootAuthorHandle string `json:"root_author_handle,omitempty"`

	// RootText is a truncated excerpt of the root post text.
	RootText string `json:"root_text,omitempty"`

	// RootTopics are the vocabulary terms matched in the root text,
	// in vocabulary order.
	RootTopics []string `json:"root_topics,omitempty"`

	// Score is the overall thread relevance score in [0,100].
	Score float64 `json:"score"`

	// Branches maps branch anchor URI to branch state.
	Branches map[string]*Branch `json:"branches,omitempty"`

	// AgentReplyCount counts the agent's own posts seen in the thread.
	AgentReplyCount int `json:"agent_reply_count"`

	// CreatedAt is when the thread was first tracked. LastActivity is
	// the newest post time seen anywhere in the thread tree.
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`

	// Engaged lists DIDs of accounts that replied directly to one of
	// the agent's posts in this thread.
	Engaged []string `json:"engaged,omitempty"`

	// OwnReplyTexts keeps a bounded history of the agent's most recent
	// reply texts in this thread, oldest first.
	OwnReplyTexts []string `json:"own_reply_texts,omitempty"`

	// JobID names the scheduler job that polls this thread, when one
	// has been registered.
	JobID string `json:"job_id,omitempty"`

	// Enabled gates monitoring. Retired threads keep their record but
	// are no longer due for checks.
	Enabled bool `json:"enabled"`

	// BackoffLevel indexes the polling interval table. LastCheckAt is
	// when the thread was last fetched; LastNewActivityAt is when new
	// activity was last observed.
	BackoffLevel      int       `json:"backoff_level"`
	LastCheckAt       time.Time `json:"last_check_at"`
	LastNewActivityAt time.Time `json:"last_new_activity_at"`
}

// DecodeThread unmarshals a persisted thread record. Records missing
// the root URI return ErrLegacyRecord so callers can skip them instead
// of aborting.
func DecodeThread(data []byte) (*TrackedThread, error) {
	var t TrackedThread
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if t.RootURI == "" {
		return nil, ErrLegacyRecord
	}
	if t.Branches == nil {
		t.Branches = make(map[string]*Branch)
	}
	return &t, nil
}

// EngagedSet returns the engaged DIDs as a lookup set.
func (t *TrackedThread) EngagedSet() map[string]bool {
	set := make(map[string]bool, len(t.Engaged))
	for _, did := range t.Engaged {
		set[did] = true
	}
	return set
}

// AddEngaged records a DID as engaged, preserving first-seen order.
func (t *TrackedThread) AddEngaged(did string) {
	if did == "" {
		return
	}
	for _, d := range t.Engaged {
		if d == did {
			return
		}
	}
	t.Engaged = append(t.Engaged, did)
}

// RememberOwnReply appends a reply text to the bounded history,
// dropping the oldest entries beyond max. Non-positive max keeps
// the history empty.
func (t *TrackedThread) RememberOwnReply(text string, max int) {
	if max <= 0 {
		t.OwnReplyTexts = nil
		return
	}
	t.OwnReplyTexts = append(t.OwnReplyTexts, text)
	if n := len(t.OwnReplyTexts); n > max {
		t.OwnReplyTexts = t.OwnReplyTexts[n-max:]
	}
}

// TotalBranchMessages sums message counts across all branches. This is
// the exchange depth used to gate monitoring registration.
func (t *TrackedThread) TotalBranchMessages() int {
	total := 0
	for _, b := range t.Branches {
		total += b.MessageCount
	}
	return total
}

// Excerpt truncates s to at most max runes. Truncation appends an
// ellipsis inside the limit so stored excerpts never exceed max.
func Excerpt(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
