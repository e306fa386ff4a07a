package analyzer

import (
	"strings"
	"time"

	"github.com/nvandessel/threadwatch/internal/bsky"
	"github.com/nvandessel/threadwatch/internal/models"
	"github.com/nvandessel/threadwatch/internal/topics"
)

// traversal is the accumulator threaded through the reply-tree walk.
// It collects everything the walk observes: the newest activity time,
// the branches anchored at agent posts, transient per-branch text
// buffers for drift scoring, and the participants seen inside branches.
// The text buffers never leave this struct; only the computed drift is
// persisted.
type traversal struct {
	agentDID   string
	vocabulary []string
	rootTopics []string

	latestActivity time.Time
	totalPosts     int
	agentReplies   int

	branches    map[string]*models.Branch
	branchOrder []string
	branchText  map[string]*strings.Builder

	// participantOrder lists distinct non-agent DIDs seen inside any
	// branch, in first appearance order; handles holds their handles.
	participantOrder []string
	handles          map[string]string

	// engaged lists the DIDs the agent replied to directly, i.e. the
	// authors of the immediate parents of agent posts. Being present in
	// a branch is not engagement; being answered is.
	engaged []string

	ownReplyTexts []string
}

func newTraversal(agentDID string, vocabulary []string, rootText string) *traversal {
	return &traversal{
		agentDID:   agentDID,
		vocabulary: vocabulary,
		rootTopics: topics.Extract(rootText, vocabulary),
		branches:   make(map[string]*models.Branch),
		branchText: make(map[string]*strings.Builder),
		handles:    make(map[string]string),
	}
}

// observe records traversal-wide facts about a visited post: the visit
// count and the running latest-activity timestamp. Every node in the
// tree is observed, branch member or not.
func (tr *traversal) observe(post *bsky.Post) {
	tr.totalPosts++
	if post.CreatedAt.After(tr.latestActivity) {
		tr.latestActivity = post.CreatedAt
	}
}

// walk visits node and its reply subtree depth-first. branchKey is the
// anchor URI of the enclosing branch, or "" when no agent-authored
// ancestor exists; parentDID is the author of the node's parent post.
//
// An agent post starts a branch keyed by its own URI when none is open,
// or continues the inherited one. Posts by others fold into the
// inherited branch, or stay outside any branch when there is none;
// those still move latestActivity but are otherwise spectators.
func (tr *traversal) walk(node *bsky.ThreadNode, branchKey, parentDID string) {
	if node == nil || node.Post == nil {
		return
	}
	post := node.Post
	tr.observe(post)

	switch {
	case post.Author.DID == tr.agentDID:
		if branchKey == "" {
			branchKey = post.URI
		}
		tr.attach(branchKey, post)
		tr.agentReplies++
		tr.ownReplyTexts = append(tr.ownReplyTexts, post.Text)
		if parentDID != "" && parentDID != tr.agentDID {
			tr.markEngaged(parentDID)
		}

	case branchKey != "":
		b := tr.attach(branchKey, post)
		b.AddParticipant(post.Author.DID, post.Author.Handle)
		tr.noteParticipant(post.Author.DID, post.Author.Handle)
	}

	for _, child := range node.Replies {
		tr.walk(child, branchKey, post.Author.DID)
	}
}

// attach counts the post into the branch keyed by anchor, creating the
// branch on first use, and buffers the post text for drift scoring.
func (tr *traversal) attach(anchor string, post *bsky.Post) *models.Branch {
	b, ok := tr.branches[anchor]
	if !ok {
		b = &models.Branch{AnchorURI: anchor}
		tr.branches[anchor] = b
		tr.branchOrder = append(tr.branchOrder, anchor)
		tr.branchText[anchor] = &strings.Builder{}
	}
	b.MessageCount++
	if post.CreatedAt.After(b.LastActivity) {
		b.LastActivity = post.CreatedAt
	}
	if post.Text != "" {
		buf := tr.branchText[anchor]
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(post.Text)
	}
	return b
}

func (tr *traversal) noteParticipant(did, handle string) {
	if did == "" || did == tr.agentDID {
		return
	}
	if _, seen := tr.handles[did]; !seen {
		tr.participantOrder = append(tr.participantOrder, did)
	}
	if tr.handles[did] == "" {
		tr.handles[did] = handle
	}
}

func (tr *traversal) markEngaged(did string) {
	for _, d := range tr.engaged {
		if d == did {
			return
		}
	}
	tr.engaged = append(tr.engaged, did)
}

// finishBranches computes each branch's topic drift from its buffered
// text and drops the buffers. Drift compares the branch vocabulary to
// the root vocabulary, so a branch that never mentions a recognized
// topic under a topic-bearing root lands on the ambiguous 0.5.
func (tr *traversal) finishBranches() {
	for anchor, b := range tr.branches {
		text := ""
		if buf := tr.branchText[anchor]; buf != nil {
			text = buf.String()
		}
		b.TopicDrift = topics.DriftBetween(tr.rootTopics, topics.Extract(text, tr.vocabulary))
	}
	tr.branchText = nil
}
