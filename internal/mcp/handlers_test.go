package mcp

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/threadwatch/internal/models"
)

func seedThread(t *testing.T, s *Server, rootURI string, score float64, enabled bool, lastCheck time.Time) *models.TrackedThread {
	t.Helper()
	th := &models.TrackedThread{
		RootURI:          rootURI,
		RootAuthorDID:    "did:plc:alice",
		RootAuthorHandle: "alice.example.com",
		RootText:         "thinking about ai lately",
		RootTopics:       []string{"ai"},
		Score:            score,
		Branches: map[string]*models.Branch{
			"at://did:plc:agent/app.bsky.feed.post/r1": {
				AnchorURI:    "at://did:plc:agent/app.bsky.feed.post/r1",
				Participants: []models.Participant{{DID: "did:plc:bob", Handle: "bob.example.com"}},
				MessageCount: 3,
				TopicDrift:   0.2,
				Score:        55,
			},
		},
		AgentReplyCount:   1,
		Engaged:           []string{"did:plc:bob"},
		OwnReplyTexts:     []string{"ai tooling is fun"},
		CreatedAt:         lastCheck.Add(-24 * time.Hour),
		LastActivity:      lastCheck.Add(-time.Hour),
		Enabled:           enabled,
		BackoffLevel:      0,
		LastCheckAt:       lastCheck,
		LastNewActivityAt: lastCheck.Add(-time.Hour),
	}
	if err := s.store.PutThread(context.Background(), th); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return th
}

func TestHandleList(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	now := time.Now()

	seedThread(t, s, "at://did:plc:alice/app.bsky.feed.post/a", 90, true, now)
	seedThread(t, s, "at://did:plc:alice/app.bsky.feed.post/b", 50, true, now)
	retired := seedThread(t, s, "at://did:plc:alice/app.bsky.feed.post/c", 70, false, now)

	_, out, err := s.handleList(ctx, &sdk.CallToolRequest{}, ThreadwatchListInput{})
	if err != nil {
		t.Fatalf("handleList failed: %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("Count = %d, want 2 enabled threads", out.Count)
	}
	if out.Threads[0].Score != 90 || out.Threads[1].Score != 50 {
		t.Errorf("order = %v/%v, want highest score first", out.Threads[0].Score, out.Threads[1].Score)
	}

	_, all, err := s.handleList(ctx, &sdk.CallToolRequest{}, ThreadwatchListInput{All: true})
	if err != nil {
		t.Fatalf("handleList(all) failed: %v", err)
	}
	if all.Count != 3 {
		t.Errorf("Count = %d, want 3 with disabled included", all.Count)
	}
	found := false
	for _, th := range all.Threads {
		if th.RootURI == retired.RootURI && !th.Enabled {
			found = true
		}
	}
	if !found {
		t.Errorf("retired thread missing from all listing: %+v", all.Threads)
	}
}

func TestHandleList_Empty(t *testing.T) {
	s := setupTestServer(t)

	_, out, err := s.handleList(context.Background(), &sdk.CallToolRequest{}, ThreadwatchListInput{})
	if err != nil {
		t.Fatalf("handleList failed: %v", err)
	}
	if out.Count != 0 || len(out.Threads) != 0 {
		t.Errorf("output = %+v, want empty", out)
	}
}

func TestHandleBriefing(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	th := seedThread(t, s, "at://did:plc:alice/app.bsky.feed.post/a", 85, true, time.Now())

	_, out, err := s.handleBriefing(ctx, &sdk.CallToolRequest{}, ThreadwatchBriefingInput{RootURI: th.RootURI})
	if err != nil {
		t.Fatalf("handleBriefing failed: %v", err)
	}
	if !out.Found {
		t.Fatal("Found = false for tracked thread")
	}
	if !strings.Contains(out.Briefing, "Thread by @alice.example.com") {
		t.Errorf("briefing missing header:\n%s", out.Briefing)
	}
	if !strings.Contains(out.Briefing, "[engaged]") {
		t.Errorf("briefing missing branch annotation:\n%s", out.Briefing)
	}
	if want := []string{"ai tooling is fun"}; !reflect.DeepEqual(out.OwnReplies, want) {
		t.Errorf("OwnReplies = %v, want %v", out.OwnReplies, want)
	}
	// The single branch scores 55, above the default respond threshold.
	if want := []string{"at://did:plc:agent/app.bsky.feed.post/r1"}; !reflect.DeepEqual(out.RespondTo, want) {
		t.Errorf("RespondTo = %v, want %v", out.RespondTo, want)
	}
	if out.Score != 85 {
		t.Errorf("Score = %v, want 85", out.Score)
	}
}

func TestHandleBriefing_NotTracked(t *testing.T) {
	s := setupTestServer(t)

	_, out, err := s.handleBriefing(context.Background(), &sdk.CallToolRequest{}, ThreadwatchBriefingInput{RootURI: "at://did:plc:x/app.bsky.feed.post/nope"})
	if err != nil {
		t.Fatalf("handleBriefing failed: %v", err)
	}
	if out.Found {
		t.Error("Found = true for unknown thread")
	}
}

func TestHandleBriefing_RequiresRootURI(t *testing.T) {
	s := setupTestServer(t)

	if _, _, err := s.handleBriefing(context.Background(), &sdk.CallToolRequest{}, ThreadwatchBriefingInput{}); err == nil {
		t.Error("empty root_uri should be rejected")
	}
}

func TestHandleCheck(t *testing.T) {
	now := time.Now()
	rootURI := "at://did:plc:alice/app.bsky.feed.post/a"

	tests := []struct {
		name        string
		seed        func(t *testing.T, s *Server)
		wantOutcome string
		wantAction  string
	}{
		{
			name:        "not found",
			seed:        func(t *testing.T, s *Server) {},
			wantOutcome: "not_found",
		},
		{
			name: "due",
			seed: func(t *testing.T, s *Server) {
				seedThread(t, s, rootURI, 80, true, now.Add(-11*time.Minute))
			},
			wantOutcome: "check",
		},
		{
			name: "not due",
			seed: func(t *testing.T, s *Server) {
				seedThread(t, s, rootURI, 80, true, now.Add(-time.Minute))
			},
			wantOutcome: "skip",
		},
		{
			name: "terminal silence",
			seed: func(t *testing.T, s *Server) {
				th := seedThread(t, s, rootURI, 80, true, now.Add(-25*time.Hour))
				th.BackoffLevel = 6
				if err := s.store.PutThread(context.Background(), th); err != nil {
					t.Fatalf("reseed failed: %v", err)
				}
			},
			wantOutcome: "retire",
			wantAction:  "disable",
		},
		{
			name: "disabled",
			seed: func(t *testing.T, s *Server) {
				seedThread(t, s, rootURI, 80, false, now.Add(-25*time.Hour))
			},
			wantOutcome: "skip",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestServer(t)
			tt.seed(t, s)

			_, out, err := s.handleCheck(context.Background(), &sdk.CallToolRequest{}, ThreadwatchCheckInput{RootURI: rootURI})
			if err != nil {
				t.Fatalf("handleCheck failed: %v", err)
			}
			if out.Outcome != tt.wantOutcome {
				t.Errorf("Outcome = %q, want %q", out.Outcome, tt.wantOutcome)
			}
			if out.Action != tt.wantAction {
				t.Errorf("Action = %q, want %q", out.Action, tt.wantAction)
			}
			if tt.wantOutcome == "skip" && out.Reason == "" && out.WaitMs == 0 {
				t.Error("skip outcome carries neither wait nor reason")
			}
		})
	}
}

func TestHandleEngaged(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	now := time.Now()

	a := seedThread(t, s, "at://did:plc:alice/app.bsky.feed.post/a", 90, true, now)
	a.Engaged = []string{"did:plc:carol", "did:plc:bob"}
	if err := s.store.PutThread(ctx, a); err != nil {
		t.Fatalf("reseed failed: %v", err)
	}
	seedThread(t, s, "at://did:plc:alice/app.bsky.feed.post/b", 50, true, now)

	_, out, err := s.handleEngaged(ctx, &sdk.CallToolRequest{}, ThreadwatchEngagedInput{})
	if err != nil {
		t.Fatalf("handleEngaged failed: %v", err)
	}
	if want := []string{"did:plc:bob", "did:plc:carol"}; !reflect.DeepEqual(out.Participants, want) {
		t.Errorf("Participants = %v, want sorted %v", out.Participants, want)
	}
	if out.Count != 2 {
		t.Errorf("Count = %d, want 2", out.Count)
	}
}

func TestActiveThreadsResource(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	now := time.Now()

	seedThread(t, s, "at://did:plc:alice/app.bsky.feed.post/a", 90, true, now)
	seedThread(t, s, "at://did:plc:alice/app.bsky.feed.post/c", 70, false, now)

	res, err := s.handleActiveThreadsResource(ctx, &sdk.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("resource handler failed: %v", err)
	}
	if len(res.Contents) != 1 {
		t.Fatalf("Contents = %d entries, want 1", len(res.Contents))
	}
	text := res.Contents[0].Text
	if !strings.Contains(text, "# Watched Threads") {
		t.Errorf("missing header:\n%s", text)
	}
	if !strings.Contains(text, "@alice.example.com") || !strings.Contains(text, "score 90") {
		t.Errorf("missing enabled thread line:\n%s", text)
	}
	// Only one enabled thread: the retired one stays out of the digest.
	if got := strings.Count(text, "\n- "); got != 1 {
		t.Errorf("digest lists %d threads, want 1:\n%s", got, text)
	}
}

func TestActiveThreadsResource_Empty(t *testing.T) {
	s := setupTestServer(t)

	res, err := s.handleActiveThreadsResource(context.Background(), &sdk.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("resource handler failed: %v", err)
	}
	if !strings.Contains(res.Contents[0].Text, "No threads under watch") {
		t.Errorf("empty digest = %q", res.Contents[0].Text)
	}
}
