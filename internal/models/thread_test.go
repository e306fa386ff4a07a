package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDecodeThread(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	src := &TrackedThread{
		RootURI:       "at://did:plc:alice/app.bsky.feed.post/3k1",
		RootAuthorDID: "did:plc:alice",
		RootTopics:    []string{"distributed systems"},
		Score:         72.5,
		Branches: map[string]*Branch{
			"at://did:plc:agent/app.bsky.feed.post/3k2": {
				AnchorURI:    "at://did:plc:agent/app.bsky.feed.post/3k2",
				MessageCount: 4,
				LastActivity: created.Add(time.Hour),
			},
		},
		CreatedAt: created,
		Enabled:   true,
	}
	data, err := json.Marshal(src)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got, err := DecodeThread(data)
	if err != nil {
		t.Fatalf("DecodeThread() error = %v", err)
	}
	if got.RootURI != src.RootURI {
		t.Errorf("RootURI = %q, want %q", got.RootURI, src.RootURI)
	}
	if got.Score != src.Score {
		t.Errorf("Score = %v, want %v", got.Score, src.Score)
	}
	if len(got.Branches) != 1 {
		t.Fatalf("len(Branches) = %d, want 1", len(got.Branches))
	}
	b := got.Branches["at://did:plc:agent/app.bsky.feed.post/3k2"]
	if b == nil || b.MessageCount != 4 {
		t.Errorf("branch = %+v, want MessageCount 4", b)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
}

func TestDecodeThreadLegacy(t *testing.T) {
	// Records written before root URIs were required decode but are
	// reported as legacy so callers can skip them.
	_, err := DecodeThread([]byte(`{"score": 50, "enabled": true}`))
	if !errors.Is(err, ErrLegacyRecord) {
		t.Fatalf("DecodeThread() error = %v, want ErrLegacyRecord", err)
	}
}

func TestDecodeThreadCorrupt(t *testing.T) {
	_, err := DecodeThread([]byte(`{"root_uri": `))
	if err == nil {
		t.Fatal("DecodeThread() error = nil, want parse error")
	}
	if errors.Is(err, ErrLegacyRecord) {
		t.Fatalf("DecodeThread() error = ErrLegacyRecord, want plain parse error")
	}
}

func TestDecodeThreadNilBranches(t *testing.T) {
	got, err := DecodeThread([]byte(`{"root_uri": "at://did:plc:a/app.bsky.feed.post/1"}`))
	if err != nil {
		t.Fatalf("DecodeThread() error = %v", err)
	}
	if got.Branches == nil {
		t.Fatal("Branches = nil, want initialized map")
	}
}

func TestAddEngaged(t *testing.T) {
	th := &TrackedThread{}
	th.AddEngaged("did:plc:bob")
	th.AddEngaged("did:plc:carol")
	th.AddEngaged("did:plc:bob")
	th.AddEngaged("")

	want := []string{"did:plc:bob", "did:plc:carol"}
	if len(th.Engaged) != len(want) {
		t.Fatalf("Engaged = %v, want %v", th.Engaged, want)
	}
	for i := range want {
		if th.Engaged[i] != want[i] {
			t.Errorf("Engaged[%d] = %q, want %q", i, th.Engaged[i], want[i])
		}
	}
	if !th.EngagedSet()["did:plc:carol"] {
		t.Error("EngagedSet() missing did:plc:carol")
	}
}

func TestRememberOwnReply(t *testing.T) {
	th := &TrackedThread{}
	for _, s := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		th.RememberOwnReply(s, 5)
	}
	if len(th.OwnReplyTexts) != 5 {
		t.Fatalf("len(OwnReplyTexts) = %d, want 5", len(th.OwnReplyTexts))
	}
	if th.OwnReplyTexts[0] != "c" || th.OwnReplyTexts[4] != "g" {
		t.Errorf("OwnReplyTexts = %v, want oldest dropped", th.OwnReplyTexts)
	}

	th.RememberOwnReply("h", 0)
	if th.OwnReplyTexts != nil {
		t.Errorf("OwnReplyTexts = %v, want nil with zero cap", th.OwnReplyTexts)
	}
}

func TestAddParticipant(t *testing.T) {
	b := &Branch{}
	b.AddParticipant("did:plc:bob", "bob.example")
	b.AddParticipant("did:plc:bob", "bob.example")
	b.AddParticipant("", "ghost")
	b.AddParticipant("did:plc:carol", "carol.example")

	if len(b.Participants) != 2 {
		t.Fatalf("Participants = %v, want 2 entries", b.Participants)
	}
	if b.Participants[0].DID != "did:plc:bob" || b.Participants[1].DID != "did:plc:carol" {
		t.Errorf("Participants = %v, want first-seen order", b.Participants)
	}
}

func TestTotalBranchMessages(t *testing.T) {
	th := &TrackedThread{
		Branches: map[string]*Branch{
			"a": {MessageCount: 2},
			"b": {MessageCount: 3},
		},
	}
	if got := th.TotalBranchMessages(); got != 5 {
		t.Errorf("TotalBranchMessages() = %d, want 5", got)
	}
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten chars!", 18, "exactly ten chars!"},
		{"hello world", 5, "hell…"},
		{"héllo wörld", 6, "héllo…"},
		{"anything", 0, ""},
		{"ab", 1, "…"},
	}
	for _, tt := range tests {
		if got := Excerpt(tt.in, tt.max); got != tt.want {
			t.Errorf("Excerpt(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
		if n := len([]rune(Excerpt(tt.in, tt.max))); tt.max > 0 && n > tt.max {
			t.Errorf("Excerpt(%q, %d) length = %d runes, want <= %d", tt.in, tt.max, n, tt.max)
		}
	}
}

func TestFollowerRatio(t *testing.T) {
	tests := []struct {
		followers, follows int
		want               float64
	}{
		{1000, 100, 10},
		{500, 250, 2},
		{0, 0, 0},
		{42, 0, 42},
	}
	for _, tt := range tests {
		p := &InterlocutorProfile{FollowersCount: tt.followers, FollowsCount: tt.follows}
		if got := p.FollowerRatio(); got != tt.want {
			t.Errorf("FollowerRatio(%d/%d) = %v, want %v", tt.followers, tt.follows, got, tt.want)
		}
	}
}
