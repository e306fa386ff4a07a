package monitor

import (
	"strings"
	"testing"

	"github.com/nvandessel/threadwatch/internal/config"
	"github.com/nvandessel/threadwatch/internal/models"
	"github.com/nvandessel/threadwatch/internal/scheduler"
)

var testPolicy = scheduler.NewPolicy([]int{10, 20, 40, 80, 160, 240}, 24)

func testMonitorConfig() config.MonitorConfig {
	return config.MonitorConfig{
		JobPrefix: "thread-monitor",
		Deliver:   "announce",
		Channel:   "#social",
		To:        "agent",
	}
}

func testThread() *models.TrackedThread {
	return &models.TrackedThread{
		RootURI:          "at://did:plc:alice/app.bsky.feed.post/3kroot1",
		RootAuthorDID:    "did:plc:alice",
		RootAuthorHandle: "alice.example.com",
		RootText:         "thinking about ai lately",
		RootTopics:       []string{"ai"},
		Score:            85,
		Engaged:          []string{"did:plc:bob"},
		OwnReplyTexts:    []string{"ai tooling is fun", "golang rules"},
		JobID:            "job-1",
		Enabled:          true,
		BackoffLevel:     2,
		Branches: map[string]*models.Branch{
			"at://did:plc:agent/app.bsky.feed.post/r1": {
				AnchorURI:    "at://did:plc:agent/app.bsky.feed.post/r1",
				Participants: []models.Participant{{DID: "did:plc:bob", Handle: "bob.example.com"}},
				MessageCount: 4,
				TopicDrift:   0.9,
				Score:        80,
			},
			"at://did:plc:agent/app.bsky.feed.post/r2": {
				AnchorURI:    "at://did:plc:agent/app.bsky.feed.post/r2",
				Participants: []models.Participant{{DID: "did:plc:carol", Handle: "carol.example.com"}},
				MessageCount: 2,
				TopicDrift:   0.1,
				Score:        50,
			},
			"at://did:plc:agent/app.bsky.feed.post/r3": {
				AnchorURI:    "at://did:plc:agent/app.bsky.feed.post/r3",
				MessageCount: 3,
				TopicDrift:   0.5,
				Score:        30,
			},
			"at://did:plc:agent/app.bsky.feed.post/r4": {
				AnchorURI:    "at://did:plc:agent/app.bsky.feed.post/r4",
				MessageCount: 2,
				TopicDrift:   0.9,
				Score:        10,
			},
		},
	}
}

func TestBuildJob(t *testing.T) {
	th := testThread()
	job := BuildJob(th, testPolicy, testMonitorConfig())

	if job.Name != "thread-monitor-3kroot1" {
		t.Errorf("Name = %q, want thread-monitor-3kroot1", job.Name)
	}
	if job.ID != "job-1" {
		t.Errorf("ID = %q, want job-1", job.ID)
	}
	if job.Schedule.Kind != "every" {
		t.Errorf("Schedule.Kind = %q, want every", job.Schedule.Kind)
	}
	// Level 2 polls every 40 minutes.
	if want := int64(40 * 60 * 1000); job.Schedule.IntervalMs != want {
		t.Errorf("Schedule.IntervalMs = %d, want %d", job.Schedule.IntervalMs, want)
	}
	if job.Payload.Deliver != "announce" || job.Payload.Channel != "#social" || job.Payload.To != "agent" {
		t.Errorf("payload routing = %+v", job.Payload)
	}
	if !strings.Contains(job.Payload.Message, "Thread by @alice.example.com") {
		t.Errorf("payload message missing briefing header:\n%s", job.Payload.Message)
	}
	if !job.Enabled {
		t.Error("Enabled not carried from thread")
	}
}

func TestBuildJob_TerminalLevelPollsSilenceWindow(t *testing.T) {
	th := testThread()
	th.BackoffLevel = 6

	job := BuildJob(th, testPolicy, testMonitorConfig())
	if want := int64(24 * 60 * 60 * 1000); job.Schedule.IntervalMs != want {
		t.Errorf("IntervalMs = %d, want silence window %d", job.Schedule.IntervalMs, want)
	}
}

func TestBuildJob_DisabledThread(t *testing.T) {
	th := testThread()
	th.Enabled = false

	if job := BuildJob(th, testPolicy, testMonitorConfig()); job.Enabled {
		t.Error("disabled thread produced an enabled job")
	}
}

func TestJobName(t *testing.T) {
	tests := []struct {
		name    string
		rootURI string
		want    string
	}{
		{"at-uri", "at://did:plc:alice/app.bsky.feed.post/3kroot1", "thread-monitor-3kroot1"},
		{"unparseable", "https://example.com/post/1", "thread-monitor-unknown"},
		{"empty", "", "thread-monitor-unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JobName("thread-monitor", tt.rootURI); got != tt.want {
				t.Errorf("JobName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBriefing_Annotations(t *testing.T) {
	text := Briefing(testThread())

	var branchLines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "- [") {
			branchLines = append(branchLines, line)
		}
	}
	if len(branchLines) != 4 {
		t.Fatalf("briefing has %d branch lines, want 4:\n%s", len(branchLines), text)
	}

	// Highest score first; engagement outranks drift for the label.
	wantMarkers := []struct{ annotation, anchor string }{
		{"[engaged]", "/r1"},
		{"[on-topic]", "/r2"},
		{"[drifting]", "/r3"},
		{"[off-topic]", "/r4"},
	}
	for i, want := range wantMarkers {
		if !strings.Contains(branchLines[i], want.annotation) || !strings.Contains(branchLines[i], want.anchor) {
			t.Errorf("branch line %d = %q, want %s on %s", i, branchLines[i], want.annotation, want.anchor)
		}
	}

	if !strings.Contains(text, "Topics: ai") {
		t.Errorf("briefing missing topics line:\n%s", text)
	}
	if !strings.Contains(text, "with @bob.example.com") {
		t.Errorf("briefing missing participant handles:\n%s", text)
	}
	if !strings.Contains(text, `- "ai tooling is fun"`) || !strings.Contains(text, `- "golang rules"`) {
		t.Errorf("briefing missing own reply history:\n%s", text)
	}
}

func TestRespondBranches(t *testing.T) {
	th := testThread()

	// Branches score 80/50/30/10; a threshold of 40 keeps the top two.
	got := RespondBranches(th, 40)
	want := []string{
		"at://did:plc:agent/app.bsky.feed.post/r1",
		"at://did:plc:agent/app.bsky.feed.post/r2",
	}
	if len(got) != len(want) {
		t.Fatalf("RespondBranches = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RespondBranches[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if got := RespondBranches(th, 90); got != nil {
		t.Errorf("RespondBranches above all scores = %v, want nil", got)
	}
}

func TestBriefing_Deterministic(t *testing.T) {
	th := testThread()
	if Briefing(th) != Briefing(th) {
		t.Error("briefing output varies across calls for the same thread")
	}
}

func TestBriefing_FallsBackToDID(t *testing.T) {
	th := testThread()
	th.RootAuthorHandle = ""

	if text := Briefing(th); !strings.Contains(text, "Thread by @did:plc:alice") {
		t.Errorf("briefing should fall back to the DID:\n%s", text)
	}
}
