package mcp

import "time"

// ThreadwatchListInput defines the input for the threadwatch_list tool.
type ThreadwatchListInput struct {
	All bool `json:"all,omitempty" jsonschema:"Include disabled (retired) threads (default: enabled only)"`
}

// ThreadwatchListOutput defines the output for the threadwatch_list tool.
type ThreadwatchListOutput struct {
	Threads []ThreadSummary `json:"threads" jsonschema:"Tracked threads, highest score first"`
	Count   int             `json:"count" jsonschema:"Number of threads returned"`
}

// ThreadSummary is the list view of a tracked thread.
type ThreadSummary struct {
	RootURI      string    `json:"root_uri"`
	RootAuthor   string    `json:"root_author"`
	Topics       []string  `json:"topics,omitempty"`
	Score        float64   `json:"score"`
	Branches     int       `json:"branches"`
	AgentReplies int       `json:"agent_replies"`
	BackoffLevel int       `json:"backoff_level"`
	Enabled      bool      `json:"enabled"`
	LastActivity time.Time `json:"last_activity"`
}

// ThreadwatchBriefingInput defines the input for the threadwatch_briefing tool.
type ThreadwatchBriefingInput struct {
	RootURI string `json:"root_uri" jsonschema:"Root post AT-URI of the tracked thread"`
}

// ThreadwatchBriefingOutput defines the output for the threadwatch_briefing tool.
type ThreadwatchBriefingOutput struct {
	RootURI    string   `json:"root_uri"`
	Found      bool     `json:"found" jsonschema:"Whether the thread is tracked"`
	Briefing   string   `json:"briefing,omitempty" jsonschema:"Human-readable thread digest"`
	OwnReplies []string `json:"own_replies,omitempty" jsonschema:"The agent's recent replies in this thread, for self-consistency"`
	RespondTo  []string `json:"respond_to,omitempty" jsonschema:"Anchor URIs of branches scoring above the respond threshold, best first"`
	Score      float64  `json:"score,omitempty"`
}

// ThreadwatchCheckInput defines the input for the threadwatch_check tool.
type ThreadwatchCheckInput struct {
	RootURI string `json:"root_uri" jsonschema:"Root post AT-URI of the tracked thread"`
}

// ThreadwatchCheckOutput defines the output for the threadwatch_check tool.
type ThreadwatchCheckOutput struct {
	RootURI    string `json:"root_uri"`
	Outcome    string `json:"outcome" jsonschema:"check | skip | retire | not_found"`
	Reason     string `json:"reason,omitempty"`
	Action     string `json:"action,omitempty" jsonschema:"Set to 'disable' when the outcome is retire"`
	Level      int    `json:"level"`
	IntervalMs int64  `json:"interval_ms,omitempty"`
	WaitMs     int64  `json:"wait_ms,omitempty" jsonschema:"Time remaining until the thread is due"`
}

// ThreadwatchEngagedInput defines the input for the threadwatch_engaged tool.
type ThreadwatchEngagedInput struct{}

// ThreadwatchEngagedOutput defines the output for the threadwatch_engaged tool.
type ThreadwatchEngagedOutput struct {
	Participants []string `json:"participants" jsonschema:"DIDs the agent has replied to, across all tracked threads"`
	Count        int      `json:"count"`
}
