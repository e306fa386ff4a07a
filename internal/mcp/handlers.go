package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/threadwatch/internal/monitor"
	"github.com/nvandessel/threadwatch/internal/scheduler"
)

// registerTools registers all threadwatch MCP tools with the server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "threadwatch_list",
		Description: "List tracked conversation threads with their relevance scores and backoff state",
	}, s.handleList)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "threadwatch_briefing",
		Description: "Get the briefing for one tracked thread: branch summaries and the agent's own recent replies",
	}, s.handleBriefing)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "threadwatch_check",
		Description: "Decide whether a tracked thread is due for a re-poll under its backoff schedule",
	}, s.handleCheck)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "threadwatch_engaged",
		Description: "List participants the agent has directly replied to across all tracked threads",
	}, s.handleEngaged)

	return nil
}

// registerResources registers MCP resources for auto-loading into context.
func (s *Server) registerResources() error {
	s.server.AddResource(&sdk.Resource{
		URI:         "threadwatch://threads/active",
		Name:        "threadwatch-active-threads",
		Description: "Conversation threads the agent is currently watching, highest relevance first.",
		MIMEType:    "text/markdown",
	}, s.handleActiveThreadsResource)

	return nil
}

func (s *Server) handleList(ctx context.Context, req *sdk.CallToolRequest, args ThreadwatchListInput) (*sdk.CallToolResult, ThreadwatchListOutput, error) {
	threads, err := s.store.ListThreads(ctx)
	if err != nil {
		return nil, ThreadwatchListOutput{}, fmt.Errorf("failed to list threads: %w", err)
	}

	out := ThreadwatchListOutput{Threads: make([]ThreadSummary, 0, len(threads))}
	for _, th := range threads {
		if !args.All && !th.Enabled {
			continue
		}
		author := th.RootAuthorHandle
		if author == "" {
			author = th.RootAuthorDID
		}
		out.Threads = append(out.Threads, ThreadSummary{
			RootURI:      th.RootURI,
			RootAuthor:   author,
			Topics:       th.RootTopics,
			Score:        th.Score,
			Branches:     len(th.Branches),
			AgentReplies: th.AgentReplyCount,
			BackoffLevel: th.BackoffLevel,
			Enabled:      th.Enabled,
			LastActivity: th.LastActivity,
		})
	}
	out.Count = len(out.Threads)
	return nil, out, nil
}

func (s *Server) handleBriefing(ctx context.Context, req *sdk.CallToolRequest, args ThreadwatchBriefingInput) (*sdk.CallToolResult, ThreadwatchBriefingOutput, error) {
	if args.RootURI == "" {
		return nil, ThreadwatchBriefingOutput{}, fmt.Errorf("root_uri is required")
	}

	th, err := s.store.GetThread(ctx, args.RootURI)
	if err != nil {
		return nil, ThreadwatchBriefingOutput{}, fmt.Errorf("failed to load thread: %w", err)
	}
	if th == nil {
		return nil, ThreadwatchBriefingOutput{RootURI: args.RootURI, Found: false}, nil
	}

	return nil, ThreadwatchBriefingOutput{
		RootURI:    th.RootURI,
		Found:      true,
		Briefing:   monitor.Briefing(th),
		OwnReplies: th.OwnReplyTexts,
		RespondTo:  monitor.RespondBranches(th, s.app.Analysis.BranchRespondThreshold),
		Score:      th.Score,
	}, nil
}

func (s *Server) handleCheck(ctx context.Context, req *sdk.CallToolRequest, args ThreadwatchCheckInput) (*sdk.CallToolResult, ThreadwatchCheckOutput, error) {
	if args.RootURI == "" {
		return nil, ThreadwatchCheckOutput{}, fmt.Errorf("root_uri is required")
	}

	th, err := s.store.GetThread(ctx, args.RootURI)
	if err != nil {
		return nil, ThreadwatchCheckOutput{}, fmt.Errorf("failed to load thread: %w", err)
	}
	if th == nil {
		return nil, ThreadwatchCheckOutput{RootURI: args.RootURI, Outcome: "not_found"}, nil
	}
	if !th.Enabled {
		return nil, ThreadwatchCheckOutput{
			RootURI: args.RootURI,
			Outcome: "skip",
			Reason:  "monitoring disabled",
			Level:   th.BackoffLevel,
		}, nil
	}

	d := s.policy.Evaluate(th.BackoffLevel, th.LastCheckAt, time.Now())
	out := ThreadwatchCheckOutput{
		RootURI:    args.RootURI,
		Level:      d.Level,
		IntervalMs: d.Interval.Milliseconds(),
	}
	switch d.Action {
	case scheduler.ActionCheck:
		out.Outcome = "check"
	case scheduler.ActionRetire:
		out.Outcome = "retire"
		out.Action = "disable"
	default:
		out.Outcome = "skip"
		out.WaitMs = d.Wait.Milliseconds()
	}
	return nil, out, nil
}

func (s *Server) handleEngaged(ctx context.Context, req *sdk.CallToolRequest, args ThreadwatchEngagedInput) (*sdk.CallToolResult, ThreadwatchEngagedOutput, error) {
	engaged, err := s.store.EngagedAcross(ctx)
	if err != nil {
		return nil, ThreadwatchEngagedOutput{}, fmt.Errorf("failed to collect engaged participants: %w", err)
	}

	participants := make([]string, 0, len(engaged))
	for did := range engaged {
		participants = append(participants, did)
	}
	sort.Strings(participants)

	return nil, ThreadwatchEngagedOutput{Participants: participants, Count: len(participants)}, nil
}

// handleActiveThreadsResource renders the watched-threads digest for
// context injection.
func (s *Server) handleActiveThreadsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	threads, err := s.store.ListThreads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Watched Threads\n\n")

	active := 0
	for _, th := range threads {
		if !th.Enabled {
			continue
		}
		active++
		author := th.RootAuthorHandle
		if author == "" {
			author = th.RootAuthorDID
		}
		fmt.Fprintf(&sb, "- **@%s** (score %.0f, level %d, %d branches): %s\n",
			author, th.Score, th.BackoffLevel, len(th.Branches), th.RootText)
	}
	if active == 0 {
		sb.WriteString("No threads under watch. Run `threadwatch discover` to find conversations worth following.\n")
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      "threadwatch://threads/active",
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}
