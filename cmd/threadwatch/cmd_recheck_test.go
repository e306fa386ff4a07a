package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/threadwatch/internal/engine"
)

func TestNewRecheckCmd(t *testing.T) {
	cmd := newRecheckCmd()
	if cmd.Use != "recheck <root-uri>" {
		t.Errorf("Use = %q, want %q", cmd.Use, "recheck <root-uri>")
	}
}

func TestNewMCPServerCmd(t *testing.T) {
	cmd := newMCPServerCmd()
	if cmd.Use != "mcp" {
		t.Errorf("Use = %q, want %q", cmd.Use, "mcp")
	}
}

func TestPrintRecheckReport(t *testing.T) {
	tests := []struct {
		name   string
		report engine.RecheckReport
		want   string
	}{
		{
			name: "rechecked with activity",
			report: engine.RecheckReport{
				RootURI:  "at://x",
				Outcome:  engine.OutcomeCheck,
				Activity: true,
				Score:    85,
				Level:    0,
			},
			want: "Rechecked: at://x score 85, level 0 (new activity)",
		},
		{
			name: "rechecked preempted",
			report: engine.RecheckReport{
				RootURI:   "at://x",
				Outcome:   engine.OutcomeCheck,
				Activity:  true,
				Preempted: true,
				Score:     70,
				Level:     0,
			},
			want: "preempted by fresh notification",
		},
		{
			name: "rechecked silent",
			report: engine.RecheckReport{
				RootURI: "at://x",
				Outcome: engine.OutcomeCheck,
				Score:   70,
				Level:   3,
			},
			want: "level 3 (silent)",
		},
		{
			name: "skip",
			report: engine.RecheckReport{
				RootURI: "at://x",
				Outcome: engine.OutcomeSkip,
				Level:   2,
				WaitMs:  (30 * time.Minute).Milliseconds(),
			},
			want: "next check in 30m0s",
		},
		{
			name: "retired",
			report: engine.RecheckReport{
				RootURI: "at://x",
				Outcome: engine.OutcomeRetire,
			},
			want: "Retired: at://x",
		},
		{
			name: "unavailable",
			report: engine.RecheckReport{
				RootURI: "at://x",
				Outcome: engine.OutcomeUnavailable,
			},
			want: "schedule unchanged",
		},
		{
			name: "not found",
			report: engine.RecheckReport{
				RootURI: "at://x",
				Outcome: engine.OutcomeNotFound,
			},
			want: "Not tracked: at://x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := printRecheckReport(&out, false, &tt.report); err != nil {
				t.Fatalf("printRecheckReport failed: %v", err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output %q missing %q", out.String(), tt.want)
			}
		})
	}
}
