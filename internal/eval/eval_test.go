package eval

import (
	"math"
	"strings"
	"testing"

	"github.com/danielpatrickdp/adaptive-director/internal/director"
	"github.com/danielpatrickdp/adaptive-director/internal/flow"
	"github.com/danielpatrickdp/adaptive-director/internal/player"
	"github.com/danielpatrickdp/adaptive-director/internal/signals"
)

func healthy(t *testing.T) director.Diagnostics {
	t.Helper()
	d := director.New(director.DefaultConfig())
	for g := 0; g < 4; g++ {
		for i := 0; i < 5; i++ {
			d.ObserveTurn(signals.TurnSummary{TurnMs: 6500, ActionsTaken: 3, Mistakes: i % 2})
		}
		d.ObserveGame(player.GameResult{PlayerWon: g%2 == 0})
	}
	return d.Snapshot()
}

func failed(r EvalResult, name string) bool {
	for _, m := range r.Metrics {
		if m.Name == name {
			return !m.Pass
		}
	}
	return false
}

func TestEvalPassesOnLiveSession(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	result := h.Run(healthy(t))

	if !result.Passed {
		t.Fatalf("expected pass, got fail: %s", result.Reason)
	}
	if result.Reason != "all checks passed" {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
}

func TestEvalMetricCount(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	result := h.Run(healthy(t))

	// 9 blocking checks + fatigue
	if len(result.Metrics) != 10 {
		t.Fatalf("expected 10 metrics, got %d", len(result.Metrics))
	}
}

func TestEvalFailsOnSkillOutOfBounds(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	diag := healthy(t)
	diag.Player.Skill = 1.2

	result := h.Run(diag)
	if result.Passed {
		t.Fatal("expected fail on skill above bound")
	}
	if !failed(result, "skill") {
		t.Fatal("expected skill metric to fail")
	}
}

func TestEvalFailsOnDepthMismatch(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	diag := healthy(t)
	diag.Plan.Difficulty = 0.8
	diag.Plan.SearchDepth = 1

	result := h.Run(diag)
	if !failed(result, "search_depth") {
		t.Fatal("expected search_depth metric to fail")
	}
}

func TestEvalFailsOnAssistFlags(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	diag := healthy(t)
	diag.Plan.Assist = 0.6
	diag.Plan.AssistMode = flow.ModeFor(0.6)
	diag.Plan.ShowHighlights = true
	diag.Plan.ShowAttackHints = false

	result := h.Run(diag)
	if !failed(result, "assist") {
		t.Fatal("expected assist metric to fail when hints are hidden at auto level")
	}
}

func TestEvalFailsOnNonFinite(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	diag := healthy(t)
	diag.Player.Engagement = math.NaN()

	result := h.Run(diag)
	if !failed(result, "finite") {
		t.Fatal("expected finite metric to fail")
	}
}

func TestEvalCountsMultipleFailures(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	diag := healthy(t)
	diag.Plan.PacingMs = 5000
	diag.Flow.Bias = 0.5

	result := h.Run(diag)
	if result.Passed {
		t.Fatal("expected fail")
	}
	if !strings.HasPrefix(result.Reason, "eval failed: 2 checks:") {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
	got := result.Failed()
	if len(got) != 2 || got[0] != "pacing_ms" || got[1] != "bias" {
		t.Fatalf("unexpected failed list %v", got)
	}
}

func TestEvalFatigueInformationalOnly(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	diag := healthy(t)
	diag.Player.Fatigue = 0.9

	result := h.Run(diag)
	if !result.Passed {
		t.Fatalf("fatigue check should be informational, not blocking: %s", result.Reason)
	}
	if !failed(result, "fatigue") {
		t.Fatal("fatigue metric should show pass=false above the warning level")
	}
	if len(result.Failed()) != 0 {
		t.Fatalf("informational metric listed as failure: %v", result.Failed())
	}
}
