package replay

import (
	"github.com/danielpatrickdp/adaptive-director/internal/beat"
	"github.com/danielpatrickdp/adaptive-director/internal/director"
	"github.com/danielpatrickdp/adaptive-director/internal/eval"
	"github.com/danielpatrickdp/adaptive-director/internal/flow"
	"github.com/danielpatrickdp/adaptive-director/internal/logging"
)

// #region types
const (
	ActionCommit   = "commit"
	ActionEvalFail = "eval_fail"
	ActionSkip     = "skip"
)

// ReplayResult captures the outcome of replaying one event.
type ReplayResult struct {
	EventID string
	Kind    logging.EventKind
	Action  string // "commit" | "eval_fail" | "skip"
	Reason  string

	Plan    flow.Plan
	Outcome *director.Outcome // nil for turns
	Eval    *eval.EvalResult  // nil when skipped
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalEvents  int
	Turns        int
	Games        int
	Commits      int
	EvalFailures int
	Skipped      int
	Overrides    int
	Beats        map[beat.Beat]int
	FinalState   director.State
}

// #endregion types

// #region replay
// Replay feeds events through d in order and checks every resulting
// snapshot. It operates entirely in memory; d is advanced in place.
func Replay(d *director.Director, events []FixtureEvent, config eval.EvalConfig) []ReplayResult {
	harness := eval.NewEvalHarness(config)
	results := make([]ReplayResult, 0, len(events))

	for _, ev := range events {
		r := ReplayResult{EventID: ev.EventID, Kind: ev.Kind}

		switch {
		case ev.Kind == logging.EventTurn && ev.Turn != nil:
			r.Plan = d.ObserveTurn(*ev.Turn)
		case ev.Kind == logging.EventGame && ev.Game != nil:
			out := d.ObserveGame(*ev.Game)
			r.Outcome = &out
			r.Plan = out.Plan
		default:
			r.Action = ActionSkip
			r.Reason = "unsupported or empty event"
			results = append(results, r)
			continue
		}

		evalResult := harness.Run(d.Snapshot())
		r.Eval = &evalResult
		r.Reason = evalResult.Reason
		r.Action = ActionCommit
		if !evalResult.Passed {
			r.Action = ActionEvalFail
		}
		results = append(results, r)
	}

	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult, finalState director.State) ReplaySummary {
	s := ReplaySummary{
		TotalEvents: len(results),
		Beats:       make(map[beat.Beat]int),
		FinalState:  finalState,
	}
	for _, r := range results {
		switch r.Action {
		case ActionCommit:
			s.Commits++
		case ActionEvalFail:
			s.EvalFailures++
		case ActionSkip:
			s.Skipped++
			continue
		}
		switch r.Kind {
		case logging.EventTurn:
			s.Turns++
		case logging.EventGame:
			s.Games++
		}
		if r.Outcome != nil {
			s.Beats[r.Outcome.Beat]++
			if r.Outcome.Override {
				s.Overrides++
			}
		}
	}
	return s
}

// #endregion replay
