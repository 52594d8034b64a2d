package eval

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/adaptive-director/internal/director"
	"github.com/danielpatrickdp/adaptive-director/internal/flow"
)

const metricFatigue = "fatigue"

// #region eval-harness
// EvalHarness validates a session after every committed event.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run checks the estimate and plan bounds of diag. The fatigue check is
// informational and never fails the run.
func (h *EvalHarness) Run(diag director.Diagnostics) EvalResult {
	c := h.config
	snap, plan := diag.Player, diag.Plan

	var metrics []EvalMetric
	var failReasons []string
	check := func(name string, value float64, pass bool, format string, args ...any) {
		metrics = append(metrics, EvalMetric{Name: name, Value: value, Pass: pass})
		if !pass {
			failReasons = append(failReasons, fmt.Sprintf(format, args...))
		}
	}

	nonFinite := countNonFinite(snap.Skill, snap.SkillVariance, snap.SkillTrend, snap.WinRate,
		snap.ErrorRate, snap.TurnTimeMs, snap.Hesitation, snap.Volatility, snap.Fatigue,
		snap.Engagement, snap.Flow, plan.Difficulty, plan.Randomness, plan.Assist)
	check("finite", float64(nonFinite), nonFinite == 0,
		"%d estimates are not finite", nonFinite)
	check("skill", snap.Skill, h.within(snap.Skill, c.SkillMin, c.SkillMax),
		"skill %.4f outside [%.2f, %.2f]", snap.Skill, c.SkillMin, c.SkillMax)
	check("skill_variance", snap.SkillVariance, h.within(snap.SkillVariance, c.VarianceMin, c.VarianceMax),
		"skill variance %.4f outside [%.2f, %.2f]", snap.SkillVariance, c.VarianceMin, c.VarianceMax)
	check("difficulty", plan.Difficulty, h.within(plan.Difficulty, 0, 1),
		"difficulty %.4f outside [0, 1]", plan.Difficulty)

	wantDepth := flow.DepthFor(plan.Difficulty)
	check("search_depth", float64(plan.SearchDepth), plan.SearchDepth == wantDepth,
		"search depth %d, difficulty %.4f implies %d", plan.SearchDepth, plan.Difficulty, wantDepth)
	check("randomness", plan.Randomness, h.within(plan.Randomness, c.RandomnessMin, c.RandomnessMax),
		"randomness %.4f outside [%.2f, %.2f]", plan.Randomness, c.RandomnessMin, c.RandomnessMax)
	check("pacing_ms", float64(plan.PacingMs), plan.PacingMs >= c.PacingMinMs && plan.PacingMs <= c.PacingMaxMs,
		"pacing %dms outside [%d, %d]", plan.PacingMs, c.PacingMinMs, c.PacingMaxMs)
	check("assist", plan.Assist, h.within(plan.Assist, 0, 1) && assistFlagsAgree(plan),
		"assist %.4f inconsistent with mode %s", plan.Assist, plan.AssistMode)
	check("bias", diag.Flow.Bias, math.Abs(diag.Flow.Bias) <= c.BiasLimit+c.Tolerance,
		"bias %.4f exceeds ±%.2f", diag.Flow.Bias, c.BiasLimit)

	metrics = append(metrics, EvalMetric{
		Name:  metricFatigue,
		Value: snap.Fatigue,
		Pass:  snap.Fatigue <= c.FatigueWarn,
	})

	reason := "all checks passed"
	if len(failReasons) > 0 {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  len(failReasons) == 0,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region helpers
func (h *EvalHarness) within(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo-h.config.Tolerance && v <= hi+h.config.Tolerance
}

func countNonFinite(vs ...float64) int {
	n := 0
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			n++
		}
	}
	return n
}

func assistFlagsAgree(p flow.Plan) bool {
	return p.AssistMode == flow.ModeFor(p.Assist) &&
		p.ShowHighlights == (p.Assist >= 0.32) &&
		p.ShowAttackHints == (p.Assist >= 0.55)
}

// #endregion helpers
