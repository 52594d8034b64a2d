package eval

import (
	"github.com/danielpatrickdp/adaptive-director/internal/beat"
	"github.com/danielpatrickdp/adaptive-director/internal/flow"
	"github.com/danielpatrickdp/adaptive-director/internal/player"
)

// #region eval-config
// EvalConfig holds the bounds a healthy session must stay within.
type EvalConfig struct {
	SkillMin, SkillMax       float64
	VarianceMin, VarianceMax float64
	RandomnessMin            float64
	RandomnessMax            float64
	PacingMinMs, PacingMaxMs int
	BiasLimit                float64
	FatigueWarn              float64 // informational only
	Tolerance                float64
}

// DefaultEvalConfig mirrors the clamps the director applies.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		SkillMin:      player.SkillMin,
		SkillMax:      player.SkillMax,
		VarianceMin:   player.SkillVarianceMin,
		VarianceMax:   player.SkillVarianceMax,
		RandomnessMin: flow.RandomnessMin,
		RandomnessMax: flow.RandomnessMax,
		PacingMinMs:   flow.PacingMinMs,
		PacingMaxMs:   flow.PacingMaxMs,
		BiasLimit:     flow.BiasLimit,
		FatigueWarn:   beat.DefaultConfig().FatigueOverride,
		Tolerance:     1e-9,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the outcome of checking one session snapshot.
type EvalResult struct {
	Passed  bool         `json:"passed"`
	Metrics []EvalMetric `json:"metrics"`
	Reason  string       `json:"reason"`
}

// Failed lists the names of blocking checks that did not pass.
func (r EvalResult) Failed() []string {
	var names []string
	for _, m := range r.Metrics {
		if !m.Pass && m.Name != metricFatigue {
			names = append(names, m.Name)
		}
	}
	return names
}

// #endregion eval-result
