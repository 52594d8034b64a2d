package signals

import (
	"math"

	"github.com/danielpatrickdp/adaptive-director/internal/estimator"
)

// #region producer

// Producer derives per-turn signals against a fixed target configuration.
type Producer struct {
	config Config
}

// NewProducer creates a Producer. Non-positive targets fall back to defaults.
func NewProducer(config Config) *Producer {
	def := DefaultConfig()
	if !(config.TurnTimeTargetMs > 0) {
		config.TurnTimeTargetMs = def.TurnTimeTargetMs
	}
	if !(config.ActionsPerTurnTarget > 0) {
		config.ActionsPerTurnTarget = def.ActionsPerTurnTarget
	}
	return &Producer{config: config}
}

// Config returns the effective targets.
func (p *Producer) Config() Config { return p.config }

// #endregion producer

// #region produce

// Produce clamps the summary and derives the signals that need no history.
func (p *Producer) Produce(s TurnSummary) Turn {
	turnMs := s.TurnMs
	// zero or negative means the client did not time the turn
	if !(turnMs > 0) || math.IsInf(turnMs, 0) {
		turnMs = p.config.TurnTimeTargetMs
	}
	turnMs = estimator.Clamp(turnMs, MinTurnMs, MaxTurnMs)
	actions := clampInt(s.ActionsTaken, 0, MaxActions)
	mistakes := clampInt(s.Mistakes, 0, MaxMistakes)

	tpa := turnMs
	if actions > 0 {
		tpa = turnMs / float64(actions)
	}
	targetPerAction := p.config.TurnTimeTargetMs / p.config.ActionsPerTurnTarget

	return Turn{
		TurnMs:        turnMs,
		Actions:       actions,
		Mistakes:      mistakes,
		TimePerAction: tpa,
		Hesitation:    estimator.Clamp((tpa-targetPerAction)/hesitationScaleMs, -1, 1),
		ErrorRate:     errorRate(actions, mistakes),
	}
}

// #endregion produce

// #region history-signals

// Volatility maps a turn-time z-score onto [0, 1].
func Volatility(z float64) float64 {
	return estimator.Clamp(math.Abs(z)/3, 0, 1)
}

// SlowdownRatio is the relative overshoot of the smoothed turn time, in [-0.5, 1.5].
func (p *Producer) SlowdownRatio(turnTimeEma float64) float64 {
	target := p.config.TurnTimeTargetMs
	return estimator.Clamp((turnTimeEma-target)/target, -0.5, 1.5)
}

// FatigueLift combines slowdown and erratic pacing into a [0, 1] fatigue sample.
func (p *Producer) FatigueLift(turnTimeEma, volatility float64) float64 {
	slow := p.SlowdownRatio(turnTimeEma)
	return estimator.Clamp(0.35*math.Max(0, slow)+0.12*math.Max(0, volatility-0.35), 0, 1)
}

// #endregion history-signals

// #region helpers

func errorRate(actions, mistakes int) float64 {
	if actions > 0 {
		return estimator.Clamp(float64(mistakes)/float64(actions), 0, 1)
	}
	if mistakes > 0 {
		return 1
	}
	return 0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// #endregion helpers
