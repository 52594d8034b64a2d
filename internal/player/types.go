package player

import (
	"github.com/danielpatrickdp/adaptive-director/internal/estimator"
	"github.com/danielpatrickdp/adaptive-director/internal/signals"
)

// #region bounds
const (
	SkillMin         = 0.02
	SkillMax         = 0.98
	SkillVarianceMin = 0.05
	SkillVarianceMax = 0.35
)

// Smoothing factors per signal.
const (
	alphaSkillTrend = 0.15
	alphaWinRate    = 0.12
	alphaErrorRate  = 0.10
	alphaTurnTime   = 0.10
	alphaHesitation = 0.10
	alphaVolatility = 0.12
	alphaFatigue    = 0.10
	alphaEngagement = 0.10
	alphaFlow       = 0.10
)

// #endregion bounds

// #region config
// Config holds the targets and priors of a player model.
type Config struct {
	TargetWinRate        float64
	ErrorRateTarget      float64
	TurnTimeTargetMs     float64
	ActionsPerTurnTarget float64
	SkillInitial         float64
	SkillVarianceInitial float64
}

// DefaultConfig returns the stock targets and priors.
func DefaultConfig() Config {
	return Config{
		TargetWinRate:        0.58,
		ErrorRateTarget:      0.18,
		TurnTimeTargetMs:     7000,
		ActionsPerTurnTarget: 3,
		SkillInitial:         0.50,
		SkillVarianceInitial: 0.25,
	}
}

func (c Config) signalsConfig() signals.Config {
	return signals.Config{
		TurnTimeTargetMs:     c.TurnTimeTargetMs,
		ActionsPerTurnTarget: c.ActionsPerTurnTarget,
	}
}

// #endregion config

// #region inputs
// GameResult is what the host reports after a match.
type GameResult struct {
	PlayerWon bool `json:"player_won"`
	CloseGame bool `json:"close_game"`
	Comeback  bool `json:"comeback"`
}

// #endregion inputs

// #region snapshot
// Snapshot is a read-only view of every estimate the model holds.
type Snapshot struct {
	Skill         float64 `json:"skill"`
	SkillVariance float64 `json:"skill_variance"`
	SkillTrend    float64 `json:"skill_trend"`
	WinRate       float64 `json:"win_rate"`
	ErrorRate     float64 `json:"error_rate"`
	TurnTimeMs    float64 `json:"turn_time_ms"`
	Hesitation    float64 `json:"hesitation"`
	Volatility    float64 `json:"volatility"`
	Fatigue       float64 `json:"fatigue"`
	Engagement    float64 `json:"engagement"`
	Flow          float64 `json:"flow"`
	Streak        int     `json:"streak"`
	Games         int     `json:"games"`
	Turns         int     `json:"turns"`

	TurnTimeMean   float64 `json:"turn_time_mean"`
	TurnTimeStdDev float64 `json:"turn_time_stddev"`
	TurnTimeMin    float64 `json:"turn_time_min"`
	TurnTimeMax    float64 `json:"turn_time_max"`
}

// #endregion snapshot

// #region state
// State is the flat, JSON-serializable form of a Model.
type State struct {
	Skill         float64                `json:"skill"`
	SkillVariance float64                `json:"skill_variance"`
	SkillTrend    estimator.EMAState     `json:"skill_trend"`
	WinRate       estimator.EMAState     `json:"win_rate"`
	ErrorRate     estimator.EMAState     `json:"error_rate"`
	TurnTime      estimator.EMAState     `json:"turn_time"`
	TurnStats     estimator.RunningState `json:"turn_stats"`
	Hesitation    estimator.EMAState     `json:"hesitation"`
	Volatility    estimator.EMAState     `json:"volatility"`
	Fatigue       estimator.EMAState     `json:"fatigue"`
	Engagement    estimator.EMAState     `json:"engagement"`
	Flow          estimator.EMAState     `json:"flow"`
	Streak        int                    `json:"streak"`
	Games         int                    `json:"games"`
	Turns         int                    `json:"turns"`
}

// #endregion state
