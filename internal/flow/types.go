package flow

import (
	"github.com/danielpatrickdp/adaptive-director/internal/beat"
	"github.com/danielpatrickdp/adaptive-director/internal/estimator"
)

// #region bounds
const (
	DifficultyMin = 0.10
	DifficultyMax = 0.95
	DeepSearchAt  = 0.62 // difficulty at and above which search depth is 2
	RandomnessMin = 0.10
	RandomnessMax = 0.60
	PacingMinMs   = 260
	PacingMaxMs   = 1100
	AssistMin     = 0.10
	AssistMax     = 0.95
	BiasLimit     = 0.18
	BiasStep      = 0.02
)

// #endregion bounds

// #region assist-mode
// AssistMode is the discrete assist level shown to the player.
type AssistMode string

const (
	AssistOff  AssistMode = "off"
	AssistLow  AssistMode = "low"
	AssistAuto AssistMode = "auto"
	AssistHigh AssistMode = "high"
)

// Assist thresholds, highest first.
const (
	assistHighAt = 0.78
	assistAutoAt = 0.55
	assistLowAt  = 0.32
)

// ModeFor maps an assist score onto its discrete mode.
func ModeFor(assist float64) AssistMode {
	switch {
	case assist >= assistHighAt:
		return AssistHigh
	case assist >= assistAutoAt:
		return AssistAuto
	case assist >= assistLowAt:
		return AssistLow
	default:
		return AssistOff
	}
}

// #endregion assist-mode

// #region plan
// Plan is the tuning snapshot consumed by the host and the opponent until
// the next recomputation.
type Plan struct {
	Difficulty      float64    `json:"difficulty"`
	SearchDepth     int        `json:"search_depth"`
	Randomness      float64    `json:"randomness"`
	PacingMs        int        `json:"pacing_ms"`
	Assist          float64    `json:"assist"`
	AssistMode      AssistMode `json:"assist_mode"`
	ShowHighlights  bool       `json:"show_highlights"`
	ShowAttackHints bool       `json:"show_attack_hints"`
	Beat            beat.Beat  `json:"beat"`
}

// #endregion plan

// #region config
// Config holds the targets and smoothing used by the controller.
type Config struct {
	TargetWinRate       float64
	ErrorRateTarget     float64
	BaseOpponentDelayMs float64
	DifficultyAlpha     float64
	PacingAlpha         float64
	AssistAlpha         float64
	ImprovementMargin   float64 // flow+engagement must beat the last value by this much
}

// DefaultConfig returns the stock controller settings.
func DefaultConfig() Config {
	return Config{
		TargetWinRate:       0.58,
		ErrorRateTarget:     0.18,
		BaseOpponentDelayMs: 650,
		DifficultyAlpha:     0.35,
		PacingAlpha:         0.30,
		AssistAlpha:         0.30,
		ImprovementMargin:   0.02,
	}
}

// #endregion config

// #region state
// State is the serializable form of a Controller.
type State struct {
	Bias           float64            `json:"bias"`
	Difficulty     estimator.EMAState `json:"difficulty"`
	Pacing         estimator.EMAState `json:"pacing"`
	Assist         estimator.EMAState `json:"assist"`
	LastFlow       float64            `json:"last_flow"`
	LastEngagement float64            `json:"last_engagement"`
}

// #endregion state
