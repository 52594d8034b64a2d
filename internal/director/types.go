package director

import (
	"errors"

	"github.com/danielpatrickdp/adaptive-director/internal/beat"
	"github.com/danielpatrickdp/adaptive-director/internal/estimator"
	"github.com/danielpatrickdp/adaptive-director/internal/flow"
	"github.com/danielpatrickdp/adaptive-director/internal/opponent"
	"github.com/danielpatrickdp/adaptive-director/internal/player"
)

// StateVersion is the current serialized state format.
const StateVersion = 1

// ErrStateVersion is returned when restoring state written by another format.
var ErrStateVersion = errors.New("unsupported director state version")

// #region config
// Config enumerates every tunable of a director session.
type Config struct {
	TargetWinRate        float64 `json:"target_win_rate" yaml:"target_win_rate"`
	ErrorRateTarget      float64 `json:"error_rate_target" yaml:"error_rate_target"`
	TurnTimeTargetMs     float64 `json:"turn_time_target_ms" yaml:"turn_time_target_ms"`
	ActionsPerTurnTarget float64 `json:"actions_per_turn_target" yaml:"actions_per_turn_target"`
	BaseOpponentDelayMs  float64 `json:"base_opponent_delay_ms" yaml:"base_opponent_delay_ms"`
	SkillInitial         float64 `json:"skill_initial" yaml:"skill_initial"`
	SkillVarianceInitial float64 `json:"skill_variance_initial" yaml:"skill_variance_initial"`
	Seed                 int64   `json:"seed" yaml:"seed"`
	LookaheadDiscount    float64 `json:"lookahead_discount" yaml:"lookahead_discount"`
	PickScoreScale       float64 `json:"pick_score_scale" yaml:"pick_score_scale"`
}

// DefaultConfig returns the stock session configuration.
func DefaultConfig() Config {
	return Config{
		TargetWinRate:        0.58,
		ErrorRateTarget:      0.18,
		TurnTimeTargetMs:     7000,
		ActionsPerTurnTarget: 3,
		BaseOpponentDelayMs:  650,
		SkillInitial:         0.50,
		SkillVarianceInitial: 0.25,
		Seed:                 42,
		LookaheadDiscount:    opponent.DefaultDiscount,
		PickScoreScale:       opponent.DefaultScoreScale,
	}
}

// Normalize replaces missing or out-of-range values with usable ones.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if !(c.TargetWinRate > 0 && c.TargetWinRate < 1) {
		c.TargetWinRate = def.TargetWinRate
	}
	if !(c.ErrorRateTarget > 0 && c.ErrorRateTarget < 1) {
		c.ErrorRateTarget = def.ErrorRateTarget
	}
	if !(c.TurnTimeTargetMs > 0) {
		c.TurnTimeTargetMs = def.TurnTimeTargetMs
	}
	if !(c.ActionsPerTurnTarget > 0) {
		c.ActionsPerTurnTarget = def.ActionsPerTurnTarget
	}
	if !(c.BaseOpponentDelayMs > 0) {
		c.BaseOpponentDelayMs = def.BaseOpponentDelayMs
	}
	c.BaseOpponentDelayMs = estimator.Clamp(c.BaseOpponentDelayMs, flow.PacingMinMs, flow.PacingMaxMs)
	if !(c.SkillInitial > 0) {
		c.SkillInitial = def.SkillInitial
	}
	c.SkillInitial = estimator.Clamp(c.SkillInitial, player.SkillMin, player.SkillMax)
	if !(c.SkillVarianceInitial > 0) {
		c.SkillVarianceInitial = def.SkillVarianceInitial
	}
	c.SkillVarianceInitial = estimator.Clamp(c.SkillVarianceInitial, player.SkillVarianceMin, player.SkillVarianceMax)
	if !(c.LookaheadDiscount >= 0) {
		c.LookaheadDiscount = def.LookaheadDiscount
	}
	if !(c.PickScoreScale > 0) {
		c.PickScoreScale = def.PickScoreScale
	}
	return c
}

func (c Config) playerConfig() player.Config {
	return player.Config{
		TargetWinRate:        c.TargetWinRate,
		ErrorRateTarget:      c.ErrorRateTarget,
		TurnTimeTargetMs:     c.TurnTimeTargetMs,
		ActionsPerTurnTarget: c.ActionsPerTurnTarget,
		SkillInitial:         c.SkillInitial,
		SkillVarianceInitial: c.SkillVarianceInitial,
	}
}

func (c Config) beatConfig() beat.Config {
	bc := beat.DefaultConfig()
	bc.TargetWinRate = c.TargetWinRate
	bc.ErrorRateTarget = c.ErrorRateTarget
	return bc
}

func (c Config) flowConfig() flow.Config {
	fc := flow.DefaultConfig()
	fc.TargetWinRate = c.TargetWinRate
	fc.ErrorRateTarget = c.ErrorRateTarget
	fc.BaseOpponentDelayMs = c.BaseOpponentDelayMs
	return fc
}

// #endregion config

// #region outputs
// Recommendation is the current tuning together with the estimates behind it.
type Recommendation struct {
	Plan     flow.Plan       `json:"plan"`
	Snapshot player.Snapshot `json:"snapshot"`
}

// Outcome reports what a completed game changed.
type Outcome struct {
	PrevBeat beat.Beat `json:"prev_beat"`
	Beat     beat.Beat `json:"beat"`
	Improved bool      `json:"improved"`
	Override bool      `json:"override"`
	Plan     flow.Plan `json:"plan"`
}

// ArmDiagnostics describes one bandit arm.
type ArmDiagnostics struct {
	Beat     beat.Beat `json:"beat"`
	A        float64   `json:"a"`
	B        float64   `json:"b"`
	Mean     float64   `json:"mean"`
	Cooldown int       `json:"cooldown"`
}

// Diagnostics is the full debug view of a session.
type Diagnostics struct {
	Player player.Snapshot  `json:"player"`
	Beat   beat.Beat        `json:"beat"`
	Plan   flow.Plan        `json:"plan"`
	Arms   []ArmDiagnostics `json:"arms"`
	Flow   flow.State       `json:"flow"`
}

// #endregion outputs

// #region state
// State is the flat JSON form of a whole session.
type State struct {
	Version   int          `json:"version"`
	Player    player.State `json:"player"`
	Scheduler beat.State   `json:"scheduler"`
	Flow      flow.State   `json:"flow"`
	Beat      beat.Beat    `json:"beat"`
	Plan      flow.Plan    `json:"plan"`
	BeatRng   uint32       `json:"beat_rng"`
	PickRng   uint32       `json:"pick_rng"`
}

// #endregion state
