package flow

import (
	"math"

	"github.com/danielpatrickdp/adaptive-director/internal/beat"
	"github.com/danielpatrickdp/adaptive-director/internal/estimator"
	"github.com/danielpatrickdp/adaptive-director/internal/player"
)

// #region controller
// Controller maps the player model and current beat onto concrete knobs.
type Controller struct {
	config Config

	bias       float64
	difficulty estimator.EMA
	pacing     estimator.EMA
	assist     estimator.EMA

	lastFlow       float64
	lastEngagement float64
}

// NewController creates a controller. lastFlow and lastEngagement seed the
// improvement baseline, usually the player model's priors.
func NewController(config Config, lastFlow, lastEngagement float64) *Controller {
	return &Controller{
		config:         config,
		difficulty:     estimator.NewEMA(config.DifficultyAlpha),
		pacing:         estimator.NewEMA(config.PacingAlpha),
		assist:         estimator.NewEMA(config.AssistAlpha),
		lastFlow:       lastFlow,
		lastEngagement: lastEngagement,
	}
}

// Restore rebuilds a controller from exported state.
func Restore(config Config, st State) *Controller {
	return &Controller{
		config:         config,
		bias:           estimator.Clamp(st.Bias, -BiasLimit, BiasLimit),
		difficulty:     estimator.EMAFromState(st.Difficulty),
		pacing:         estimator.EMAFromState(st.Pacing),
		assist:         estimator.EMAFromState(st.Assist),
		lastFlow:       st.LastFlow,
		lastEngagement: st.LastEngagement,
	}
}

// #endregion controller

// #region compute
// Compute produces the plan for the current turn. Difficulty, pacing and
// assist are smoothed, and the win-rate bias drifts one step afterwards.
func (c *Controller) Compute(snap player.Snapshot, b beat.Beat) Plan {
	diff := c.difficulty.Push(RawDifficulty(c.config, snap, b, c.bias))
	pace := c.pacing.Push(RawPacing(c.config, snap, b))
	assist := c.assist.Push(RawAssist(c.config, snap, b))

	gap := snap.WinRate - c.config.TargetWinRate
	c.bias = estimator.Clamp(c.bias+estimator.Clamp(gap*0.03, -BiasStep, BiasStep), -BiasLimit, BiasLimit)

	return Plan{
		Difficulty:      diff,
		SearchDepth:     DepthFor(diff),
		Randomness:      RandomnessFor(diff),
		PacingMs:        int(math.Round(pace)),
		Assist:          assist,
		AssistMode:      ModeFor(assist),
		ShowHighlights:  assist >= assistLowAt,
		ShowAttackHints: assist >= assistAutoAt,
		Beat:            b,
	}
}

// NoteOutcome reports whether flow plus engagement rose by more than the
// improvement margin since the last call, and records the new baseline.
func (c *Controller) NoteOutcome(snap player.Snapshot) bool {
	now := snap.Flow + snap.Engagement
	improved := now > c.lastFlow+c.lastEngagement+c.config.ImprovementMargin
	c.lastFlow = snap.Flow
	c.lastEngagement = snap.Engagement
	return improved
}

// #endregion compute

// #region knobs

// beatDifficulty is the additive difficulty shift per beat.
var beatDifficulty = map[beat.Beat]float64{
	beat.Recovery:  -0.16,
	beat.Training:  -0.08,
	beat.Challenge: +0.10,
	beat.Novelty:   +0.04,
}

var beatPacingMs = map[beat.Beat]float64{
	beat.Recovery:  +120,
	beat.Challenge: -70,
}

var beatAssist = map[beat.Beat]float64{
	beat.Recovery:  +0.10,
	beat.Training:  +0.06,
	beat.Challenge: -0.08,
}

// RawDifficulty is the unsmoothed difficulty for snap under b with the given bias.
func RawDifficulty(cfg Config, snap player.Snapshot, b beat.Beat, bias float64) float64 {
	d := estimator.Clamp(snap.SkillTrend, 0.10, 0.90)
	d += (snap.WinRate - cfg.TargetWinRate) * 0.35
	d -= snap.Fatigue * 0.18
	d -= math.Max(0, snap.ErrorRate-cfg.ErrorRateTarget) * 0.30
	d -= math.Max(0, snap.Hesitation) * 0.06
	d += beatDifficulty[b]
	d += bias
	return estimator.Clamp(d, DifficultyMin, DifficultyMax)
}

// RawPacing is the unsmoothed opponent think time in milliseconds.
func RawPacing(cfg Config, snap player.Snapshot, b beat.Beat) float64 {
	p := cfg.BaseOpponentDelayMs
	p += snap.Fatigue * 240
	p -= math.Max(0, snap.WinRate-cfg.TargetWinRate) * 300
	p += beatPacingMs[b]
	return estimator.Clamp(p, PacingMinMs, PacingMaxMs)
}

// RawAssist is the unsmoothed assist score.
func RawAssist(cfg Config, snap player.Snapshot, b beat.Beat) float64 {
	a := 0.45
	a += estimator.Clamp(snap.Fatigue, 0, 1) * 0.35
	a += math.Max(0, snap.ErrorRate-cfg.ErrorRateTarget) * 0.8
	a -= math.Max(0, snap.Skill-0.6) * 0.5
	a += beatAssist[b]
	return estimator.Clamp(a, AssistMin, AssistMax)
}

// DepthFor maps difficulty onto lookahead depth.
func DepthFor(difficulty float64) int {
	if difficulty >= DeepSearchAt {
		return 2
	}
	return 1
}

// RandomnessFor maps difficulty onto move-choice randomness; harder is less random.
func RandomnessFor(difficulty float64) float64 {
	return estimator.Clamp(0.60-difficulty*0.52, RandomnessMin, RandomnessMax)
}

// #endregion knobs

// #region read
// Bias is the current win-rate correction term.
func (c *Controller) Bias() float64 { return c.bias }

// State exports the controller for persistence.
func (c *Controller) State() State {
	return State{
		Bias:           c.bias,
		Difficulty:     c.difficulty.State(),
		Pacing:         c.pacing.State(),
		Assist:         c.assist.State(),
		LastFlow:       c.lastFlow,
		LastEngagement: c.lastEngagement,
	}
}

// #endregion read
