package player

import (
	"math"

	"github.com/danielpatrickdp/adaptive-director/internal/estimator"
	"github.com/danielpatrickdp/adaptive-director/internal/signals"
)

// #region model
// Model estimates skill, engagement, fatigue and flow from observed play.
type Model struct {
	config   Config
	producer *signals.Producer

	skill         float64
	skillVariance float64

	skillTrend estimator.EMA
	winRate    estimator.EMA
	errorRate  estimator.EMA
	turnTime   estimator.EMA
	turnStats  estimator.RunningStats
	hesitation estimator.EMA
	volatility estimator.EMA
	fatigue    estimator.EMA
	engagement estimator.EMA
	flow       estimator.EMA

	streak int
	games  int
	turns  int
}

// New creates a model seeded with the configured priors.
func New(config Config) *Model {
	m := &Model{
		config:        config,
		producer:      signals.NewProducer(config.signalsConfig()),
		skill:         estimator.Clamp(config.SkillInitial, SkillMin, SkillMax),
		skillVariance: estimator.Clamp(config.SkillVarianceInitial, SkillVarianceMin, SkillVarianceMax),
		winRate:       estimator.NewSeededEMA(alphaWinRate, 0.5),
		errorRate:     estimator.NewSeededEMA(alphaErrorRate, config.ErrorRateTarget),
		turnTime:      estimator.NewEMA(alphaTurnTime),
		hesitation:    estimator.NewSeededEMA(alphaHesitation, 0),
		volatility:    estimator.NewSeededEMA(alphaVolatility, 0),
		fatigue:       estimator.NewSeededEMA(alphaFatigue, 0),
		engagement:    estimator.NewSeededEMA(alphaEngagement, 0.5),
		flow:          estimator.NewSeededEMA(alphaFlow, 0.5),
	}
	m.skillTrend = estimator.NewSeededEMA(alphaSkillTrend, m.skill)
	return m
}

// Restore rebuilds a model from exported state.
func Restore(config Config, s State) *Model {
	return &Model{
		config:        config,
		producer:      signals.NewProducer(config.signalsConfig()),
		skill:         estimator.Clamp(s.Skill, SkillMin, SkillMax),
		skillVariance: estimator.Clamp(s.SkillVariance, SkillVarianceMin, SkillVarianceMax),
		skillTrend:    estimator.EMAFromState(s.SkillTrend),
		winRate:       estimator.EMAFromState(s.WinRate),
		errorRate:     estimator.EMAFromState(s.ErrorRate),
		turnTime:      estimator.EMAFromState(s.TurnTime),
		turnStats:     estimator.RunningFromState(s.TurnStats),
		hesitation:    estimator.EMAFromState(s.Hesitation),
		volatility:    estimator.EMAFromState(s.Volatility),
		fatigue:       estimator.EMAFromState(s.Fatigue),
		engagement:    estimator.EMAFromState(s.Engagement),
		flow:          estimator.EMAFromState(s.Flow),
		streak:        s.Streak,
		games:         max(s.Games, 0),
		turns:         max(s.Turns, 0),
	}
}

// #endregion model

// #region observe-turn
// ObserveTurn folds one completed player turn into the tempo, error and
// fatigue estimates.
func (m *Model) ObserveTurn(summary signals.TurnSummary) {
	turn := m.producer.Produce(summary)
	m.turns++

	m.turnStats.Push(turn.TurnMs)
	turnTimeEma := m.turnTime.Push(turn.TurnMs)

	m.hesitation.Push(turn.Hesitation)
	m.errorRate.Push(turn.ErrorRate)

	vol := signals.Volatility(m.turnStats.ZScore(turn.TurnMs))
	m.volatility.Push(vol)

	m.fatigue.Push(m.producer.FatigueLift(turnTimeEma, vol))
}

// #endregion observe-turn

// #region observe-game
// ObserveGame folds one completed match into win-rate, streak, skill,
// uncertainty, engagement and flow.
func (m *Model) ObserveGame(result GameResult) {
	m.games++
	reward := 0.0
	if result.PlayerWon {
		reward = 1
	}
	m.winRate.Push(reward)
	m.updateStreak(result.PlayerWon)
	m.updateSkill(reward, result)
	m.updateVariance()

	m.engagement.Push(m.engagementScore())
	m.flow.Push(m.flowScore(result.CloseGame))
}

func (m *Model) updateStreak(won bool) {
	switch {
	case won && m.streak > 0:
		m.streak++
	case won:
		m.streak = 1
	case m.streak < 0:
		m.streak--
	default:
		m.streak = -1
	}
}

func (m *Model) updateSkill(reward float64, result GameResult) {
	expected := estimator.Clamp(m.skill, 0.05, 0.95)
	errTerm := reward - expected
	lr := estimator.Clamp(0.08+m.skillVariance*0.18, 0.06, 0.22)
	closeDampen := 1.0
	if result.CloseGame {
		closeDampen = 1 - 0.35
	}
	comebackBoost := 1.0
	if result.Comeback {
		comebackBoost = 1 + 0.20
	}
	m.skill = estimator.Clamp(m.skill+lr*errTerm*closeDampen*comebackBoost, SkillMin, SkillMax)
	m.skillTrend.Push(m.skill)
}

func (m *Model) updateVariance() {
	shrink := 0.96 - 0.05*math.Min(1, float64(m.games)/20)
	inflate := 1 + 0.10*math.Max(0, m.volatility.Value()-0.30)
	m.skillVariance = estimator.Clamp(m.skillVariance*shrink*inflate, SkillVarianceMin, SkillVarianceMax)
}

// #endregion observe-game

// #region scores

// tempoFit is 1 when the smoothed turn time sits on target, 0 at double the target.
func (m *Model) tempoFit() float64 {
	target := m.config.TurnTimeTargetMs
	if target <= 0 {
		return 1
	}
	tt := m.turnTime.ValueOr(target)
	return 1 - estimator.Clamp(math.Abs(tt-target)/target, 0, 1)
}

func (m *Model) errorFit() float64 {
	return 1 - estimator.Clamp(math.Abs(m.errorRate.Value()-m.config.ErrorRateTarget)*2.5, 0, 1)
}

func (m *Model) winFit() float64 {
	return 1 - estimator.Clamp(math.Abs(m.winRate.Value()-m.config.TargetWinRate)*2.5, 0, 1)
}

func (m *Model) engagementScore() float64 {
	score := 0.35*m.tempoFit() + 0.25*m.errorFit() + 0.30*m.winFit() + 0.10
	score -= 0.30 * m.fatigue.Value()
	return estimator.Clamp(score, 0, 1)
}

func (m *Model) flowScore(closeGame bool) float64 {
	closeness := 0.0
	if closeGame {
		closeness = 1
	}
	calm := 1 - math.Max(0, m.hesitation.Value())
	score := 0.35*m.winFit() + 0.25*m.tempoFit() + 0.20*calm + 0.10*closeness + 0.10
	score -= 0.25 * m.fatigue.Value()
	return estimator.Clamp(score, 0, 1)
}

// #endregion scores

// #region read
// Snapshot returns the current estimates.
func (m *Model) Snapshot() Snapshot {
	return Snapshot{
		Skill:          m.skill,
		SkillVariance:  m.skillVariance,
		SkillTrend:     m.skillTrend.ValueOr(m.skill),
		WinRate:        m.winRate.Value(),
		ErrorRate:      m.errorRate.Value(),
		TurnTimeMs:     m.turnTime.ValueOr(m.config.TurnTimeTargetMs),
		Hesitation:     m.hesitation.Value(),
		Volatility:     m.volatility.Value(),
		Fatigue:        m.fatigue.Value(),
		Engagement:     m.engagement.Value(),
		Flow:           m.flow.Value(),
		Streak:         m.streak,
		Games:          m.games,
		Turns:          m.turns,
		TurnTimeMean:   m.turnStats.Mean(),
		TurnTimeStdDev: m.turnStats.StdDev(),
		TurnTimeMin:    m.turnStats.Min(),
		TurnTimeMax:    m.turnStats.Max(),
	}
}

// State exports the model for persistence.
func (m *Model) State() State {
	return State{
		Skill:         m.skill,
		SkillVariance: m.skillVariance,
		SkillTrend:    m.skillTrend.State(),
		WinRate:       m.winRate.State(),
		ErrorRate:     m.errorRate.State(),
		TurnTime:      m.turnTime.State(),
		TurnStats:     m.turnStats.State(),
		Hesitation:    m.hesitation.State(),
		Volatility:    m.volatility.State(),
		Fatigue:       m.fatigue.State(),
		Engagement:    m.engagement.State(),
		Flow:          m.flow.State(),
		Streak:        m.streak,
		Games:         m.games,
		Turns:         m.turns,
	}
}

// #endregion read
