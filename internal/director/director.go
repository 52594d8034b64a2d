package director

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/adaptive-director/internal/beat"
	"github.com/danielpatrickdp/adaptive-director/internal/flow"
	"github.com/danielpatrickdp/adaptive-director/internal/opponent"
	"github.com/danielpatrickdp/adaptive-director/internal/player"
	"github.com/danielpatrickdp/adaptive-director/internal/sampler"
	"github.com/danielpatrickdp/adaptive-director/internal/signals"
)

// pickSeedSalt separates the opponent's random stream from the scheduler's.
const pickSeedSalt = 0x5bd1e995

// #region director
// Director owns one session: a player model, a beat scheduler, a flow
// controller and their random streams. It is not safe for concurrent use;
// callers serialize events per session.
type Director struct {
	config Config
	log    zerolog.Logger

	model *player.Model
	sched *beat.Scheduler
	ctrl  *flow.Controller

	beatRng *sampler.Rand
	pickRng *sampler.Rand

	beat beat.Beat
	plan flow.Plan
}

// Option customizes a Director.
type Option func(*Director)

// WithLogger routes session events to l.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Director) { d.log = l }
}

// New starts a fresh session.
func New(config Config, opts ...Option) *Director {
	config = config.Normalize()
	d := &Director{
		config:  config,
		log:     zerolog.Nop(),
		model:   player.New(config.playerConfig()),
		beatRng: sampler.New(config.Seed),
		pickRng: sampler.New(config.Seed ^ pickSeedSalt),
	}
	for _, opt := range opts {
		opt(d)
	}
	snap := d.model.Snapshot()
	d.sched = beat.NewScheduler(config.beatConfig(), d.beatRng)
	d.ctrl = flow.NewController(config.flowConfig(), snap.Flow, snap.Engagement)
	d.beat = d.sched.LastBeat()
	d.plan = d.ctrl.Compute(snap, d.beat)
	return d
}

// Restore rebuilds a session from exported state without recomputing
// anything, so it continues exactly where Export left off.
func Restore(config Config, st State, opts ...Option) (*Director, error) {
	if st.Version != StateVersion {
		return nil, fmt.Errorf("restore version %d: %w", st.Version, ErrStateVersion)
	}
	config = config.Normalize()
	d := &Director{
		config:  config,
		log:     zerolog.Nop(),
		model:   player.Restore(config.playerConfig(), st.Player),
		beatRng: sampler.FromState(st.BeatRng),
		pickRng: sampler.FromState(st.PickRng),
		beat:    st.Beat,
		plan:    st.Plan,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.sched = beat.Restore(config.beatConfig(), d.beatRng, st.Scheduler)
	d.ctrl = flow.Restore(config.flowConfig(), st.Flow)
	if !d.beat.Valid() {
		d.beat = d.sched.LastBeat()
	}
	return d, nil
}

// #endregion director

// #region events
// ObserveTurn records a completed player turn and recomputes the plan.
func (d *Director) ObserveTurn(summary signals.TurnSummary) flow.Plan {
	d.model.ObserveTurn(summary)
	snap := d.model.Snapshot()
	d.plan = d.ctrl.Compute(snap, d.beat)

	d.log.Debug().
		Int("turn", snap.Turns).
		Float64("turn_ms", summary.TurnMs).
		Float64("fatigue", snap.Fatigue).
		Float64("difficulty", d.plan.Difficulty).
		Msg("turn observed")
	return d.plan
}

// ObserveGame records a completed match: it rewards the beat that was in
// play, picks the next beat and recomputes the plan.
func (d *Director) ObserveGame(result player.GameResult) Outcome {
	prev := d.beat
	d.model.ObserveGame(result)
	snap := d.model.Snapshot()

	improved := d.ctrl.NoteOutcome(snap)
	d.sched.Learn(prev, improved)
	choice := d.sched.Choose(snap)
	d.beat = choice.Beat
	d.plan = d.ctrl.Compute(snap, d.beat)

	ev := d.log.Debug()
	if prev != d.beat {
		ev = d.log.Info()
	}
	ev.Int("game", snap.Games).
		Bool("won", result.PlayerWon).
		Str("prev_beat", string(prev)).
		Str("beat", string(d.beat)).
		Bool("improved", improved).
		Bool("override", choice.Override).
		Float64("skill", snap.Skill).
		Float64("fatigue", snap.Fatigue).
		Msg("game observed")

	return Outcome{
		PrevBeat: prev,
		Beat:     d.beat,
		Improved: improved,
		Override: choice.Override,
		Plan:     d.plan,
	}
}

// #endregion events

// #region queries
// Recommend returns the current plan and the estimates behind it.
func (d *Director) Recommend() Recommendation {
	return Recommendation{Plan: d.plan, Snapshot: d.model.Snapshot()}
}

// Config returns the normalized session configuration.
func (d *Director) Config() Config { return d.config }

// Snapshot returns the full diagnostic view.
func (d *Director) Snapshot() Diagnostics {
	diag := Diagnostics{
		Player: d.model.Snapshot(),
		Beat:   d.beat,
		Plan:   d.plan,
		Arms:   make([]ArmDiagnostics, 0, len(beat.Order)),
		Flow:   d.ctrl.State(),
	}
	for _, b := range beat.Order {
		arm := d.sched.Arm(b)
		a, bb := arm.Counts()
		diag.Arms = append(diag.Arms, ArmDiagnostics{
			Beat:     b,
			A:        a,
			B:        bb,
			Mean:     arm.Mean(),
			Cooldown: d.sched.Cooldown(b),
		})
	}
	return diag
}

// Export captures the session for persistence.
func (d *Director) Export() State {
	return State{
		Version:   StateVersion,
		Player:    d.model.State(),
		Scheduler: d.sched.State(),
		Flow:      d.ctrl.State(),
		Beat:      d.beat,
		Plan:      d.plan,
		BeatRng:   d.beatRng.State(),
		PickRng:   d.pickRng.State(),
	}
}

// #endregion queries

// #region opponent
// PickAction chooses the opponent's next action under the current plan.
// ok is false when the opponent has no legal action.
func PickAction[S, A any](d *Director, g opponent.Game[S, A], state S) (opponent.Choice[A], bool) {
	knobs := opponent.KnobsFrom(d.plan, d.config.LookaheadDiscount, d.config.PickScoreScale)
	return opponent.Pick(g, state, knobs, d.pickRng)
}

// #endregion opponent
