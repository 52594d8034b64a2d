package opponent

import (
	"math"

	"github.com/danielpatrickdp/adaptive-director/internal/flow"
	"github.com/danielpatrickdp/adaptive-director/internal/sampler"
)

// #region game
// Side identifies who acts in a game state.
type Side int

const (
	Bot Side = iota
	Human
)

// Game is the rules-layer contract the selector needs: an enumerable,
// scorable action space. S is the game state and A an action.
type Game[S, A any] interface {
	// Actions lists the legal actions for side in state.
	Actions(state S, side Side) []A
	// Apply returns the state after action; it must not mutate state.
	Apply(state S, action A) S
	// Heuristic scores a bot action by its immediate merit.
	Heuristic(state S, action A) float64
	// Value scores a state from the bot's point of view.
	Value(state S) float64
}

// #endregion game

// #region knobs
const (
	// DefaultDiscount weights the lookahead term against the immediate score.
	DefaultDiscount = 0.55
	// DefaultScoreScale is the smallest score magnitude the randomness
	// margin is measured against, so near-zero scores still get a window.
	DefaultScoreScale = 1.0
)

// Knobs are the parts of a plan the selector consumes.
type Knobs struct {
	SearchDepth int
	Randomness  float64
	Discount    float64
	ScoreScale  float64
}

// KnobsFrom extracts selector knobs from a plan.
func KnobsFrom(plan flow.Plan, discount, scoreScale float64) Knobs {
	return Knobs{
		SearchDepth: plan.SearchDepth,
		Randomness:  plan.Randomness,
		Discount:    discount,
		ScoreScale:  scoreScale,
	}
}

// margin is how far below the best score an action may fall and still be
// sampled. It depends on the best score only, never on the worst action.
func (k Knobs) margin(best float64) float64 {
	scale := k.ScoreScale
	if !(scale > 0) {
		scale = DefaultScoreScale
	}
	return k.Randomness * math.Max(math.Abs(best), scale)
}

// Choice is the selected action with how it was chosen.
type Choice[A any] struct {
	Action     A
	Score      float64
	Index      int // position in the enumerated action list
	Considered int // legal actions scored
	Window     int // actions within the randomness margin
}

// #endregion knobs

// #region pick
// Pick scores every legal bot action and samples one from the window of
// near-best actions. ok is false when the bot has no legal action, which is
// a normal pass, not an error.
func Pick[S, A any](g Game[S, A], state S, knobs Knobs, rng *sampler.Rand) (choice Choice[A], ok bool) {
	actions := g.Actions(state, Bot)
	if len(actions) == 0 {
		return Choice[A]{}, false
	}

	scores := make([]float64, len(actions))
	best := math.Inf(-1)
	bestIdx := 0
	for i, a := range actions {
		s := score(g, state, a, knobs)
		scores[i] = s
		if s > best {
			best, bestIdx = s, i
		}
	}

	if !(knobs.Randomness > 0) || rng == nil {
		return Choice[A]{Action: actions[bestIdx], Score: best, Index: bestIdx, Considered: len(actions), Window: 1}, true
	}

	// ties with the best always fall inside the window
	margin := knobs.margin(best)
	window := make([]int, 0, len(actions))
	for i, s := range scores {
		if s >= best-margin {
			window = append(window, i)
		}
	}
	pick := window[rng.Intn(len(window))]
	return Choice[A]{
		Action:     actions[pick],
		Score:      scores[pick],
		Index:      pick,
		Considered: len(actions),
		Window:     len(window),
	}, true
}

// score combines the immediate heuristic with a one-ply lookahead at depth 2.
// The lookahead term is min(afterOwn, bestReply): the value after our move,
// discounted by the human's most damaging reply. With no replies it is afterOwn.
func score[S, A any](g Game[S, A], state S, action A, knobs Knobs) float64 {
	immediate := finite(g.Heuristic(state, action))
	if knobs.SearchDepth < 2 {
		return immediate
	}

	next := g.Apply(state, action)
	afterOwn := finite(g.Value(next))
	future := afterOwn
	if replies := g.Actions(next, Human); len(replies) > 0 {
		bestReply := math.Inf(1)
		for _, r := range replies {
			bestReply = math.Min(bestReply, finite(g.Value(g.Apply(next, r))))
		}
		future = afterOwn - math.Max(0, afterOwn-bestReply)
	}
	return immediate + knobs.Discount*future
}

// finite maps NaN and infinities onto the float64 range so one bad rules
// callback cannot poison the comparison.
func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return -math.MaxFloat64 / 4
	case math.IsInf(v, 1):
		return math.MaxFloat64 / 4
	case math.IsInf(v, -1):
		return -math.MaxFloat64 / 4
	}
	return v
}

// #endregion pick
