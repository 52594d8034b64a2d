package opponent

import (
	"math"
	"testing"

	"github.com/danielpatrickdp/adaptive-director/internal/flow"
	"github.com/danielpatrickdp/adaptive-director/internal/sampler"
)

// #region coin-line
// coinLine: players alternately take a coin from either end of a row.
type coinLine struct {
	coins     []int
	bot       int
	human     int
	botToMove bool
}

type end int

const (
	left end = iota
	right
)

type coinGame struct{}

func (coinGame) Actions(s coinLine, _ Side) []end {
	if len(s.coins) == 0 {
		return nil
	}
	return []end{left, right}
}

func (coinGame) Apply(s coinLine, e end) coinLine {
	coin := s.coins[0]
	rest := s.coins[1:]
	if e == right {
		coin = s.coins[len(s.coins)-1]
		rest = s.coins[:len(s.coins)-1]
	}
	next := coinLine{coins: append([]int(nil), rest...), bot: s.bot, human: s.human, botToMove: !s.botToMove}
	if s.botToMove {
		next.bot += coin
	} else {
		next.human += coin
	}
	return next
}

func (coinGame) Heuristic(s coinLine, e end) float64 {
	if e == right {
		return float64(s.coins[len(s.coins)-1])
	}
	return float64(s.coins[0])
}

func (coinGame) Value(s coinLine) float64 { return float64(s.bot - s.human) }

// #endregion coin-line

// #region menu
// menu offers fixed-score actions with no follow-up.
type menu struct{ scores []float64 }

func (m menu) Actions(_ struct{}, side Side) []float64 {
	if side != Bot {
		return nil
	}
	return m.scores
}
func (menu) Apply(s struct{}, _ float64) struct{} { return s }
func (menu) Heuristic(_ struct{}, a float64) float64 { return a }
func (menu) Value(struct{}) float64 { return 0 }

// #endregion menu

func TestPick_NoLegalMoves(t *testing.T) {
	_, ok := Pick[coinLine, end](coinGame{}, coinLine{botToMove: true}, Knobs{SearchDepth: 2, Randomness: 0.5}, sampler.New(1))
	if ok {
		t.Fatal("expected no move for an empty board")
	}
	_, ok = Pick[struct{}, float64](menu{}, struct{}{}, Knobs{SearchDepth: 1}, nil)
	if ok {
		t.Fatal("expected no move for an empty menu")
	}
}

func TestPick_GreedyAtDepthOne(t *testing.T) {
	state := coinLine{coins: []int{3, 1, 50, 4}, botToMove: true}
	c, ok := Pick[coinLine, end](coinGame{}, state, Knobs{SearchDepth: 1, Discount: DefaultDiscount}, sampler.New(1))
	if !ok || c.Action != right {
		t.Fatalf("expected greedy right, got %+v ok=%v", c, ok)
	}
}

func TestPick_LookaheadAvoidsOpeningBigReply(t *testing.T) {
	state := coinLine{coins: []int{3, 1, 50, 4}, botToMove: true}
	c, ok := Pick[coinLine, end](coinGame{}, state, Knobs{SearchDepth: 2, Discount: DefaultDiscount}, sampler.New(1))
	if !ok || c.Action != left {
		t.Fatalf("expected lookahead to take left, got %+v ok=%v", c, ok)
	}
	// 3 + 0.55*min(3, 3-4)
	if math.Abs(c.Score-(3-0.55)) > 1e-9 {
		t.Fatalf("unexpected score %f", c.Score)
	}
}

func TestPick_LookaheadWithoutReplies(t *testing.T) {
	state := coinLine{coins: []int{7}, botToMove: true}
	c, ok := Pick[coinLine, end](coinGame{}, state, Knobs{SearchDepth: 2, Discount: 0.5}, nil)
	if !ok {
		t.Fatal("expected a move")
	}
	// no replies: future is the value after our own move
	if c.Score != 7+0.5*7 {
		t.Fatalf("unexpected score %f", c.Score)
	}
}

func TestPick_ZeroRandomnessIsDeterministic(t *testing.T) {
	m := menu{scores: []float64{0.2, 1, 0.9, 1}}
	rng := sampler.New(4)
	for i := 0; i < 50; i++ {
		c, _ := Pick[struct{}, float64](m, struct{}{}, Knobs{SearchDepth: 1}, rng)
		if c.Index != 1 || c.Window != 1 {
			t.Fatalf("expected first best action, got %+v", c)
		}
	}
}

func TestPick_RandomnessWindow(t *testing.T) {
	m := menu{scores: []float64{1, 0.9, 0.2}}
	rng := sampler.New(9)
	seen := map[int]int{}
	for i := 0; i < 500; i++ {
		c, ok := Pick[struct{}, float64](m, struct{}{}, Knobs{SearchDepth: 1, Randomness: 0.5}, rng)
		if !ok {
			t.Fatal("expected a move")
		}
		if c.Window != 2 {
			t.Fatalf("expected window of 2, got %d", c.Window)
		}
		seen[c.Index]++
	}
	if seen[2] != 0 {
		t.Fatalf("action outside the window was picked %d times", seen[2])
	}
	if seen[0] < 150 || seen[1] < 150 {
		t.Fatalf("expected both window actions sampled, got %v", seen)
	}
}

func TestPick_NonFiniteScoresDoNotWin(t *testing.T) {
	m := menu{scores: []float64{math.NaN(), 0.3, math.Inf(-1)}}
	c, ok := Pick[struct{}, float64](m, struct{}{}, Knobs{SearchDepth: 1}, nil)
	if !ok || c.Index != 1 {
		t.Fatalf("expected the finite action, got %+v", c)
	}
}

func TestPick_TiedActionsAreSampled(t *testing.T) {
	m := menu{scores: []float64{1, 1, 1}}
	rng := sampler.New(11)
	seen := map[int]int{}
	for i := 0; i < 300; i++ {
		c, ok := Pick[struct{}, float64](m, struct{}{}, Knobs{SearchDepth: 1, Randomness: 0.6}, rng)
		if !ok {
			t.Fatal("expected a move")
		}
		if c.Window != 3 {
			t.Fatalf("expected all tied actions in the window, got %d", c.Window)
		}
		seen[c.Index]++
	}
	for i := 0; i < 3; i++ {
		if seen[i] < 60 {
			t.Fatalf("tied action %d picked %d times: %v", i, seen[i], seen)
		}
	}
}

func TestPick_WorstActionDoesNotWidenWindow(t *testing.T) {
	cases := []struct {
		name   string
		scores []float64
	}{
		{"finite", []float64{1, 0.9, 0.2}},
		{"nan", []float64{1, 0.9, 0.2, math.NaN()}},
		{"blunder", []float64{10, 9, 0, -1000}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := menu{scores: tc.scores}
			rng := sampler.New(5)
			for i := 0; i < 400; i++ {
				c, ok := Pick[struct{}, float64](m, struct{}{}, Knobs{SearchDepth: 1, Randomness: 0.10}, rng)
				if !ok {
					t.Fatal("expected a move")
				}
				if c.Index >= 2 || c.Window > 2 {
					t.Fatalf("picked %d from a window of %d", c.Index, c.Window)
				}
			}
		})
	}
}

func TestPick_ScoreScaleFloorsMargin(t *testing.T) {
	m := menu{scores: []float64{0, -0.3, -2}}
	rng := sampler.New(3)
	c, _ := Pick[struct{}, float64](m, struct{}{}, Knobs{SearchDepth: 1, Randomness: 0.5}, rng)
	if c.Window != 2 {
		t.Fatalf("default scale should admit -0.3, window %d", c.Window)
	}
	c, _ = Pick[struct{}, float64](m, struct{}{}, Knobs{SearchDepth: 1, Randomness: 0.5, ScoreScale: 0.2}, rng)
	if c.Window != 1 || c.Index != 0 {
		t.Fatalf("smaller scale should narrow the window, got %+v", c)
	}
}

func TestKnobsFrom(t *testing.T) {
	k := KnobsFrom(flow.Plan{SearchDepth: 2, Randomness: 0.3}, 0.4, 2)
	if k.SearchDepth != 2 || k.Randomness != 0.3 || k.Discount != 0.4 || k.ScoreScale != 2 {
		t.Fatalf("unexpected knobs %+v", k)
	}
}
