package director

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/adaptive-director/internal/beat"
	"github.com/danielpatrickdp/adaptive-director/internal/estimator"
	"github.com/danielpatrickdp/adaptive-director/internal/flow"
	"github.com/danielpatrickdp/adaptive-director/internal/opponent"
	"github.com/danielpatrickdp/adaptive-director/internal/player"
	"github.com/danielpatrickdp/adaptive-director/internal/signals"
)

// #region helpers
// play drives a session through a short, mixed script.
func play(d *Director, games int) {
	for g := 0; g < games; g++ {
		for t := 0; t < 6; t++ {
			d.ObserveTurn(signals.TurnSummary{
				TurnMs:       float64(4000 + 900*((g+t)%5)),
				ActionsTaken: 3,
				Mistakes:     (g + t) % 2,
			})
		}
		d.ObserveGame(player.GameResult{PlayerWon: g%3 != 0, CloseGame: g%2 == 0})
	}
}

// ladder is a fixed-score action menu for the opponent.
type ladder []float64

func (l ladder) Actions(_ int, side opponent.Side) []float64 {
	if side != opponent.Bot {
		return nil
	}
	return l
}
func (ladder) Apply(s int, _ float64) int         { return s + 1 }
func (ladder) Heuristic(_ int, a float64) float64 { return a }
func (ladder) Value(int) float64                  { return 0 }

// #endregion helpers

// #region config-tests

func TestNormalize_FillsDefaults(t *testing.T) {
	got := Config{Seed: 7}.Normalize()
	want := DefaultConfig()
	want.Seed = 7
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestNormalize_ClampsRanges(t *testing.T) {
	c := Config{
		TargetWinRate:        1.4,
		BaseOpponentDelayMs:  5000,
		SkillInitial:         1.5,
		SkillVarianceInitial: 0.9,
		LookaheadDiscount:    -1,
		PickScoreScale:       math.NaN(),
	}.Normalize()
	if c.TargetWinRate != 0.58 {
		t.Errorf("target win rate %f", c.TargetWinRate)
	}
	if c.BaseOpponentDelayMs != flow.PacingMaxMs {
		t.Errorf("base delay %f", c.BaseOpponentDelayMs)
	}
	if c.SkillInitial != player.SkillMax || c.SkillVarianceInitial != player.SkillVarianceMax {
		t.Errorf("skill %f variance %f", c.SkillInitial, c.SkillVarianceInitial)
	}
	if c.LookaheadDiscount != opponent.DefaultDiscount {
		t.Errorf("discount %f", c.LookaheadDiscount)
	}
	if c.PickScoreScale != opponent.DefaultScoreScale {
		t.Errorf("score scale %f", c.PickScoreScale)
	}
}

// #endregion config-tests

// #region session-tests

func TestNew_InitialRecommendation(t *testing.T) {
	d := New(DefaultConfig())
	rec := d.Recommend()
	if rec.Plan.Beat != beat.Training {
		t.Fatalf("expected training to open the session, got %s", rec.Plan.Beat)
	}
	if rec.Snapshot.Skill != 0.5 || rec.Snapshot.Games != 0 {
		t.Fatalf("unexpected initial snapshot %+v", rec.Snapshot)
	}
	if rec.Plan.PacingMs < flow.PacingMinMs || rec.Plan.PacingMs > flow.PacingMaxMs {
		t.Fatalf("pacing out of range: %d", rec.Plan.PacingMs)
	}
}

func TestRecommend_IsReadOnly(t *testing.T) {
	d := New(DefaultConfig())
	play(d, 3)
	before := d.Export()
	a := d.Recommend()
	b := d.Recommend()
	if a != b {
		t.Fatalf("recommend changed between calls:\n%+v\n%+v", a, b)
	}
	if !reflect.DeepEqual(before, d.Export()) {
		t.Fatal("recommend mutated session state")
	}
}

func TestObserveGame_WinRaisesSkill(t *testing.T) {
	d := New(DefaultConfig())
	out := d.ObserveGame(player.GameResult{PlayerWon: true})
	snap := d.Recommend().Snapshot
	if snap.Skill <= 0.5 || snap.WinRate <= 0.5 || snap.Streak != 1 {
		t.Fatalf("unexpected snapshot after a win %+v", snap)
	}
	if out.PrevBeat != beat.Training {
		t.Fatalf("expected training as previous beat, got %s", out.PrevBeat)
	}
	if out.Plan.Beat != out.Beat {
		t.Fatalf("plan beat %s does not match chosen beat %s", out.Plan.Beat, out.Beat)
	}
}

func TestObserveGame_FatigueForcesRecovery(t *testing.T) {
	// observed turns alone top out near 0.60, so seed an exhausted player
	st := New(DefaultConfig()).Export()
	st.Player.Fatigue = estimator.EMAState{Value: 0.7, Alpha: 0.10, Initialized: true}
	d, err := Restore(DefaultConfig(), st)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	for i := 0; i < 5; i++ {
		out := d.ObserveGame(player.GameResult{PlayerWon: i%2 == 0})
		if out.Beat != beat.Recovery || !out.Override {
			t.Fatalf("game %d: expected forced recovery, got %+v", i, out)
		}
	}
}

func TestObserveTurn_LearnsOnlyPerGame(t *testing.T) {
	d := New(DefaultConfig())
	arms := d.Snapshot().Arms
	for i := 0; i < 10; i++ {
		d.ObserveTurn(signals.TurnSummary{TurnMs: 5000, ActionsTaken: 3})
	}
	if !reflect.DeepEqual(arms, d.Snapshot().Arms) {
		t.Fatal("turns should not touch the bandit")
	}
	d.ObserveGame(player.GameResult{PlayerWon: true})
	var pulls float64
	for _, arm := range d.Snapshot().Arms {
		pulls += arm.A + arm.B
	}
	if pulls != 9 {
		t.Fatalf("expected exactly one learned outcome, total pseudo-counts %f", pulls)
	}
}

func TestSnapshot_ListsArmsInOrder(t *testing.T) {
	d := New(DefaultConfig())
	diag := d.Snapshot()
	if len(diag.Arms) != len(beat.Order) {
		t.Fatalf("expected %d arms, got %d", len(beat.Order), len(diag.Arms))
	}
	for i, arm := range diag.Arms {
		if arm.Beat != beat.Order[i] || arm.Mean != 0.5 {
			t.Fatalf("arm %d: %+v", i, arm)
		}
	}
}

func TestSeededSessionsAreDeterministic(t *testing.T) {
	a, b := New(DefaultConfig()), New(DefaultConfig())
	play(a, 12)
	play(b, 12)
	if !reflect.DeepEqual(a.Export(), b.Export()) {
		t.Fatal("identically seeded sessions diverged")
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	d := New(DefaultConfig(), WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)))
	play(d, 1)
	if !strings.Contains(buf.String(), `"message":"game observed"`) {
		t.Fatalf("expected game log line, got %q", buf.String())
	}
}

// #endregion session-tests

// #region state-tests

func TestExportRestore_ContinuesIdentically(t *testing.T) {
	cfg := DefaultConfig()
	a := New(cfg)
	play(a, 5)

	raw, err := json.Marshal(a.Export())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	b, err := Restore(cfg, st)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if a.Recommend() != b.Recommend() {
		t.Fatal("restored recommendation differs")
	}

	play(a, 4)
	play(b, 4)
	if !reflect.DeepEqual(a.Export(), b.Export()) {
		t.Fatal("restored session diverged")
	}
	m := ladder{1, 0.8, 0.7, 0.1}
	for i := 0; i < 20; i++ {
		ca, _ := PickAction[int, float64](a, m, i)
		cb, _ := PickAction[int, float64](b, m, i)
		if ca != cb {
			t.Fatalf("pick %d diverged: %+v vs %+v", i, ca, cb)
		}
	}
}

func TestRestore_RejectsUnknownVersion(t *testing.T) {
	st := New(DefaultConfig()).Export()
	st.Version = 99
	if _, err := Restore(DefaultConfig(), st); !errors.Is(err, ErrStateVersion) {
		t.Fatalf("expected ErrStateVersion, got %v", err)
	}
}

// #endregion state-tests

// #region opponent-tests

func TestPickAction_UsesPlanKnobs(t *testing.T) {
	d := New(DefaultConfig())
	plan := d.Recommend().Plan
	m := ladder{1, 0.99, 0.2}
	c, ok := PickAction[int, float64](d, m, 0)
	if !ok {
		t.Fatal("expected a move")
	}
	if c.Considered != len(m) {
		t.Fatalf("considered %d actions", c.Considered)
	}
	if plan.Randomness > 0 && c.Window != 2 {
		t.Fatalf("randomness %f should admit the two near-best actions, window %d", plan.Randomness, c.Window)
	}
	if _, ok := PickAction[int, float64](d, ladder{}, 0); ok {
		t.Fatal("expected a pass with no legal actions")
	}
}

// #endregion opponent-tests
