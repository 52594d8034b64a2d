package main

import (
	"context"
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/adaptive-director/internal/beat"
	"github.com/danielpatrickdp/adaptive-director/internal/director"
	"github.com/danielpatrickdp/adaptive-director/internal/estimator"
	"github.com/danielpatrickdp/adaptive-director/internal/flow"
	"github.com/danielpatrickdp/adaptive-director/internal/player"
	"github.com/danielpatrickdp/adaptive-director/internal/sampler"
	"github.com/danielpatrickdp/adaptive-director/internal/signals"
)

// #region synthetic-player

// synthPlayer is a logistic player: it wins with probability
// sigmoid(steepness * (skill - effective difficulty)) and improves a little
// every game.
type synthPlayer struct {
	skill    float64
	learning float64
	rng      *sampler.Rand
}

const (
	steepness   = 6.0
	baseTurnMs  = 6500.0
	turnJitter  = 0.25
	maxSkill    = 0.95
	closeMargin = 0.15
)

func (p *synthPlayer) effective(plan flow.Plan) float64 {
	// noisy opponents play below their nominal difficulty, assists lift the player
	return plan.Difficulty*(1-0.5*plan.Randomness) - 0.1*plan.Assist
}

func (p *synthPlayer) winProb(plan flow.Plan) float64 {
	return 1 / (1 + math.Exp(-steepness*(p.skill-p.effective(plan))))
}

func (p *synthPlayer) turn(plan flow.Plan) signals.TurnSummary {
	gap := p.effective(plan) - p.skill
	actions := 2 + p.rng.Intn(3)
	mistakes := 0
	pMistake := estimator.Clamp(0.2+gap, 0.02, 0.9)
	for i := 0; i < actions; i++ {
		if p.rng.Float64() < pMistake {
			mistakes++
		}
	}
	ms := baseTurnMs * (1 + gap) * (1 + turnJitter*p.rng.Normal())
	return signals.TurnSummary{
		TurnMs:       math.Max(ms, 300),
		ActionsTaken: actions,
		Mistakes:     mistakes,
	}
}

func (p *synthPlayer) game(plan flow.Plan) player.GameResult {
	prob := p.winProb(plan)
	won := p.rng.Float64() < prob
	p.skill = math.Min(p.skill+p.learning, maxSkill)
	return player.GameResult{
		PlayerWon: won,
		CloseGame: math.Abs(prob-0.5) < closeMargin,
	}
}

// #endregion synthetic-player

// #region run

type simConfig struct {
	Players      int
	Games        int
	TurnsPerGame int
	Workers      int
	Seed         int64
	SkillLow     float64
	SkillHigh    float64
	LearningRate float64
	Director     director.Config
}

type playerReport struct {
	Index       int               `json:"index"`
	TrueSkill   float64           `json:"true_skill"`
	EstSkill    float64           `json:"est_skill"`
	Difficulty  float64           `json:"difficulty"`
	WinRate     float64           `json:"win_rate"`
	LateWinRate float64           `json:"late_win_rate"`
	Overrides   int               `json:"overrides"`
	Beats       map[beat.Beat]int `json:"beats"`
}

type simReport struct {
	Target      float64        `json:"target_win_rate"`
	MeanLateWin float64        `json:"mean_late_win_rate"`
	MeanAbsErr  float64        `json:"mean_abs_error"`
	Players     []playerReport `json:"players"`
}

// runSim plays every synthetic player against its own director, at most
// cfg.Workers at a time.
func runSim(ctx context.Context, cfg simConfig) (simReport, error) {
	logger := zerolog.Ctx(ctx)
	reports := make([]playerReport, cfg.Players)

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}
	for i := 0; i < cfg.Players; i++ {
		i := i
		g.Go(func() error {
			r, err := simulatePlayer(ctx, cfg, i)
			if err != nil {
				return err
			}
			reports[i] = r
			logger.Debug().
				Int("player", i).
				Float64("true_skill", r.TrueSkill).
				Float64("late_win_rate", r.LateWinRate).
				Msg("player done")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return simReport{}, err
	}

	rep := simReport{Target: cfg.Director.Normalize().TargetWinRate, Players: reports}
	for _, r := range reports {
		rep.MeanLateWin += r.LateWinRate
		rep.MeanAbsErr += math.Abs(r.LateWinRate - rep.Target)
	}
	if n := float64(len(reports)); n > 0 {
		rep.MeanLateWin /= n
		rep.MeanAbsErr /= n
	}
	return rep, nil
}

func simulatePlayer(ctx context.Context, cfg simConfig, i int) (playerReport, error) {
	dcfg := cfg.Director
	dcfg.Seed = cfg.Seed + int64(i)
	d := director.New(dcfg)

	p := &synthPlayer{
		skill:    skillFor(cfg, i),
		learning: cfg.LearningRate,
		rng:      sampler.New(cfg.Seed*7919 + int64(i)),
	}
	r := playerReport{Index: i, TrueSkill: p.skill, Beats: make(map[beat.Beat]int)}

	wins, lateWins, late := 0, 0, 0
	lateFrom := cfg.Games / 2
	for gi := 0; gi < cfg.Games; gi++ {
		if err := ctx.Err(); err != nil {
			return playerReport{}, err
		}
		plan := d.Recommend().Plan
		for t := 0; t < cfg.TurnsPerGame; t++ {
			plan = d.ObserveTurn(p.turn(plan))
		}
		res := p.game(plan)
		out := d.ObserveGame(res)

		r.Beats[out.Beat]++
		if out.Override {
			r.Overrides++
		}
		if res.PlayerWon {
			wins++
		}
		if gi >= lateFrom {
			late++
			if res.PlayerWon {
				lateWins++
			}
		}
	}

	diag := d.Snapshot()
	r.TrueSkill = p.skill
	r.EstSkill = diag.Player.Skill
	r.Difficulty = diag.Plan.Difficulty
	if cfg.Games > 0 {
		r.WinRate = float64(wins) / float64(cfg.Games)
	}
	if late > 0 {
		r.LateWinRate = float64(lateWins) / float64(late)
	}
	return r, nil
}

// skillFor spreads starting skills evenly over [SkillLow, SkillHigh].
func skillFor(cfg simConfig, i int) float64 {
	if cfg.Players <= 1 {
		return (cfg.SkillLow + cfg.SkillHigh) / 2
	}
	return cfg.SkillLow + (cfg.SkillHigh-cfg.SkillLow)*float64(i)/float64(cfg.Players-1)
}

// #endregion run
