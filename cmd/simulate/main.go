package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/danielpatrickdp/adaptive-director/internal/beat"
	"github.com/danielpatrickdp/adaptive-director/internal/config"
	"github.com/danielpatrickdp/adaptive-director/internal/logging"
)

// #region main

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	players := flag.Int("players", 12, "number of synthetic players")
	games := flag.Int("games", 40, "games per player")
	turns := flag.Int("turns", 6, "turns per game")
	workers := flag.Int("workers", runtime.NumCPU(), "players simulated at once")
	seed := flag.Int64("seed", 1, "base seed for players and directors")
	skillLow := flag.Float64("skill-low", 0.2, "lowest starting skill")
	skillHigh := flag.Float64("skill-high", 0.85, "highest starting skill")
	learning := flag.Float64("learning", 0.004, "skill gained per game")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	cfg, err := config.Load(*configPath, ".env")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	start := time.Now()
	rep, err := runSim(ctx, simConfig{
		Players:      *players,
		Games:        *games,
		TurnsPerGame: *turns,
		Workers:      *workers,
		Seed:         *seed,
		SkillLow:     *skillLow,
		SkillHigh:    *skillHigh,
		LearningRate: *learning,
		Director:     cfg.Director,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("simulation failed")
	}
	logger.Info().
		Int("players", *players).
		Int("games", *games).
		Dur("elapsed", time.Since(start)).
		Float64("mean_late_win_rate", rep.MeanLateWin).
		Float64("target", rep.Target).
		Msg("simulation done")

	if *jsonOut {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			log.Fatalf("marshal json: %v", err)
		}
		fmt.Println(string(data))
		return
	}
	printTable(rep)
}

// #endregion main

// #region output

func printTable(rep simReport) {
	fmt.Printf("%6s  %10s  %8s  %10s  %8s  %9s  %9s  %s\n",
		"Player", "True Skill", "Estimate", "Difficulty", "Win", "Late Win", "Overrides", "Beats")
	fmt.Printf("%6s+-%10s+-%8s+-%10s+-%8s+-%9s+-%9s+-%s\n",
		"------", "----------", "--------", "----------", "--------", "---------", "---------", "--------------------")
	for _, r := range rep.Players {
		beats := ""
		for _, b := range beat.Order {
			beats += fmt.Sprintf("%s=%d ", b, r.Beats[b])
		}
		fmt.Printf("%6d  %10.3f  %8.3f  %10.3f  %8.3f  %9.3f  %9d  %s\n",
			r.Index, r.TrueSkill, r.EstSkill, r.Difficulty, r.WinRate, r.LateWinRate, r.Overrides, beats)
	}
	fmt.Printf("\nTarget win rate %.3f, mean late win rate %.3f, mean abs error %.3f\n",
		rep.Target, rep.MeanLateWin, rep.MeanAbsErr)
}

// #endregion output
