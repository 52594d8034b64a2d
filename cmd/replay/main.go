package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/adaptive-director/internal/beat"
	"github.com/danielpatrickdp/adaptive-director/internal/config"
	"github.com/danielpatrickdp/adaptive-director/internal/director"
	"github.com/danielpatrickdp/adaptive-director/internal/eval"
	"github.com/danielpatrickdp/adaptive-director/internal/logging"
	"github.com/danielpatrickdp/adaptive-director/internal/replay"
	"github.com/danielpatrickdp/adaptive-director/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to director.db (DB mode)")
	sessionID := flag.String("session", "", "session to replay (DB mode)")
	configPath := flag.String("config", "", "YAML config the session ran under (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	flag.Parse()

	dbMode := *dbPath != "" && *sessionID != ""
	if dbMode == (*fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/director.db --session id")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *sessionID, *configPath)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-mode

// runDBMode replays a stored session from its first version and compares
// each event's beat with the beat the live server logged. The session must
// be replayed under the config the server ran with.
func runDBMode(dbPath, sessionID, configPath string) int {
	cfg, err := config.Load(configPath, ".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 2
	}

	store, err := state.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	start, err := firstVersion(store, sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "find initial state: %v\n", err)
		return 2
	}

	entries, err := logging.ListEvents(store.DB(), sessionID, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list events: %v\n", err)
		return 2
	}
	events, err := replay.EventsFromLog(entries)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode events: %v\n", err)
		return 2
	}
	if len(events) == 0 {
		fmt.Fprintln(os.Stderr, "no turn or game events found in event_log")
		return 2
	}

	var expected []replay.FixtureExpectedResult
	for _, e := range entries {
		if e.Kind != logging.EventTurn && e.Kind != logging.EventGame {
			continue
		}
		var rec logging.EventRecord
		if err := json.Unmarshal([]byte(e.PayloadJSON), &rec); err != nil {
			fmt.Fprintf(os.Stderr, "event %d: parse payload: %v\n", e.ID, err)
			return 2
		}
		action := replay.ActionCommit
		if !rec.EvalPassed {
			action = replay.ActionEvalFail
		}
		expected = append(expected, replay.FixtureExpectedResult{
			EventID: fmt.Sprintf("ev-%d", e.ID),
			Action:  action,
			Beat:    e.Beat,
		})
	}

	d, err := director.Restore(cfg.Director, start.State)
	if err != nil {
		fmt.Fprintf(os.Stderr, "restore: %v\n", err)
		return 2
	}
	results := replay.Replay(d, events, eval.DefaultEvalConfig())
	code := printComparison(results, expected)
	printSummary(replay.Summarize(results, d.Export()))
	return code
}

// firstVersion walks the session's history back to its root.
func firstVersion(store *state.Store, sessionID string) (state.StateRecord, error) {
	rec, err := store.GetCurrent(sessionID)
	if err != nil {
		return state.StateRecord{}, err
	}
	for rec.ParentID != "" {
		if rec, err = store.GetVersion(rec.ParentID); err != nil {
			return state.StateRecord{}, err
		}
	}
	return rec, nil
}

// #endregion db-mode

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	if err := f.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid fixture: %v\n", err)
		return 2
	}
	d, err := f.Start()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		return 2
	}

	results := replay.Replay(d, f.Events, eval.DefaultEvalConfig())
	code := printComparison(results, f.ExpectedResults)
	printSummary(replay.Summarize(results, d.Export()))
	return code
}

// #endregion fixture-mode

// #region output

// printComparison outputs a comparison table and returns the exit code.
func printComparison(results []replay.ReplayResult, expected []replay.FixtureExpectedResult) int {
	fmt.Printf("%-10s| %-6s| %-10s| %-10s| %-10s| %-10s| %s\n",
		"Event", "Kind", "Expected", "Replayed", "Exp Beat", "Beat", "Match")
	fmt.Printf("%-10s+%-7s+%-11s+%-11s+%-11s+%-11s+%s\n",
		"----------", "-------", "-----------", "-----------", "-----------", "-----------", "------")

	matches := 0
	total := len(results)
	if len(expected) < total {
		total = len(expected)
	}

	for i := 0; i < total; i++ {
		r, exp := results[i], expected[i]
		got := ""
		if r.Outcome != nil {
			got = string(r.Outcome.Beat)
		}

		match := "DIFF"
		if r.Action == exp.Action && (exp.Beat == "" || r.Kind != logging.EventGame || exp.Beat == got) {
			match = "OK"
			matches++
		}
		fmt.Printf("%-10s| %-6s| %-10s| %-10s| %-10s| %-10s| %s\n",
			r.EventID, r.Kind, exp.Action, r.Action, dash(exp.Beat), dash(got), match)
	}

	diverge := total - matches
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", total, matches, diverge)

	if diverge > 0 || len(results) != len(expected) {
		return 1
	}
	return 0
}

func printSummary(s replay.ReplaySummary) {
	fmt.Printf("Events: %d (%d turns, %d games, %d skipped)\n", s.TotalEvents, s.Turns, s.Games, s.Skipped)
	fmt.Printf("Commits: %d, eval failures: %d, fatigue overrides: %d\n", s.Commits, s.EvalFailures, s.Overrides)
	fmt.Printf("Beats:")
	for _, b := range beat.Order {
		fmt.Printf(" %s=%d", b, s.Beats[b])
	}
	fmt.Println()
	p := s.FinalState.Player
	fmt.Printf("Final: skill=%.4f win_rate=%.4f fatigue=%.4f difficulty=%.4f\n",
		p.Skill, p.WinRate.Value, p.Fatigue.Value, s.FinalState.Plan.Difficulty)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion output
