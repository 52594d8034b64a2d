package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/adaptive-director/internal/config"
	"github.com/danielpatrickdp/adaptive-director/internal/director"
	"github.com/danielpatrickdp/adaptive-director/internal/eval"
	"github.com/danielpatrickdp/adaptive-director/internal/logging"
	"github.com/danielpatrickdp/adaptive-director/internal/replay"
	"github.com/danielpatrickdp/adaptive-director/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to director.db")
	sessionID := flag.String("session", "", "session to export")
	configPath := flag.String("config", "", "YAML config the session ran under")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *sessionID == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --session id --out path/to/fixture.json [--config path]")
		os.Exit(2)
	}

	if err := run(*dbPath, *sessionID, *configPath, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, sessionID, configPath, outPath string) error {
	cfg, err := config.Load(configPath, ".env")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := state.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	start, err := rootVersion(store, sessionID)
	if err != nil {
		return fmt.Errorf("find initial state: %w", err)
	}

	entries, err := logging.ListEvents(store.DB(), sessionID, 0)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	events, err := replay.EventsFromLog(entries)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return errors.New("no turn or game events found for session")
	}

	fmt.Printf("Found %d events\n", len(events))

	fixture, err := buildFixture(cfg.Director, start, events)
	if err != nil {
		return err
	}
	return writeFixture(fixture, outPath)
}

// rootVersion walks the session's history back to the version with no parent.
func rootVersion(store *state.Store, sessionID string) (state.StateRecord, error) {
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

// #endregion extract

// #region output

// buildFixture replays the events once to record the expected results, so
// the fixture pins the behavior of this build.
func buildFixture(cfg director.Config, start state.StateRecord, events []replay.FixtureEvent) (replay.Fixture, error) {
	startState := start.State
	fixture := replay.Fixture{
		Description: fmt.Sprintf("Session export: %d events from session %s", len(events), start.SessionID),
		Config:      cfg,
		StartState:  &startState,
		Events:      events,
	}

	d, err := fixture.Start()
	if err != nil {
		return replay.Fixture{}, fmt.Errorf("restore start state: %w", err)
	}
	results := replay.Replay(d, events, eval.DefaultEvalConfig())
	fixture.ExpectedResults = replay.ExpectFromResults(results)
	return fixture, nil
}

func writeFixture(fixture replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote fixture to %s (%d bytes, %d events)\n", outPath, len(data), len(fixture.Events))
	return nil
}

// #endregion output
