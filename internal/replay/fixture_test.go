package replay

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/adaptive-director/internal/eval"
	"github.com/danielpatrickdp/adaptive-director/internal/logging"
	"github.com/danielpatrickdp/adaptive-director/internal/player"
	"github.com/danielpatrickdp/adaptive-director/internal/signals"
)

// #region fixture-tests

// TestFixture_LiveSession replays the recorded session and compares each
// event's action and beat against the expected results.
func TestFixture_LiveSession(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "live_session.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	d, err := f.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	results := Replay(d, f.Events, eval.DefaultEvalConfig())

	if len(results) != len(f.ExpectedResults) {
		t.Fatalf("expected %d results, got %d", len(f.ExpectedResults), len(results))
	}
	for i, expected := range f.ExpectedResults {
		actual := results[i]
		if actual.EventID != expected.EventID {
			t.Errorf("event %d: expected event_id=%s, got %s", i, expected.EventID, actual.EventID)
		}
		if actual.Action != expected.Action {
			t.Errorf("event %d (%s): expected action=%s, got action=%s (reason: %s)",
				i, expected.EventID, expected.Action, actual.Action, actual.Reason)
		}
		if expected.Beat != "" && (actual.Outcome == nil || string(actual.Outcome.Beat) != expected.Beat) {
			t.Errorf("event %d (%s): expected beat=%s, got %+v", i, expected.EventID, expected.Beat, actual.Outcome)
		}
	}

	sum := Summarize(results, d.Export())
	if sum.Games != 4 || sum.Turns != 24 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestLoadFixture_Missing(t *testing.T) {
	if _, err := LoadFixture(filepath.Join("testdata", "nope.json")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}

func TestValidate_RejectsEmptyEvents(t *testing.T) {
	f := Fixture{Events: []FixtureEvent{{EventID: "x", Kind: logging.EventGame}}}
	if err := f.Validate(); err == nil {
		t.Fatal("expected error for game event without payload")
	}
	f = Fixture{Events: []FixtureEvent{{EventID: "y", Kind: logging.EventStart}}}
	if err := f.Validate(); err == nil {
		t.Fatal("expected error for unsupported kind")
	}
}

// #endregion fixture-tests

// #region export-tests

func TestEventsFromLog(t *testing.T) {
	turn := signals.TurnSummary{TurnMs: 3000, ActionsTaken: 2}
	game := player.GameResult{PlayerWon: true}
	turnJSON, _ := json.Marshal(logging.EventRecord{Kind: logging.EventTurn, Turn: &turn})
	gameJSON, _ := json.Marshal(logging.EventRecord{Kind: logging.EventGame, Game: &game})

	entries := []logging.EventEntry{
		{ID: 1, Kind: logging.EventStart},
		{ID: 2, Kind: logging.EventTurn, PayloadJSON: string(turnJSON)},
		{ID: 3, Kind: logging.EventGame, PayloadJSON: string(gameJSON)},
		{ID: 4, Kind: logging.EventRollback},
	}
	events, err := EventsFromLog(entries)
	if err != nil {
		t.Fatalf("EventsFromLog: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].EventID != "ev-2" || events[0].Turn == nil || events[0].Turn.TurnMs != 3000 {
		t.Fatalf("unexpected turn event %+v", events[0])
	}
	if events[1].Game == nil || !events[1].Game.PlayerWon {
		t.Fatalf("unexpected game event %+v", events[1])
	}
}

func TestEventsFromLog_BadPayload(t *testing.T) {
	_, err := EventsFromLog([]logging.EventEntry{{ID: 7, Kind: logging.EventTurn, PayloadJSON: "{"}})
	if err == nil {
		t.Fatal("expected parse error")
	}
}

// #endregion export-tests
