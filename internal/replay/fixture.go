package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-director/internal/director"
	"github.com/danielpatrickdp/adaptive-director/internal/logging"
	"github.com/danielpatrickdp/adaptive-director/internal/player"
	"github.com/danielpatrickdp/adaptive-director/internal/signals"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          director.Config         `json:"config"`
	StartState      *director.State         `json:"start_state,omitempty"`
	Events          []FixtureEvent          `json:"events"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureEvent is one recorded turn or game.
type FixtureEvent struct {
	EventID string               `json:"event_id"`
	Kind    logging.EventKind    `json:"kind"`
	Turn    *signals.TurnSummary `json:"turn,omitempty"`
	Game    *player.GameResult   `json:"game,omitempty"`
}

// FixtureExpectedResult captures the expected action per event. Beat is
// only checked when set.
type FixtureExpectedResult struct {
	EventID string `json:"event_id"`
	Action  string `json:"action"`
	Beat    string `json:"beat,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Start builds the director the fixture replays against.
func (f *Fixture) Start() (*director.Director, error) {
	if f.StartState == nil {
		return director.New(f.Config), nil
	}
	return director.Restore(f.Config, *f.StartState)
}

// Validate reports the first malformed event.
func (f *Fixture) Validate() error {
	for i, ev := range f.Events {
		switch {
		case ev.Kind == logging.EventTurn && ev.Turn == nil:
			return fmt.Errorf("event %d (%s): turn event without turn", i, ev.EventID)
		case ev.Kind == logging.EventGame && ev.Game == nil:
			return fmt.Errorf("event %d (%s): game event without game", i, ev.EventID)
		case ev.Kind != logging.EventTurn && ev.Kind != logging.EventGame:
			return fmt.Errorf("event %d (%s): unsupported kind %q", i, ev.EventID, ev.Kind)
		}
	}
	return nil
}

// #endregion fixture-loader

// #region fixture-export

// EventsFromLog converts logged turn and game events into fixture events.
// Other kinds are skipped. Event IDs are the log row IDs.
func EventsFromLog(entries []logging.EventEntry) ([]FixtureEvent, error) {
	var events []FixtureEvent
	for _, e := range entries {
		if e.Kind != logging.EventTurn && e.Kind != logging.EventGame {
			continue
		}
		var rec logging.EventRecord
		if err := json.Unmarshal([]byte(e.PayloadJSON), &rec); err != nil {
			return nil, fmt.Errorf("event %d: parse payload: %w", e.ID, err)
		}
		events = append(events, FixtureEvent{
			EventID: fmt.Sprintf("ev-%d", e.ID),
			Kind:    e.Kind,
			Turn:    rec.Turn,
			Game:    rec.Game,
		})
	}
	return events, nil
}

// ExpectFromResults records each result's action and, for games, its beat.
func ExpectFromResults(results []ReplayResult) []FixtureExpectedResult {
	expected := make([]FixtureExpectedResult, len(results))
	for i, r := range results {
		expected[i] = FixtureExpectedResult{EventID: r.EventID, Action: r.Action}
		if r.Outcome != nil {
			expected[i].Beat = string(r.Outcome.Beat)
		}
	}
	return expected
}

// #endregion fixture-export
