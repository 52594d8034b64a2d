package logging

import (
	"time"

	"github.com/danielpatrickdp/adaptive-director/internal/director"
	"github.com/danielpatrickdp/adaptive-director/internal/flow"
	"github.com/danielpatrickdp/adaptive-director/internal/player"
	"github.com/danielpatrickdp/adaptive-director/internal/signals"
)

// #region event-kind
// EventKind names what happened to a session.
type EventKind string

const (
	EventStart    EventKind = "start"
	EventTurn     EventKind = "turn"
	EventGame     EventKind = "game"
	EventRollback EventKind = "rollback"
)

// #endregion event-kind

// #region event-entry
// EventEntry is a single row in the event_log table.
type EventEntry struct {
	ID          int64
	SessionID   string
	VersionID   string
	Kind        EventKind
	PayloadJSON string
	Beat        string
	Reason      string
	CreatedAt   time.Time
}

// #endregion event-entry

// #region event-record
// EventRecord captures one observed event and what the director made of it.
// Serialized as JSON into event_log.payload_json so a session can be replayed.
type EventRecord struct {
	Kind EventKind `json:"kind"`

	// Exactly one of Turn and Game is set for turn and game events.
	Turn *signals.TurnSummary `json:"turn,omitempty"`
	Game *player.GameResult   `json:"game,omitempty"`

	Outcome *director.Outcome `json:"outcome,omitempty"`
	Plan    flow.Plan         `json:"plan"`

	EvalPassed bool     `json:"eval_passed"`
	EvalFailed []string `json:"eval_failed,omitempty"`
}

// #endregion event-record
