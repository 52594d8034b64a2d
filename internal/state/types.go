package state

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/adaptive-director/internal/director"
)

// ErrNotFound is returned when a session or version does not exist.
var ErrNotFound = errors.New("not found")

// #region state-record
// StateRecord is one persisted version of a session's director state.
type StateRecord struct {
	VersionID   string
	SessionID   string
	ParentID    string
	State       director.State
	CreatedAt   time.Time
	MetricsJSON string
}

// #endregion state-record

// #region session-info
// SessionInfo summarizes a session's active pointer.
type SessionInfo struct {
	SessionID string
	VersionID string
	Versions  int
	UpdatedAt time.Time
}

// #endregion session-info
