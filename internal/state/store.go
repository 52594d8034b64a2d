package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/adaptive-director/internal/director"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS director_versions (
	version_id    TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	parent_id     TEXT,
	state_json    TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	metrics_json  TEXT,
	FOREIGN KEY (parent_id) REFERENCES director_versions(version_id)
);

CREATE INDEX IF NOT EXISTS idx_versions_session ON director_versions(session_id, created_at);

CREATE TABLE IF NOT EXISTS event_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	version_id    TEXT NOT NULL,
	kind          TEXT NOT NULL,
	payload_json  TEXT,
	beat          TEXT,
	reason        TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES director_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_state (
	session_id    TEXT PRIMARY KEY,
	version_id    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES director_versions(version_id)
);
`

// timeLayout keeps a fixed fraction width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #endregion schema

// #region store-struct
// Store keeps versioned director state per session in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region new-record
// NewRecord stamps st as a fresh version of session, child of parentID.
func NewRecord(sessionID, parentID string, st director.State) StateRecord {
	return StateRecord{
		VersionID: uuid.New().String(),
		SessionID: sessionID,
		ParentID:  parentID,
		State:     st,
		CreatedAt: time.Now().UTC(),
	}
}

// #endregion new-record

// #region create-session
// CreateSession stores the first version of a session and points the
// session at it. Creating an existing session resets its active pointer.
func (s *Store) CreateSession(sessionID string, st director.State) (StateRecord, error) {
	rec := NewRecord(sessionID, "", st)

	tx, err := s.db.Begin()
	if err != nil {
		return StateRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertVersion(tx, rec); err != nil {
		return StateRecord{}, err
	}
	_, err = tx.Exec(
		`INSERT INTO active_state (session_id, version_id, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET version_id = excluded.version_id, updated_at = excluded.updated_at`,
		sessionID, rec.VersionID, rec.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return StateRecord{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return StateRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion create-session

// #region get-current
// GetCurrent reads the active version of a session.
func (s *Store) GetCurrent(sessionID string) (StateRecord, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_state WHERE session_id = ?`, sessionID).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return StateRecord{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return StateRecord{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(versionID)
}

// #endregion get-current

// #region get-version
// GetVersion retrieves a specific version by ID.
func (s *Store) GetVersion(id string) (StateRecord, error) {
	row := s.db.QueryRow(
		`SELECT version_id, session_id, parent_id, state_json, created_at, metrics_json
		 FROM director_versions WHERE version_id = ?`, id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StateRecord{}, fmt.Errorf("version %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return StateRecord{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return rec, nil
}

// #endregion get-version

// #region commit-state
// CommitState inserts a new version and moves the session's active pointer
// to it atomically. The session must already exist.
func (s *Store) CommitState(rec StateRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertVersion(tx, rec); err != nil {
		return err
	}

	res, err := tx.Exec(
		`UPDATE active_state SET version_id = ?, updated_at = ? WHERE session_id = ?`,
		rec.VersionID, rec.CreatedAt.Format(timeLayout), rec.SessionID,
	)
	if err != nil {
		return fmt.Errorf("update active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", rec.SessionID, ErrNotFound)
	}

	return tx.Commit()
}

// #endregion commit-state

// #region rollback
// Rollback points a session back at one of its earlier versions.
func (s *Store) Rollback(sessionID, targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM director_versions WHERE version_id = ? AND session_id = ?`,
		targetVersionID, sessionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s in session %s: %w", targetVersionID, sessionID, ErrNotFound)
	}

	_, err = s.db.Exec(
		`UPDATE active_state SET version_id = ?, updated_at = ? WHERE session_id = ?`,
		targetVersionID, time.Now().UTC().Format(timeLayout), sessionID,
	)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// #endregion rollback

// #region list-versions
// ListVersions returns a session's most recent versions, newest first.
func (s *Store) ListVersions(sessionID string, limit int) ([]StateRecord, error) {
	rows, err := s.db.Query(
		`SELECT version_id, session_id, parent_id, state_json, created_at, metrics_json
		 FROM director_versions WHERE session_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []StateRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListSessions returns every session with its active version.
func (s *Store) ListSessions() ([]SessionInfo, error) {
	rows, err := s.db.Query(
		`SELECT a.session_id, a.version_id, a.updated_at,
		        (SELECT COUNT(*) FROM director_versions v WHERE v.session_id = a.session_id)
		 FROM active_state a ORDER BY a.session_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var updated string
		if err := rows.Scan(&info.SessionID, &info.VersionID, &updated, &info.Versions); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		sessions = append(sessions, info)
	}
	return sessions, rows.Err()
}

// #endregion list-versions

// #region row-encoding
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (StateRecord, error) {
	var rec StateRecord
	var parentID, metricsJSON sql.NullString
	var stateJSON, createdStr string

	if err := row.Scan(&rec.VersionID, &rec.SessionID, &parentID, &stateJSON, &createdStr, &metricsJSON); err != nil {
		return StateRecord{}, err
	}
	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	if err := json.Unmarshal([]byte(stateJSON), &rec.State); err != nil {
		return StateRecord{}, fmt.Errorf("unmarshal state: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	if metricsJSON.Valid {
		rec.MetricsJSON = metricsJSON.String
	}
	return rec, nil
}

func insertVersion(tx *sql.Tx, rec StateRecord) error {
	stateJSON, err := json.Marshal(rec.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	var parentPtr interface{}
	if rec.ParentID != "" {
		parentPtr = rec.ParentID
	}
	var metricsPtr interface{}
	if rec.MetricsJSON != "" {
		metricsPtr = rec.MetricsJSON
	}

	_, err = tx.Exec(
		`INSERT INTO director_versions (version_id, session_id, parent_id, state_json, created_at, metrics_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.VersionID, rec.SessionID, parentPtr, string(stateJSON),
		rec.CreatedAt.Format(timeLayout), metricsPtr,
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

// #endregion row-encoding
