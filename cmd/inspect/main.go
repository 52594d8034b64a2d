package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/adaptive-director/internal/eval"
	"github.com/danielpatrickdp/adaptive-director/internal/logging"
	"github.com/danielpatrickdp/adaptive-director/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to director.db")
	session := flag.String("session", "", "session to inspect (lists sessions when empty)")
	last := flag.Int("last", 20, "show N most recent versions")
	version := flag.String("version", "", "show single version detail")
	events := flag.Bool("events", false, "show the session's event log instead of versions")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/director.db [--session id [--last N] [--events]] [--version id] [--json]")
		os.Exit(2)
	}

	store, err := state.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *version != "":
		err = runDetailMode(store, *version, *jsonOut)
	case *session == "":
		err = runSessionsMode(store, *jsonOut)
	case *events:
		err = runEventsMode(store, *session, *last, *jsonOut)
	default:
		err = runListMode(store, *session, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region sessions-mode

type sessionRow struct {
	SessionID string `json:"session_id"`
	VersionID string `json:"version_id"`
	Versions  int    `json:"versions"`
	UpdatedAt string `json:"updated_at"`
}

func runSessionsMode(store *state.Store, jsonOut bool) error {
	sessions, err := store.ListSessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}

	rows := make([]sessionRow, len(sessions))
	for i, s := range sessions {
		rows[i] = sessionRow{
			SessionID: s.SessionID,
			VersionID: s.VersionID,
			Versions:  s.Versions,
			UpdatedAt: s.UpdatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-36s  %-12s  %8s  %s\n", "Session", "Active", "Versions", "Updated")
	fmt.Printf("%-36s+-%-12s+-%8s+-%s\n",
		"------------------------------------", "------------", "--------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-36s  %-12s  %8d  %s\n", r.SessionID, shortID(r.VersionID), r.Versions, r.UpdatedAt)
	}
	return nil
}

// #endregion sessions-mode

// #region list-mode

type listRow struct {
	VersionID  string  `json:"version_id"`
	Beat       string  `json:"beat"`
	Games      int     `json:"games"`
	Turns      int     `json:"turns"`
	Skill      float64 `json:"skill"`
	WinRate    float64 `json:"win_rate"`
	Fatigue    float64 `json:"fatigue"`
	Difficulty float64 `json:"difficulty"`
	PacingMs   int     `json:"pacing_ms"`
	Eval       string  `json:"eval"`
	CreatedAt  string  `json:"created_at"`
}

func runListMode(store *state.Store, sessionID string, last int, jsonOut bool) error {
	versions, err := store.ListVersions(sessionID, last)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(os.Stderr, "no versions found")
		return nil
	}

	// Store returns DESC, reverse for chronological
	rows := make([]listRow, len(versions))
	for i, rec := range versions {
		st := rec.State
		rows[len(versions)-1-i] = listRow{
			VersionID:  rec.VersionID,
			Beat:       string(st.Beat),
			Games:      st.Player.Games,
			Turns:      st.Player.Turns,
			Skill:      st.Player.Skill,
			WinRate:    st.Player.WinRate.Value,
			Fatigue:    st.Player.Fatigue.Value,
			Difficulty: st.Plan.Difficulty,
			PacingMs:   st.Plan.PacingMs,
			Eval:       evalLabel(rec.MetricsJSON),
			CreatedAt:  rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-12s  %-9s  %5s  %5s  %6s  %6s  %7s  %10s  %6s  %-6s  %s\n",
		"Version", "Beat", "Games", "Turns", "Skill", "Win", "Fatigue", "Difficulty", "Pacing", "Eval", "Time")
	fmt.Printf("%-12s+-%-9s+-%5s+-%5s+-%6s+-%6s+-%7s+-%10s+-%6s+-%-6s+-%s\n",
		"------------", "---------", "-----", "-----", "------", "------", "-------", "----------", "------", "------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-12s  %-9s  %5d  %5d  %6.3f  %6.3f  %7.3f  %10.3f  %6d  %-6s  %s\n",
			shortID(r.VersionID), r.Beat, r.Games, r.Turns, r.Skill, r.WinRate, r.Fatigue,
			r.Difficulty, r.PacingMs, r.Eval, r.CreatedAt)
	}
	return nil
}

// evalLabel summarizes the stored eval result of a version.
func evalLabel(metricsJSON string) string {
	if metricsJSON == "" {
		return "-"
	}
	var res eval.EvalResult
	if err := json.Unmarshal([]byte(metricsJSON), &res); err != nil {
		return "?"
	}
	if res.Passed {
		return "pass"
	}
	return "FAIL"
}

// #endregion list-mode

// #region events-mode

type eventRow struct {
	ID        int64  `json:"id"`
	VersionID string `json:"version_id"`
	Kind      string `json:"kind"`
	Beat      string `json:"beat,omitempty"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}

func runEventsMode(store *state.Store, sessionID string, last int, jsonOut bool) error {
	entries, err := logging.ListEvents(store.DB(), sessionID, 0)
	if err != nil {
		return err
	}
	if last > 0 && len(entries) > last {
		entries = entries[len(entries)-last:]
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no events found")
		return nil
	}

	rows := make([]eventRow, len(entries))
	for i, e := range entries {
		rows[i] = eventRow{
			ID:        e.ID,
			VersionID: e.VersionID,
			Kind:      string(e.Kind),
			Beat:      e.Beat,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%6s  %-12s  %-8s  %-9s  %-20s  %s\n", "ID", "Version", "Kind", "Beat", "Time", "Reason")
	fmt.Printf("%6s+-%-12s+-%-8s+-%-9s+-%-20s+-%s\n",
		"------", "------------", "--------", "---------", "--------------------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%6d  %-12s  %-8s  %-9s  %-20s  %s\n",
			r.ID, shortID(r.VersionID), r.Kind, r.Beat, r.CreatedAt, r.Reason)
	}
	return nil
}

// #endregion events-mode

// #region detail-mode

func runDetailMode(store *state.Store, versionID string, jsonOut bool) error {
	rec, err := store.GetVersion(versionID)
	if err != nil {
		return err
	}

	var res *eval.EvalResult
	if rec.MetricsJSON != "" {
		var r eval.EvalResult
		if err := json.Unmarshal([]byte(rec.MetricsJSON), &r); err == nil {
			res = &r
		}
	}

	if jsonOut {
		return printJSON(struct {
			VersionID string           `json:"version_id"`
			SessionID string           `json:"session_id"`
			ParentID  string           `json:"parent_id"`
			CreatedAt string           `json:"created_at"`
			State     any              `json:"state"`
			Eval      *eval.EvalResult `json:"eval,omitempty"`
		}{rec.VersionID, rec.SessionID, rec.ParentID, rec.CreatedAt.Format("2006-01-02T15:04:05Z"), rec.State, res})
	}

	st := rec.State
	fmt.Printf("Version:    %s\n", rec.VersionID)
	fmt.Printf("Session:    %s\n", rec.SessionID)
	fmt.Printf("Parent:     %s\n", rec.ParentID)
	fmt.Printf("Created:    %s\n", rec.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Beat:       %s\n", st.Beat)

	fmt.Printf("\nPlayer:\n")
	fmt.Printf("  %-12s %.4f (var %.4f)\n", "skill", st.Player.Skill, st.Player.SkillVariance)
	fmt.Printf("  %-12s %.4f\n", "win rate", st.Player.WinRate.Value)
	fmt.Printf("  %-12s %.4f\n", "fatigue", st.Player.Fatigue.Value)
	fmt.Printf("  %-12s %d games, %d turns\n", "played", st.Player.Games, st.Player.Turns)

	fmt.Printf("\nPlan:\n")
	fmt.Printf("  %-12s %.4f\n", "difficulty", st.Plan.Difficulty)
	fmt.Printf("  %-12s %d\n", "depth", st.Plan.SearchDepth)
	fmt.Printf("  %-12s %.4f\n", "randomness", st.Plan.Randomness)
	fmt.Printf("  %-12s %dms\n", "pacing", st.Plan.PacingMs)
	fmt.Printf("  %-12s %.4f (%s)\n", "assist", st.Plan.Assist, st.Plan.AssistMode)

	if res != nil {
		fmt.Printf("\nEval: %s\n", res.Reason)
		for _, m := range res.Metrics {
			mark := "ok"
			if !m.Pass {
				mark = "FAIL"
			}
			fmt.Printf("  %-16s %10.4f  %s\n", m.Name, m.Value, mark)
		}
	}
	return nil
}

// #endregion detail-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
