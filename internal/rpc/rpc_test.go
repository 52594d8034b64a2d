package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/adaptive-director/internal/beat"
	"github.com/danielpatrickdp/adaptive-director/internal/director"
	"github.com/danielpatrickdp/adaptive-director/internal/logging"
	"github.com/danielpatrickdp/adaptive-director/internal/player"
	"github.com/danielpatrickdp/adaptive-director/internal/signals"
	"github.com/danielpatrickdp/adaptive-director/internal/state"
)

// #region harness
type fixture struct {
	store  *state.Store
	tokens *Tokens
	dial   func() *Client
}

func startServer(t *testing.T, store *state.Store, tokens *Tokens) *fixture {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(AuthInterceptor(tokens, zerolog.Nop())))
	RegisterDirectorServer(srv, NewServer(store, tokens, director.DefaultConfig()))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	dial := func() *Client {
		c, err := NewClient("passthrough:///bufnet",
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
		if err != nil {
			t.Fatalf("NewClient: %v", err)
		}
		t.Cleanup(func() { c.Close() })
		return c
	}
	return &fixture{store: store, tokens: tokens, dial: dial}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := state.NewStore(filepath.Join(t.TempDir(), "rpc.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return startServer(t, store, NewTokens("test-secret", time.Hour))
}

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

// #endregion harness

// #region session-tests
func TestStartSession(t *testing.T) {
	f := newFixture(t)
	c := f.dial()

	resp, err := c.StartSession(ctx(t), nil)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if resp.SessionID == "" || resp.Token == "" || resp.VersionID == "" {
		t.Fatalf("incomplete response %+v", resp)
	}
	if resp.Recommendation.Plan.Beat != beat.Training {
		t.Fatalf("unexpected opening beat %s", resp.Recommendation.Plan.Beat)
	}
	if c.Token() != resp.Token {
		t.Fatal("client did not keep the token")
	}

	cur, err := f.store.GetCurrent(resp.SessionID)
	if err != nil || cur.VersionID != resp.VersionID {
		t.Fatalf("store not initialized: %+v %v", cur, err)
	}
}

func TestObserveFlow_CommitsVersionsAndEvents(t *testing.T) {
	f := newFixture(t)
	c := f.dial()
	start, err := c.StartSession(ctx(t), nil)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	turn, err := c.ObserveTurn(ctx(t), signals.TurnSummary{TurnMs: 5400, ActionsTaken: 3, Mistakes: 1})
	if err != nil {
		t.Fatalf("ObserveTurn: %v", err)
	}
	if !turn.Eval.Passed {
		t.Fatalf("eval failed: %s", turn.Eval.Reason)
	}
	game, err := c.ObserveGame(ctx(t), player.GameResult{PlayerWon: true, CloseGame: true})
	if err != nil {
		t.Fatalf("ObserveGame: %v", err)
	}
	if game.Outcome.PrevBeat != beat.Training || game.Outcome.Plan.Beat != game.Outcome.Beat {
		t.Fatalf("unexpected outcome %+v", game.Outcome)
	}

	rec, err := c.Recommend(ctx(t))
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Snapshot.Games != 1 || rec.Snapshot.Turns != 1 || rec.Plan != game.Outcome.Plan {
		t.Fatalf("recommendation out of sync: %+v", rec)
	}

	versions, _ := f.store.ListVersions(start.SessionID, 10)
	if len(versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(versions))
	}
	if versions[0].VersionID != game.VersionID || versions[0].ParentID != turn.VersionID {
		t.Fatal("version chain broken")
	}
	events, _ := logging.ListEvents(f.store.DB(), start.SessionID, 0)
	if len(events) != 3 || events[1].Kind != logging.EventTurn || events[2].Kind != logging.EventGame {
		t.Fatalf("unexpected event log %+v", events)
	}

	diag, err := c.Snapshot(ctx(t))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(diag.Arms) != len(beat.Order) {
		t.Fatalf("expected %d arms, got %d", len(beat.Order), len(diag.Arms))
	}
}

func TestSeedOverrideIsDeterministic(t *testing.T) {
	f := newFixture(t)
	seed := int64(7)
	play := func() director.Outcome {
		c := f.dial()
		if _, err := c.StartSession(ctx(t), &seed); err != nil {
			t.Fatalf("StartSession: %v", err)
		}
		var out director.Outcome
		for g := 0; g < 3; g++ {
			resp, err := c.ObserveGame(ctx(t), player.GameResult{PlayerWon: g != 1})
			if err != nil {
				t.Fatalf("ObserveGame: %v", err)
			}
			out = resp.Outcome
		}
		return out
	}
	if a, b := play(), play(); a != b {
		t.Fatalf("same seed diverged:\n%+v\n%+v", a, b)
	}
}

func TestSessionSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	tokens := NewTokens("restart-secret", time.Hour)
	store, err := state.NewStore(filepath.Join(dir, "rpc.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	first := startServer(t, store, tokens).dial()
	start, _ := first.StartSession(ctx(t), nil)
	game, err := first.ObserveGame(ctx(t), player.GameResult{PlayerWon: true})
	if err != nil {
		t.Fatalf("ObserveGame: %v", err)
	}

	// a fresh server shares only the store and the signing key
	second := startServer(t, store, tokens).dial()
	second.SetToken(start.Token)
	rec, err := second.Recommend(ctx(t))
	if err != nil {
		t.Fatalf("Recommend after restart: %v", err)
	}
	if rec.Plan != game.Outcome.Plan || rec.Snapshot.Games != 1 {
		t.Fatalf("restored session differs: %+v", rec)
	}
}

// #endregion session-tests

// #region observation-tests
func TestObserveTurn_MalformedFieldsDegrade(t *testing.T) {
	f := newFixture(t)
	c := f.dial()
	start, err := c.StartSession(ctx(t), nil)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	payloads := []map[string]any{
		{"actions_taken": 2.5},
		{"mistakes": "none", "turn_ms": 4000},
		{"turn_ms": "slow", "actions_taken": "3"},
		{},
	}
	for _, p := range payloads {
		var resp TurnResponse
		if err := c.call(ctx(t), MethodObserveTurn, p, &resp); err != nil {
			t.Fatalf("ObserveTurn(%v): %v", p, err)
		}
	}

	rec, err := c.Recommend(ctx(t))
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Snapshot.Turns != len(payloads) {
		t.Fatalf("expected %d turns, got %d", len(payloads), rec.Snapshot.Turns)
	}

	events, _ := logging.ListEvents(f.store.DB(), start.SessionID, 0)
	want := []signals.TurnSummary{
		{ActionsTaken: 2},
		{TurnMs: 4000},
		{ActionsTaken: 3},
		{},
	}
	if len(events) != len(want)+1 {
		t.Fatalf("expected %d events, got %d", len(want)+1, len(events))
	}
	for i, w := range want {
		var ev logging.EventRecord
		if err := json.Unmarshal([]byte(events[i+1].PayloadJSON), &ev); err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if ev.Turn == nil || *ev.Turn != w {
			t.Fatalf("event %d: recorded %+v, want %+v", i, ev.Turn, w)
		}
	}
}

func TestObserveGame_MalformedFieldsDegrade(t *testing.T) {
	c := newFixture(t).dial()
	if _, err := c.StartSession(ctx(t), nil); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	var resp GameResponse
	if err := c.call(ctx(t), MethodObserveGame, map[string]any{"player_won": "yes", "close_game": 1}, &resp); err != nil {
		t.Fatalf("ObserveGame: %v", err)
	}
	if resp.Outcome.Plan.Beat != resp.Outcome.Beat {
		t.Fatalf("unexpected outcome %+v", resp.Outcome)
	}
	rec, err := c.Recommend(ctx(t))
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Snapshot.Games != 1 {
		t.Fatalf("expected 1 game, got %d", rec.Snapshot.Games)
	}
}

func TestFailedCommitLeavesSessionUnchanged(t *testing.T) {
	f := newFixture(t)
	c := f.dial()
	start, err := c.StartSession(ctx(t), nil)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	f.store.Close()

	for i := 0; i < 2; i++ {
		_, err := c.ObserveTurn(ctx(t), signals.TurnSummary{TurnMs: 5000, ActionsTaken: 3, Mistakes: 1})
		if status.Code(errors.Unwrap(err)) != codes.Internal {
			t.Fatalf("expected Internal, got %v", err)
		}
	}
	if _, err := c.ObserveGame(ctx(t), player.GameResult{PlayerWon: true}); status.Code(errors.Unwrap(err)) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}

	rec, err := c.Recommend(ctx(t))
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Snapshot.Turns != 0 || rec.Snapshot.Games != 0 {
		t.Fatalf("failed commits leaked into the session: %+v", rec.Snapshot)
	}
	if rec != start.Recommendation {
		t.Fatalf("recommendation moved without a commit:\n%+v\n%+v", rec, start.Recommendation)
	}
}

func TestTurnFromStruct(t *testing.T) {
	s, _ := toStruct(map[string]any{"turn_ms": 6100.5, "actions_taken": 3.9, "mistakes": -1.5})
	got := turnFromStruct(s)
	if got != (signals.TurnSummary{TurnMs: 6100.5, ActionsTaken: 3, Mistakes: -1}) {
		t.Fatalf("unexpected turn %+v", got)
	}
	if turnFromStruct(nil) != (signals.TurnSummary{}) {
		t.Fatal("nil payload should decode to an empty turn")
	}
	s, _ = toStruct(map[string]any{"actions_taken": 1e300, "mistakes": []any{1}})
	if got := turnFromStruct(s); got.ActionsTaken != maxCount || got.Mistakes != 0 {
		t.Fatalf("unexpected turn %+v", got)
	}
}

func TestGameFromStruct(t *testing.T) {
	s, _ := toStruct(map[string]any{"player_won": true, "close_game": "false", "comeback": "maybe"})
	if got := gameFromStruct(s); got != (player.GameResult{PlayerWon: true}) {
		t.Fatalf("unexpected game %+v", got)
	}
}

// #endregion observation-tests

// #region auth-tests
func TestMissingTokenRejected(t *testing.T) {
	c := newFixture(t).dial()
	_, err := c.Recommend(ctx(t))
	if status.Code(errors.Unwrap(err)) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestForgedTokenRejected(t *testing.T) {
	c := newFixture(t).dial()
	forged, _ := NewTokens("other-secret", time.Hour).Issue("someone")
	c.SetToken(forged)
	_, err := c.ObserveTurn(ctx(t), signals.TurnSummary{TurnMs: 1000})
	if status.Code(errors.Unwrap(err)) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestUnknownSessionNotFound(t *testing.T) {
	f := newFixture(t)
	c := f.dial()
	token, _ := f.tokens.Issue("never-started")
	c.SetToken(token)
	_, err := c.Recommend(ctx(t))
	if status.Code(errors.Unwrap(err)) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

// #endregion auth-tests
