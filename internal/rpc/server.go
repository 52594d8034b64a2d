package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/adaptive-director/internal/director"
	"github.com/danielpatrickdp/adaptive-director/internal/eval"
	"github.com/danielpatrickdp/adaptive-director/internal/flow"
	"github.com/danielpatrickdp/adaptive-director/internal/logging"
	"github.com/danielpatrickdp/adaptive-director/internal/state"
)

// ErrUnknownSession is returned when a token names a session the store has never seen.
var ErrUnknownSession = errors.New("unknown session")

// #region types
// StartRequest optionally overrides the seed of a new session.
type StartRequest struct {
	Seed *int64 `json:"seed,omitempty"`
}

// StartResponse carries the credentials for a new session.
type StartResponse struct {
	SessionID      string                  `json:"session_id"`
	Token          string                  `json:"token"`
	VersionID      string                  `json:"version_id"`
	Recommendation director.Recommendation `json:"recommendation"`
}

// TurnResponse is the plan after a turn.
type TurnResponse struct {
	VersionID string          `json:"version_id"`
	Plan      flow.Plan       `json:"plan"`
	Eval      eval.EvalResult `json:"eval"`
}

// GameResponse is the outcome of a game.
type GameResponse struct {
	VersionID string           `json:"version_id"`
	Outcome   director.Outcome `json:"outcome"`
	Eval      eval.EvalResult  `json:"eval"`
}

// #endregion types

// #region server
type session struct {
	mu        sync.Mutex
	d         *director.Director
	versionID string
}

// Server implements DirectorServer on top of the versioned store. Every
// observation commits a new state version and an event log row.
type Server struct {
	store   *state.Store
	tokens  *Tokens
	config  director.Config
	harness *eval.EvalHarness
	log     zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithLogger sets the server's base logger.
func WithLogger(l zerolog.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// WithEvalConfig replaces the post-commit check bounds.
func WithEvalConfig(c eval.EvalConfig) ServerOption {
	return func(s *Server) { s.harness = eval.NewEvalHarness(c) }
}

// NewServer builds a server whose new sessions use config.
func NewServer(store *state.Store, tokens *Tokens, config director.Config, opts ...ServerOption) *Server {
	s := &Server{
		store:    store,
		tokens:   tokens,
		config:   config.Normalize(),
		harness:  eval.NewEvalHarness(eval.DefaultEvalConfig()),
		log:      zerolog.Nop(),
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// #endregion server

// #region handlers
// StartSession creates a session, persists its first version and issues a token.
func (s *Server) StartSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req StartRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	cfg := s.config
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	id := uuid.NewString()
	d := director.New(cfg, director.WithLogger(s.log.With().Str("session", id).Logger()))

	rec, err := s.store.CreateSession(id, d.Export())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "create session: %v", err)
	}
	token, err := s.tokens.Issue(id)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "issue token: %v", err)
	}
	if err := logging.LogEvent(s.store.DB(), logging.EventEntry{
		SessionID: id,
		VersionID: rec.VersionID,
		Kind:      logging.EventStart,
		Beat:      string(d.Recommend().Plan.Beat),
	}); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("event log write failed")
	}

	s.mu.Lock()
	s.sessions[id] = &session{d: d, versionID: rec.VersionID}
	s.mu.Unlock()

	zerolog.Ctx(ctx).Info().Str("session", id).Int64("seed", cfg.Seed).Msg("session started")
	return toStruct(StartResponse{
		SessionID:      id,
		Token:          token,
		VersionID:      rec.VersionID,
		Recommendation: d.Recommend(),
	})
}

// ObserveTurn records a player turn.
func (s *Server) ObserveTurn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	turn := turnFromStruct(in)
	sess, id, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	before := sess.d.Export()
	plan := sess.d.ObserveTurn(turn)
	res, err := s.commit(ctx, id, sess, logging.EventRecord{Kind: logging.EventTurn, Turn: &turn, Plan: plan})
	if err != nil {
		s.rollback(ctx, id, sess, before)
		return nil, err
	}
	return toStruct(TurnResponse{VersionID: sess.versionID, Plan: plan, Eval: res})
}

// ObserveGame records a completed game.
func (s *Server) ObserveGame(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	result := gameFromStruct(in)
	sess, id, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	before := sess.d.Export()
	out := sess.d.ObserveGame(result)
	res, err := s.commit(ctx, id, sess, logging.EventRecord{Kind: logging.EventGame, Game: &result, Outcome: &out, Plan: out.Plan})
	if err != nil {
		s.rollback(ctx, id, sess, before)
		return nil, err
	}
	return toStruct(GameResponse{VersionID: sess.versionID, Outcome: out, Eval: res})
}

// Recommend returns the current plan without changing the session.
func (s *Server) Recommend(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	sess, _, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	rec := sess.d.Recommend()
	sess.mu.Unlock()
	return toStruct(rec)
}

// Snapshot returns the full diagnostic view of the session.
func (s *Server) Snapshot(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	sess, _, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	diag := sess.d.Snapshot()
	sess.mu.Unlock()
	return toStruct(diag)
}

// #endregion handlers

// #region helpers
// session resolves the authenticated session, loading it from the store
// when this process has not seen it yet.
func (s *Server) session(ctx context.Context) (*session, string, error) {
	id, ok := SessionFromContext(ctx)
	if !ok {
		return nil, "", status.Error(codes.Unauthenticated, "no session in context")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, id, nil
	}

	rec, err := s.store.GetCurrent(id)
	if errors.Is(err, state.ErrNotFound) {
		return nil, id, status.Error(codes.NotFound, fmt.Errorf("session %s: %w", id, ErrUnknownSession).Error())
	}
	if err != nil {
		return nil, id, status.Errorf(codes.Internal, "load session: %v", err)
	}
	d, err := director.Restore(s.config, rec.State, director.WithLogger(s.log.With().Str("session", id).Logger()))
	if err != nil {
		return nil, id, status.Errorf(codes.FailedPrecondition, "restore session: %v", err)
	}

	sess := &session{d: d, versionID: rec.VersionID}
	s.sessions[id] = sess
	zerolog.Ctx(ctx).Info().Str("version", rec.VersionID).Msg("session restored from store")
	return sess, id, nil
}

// rollback puts the cached director back to the state it held before an
// observation whose commit failed, so the store and memory agree. When the
// state cannot be restored the session is dropped and reloads on next use.
// Callers hold sess.mu.
func (s *Server) rollback(ctx context.Context, id string, sess *session, before director.State) {
	d, err := director.Restore(s.config, before, director.WithLogger(s.log.With().Str("session", id).Logger()))
	if err == nil {
		sess.d = d
		zerolog.Ctx(ctx).Warn().Str("version", sess.versionID).Msg("observation rolled back after failed commit")
		return
	}
	zerolog.Ctx(ctx).Error().Err(err).Msg("rollback failed, evicting session")
	s.mu.Lock()
	if s.sessions[id] == sess {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
}

// commit checks the session, persists a new version and logs the event.
// Callers hold sess.mu.
func (s *Server) commit(ctx context.Context, id string, sess *session, ev logging.EventRecord) (eval.EvalResult, error) {
	log := zerolog.Ctx(ctx)

	res := s.harness.Run(sess.d.Snapshot())
	ev.EvalPassed = res.Passed
	ev.EvalFailed = res.Failed()
	if !res.Passed {
		log.Warn().Strs("failed", ev.EvalFailed).Msg(res.Reason)
	}

	rec := state.NewRecord(id, sess.versionID, sess.d.Export())
	if metrics, err := json.Marshal(res); err == nil {
		rec.MetricsJSON = string(metrics)
	}
	if err := s.store.CommitState(rec); err != nil {
		return eval.EvalResult{}, status.Errorf(codes.Internal, "commit state: %v", err)
	}
	sess.versionID = rec.VersionID

	payload, err := json.Marshal(ev)
	if err != nil {
		return res, status.Errorf(codes.Internal, "marshal event: %v", err)
	}
	if err := logging.LogEvent(s.store.DB(), logging.EventEntry{
		SessionID:   id,
		VersionID:   rec.VersionID,
		Kind:        ev.Kind,
		PayloadJSON: string(payload),
		Beat:        string(ev.Plan.Beat),
		Reason:      res.Reason,
	}); err != nil {
		log.Warn().Err(err).Msg("event log write failed")
	}
	return res, nil
}

// #endregion helpers
