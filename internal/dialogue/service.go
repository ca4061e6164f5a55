package dialogue

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ziadkadry99/scene-clarify/internal/logging"
	"github.com/ziadkadry99/scene-clarify/internal/scene"
)

// Service runs turns on behalf of callers that keep their dialogue on the
// server: HTTP clients passing a session id, websocket connections and chat
// frontends. It also enforces the turn cap, which the Engine leaves to its
// callers.
type Service struct {
	engine   *Engine
	store    SessionStore
	maxTurns int
	logger   *zap.Logger
}

// NewService wires an engine to a session store. maxTurns <= 0 disables the cap.
func NewService(engine *Engine, store SessionStore, maxTurns int, logger *zap.Logger) *Service {
	return &Service{
		engine:   engine,
		store:    store,
		maxTurns: maxTurns,
		logger:   logging.OrNop(logger).Named("sessions"),
	}
}

// Engine returns the underlying stateless engine.
func (s *Service) Engine() *Engine {
	return s.engine
}

// MaxTurns returns the configured turn cap.
func (s *Service) MaxTurns() int {
	return s.maxTurns
}

// Turn runs a request. Without a session id it is passed straight to the
// engine; otherwise the stored session supplies whatever the request omits
// and is updated with the outcome. Option ids only resolve against a session.
func (s *Service) Turn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	if req.SessionID == "" {
		if req.OptionID != "" && req.Selection == nil {
			return nil, fmt.Errorf("%w: option_id requires session_id; send selection instead", ErrPrecondition)
		}
		return s.engine.Turn(ctx, req)
	}

	sess, err := s.store.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	resp, err := s.Continue(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving session %s: %w", sess.ID, err)
	}
	resp.SessionID = sess.ID
	return resp, nil
}

// Continue runs req against an in-memory session and updates sess in place.
// Fields missing from req are taken from sess: scene, image, state and, for
// option-only turns, the previous question. A new scene restarts the dialogue.
func (s *Service) Continue(ctx context.Context, sess *Session, req TurnRequest) (*TurnResponse, error) {
	if req.SceneJSONText != "" && req.SceneJSONText != sess.SceneJSONText {
		if _, err := scene.Parse(req.SceneJSONText); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPrecondition, err)
		}
		sess.SceneJSONText = req.SceneJSONText
		sess.State = State{}
		sess.Options = nil
	}
	req.SceneJSONText = sess.SceneJSONText

	if req.ImageDataURL != "" {
		sess.ImageDataURL = req.ImageDataURL
	}
	req.ImageDataURL = sess.ImageDataURL

	if req.Question == "" {
		req.Question = sess.Question
	}
	if req.State == nil {
		st := sess.State.Clone()
		req.State = &st
	}

	if req.OptionID != "" && req.Selection == nil {
		opt, ok := OptionByID(sess.Options, req.OptionID)
		if !ok {
			return nil, fmt.Errorf("%w: option %q was not offered", ErrPrecondition, req.OptionID)
		}
		req.Selection = &opt.Pick
	}

	if req.Mode == ModeIterative && TurnLimitReached(*req.State, s.maxTurns) {
		return nil, fmt.Errorf("%w: %d of %d turns used", ErrTurnLimit, req.State.Turn, s.maxTurns)
	}

	resp, err := s.engine.Turn(ctx, req)
	if err != nil {
		return nil, err
	}

	sess.Question = req.Question
	if resp.Mode == ModeIterative && resp.UpdatedState != nil {
		sess.State = resp.UpdatedState.Clone()
		sess.Options = resp.Options
	}
	return resp, nil
}

// StartSession validates the scene and opens a session for it.
func (s *Service) StartSession(ctx context.Context, sceneJSONText, imageDataURL string) (*Session, error) {
	return s.StartSessionWithID(ctx, "", sceneJSONText, imageDataURL)
}

// StartSessionWithID is StartSession with a caller-chosen id, replacing any
// session already stored under it.
func (s *Service) StartSessionWithID(ctx context.Context, id, sceneJSONText, imageDataURL string) (*Session, error) {
	if _, err := scene.Parse(sceneJSONText); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrecondition, err)
	}
	if id != "" {
		if err := s.store.Delete(ctx, id); err != nil && !isNotFound(err) {
			return nil, err
		}
	}
	sess, err := s.store.Create(ctx, Session{
		ID:            id,
		SceneJSONText: sceneJSONText,
		ImageDataURL:  imageDataURL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	s.logger.Debug("session started", zap.String("session_id", sess.ID))
	return sess, nil
}

// Session returns a stored session.
func (s *Service) Session(ctx context.Context, id string) (*Session, error) {
	return s.store.Get(ctx, id)
}

// EndSession deletes a session.
func (s *Service) EndSession(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
