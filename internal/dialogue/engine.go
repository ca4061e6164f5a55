// Package dialogue runs the clarification dialogue: per turn it decides
// whether to answer directly, offer the plausible referents, or drill into
// the one the user picked.
package dialogue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ziadkadry99/scene-clarify/internal/candidates"
	"github.com/ziadkadry99/scene-clarify/internal/llm"
	"github.com/ziadkadry99/scene-clarify/internal/logging"
	"github.com/ziadkadry99/scene-clarify/internal/responder"
	"github.com/ziadkadry99/scene-clarify/internal/scene"
)

// Engine is stateless; all dialogue state travels in requests and responses,
// so one Engine serves any number of concurrent sessions.
type Engine struct {
	responder  *responder.Responder
	maxOptions int
	logger     *zap.Logger
}

// NewEngine creates an engine that offers at most maxOptions referents per
// clarification. A non-positive maxOptions uses candidates.DefaultLimit.
func NewEngine(r *responder.Responder, maxOptions int, logger *zap.Logger) *Engine {
	if maxOptions <= 0 {
		maxOptions = candidates.DefaultLimit
	}
	return &Engine{
		responder:  r,
		maxOptions: maxOptions,
		logger:     logging.OrNop(logger).Named("dialogue"),
	}
}

// Turn handles one request. Only precondition failures are returned as
// errors; generation problems degrade to fallback text.
func (e *Engine) Turn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	s, err := scene.Parse(req.SceneJSONText)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrecondition, err)
	}
	if dangling := s.DanglingRefs(); len(dangling) > 0 {
		e.logger.Debug("scene has dangling references", zap.Strings("refs", dangling))
	}

	switch req.Mode {
	case ModeOnePass:
		res := e.responder.OnePass(ctx, s, req.Question)
		return &TurnResponse{
			Mode:          ModeOnePass,
			Phase:         PhaseDirect,
			Answer:        res.Answer,
			AmbiguityNote: res.AmbiguityNote,
		}, nil
	case ModeIterative:
		return e.iterate(ctx, s, req)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrPrecondition, req.Mode)
	}
}

func (e *Engine) iterate(ctx context.Context, s *scene.Scene, req TurnRequest) (*TurnResponse, error) {
	var state State
	if req.State != nil {
		state = req.State.Clone()
	}
	if err := validateState(state); err != nil {
		return nil, err
	}

	if req.Selection != nil {
		var err error
		if state, err = ApplySelection(state, *req.Selection); err != nil {
			return nil, err
		}
	}

	if state.SelectedCandidate == nil && req.Clarification != "" {
		if p, ok := candidates.Resolve(s, candidates.Select(s, e.maxOptions), req.Clarification); ok {
			e.logger.Debug("clarification bound a referent", zap.String("kind", string(p.Kind)), zap.String("ref", p.Ref))
			state = withReferent(state, p)
		}
	}

	next := state.Clone()
	next.Turn++

	clarified := req.Clarification != "" || state.SelectedCandidate != nil
	if clarified && req.ImageDataURL != "" && responder.IsCountingQuestion(req.Question) {
		img, err := llm.ParseDataURL(req.ImageDataURL)
		if err != nil {
			e.logger.Warn("unusable image, counting from scene", zap.Error(err))
		}
		count := e.responder.Count(ctx, s, req.Question, req.Clarification, state.SelectedCandidate, img)
		return &TurnResponse{
			Mode:         ModeIterative,
			Phase:        next.Phase(),
			Answer:       count.Answer,
			Options:      []scene.Option{},
			UpdatedState: &next,
			Count:        &count,
		}, nil
	}

	if state.SelectedCandidate == nil {
		options := candidates.Options(s, candidates.Select(s, e.maxOptions))
		reply := e.responder.Clarify(ctx, s, req.Question, options)
		return &TurnResponse{
			Mode:             ModeIterative,
			Phase:            PhaseAwaitingSelection,
			Answer:           reply.Answer,
			FollowUpQuestion: reply.FollowUpQuestion,
			Options:          options,
			UpdatedState:     &next,
		}, nil
	}

	focus := state.DetailFocus
	if focus == "" {
		focus = FocusAll
	}
	summary := responder.TargetSummary(s, *state.SelectedCandidate)
	reply := e.responder.Focused(ctx, req.Question, summary, string(focus))
	return &TurnResponse{
		Mode:             ModeIterative,
		Phase:            PhaseFocused,
		Answer:           reply.Answer,
		FollowUpQuestion: reply.FollowUpQuestion,
		Options:          DetailOptions(),
		UpdatedState:     &next,
	}, nil
}

func validateState(s State) error {
	if s.Turn < 0 {
		return fmt.Errorf("%w: negative turn %d", ErrPrecondition, s.Turn)
	}
	if s.SelectedCandidate != nil && !s.SelectedCandidate.IsReferent() {
		return fmt.Errorf("%w: selected candidate must be an object or group, got %q", ErrPrecondition, s.SelectedCandidate.Kind)
	}
	if !s.DetailFocus.Valid() {
		return fmt.Errorf("%w: unknown detail focus %q", ErrPrecondition, s.DetailFocus)
	}
	return nil
}
