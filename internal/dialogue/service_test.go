package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ziadkadry99/scene-clarify/internal/scene"
)

// fakeStore is a minimal SessionStore; the real backends live in the session package.
type fakeStore struct {
	mu       sync.Mutex
	next     int
	sessions map[string]Session
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]Session)}
}

func (f *fakeStore) Create(ctx context.Context, sess Session) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sess.ID == "" {
		f.next++
		sess.ID = fmt.Sprintf("s%d", f.next)
	}
	sess.CreatedAt = time.Now()
	sess.UpdatedAt = sess.CreatedAt
	f.sessions[sess.ID] = sess
	return &sess, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return &sess, nil
}

func (f *fakeStore) Save(ctx context.Context, sess *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[sess.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sess.ID)
	}
	f.sessions[sess.ID] = *sess
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func newTestService(p *scriptedProvider, maxTurns int) (*Service, *fakeStore) {
	store := newFakeStore()
	return NewService(newTestEngine(p), store, maxTurns, nil), store
}

func TestServiceSessionDialogue(t *testing.T) {
	svc, store := newTestService(defaultReply(), 8)
	ctx := context.Background()

	sess, err := svc.StartSession(ctx, apples, "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	first, err := svc.Turn(ctx, TurnRequest{Mode: ModeIterative, Question: "what is it?", SessionID: sess.ID})
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if first.SessionID != sess.ID || first.Phase != PhaseAwaitingSelection {
		t.Fatalf("unexpected first response %+v", first)
	}

	second, err := svc.Turn(ctx, TurnRequest{Mode: ModeIterative, OptionID: "opt2", SessionID: sess.ID})
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if second.Phase != PhaseFocused || second.UpdatedState.SelectedCandidate.Ref != "a2" {
		t.Fatalf("option id should bind a2, got %+v", second.UpdatedState)
	}

	third, err := svc.Turn(ctx, TurnRequest{Mode: ModeIterative, OptionID: "more_text", SessionID: sess.ID})
	if err != nil {
		t.Fatalf("third turn: %v", err)
	}
	if third.UpdatedState.DetailFocus != FocusText || third.UpdatedState.Turn != 3 {
		t.Errorf("unexpected state %+v", third.UpdatedState)
	}

	stored, _ := store.Get(ctx, sess.ID)
	if stored.Question != "what is it?" {
		t.Errorf("question should carry over, got %q", stored.Question)
	}
	if stored.State.Turn != 3 || len(stored.Options) != len(DetailOptions()) {
		t.Errorf("session not updated: %+v", stored)
	}
}

func TestServiceUnknownOption(t *testing.T) {
	svc, _ := newTestService(defaultReply(), 0)
	ctx := context.Background()
	sess, _ := svc.StartSession(ctx, apples, "")
	_, err := svc.Turn(ctx, TurnRequest{Mode: ModeIterative, Question: "q", OptionID: "opt9", SessionID: sess.ID})
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
}

func TestServiceOptionIDWithoutSession(t *testing.T) {
	p := defaultReply()
	svc, _ := newTestService(p, 0)
	_, err := svc.Turn(context.Background(), TurnRequest{
		Mode:          ModeIterative,
		Question:      "what is it?",
		SceneJSONText: apples,
		OptionID:      "opt1",
	})
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
	if n := p.callCount(); n != 0 {
		t.Errorf("rejected turn should not generate, got %d calls", n)
	}
}

func TestServiceTurnLimit(t *testing.T) {
	p := defaultReply()
	svc, _ := newTestService(p, 2)
	ctx := context.Background()
	sess, _ := svc.StartSession(ctx, apples, "")

	for i := 0; i < 2; i++ {
		if _, err := svc.Turn(ctx, TurnRequest{Mode: ModeIterative, Question: "q", SessionID: sess.ID}); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
	}
	calls := p.callCount()
	_, err := svc.Turn(ctx, TurnRequest{Mode: ModeIterative, Question: "q", SessionID: sess.ID})
	if !errors.Is(err, ErrTurnLimit) {
		t.Fatalf("expected ErrTurnLimit, got %v", err)
	}
	if p.callCount() != calls {
		t.Error("a refused turn must not call the generator")
	}

	// One-pass questions are not dialogue turns.
	if _, err := svc.Turn(ctx, TurnRequest{Mode: ModeOnePass, Question: "q", SessionID: sess.ID}); err != nil {
		t.Errorf("one-pass should ignore the cap: %v", err)
	}
}

func TestServiceNewSceneRestartsDialogue(t *testing.T) {
	svc, _ := newTestService(defaultReply(), 0)
	ctx := context.Background()
	sess := &Session{SceneJSONText: apples, State: State{Turn: 5, SelectedCandidate: &scene.Pick{Kind: scene.PickObject, Ref: "a1"}}}

	resp, err := svc.Continue(ctx, sess, TurnRequest{Mode: ModeIterative, Question: "q", SceneJSONText: threeObjects})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.UpdatedState.Turn != 1 || resp.Phase != PhaseAwaitingSelection {
		t.Errorf("new scene should restart at turn 0, got %+v", resp.UpdatedState)
	}
	if sess.SceneJSONText != threeObjects {
		t.Error("session scene not replaced")
	}
}

func TestServiceRejectsInvalidScene(t *testing.T) {
	svc, store := newTestService(defaultReply(), 0)
	_, err := svc.StartSession(context.Background(), "{}", "")
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
	if len(store.sessions) != 0 {
		t.Error("no session should be created")
	}
}

func TestServiceUnknownSession(t *testing.T) {
	svc, _ := newTestService(defaultReply(), 0)
	_, err := svc.Turn(context.Background(), TurnRequest{Mode: ModeIterative, SessionID: "missing"})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestServiceStartSessionWithIDReplaces(t *testing.T) {
	svc, store := newTestService(defaultReply(), 0)
	ctx := context.Background()
	if _, err := svc.StartSessionWithID(ctx, "chat-1", apples, ""); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := svc.Turn(ctx, TurnRequest{Mode: ModeIterative, Question: "q", SessionID: "chat-1"}); err != nil {
		t.Fatalf("turn: %v", err)
	}
	sess, err := svc.StartSessionWithID(ctx, "chat-1", threeObjects, "")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if sess.ID != "chat-1" || sess.State.Turn != 0 {
		t.Errorf("expected a fresh session, got %+v", sess)
	}
	if len(store.sessions) != 1 {
		t.Errorf("expected one stored session, got %d", len(store.sessions))
	}
}

func TestServiceStatelessPassthrough(t *testing.T) {
	svc, store := newTestService(defaultReply(), 1)
	resp, err := svc.Turn(context.Background(), TurnRequest{
		Mode: ModeIterative, Question: "q", SceneJSONText: apples, State: &State{Turn: 10},
	})
	if err != nil {
		t.Fatalf("stateless callers own their loop: %v", err)
	}
	if resp.UpdatedState.Turn != 11 || resp.SessionID != "" {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(store.sessions) != 0 {
		t.Error("stateless turns must not create sessions")
	}
}
