package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ziadkadry99/scene-clarify/internal/responder"
	"github.com/ziadkadry99/scene-clarify/internal/scene"
)

var (
	// ErrPrecondition marks requests rejected before any generation happens.
	ErrPrecondition = errors.New("precondition failed")
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTurnLimit is returned by session-backed callers once a dialogue has
	// used all of its turns.
	ErrTurnLimit = errors.New("turn limit reached")
)

// Mode selects between a single direct answer and the clarification dialogue.
type Mode string

const (
	ModeOnePass   Mode = "one_pass"
	ModeIterative Mode = "iterative"
)

// Phase is the dialogue position a response was produced in.
type Phase string

const (
	PhaseDirect            Phase = "direct"
	PhaseAwaitingSelection Phase = "awaiting_selection"
	PhaseFocused           Phase = "focused"
)

// DetailFocus narrows what a focused answer concentrates on.
type DetailFocus string

const (
	FocusAttributes DetailFocus = "attributes"
	FocusLocation   DetailFocus = "location"
	FocusText       DetailFocus = "text"
	FocusCount      DetailFocus = "count"
	FocusAll        DetailFocus = "all"
)

// DoneRef is the detail ref of the "I'm satisfied" option.
const DoneRef = "done"

// Valid reports whether f is a known focus value. The zero value is valid
// and means "all".
func (f DetailFocus) Valid() bool {
	switch f {
	case "", FocusAttributes, FocusLocation, FocusText, FocusCount, FocusAll:
		return true
	default:
		return false
	}
}

// State is the caller-held dialogue state. Treat it as a value: every
// transition returns a new State and never shares the selected pick.
type State struct {
	Turn              int         `json:"turn"`
	SelectedCandidate *scene.Pick `json:"selected_candidate,omitempty"`
	DetailFocus       DetailFocus `json:"detail_focus,omitempty"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	if s.SelectedCandidate != nil {
		p := *s.SelectedCandidate
		s.SelectedCandidate = &p
	}
	return s
}

// Phase reports the dialogue phase this state is in.
func (s State) Phase() Phase {
	if s.SelectedCandidate != nil {
		return PhaseFocused
	}
	return PhaseAwaitingSelection
}

// TurnLimitReached reports whether a dialogue in state s has used max turns.
// A non-positive max never limits.
func TurnLimitReached(s State, max int) bool {
	return max > 0 && s.Turn >= max
}

// TurnRequest is one question, clarification or option choice.
type TurnRequest struct {
	Mode          Mode        `json:"mode"`
	Question      string      `json:"question"`
	SceneJSONText string      `json:"sceneJsonText"`
	Clarification string      `json:"clarification,omitempty"`
	ImageDataURL  string      `json:"imageDataUrl,omitempty"`
	State         *State      `json:"state,omitempty"`
	Selection     *scene.Pick `json:"selection,omitempty"`
	OptionID      string      `json:"option_id,omitempty"`
	SessionID     string      `json:"session_id,omitempty"`
}

// TurnResponse is the user-facing outcome of a turn. Its JSON form depends
// on Mode.
type TurnResponse struct {
	Mode             Mode                   `json:"mode"`
	Phase            Phase                  `json:"phase,omitempty"`
	Answer           string                 `json:"answer"`
	AmbiguityNote    string                 `json:"ambiguity_note,omitempty"`
	FollowUpQuestion string                 `json:"follow_up_question"`
	Options          []scene.Option         `json:"options"`
	UpdatedState     *State                 `json:"updated_state,omitempty"`
	Count            *responder.CountResult `json:"count,omitempty"`
	SessionID        string                 `json:"session_id,omitempty"`
}

type onePassJSON struct {
	Mode          Mode   `json:"mode"`
	Answer        string `json:"answer"`
	AmbiguityNote string `json:"ambiguity_note"`
	SessionID     string `json:"session_id,omitempty"`
}

type iterativeJSON struct {
	Mode             Mode                   `json:"mode"`
	Phase            Phase                  `json:"phase"`
	Answer           string                 `json:"answer"`
	FollowUpQuestion string                 `json:"follow_up_question"`
	Options          []scene.Option         `json:"options"`
	UpdatedState     *State                 `json:"updated_state"`
	Count            *responder.CountResult `json:"count,omitempty"`
	SessionID        string                 `json:"session_id,omitempty"`
}

// MarshalJSON emits only the fields that belong to the response's mode.
func (r TurnResponse) MarshalJSON() ([]byte, error) {
	if r.Mode == ModeOnePass {
		return json.Marshal(onePassJSON{
			Mode:          r.Mode,
			Answer:        r.Answer,
			AmbiguityNote: r.AmbiguityNote,
			SessionID:     r.SessionID,
		})
	}
	options := r.Options
	if options == nil {
		options = []scene.Option{}
	}
	return json.Marshal(iterativeJSON{
		Mode:             r.Mode,
		Phase:            r.Phase,
		Answer:           r.Answer,
		FollowUpQuestion: r.FollowUpQuestion,
		Options:          options,
		UpdatedState:     r.UpdatedState,
		Count:            r.Count,
		SessionID:        r.SessionID,
	})
}

// Session is the server-held dialogue context for callers that cannot keep
// state themselves.
type Session struct {
	ID            string         `json:"id"`
	SceneJSONText string         `json:"sceneJsonText"`
	ImageDataURL  string         `json:"imageDataUrl,omitempty"`
	Question      string         `json:"question,omitempty"`
	State         State          `json:"state"`
	Options       []scene.Option `json:"options"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	ExpiresAt     time.Time      `json:"expires_at"`
}

// SessionStore persists sessions until they expire. Get and Delete return
// ErrSessionNotFound for unknown or expired ids.
type SessionStore interface {
	// Create stores a new session, assigning an id when sess.ID is empty.
	Create(ctx context.Context, sess Session) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	// Save writes sess back and extends its expiry.
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}
