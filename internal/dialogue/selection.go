package dialogue

import (
	"fmt"

	"github.com/ziadkadry99/scene-clarify/internal/scene"
)

// DetailOptions is the fixed menu offered once a referent is bound.
func DetailOptions() []scene.Option {
	return []scene.Option{
		{ID: "more_attributes", Label: "More about attributes", Pick: scene.Pick{Kind: scene.PickDetail, Ref: string(FocusAttributes)}},
		{ID: "more_location", Label: "More about location", Pick: scene.Pick{Kind: scene.PickDetail, Ref: string(FocusLocation)}},
		{ID: "more_text", Label: "Read visible text", Pick: scene.Pick{Kind: scene.PickDetail, Ref: string(FocusText)}},
		{ID: "satisfied", Label: "I'm satisfied", Pick: scene.Pick{Kind: scene.PickDetail, Ref: DoneRef}},
	}
}

// IsDone reports whether p is the "I'm satisfied" choice.
func IsDone(p scene.Pick) bool {
	return p.Kind == scene.PickDetail && p.Ref == DoneRef
}

// ApplySelection folds the option the user chose into the state. Object and
// group picks bind the referent and reset the focus; detail picks only
// change the focus, so they never reopen referent choice. The done pick
// leaves the state as it is.
func ApplySelection(s State, p scene.Pick) (State, error) {
	switch p.Kind {
	case scene.PickObject, scene.PickGroup:
		if p.Ref == "" {
			return s, fmt.Errorf("%w: selection has an empty ref", ErrPrecondition)
		}
		return withReferent(s, p), nil
	case scene.PickDetail:
		if p.Ref == DoneRef {
			return s.Clone(), nil
		}
		focus := DetailFocus(p.Ref)
		if focus == "" || !focus.Valid() {
			return s, fmt.Errorf("%w: unknown detail %q", ErrPrecondition, p.Ref)
		}
		next := s.Clone()
		next.DetailFocus = focus
		return next, nil
	default:
		return s, fmt.Errorf("%w: unknown selection type %q", ErrPrecondition, p.Kind)
	}
}

// OptionByID finds an offered option.
func OptionByID(options []scene.Option, id string) (scene.Option, bool) {
	for _, o := range options {
		if o.ID == id {
			return o, true
		}
	}
	return scene.Option{}, false
}

func withReferent(s State, p scene.Pick) State {
	next := s.Clone()
	next.SelectedCandidate = &scene.Pick{Kind: p.Kind, Ref: p.Ref}
	next.DetailFocus = ""
	return next
}
