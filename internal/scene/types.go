package scene

// Object is a single detected entity in an image.
type Object struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	CountGuess  int      `json:"count_guess"`
	Location    string   `json:"location"`   // "right-middle", "center", "top-left", ...
	Attributes  []string `json:"attributes"` // "transparent", "blue cap"
	VisibleText []string `json:"visible_text"`
	Confidence  float64  `json:"confidence"` // 0..1
}

// Group is a named, spatially coherent set of objects.
type Group struct {
	Name           string   `json:"group_name"`
	ObjectIDs      []string `json:"object_ids"`
	SpatialSummary string   `json:"spatial_summary"`
}

// AmbiguityCandidate is a referent the extractor flagged as a likely source of confusion.
type AmbiguityCandidate struct {
	Type   PickKind `json:"candidate_type"` // object | group
	Ref    string   `json:"ref"`            // object id or group name
	Reason string   `json:"why_ambiguous"`
}

// Scene is the structured description of one image.
type Scene struct {
	Objects    []Object             `json:"objects"`
	Groups     []Group              `json:"salient_groups"`
	Candidates []AmbiguityCandidate `json:"ambiguity_candidates"`
}

// PickKind tags the variant of a Pick.
type PickKind string

const (
	PickObject PickKind = "object"
	PickGroup  PickKind = "group"
	PickDetail PickKind = "detail"
)

// Pick is a typed reference to what the user means. For object picks Ref is
// an object id, for group picks a group name, and for detail picks one of the
// detail focus values or "done".
type Pick struct {
	Kind PickKind `json:"type"`
	Ref  string   `json:"ref"`
}

// IsReferent reports whether the pick points at something in the scene.
func (p Pick) IsReferent() bool {
	switch p.Kind {
	case PickObject, PickGroup:
		return true
	case PickDetail:
		return false
	default:
		return false
	}
}

// Object returns the object with the given id.
func (s *Scene) Object(id string) (Object, bool) {
	for _, o := range s.Objects {
		if o.ID == id {
			return o, true
		}
	}
	return Object{}, false
}

// Group returns the group with the given name.
func (s *Scene) Group(name string) (Group, bool) {
	for _, g := range s.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}

// Members resolves a group's object ids, skipping ids that are not in the scene.
func (s *Scene) Members(g Group) []Object {
	var out []Object
	for _, id := range g.ObjectIDs {
		if o, ok := s.Object(id); ok {
			out = append(out, o)
		}
	}
	return out
}

// Resolves reports whether the pick's referent exists in the scene.
func (s *Scene) Resolves(p Pick) bool {
	switch p.Kind {
	case PickObject:
		_, ok := s.Object(p.Ref)
		return ok
	case PickGroup:
		_, ok := s.Group(p.Ref)
		return ok
	default:
		return false
	}
}

// DanglingRefs lists group members and candidate references that do not
// resolve inside the scene. They are tolerated, but worth logging.
func (s *Scene) DanglingRefs() []string {
	var out []string
	for _, g := range s.Groups {
		for _, id := range g.ObjectIDs {
			if _, ok := s.Object(id); !ok {
				out = append(out, "group "+g.Name+": object "+id)
			}
		}
	}
	for _, c := range s.Candidates {
		if !s.Resolves(Pick{Kind: c.Type, Ref: c.Ref}) {
			out = append(out, "candidate "+string(c.Type)+": "+c.Ref)
		}
	}
	return out
}

// Option is one selectable branch offered to the user.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Pick  Pick   `json:"pick"`
}
