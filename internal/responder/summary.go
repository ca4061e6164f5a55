package responder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ziadkadry99/scene-clarify/internal/scene"
)

// TargetSummary describes the pick's referent using only scene fields.
// A missing referent yields a "not found" line instead of an error.
func TargetSummary(s *scene.Scene, p scene.Pick) string {
	switch p.Kind {
	case scene.PickObject:
		o, ok := s.Object(p.Ref)
		if !ok {
			return "Target object id not found: " + p.Ref
		}
		return fmt.Sprintf("Target object: %s\nLocation: %s\nCount guess: %d\nAttributes: %s\nVisible text: %s\nConfidence: %s",
			o.Name,
			o.Location,
			o.CountGuess,
			joinOrNone(o.Attributes),
			joinOrNone(o.VisibleText),
			strconv.FormatFloat(o.Confidence, 'g', -1, 64),
		)

	case scene.PickGroup:
		g, ok := s.Group(p.Ref)
		if !ok {
			return "Target group not found: " + p.Ref
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Target group: %s\nSpatial summary: %s\nObjects in group:", g.Name, g.SpatialSummary)
		for _, o := range s.Members(g) {
			attrs := o.Attributes
			if len(attrs) > 2 {
				attrs = attrs[:2]
			}
			fmt.Fprintf(&b, "\n- %s (%s) attrs: %s", o.Name, o.Location, strings.Join(attrs, ", "))
		}
		return b.String()

	case scene.PickDetail:
		return "Target not found: " + p.Ref

	default:
		return "Target not found: " + p.Ref
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
