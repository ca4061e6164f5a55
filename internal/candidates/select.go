// Package candidates picks and labels the referents offered to a user when a
// question about a scene does not say which thing it is about.
package candidates

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ziadkadry99/scene-clarify/internal/scene"
)

// DefaultLimit is the number of referents offered when the caller does not configure one.
const DefaultLimit = 5

// Select returns up to limit picks for the scene. The extractor's explicit
// ambiguity candidates win, in their given order. Without them, objects are
// ranked by descending confidence, keeping scene order on ties.
func Select(s *scene.Scene, limit int) []scene.Pick {
	if s == nil || limit <= 0 {
		return nil
	}

	var picks []scene.Pick
	for _, c := range s.Candidates {
		kind := scene.PickGroup
		if c.Type == scene.PickObject {
			kind = scene.PickObject
		}
		picks = append(picks, scene.Pick{Kind: kind, Ref: c.Ref})
	}

	if len(picks) == 0 {
		ranked := make([]scene.Object, len(s.Objects))
		copy(ranked, s.Objects)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Confidence > ranked[j].Confidence
		})
		for _, o := range ranked {
			picks = append(picks, scene.Pick{Kind: scene.PickObject, Ref: o.ID})
		}
	}

	if len(picks) > limit {
		picks = picks[:limit]
	}
	return picks
}

// Label renders a human-readable description of a pick. Referents missing
// from the scene fall back to the raw reference.
func Label(s *scene.Scene, p scene.Pick) string {
	switch p.Kind {
	case scene.PickGroup:
		g, ok := s.Group(p.Ref)
		if !ok {
			return p.Ref
		}
		return fmt.Sprintf("%s (%s)", g.Name, g.SpatialSummary)

	case scene.PickObject:
		o, ok := s.Object(p.Ref)
		if !ok {
			return p.Ref
		}
		var extras []string
		if attrs := firstN(o.Attributes, 2); len(attrs) > 0 {
			extras = append(extras, strings.Join(attrs, ", "))
		}
		if txt := firstN(o.VisibleText, 1); len(txt) > 0 {
			extras = append(extras, "text: "+txt[0])
		}
		if len(extras) == 0 {
			return fmt.Sprintf("%s (%s)", o.Name, o.Location)
		}
		return fmt.Sprintf("%s (%s; %s)", o.Name, o.Location, strings.Join(extras, "; "))

	case scene.PickDetail:
		return p.Ref

	default:
		return p.Ref
	}
}

// Options turns picks into selectable options with ids opt1..optN.
func Options(s *scene.Scene, picks []scene.Pick) []scene.Option {
	opts := make([]scene.Option, 0, len(picks))
	for i, p := range picks {
		opts = append(opts, scene.Option{
			ID:    fmt.Sprintf("opt%d", i+1),
			Label: Label(s, p),
			Pick:  p,
		})
	}
	return opts
}

func firstN(items []string, n int) []string {
	var out []string
	for _, it := range items {
		if strings.TrimSpace(it) == "" {
			continue
		}
		out = append(out, it)
		if len(out) == n {
			break
		}
	}
	return out
}
