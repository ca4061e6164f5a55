package candidates

import (
	"strings"
	"unicode"

	"github.com/ziadkadry99/scene-clarify/internal/scene"
)

// Resolve binds a free-text clarification such as "the bottle on the left" to
// exactly one of the offered picks. It matches object ids and names (singular
// or plural) and group names; when several picks share a name, the location
// words in the clarification break the tie. Anything short of a unique match
// binds nothing.
func Resolve(s *scene.Scene, picks []scene.Pick, clarification string) (scene.Pick, bool) {
	words := tokenize(clarification)
	if len(words) == 0 {
		return scene.Pick{}, false
	}
	padded := " " + strings.Join(words, " ") + " "

	var matched []scene.Pick
	for _, p := range picks {
		for _, term := range terms(s, p) {
			if mentions(padded, term) {
				matched = append(matched, p)
				break
			}
		}
	}

	switch len(matched) {
	case 0:
		return scene.Pick{}, false
	case 1:
		return matched[0], true
	}

	present := make(map[string]bool, len(words))
	for _, w := range words {
		present[w] = true
	}

	best, bestScore, tie := scene.Pick{}, 0, false
	for _, p := range matched {
		score := 0
		for _, w := range tokenize(location(s, p)) {
			if present[w] {
				score++
			}
		}
		switch {
		case score > bestScore:
			best, bestScore, tie = p, score, false
		case score == bestScore && score > 0:
			tie = true
		}
	}
	if bestScore == 0 || tie {
		return scene.Pick{}, false
	}
	return best, true
}

func terms(s *scene.Scene, p scene.Pick) []string {
	switch p.Kind {
	case scene.PickObject:
		out := []string{p.Ref}
		if o, ok := s.Object(p.Ref); ok && o.Name != "" {
			out = append(out, o.Name)
		}
		return out
	case scene.PickGroup:
		return []string{p.Ref}
	case scene.PickDetail:
		return nil
	default:
		return nil
	}
}

func location(s *scene.Scene, p scene.Pick) string {
	switch p.Kind {
	case scene.PickObject:
		if o, ok := s.Object(p.Ref); ok {
			return o.Location
		}
	case scene.PickGroup:
		if g, ok := s.Group(p.Ref); ok {
			return g.Name + " " + g.SpatialSummary
		}
	case scene.PickDetail:
	}
	return ""
}

// Mentions reports whether term, or its plural, appears as whole words in text.
func Mentions(text, term string) bool {
	words := tokenize(text)
	if len(words) == 0 {
		return false
	}
	return mentions(" "+strings.Join(words, " ")+" ", term)
}

// mentions reports whether the normalized term, or its plural, appears as
// whole words in padded text.
func mentions(padded, term string) bool {
	tw := tokenize(term)
	if len(tw) == 0 {
		return false
	}
	phrase := strings.Join(tw, " ")
	return strings.Contains(padded, " "+phrase+" ") ||
		strings.Contains(padded, " "+phrase+"s ") ||
		strings.Contains(padded, " "+phrase+"es ")
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
