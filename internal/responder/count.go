package responder

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/scene-clarify/internal/candidates"
	"github.com/ziadkadry99/scene-clarify/internal/llm"
	"github.com/ziadkadry99/scene-clarify/internal/scene"
)

var countingPhrases = []string{"how many", "count", "number of", "how much", "total"}

// IsCountingQuestion is a phrase heuristic; it misses counting questions
// worded any other way.
func IsCountingQuestion(q string) bool {
	q = strings.ToLower(q)
	for _, p := range countingPhrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

// CountSource says where a count came from.
type CountSource string

const (
	CountFromImage CountSource = "image"
	CountFromScene CountSource = "scene"
	CountUnknown   CountSource = "none"
)

// CountResult is the outcome of the counting path.
type CountResult struct {
	Answer      string      `json:"-"`
	Value       int         `json:"value"`
	Approximate bool        `json:"approximate"`
	Reason      string      `json:"reason,omitempty"`
	Source      CountSource `json:"source"`
}

type countReply struct {
	Count       *int   `json:"count"`
	Approximate bool   `json:"approximate"`
	Reason      string `json:"reason"`
	Answer      string `json:"answer"`
}

// Count re-inspects the image to answer a counting question, since scene
// counts are unreliable. target may be nil when only a clarification is
// known. Without an image, or when the vision call fails, the scene's own
// count guesses are used, and failing that a fixed answer.
func (r *Responder) Count(ctx context.Context, s *scene.Scene, question, clarification string, target *scene.Pick, img llm.Image) CountResult {
	var targetSummary string
	if target != nil {
		targetSummary = TargetSummary(s, *target)
	}

	if len(img.Data) > 0 {
		content, ok := r.complete(ctx, "count", llm.CompletionRequest{
			Model: r.cfg.VisionModel,
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: groundingSystemPrompt},
				{
					Role:    llm.RoleUser,
					Content: buildCountPrompt(question, clarification, targetSummary),
					Images:  []llm.Image{img},
				},
			},
			MaxTokens:   512,
			Temperature: 0,
			JSONMode:    true,
		})
		if ok {
			if parsed := decodeJSON[countReply](content); parsed != nil && parsed.Count != nil && *parsed.Count >= 0 {
				return imageCount(*parsed)
			}
			r.logger.Warn("unusable count reply, using scene counts")
		}
	}

	if n, ok := sceneCount(s, target, question+" "+clarification); ok {
		return CountResult{
			Answer:      fmt.Sprintf("Based on the scene description, there are about %d. This count is approximate.", n),
			Value:       n,
			Approximate: true,
			Reason:      "estimated from the scene description",
			Source:      CountFromScene,
		}
	}
	return CountResult{Answer: DefaultCountAnswer, Source: CountUnknown}
}

func imageCount(c countReply) CountResult {
	res := CountResult{
		Value:       *c.Count,
		Approximate: c.Approximate,
		Reason:      strings.TrimSpace(c.Reason),
		Source:      CountFromImage,
	}

	answer := strings.TrimSpace(c.Answer)
	if answer == "" {
		answer = fmt.Sprintf("I count %d.", res.Value)
	}
	if res.Approximate && !strings.Contains(strings.ToLower(answer), "approximate") {
		note := "This count is approximate"
		if res.Reason != "" {
			note += " (" + res.Reason + ")"
		}
		answer += " " + note + "."
	}
	res.Answer = answer
	return res
}

// sceneCount totals count guesses for the target, or for every object whose
// name the text mentions when no target is bound.
func sceneCount(s *scene.Scene, target *scene.Pick, text string) (int, bool) {
	total := 0
	if target != nil {
		switch target.Kind {
		case scene.PickObject:
			if o, ok := s.Object(target.Ref); ok {
				total = o.CountGuess
			}
		case scene.PickGroup:
			if g, ok := s.Group(target.Ref); ok {
				for _, o := range s.Members(g) {
					total += o.CountGuess
				}
			}
		case scene.PickDetail:
		}
		return total, total > 0
	}

	for _, o := range s.Objects {
		if o.Name != "" && candidates.Mentions(text, o.Name) {
			total += o.CountGuess
		}
	}
	return total, total > 0
}
