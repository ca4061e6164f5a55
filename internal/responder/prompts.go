package responder

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ziadkadry99/scene-clarify/internal/scene"
)

const groundingSystemPrompt = `You are an accessibility-focused visual question answering assistant for blind and low-vision users.
You answer questions about a photo using ONLY the structured scene information you are given.
Never invent objects, colors, text or counts that are not present in that information.
Keep answers short and easy to listen to with a screen reader.`

const replySchema = `{
  "answer": "...",
  "follow_up_question": "..."
}`

const countSchema = `{
  "count": 0,
  "approximate": false,
  "reason": "why the count may be unreliable, or empty",
  "answer": "one short sentence stating the count"
}`

func sceneJSON(s *scene.Scene) string {
	if s == nil {
		return "{}"
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func buildOnePassPrompt(s *scene.Scene, question string) string {
	var b strings.Builder
	b.WriteString("## Scene\n")
	b.WriteString(sceneJSON(s))
	fmt.Fprintf(&b, "\n\n## Question\n%s\n", question)
	b.WriteString("\nAnswer in one pass. If the question could refer to more than one thing in the scene, ")
	b.WriteString("say that it is ambiguous and answer briefly for each plausible interpretation.\n")
	return b.String()
}

func buildClarifyPrompt(s *scene.Scene, question string, options []scene.Option) string {
	var b strings.Builder
	b.WriteString("## Scene\n")
	b.WriteString(sceneJSON(s))
	fmt.Fprintf(&b, "\n\n## User Question\n%s\n", question)
	if len(options) > 0 {
		b.WriteString("\n## Options shown to the user\n")
		for _, o := range options {
			fmt.Fprintf(&b, "- %s\n", o.Label)
		}
	}
	b.WriteString("\nThe user has NOT said which object or region they mean.\n")
	b.WriteString("Write a short initial answer that says there are several possible things they could mean, ")
	b.WriteString("then one follow-up question asking which one.\n")
	b.WriteString("Return JSON ONLY:\n")
	b.WriteString(replySchema)
	return b.String()
}

var focusGuidance = map[string]string{
	"attributes": "Concentrate on the target's attributes such as color, material and shape.",
	"location":   "Concentrate on where the target is and what is near it.",
	"text":       "Read out any visible text on the target. Say so plainly if there is none.",
	"count":      "Concentrate on how many there are, using the count guess.",
	"all":        "Give a brief overall description covering the most useful details.",
}

func buildFocusedPrompt(question, summary, focus string) string {
	guidance, ok := focusGuidance[focus]
	if !ok {
		guidance = focusGuidance["all"]
	}

	var b strings.Builder
	b.WriteString("The user has selected a specific target (an object or a group).\n")
	b.WriteString("Give a targeted answer using ONLY the grounded target summary.\n")
	fmt.Fprintf(&b, "\n## User Question\n%s\n", question)
	fmt.Fprintf(&b, "\n## Detail Focus\n%s: %s\n", focus, guidance)
	fmt.Fprintf(&b, "\n## Grounded Target Summary\n%s\n", summary)
	b.WriteString("\nWrite a concise answer, then ask whether they want more detail (attributes, location or text) or are satisfied.\n")
	b.WriteString("Return JSON ONLY:\n")
	b.WriteString(replySchema)
	return b.String()
}

func buildCountPrompt(question, clarification, target string) string {
	var b strings.Builder
	b.WriteString("Look at the attached image and count what the user is asking about.\n")
	fmt.Fprintf(&b, "\n## User Question\n%s\n", question)
	if clarification != "" {
		fmt.Fprintf(&b, "\n## Clarification\n%s\n", clarification)
	}
	if target != "" {
		fmt.Fprintf(&b, "\n## What the scene description says about the target\n%s\n", target)
	}
	b.WriteString("\nCount directly from the image; the scene description may be wrong about counts.\n")
	b.WriteString("Set approximate to true when items are occluded, overlapping or densely packed.\n")
	b.WriteString("Return JSON ONLY:\n")
	b.WriteString(countSchema)
	return b.String()
}
