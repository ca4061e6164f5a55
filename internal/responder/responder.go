// Package responder turns a scene, a question and the current dialogue focus
// into user-facing text. It never fails: when generation errors out or
// returns something unusable, a fixed safe default is substituted.
package responder

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/scene-clarify/internal/llm"
	"github.com/ziadkadry99/scene-clarify/internal/logging"
	"github.com/ziadkadry99/scene-clarify/internal/scene"
)

// Fallback texts used when generation fails.
const (
	DefaultOnePassAnswer    = "I couldn't generate an answer from the scene information."
	DefaultClarifyAnswer    = "I see multiple possible things you could mean in the image."
	DefaultClarifyFollowUp  = "Which one do you mean?"
	DefaultFocusedAnswer    = "Here are details about the selected item."
	DefaultFocusedFollowUp  = "Do you want more detail, or are you satisfied?"
	DefaultCountAnswer      = "I couldn't count that reliably from the image."
	AmbiguityNotedNote      = "Ambiguity noted in answer."
	AmbiguityAssumptionNote = "If the question is ambiguous, the answer includes multiple plausible interpretations."
)

// Config holds the model choices and limits for a Responder.
type Config struct {
	Model       string
	VisionModel string        // used by Count; falls back to Model
	Timeout     time.Duration // per generation call; zero means no extra deadline
	Logger      *zap.Logger
}

// Responder produces grounded answers using an llm.Provider.
type Responder struct {
	provider llm.Provider
	cfg      Config
	logger   *zap.Logger
}

// New creates a Responder backed by provider.
func New(provider llm.Provider, cfg Config) *Responder {
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}
	return &Responder{
		provider: provider,
		cfg:      cfg,
		logger:   logging.OrNop(cfg.Logger).Named("responder"),
	}
}

// OnePassResult is the answer to a question asked without a dialogue.
type OnePassResult struct {
	Answer        string
	AmbiguityNote string
}

// Reply is an answer paired with the question to ask next.
type Reply struct {
	Answer           string `json:"answer"`
	FollowUpQuestion string `json:"follow_up_question"`
}

// OnePass answers the question from the whole scene in a single call.
func (r *Responder) OnePass(ctx context.Context, s *scene.Scene, question string) OnePassResult {
	content, ok := r.complete(ctx, "one_pass", llm.CompletionRequest{
		Model: r.cfg.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: groundingSystemPrompt},
			{Role: llm.RoleUser, Content: buildOnePassPrompt(s, question)},
		},
		MaxTokens:   1024,
		Temperature: 0.2,
	})

	answer := strings.TrimSpace(content)
	if !ok || answer == "" {
		answer = DefaultOnePassAnswer
	}
	return OnePassResult{Answer: answer, AmbiguityNote: AmbiguityNote(answer)}
}

// AmbiguityNote summarizes whether a one-pass answer dealt with ambiguity.
func AmbiguityNote(answer string) string {
	if strings.Contains(strings.ToLower(answer), "ambig") {
		return AmbiguityNotedNote
	}
	return AmbiguityAssumptionNote
}

// Clarify surfaces that the question has several plausible referents and
// asks which one the user means. The options are listed in the prompt so the
// follow-up can refer to them, but they are never taken from the model.
func (r *Responder) Clarify(ctx context.Context, s *scene.Scene, question string, options []scene.Option) Reply {
	content, ok := r.complete(ctx, "clarify", llm.CompletionRequest{
		Model: r.cfg.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: groundingSystemPrompt},
			{Role: llm.RoleUser, Content: buildClarifyPrompt(s, question, options)},
		},
		MaxTokens:   512,
		Temperature: 0.2,
		JSONMode:    true,
	})

	reply := Reply{}
	if ok {
		if parsed := decodeJSON[Reply](content); parsed != nil {
			reply = *parsed
		}
	}
	return reply.withDefaults(DefaultClarifyAnswer, DefaultClarifyFollowUp)
}

// Focused answers about one bound referent using only its grounded summary.
// focus is one of attributes, location, text, count or all.
func (r *Responder) Focused(ctx context.Context, question, summary, focus string) Reply {
	if focus == "" {
		focus = "all"
	}
	content, ok := r.complete(ctx, "focused", llm.CompletionRequest{
		Model: r.cfg.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: groundingSystemPrompt},
			{Role: llm.RoleUser, Content: buildFocusedPrompt(question, summary, focus)},
		},
		MaxTokens:   512,
		Temperature: 0.2,
		JSONMode:    true,
	})

	reply := Reply{}
	if ok {
		if parsed := decodeJSON[Reply](content); parsed != nil {
			reply = *parsed
		}
	}
	return reply.withDefaults(DefaultFocusedAnswer, DefaultFocusedFollowUp)
}

func (rep Reply) withDefaults(answer, followUp string) Reply {
	rep.Answer = strings.TrimSpace(rep.Answer)
	rep.FollowUpQuestion = strings.TrimSpace(rep.FollowUpQuestion)
	if rep.Answer == "" {
		rep.Answer = answer
	}
	if rep.FollowUpQuestion == "" {
		rep.FollowUpQuestion = followUp
	}
	return rep
}

// complete runs one generation call. It reports false on any failure, which
// has already been logged.
func (r *Responder) complete(ctx context.Context, step string, req llm.CompletionRequest) (string, bool) {
	if r.provider == nil {
		r.logger.Warn("no generation provider configured", zap.String("step", step))
		return "", false
	}
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := r.provider.Complete(ctx, req)
	if err != nil {
		r.logger.Warn("generation failed, using fallback",
			zap.String("step", step),
			zap.String("provider", r.provider.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return "", false
	}

	r.logger.Debug("generation complete",
		zap.String("step", step),
		zap.String("model", resp.Model),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
		zap.Float64("cost_usd", llm.EstimateCost(resp.Model, resp.InputTokens, resp.OutputTokens)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp.Content, true
}

// decodeJSON parses model output into T, tolerating prose or markdown fences
// around the object. It returns nil when nothing usable was found.
func decodeJSON[T any](content string) *T {
	raw, ok := scene.ExtractJSONObject(content)
	if !ok {
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil
	}
	return &v
}
