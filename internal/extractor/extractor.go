// Package extractor turns images into scene descriptions with a vision model.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/scene-clarify/internal/llm"
	"github.com/ziadkadry99/scene-clarify/internal/logging"
	"github.com/ziadkadry99/scene-clarify/internal/scene"
)

// ErrNoImage is returned when Extract is called without image bytes.
var ErrNoImage = errors.New("no image data")

const extractPrompt = `You are an accessibility-focused visual question answering system.
Describe the image as JSON ONLY, matching this schema:

{
  "objects": [
    {
      "id": "o1",
      "name": "bottle",
      "count_guess": 1,
      "location": "right-middle",
      "attributes": ["transparent", "blue cap"],
      "visible_text": [],
      "confidence": 0.0
    }
  ],
  "salient_groups": [
    { "group_name": "right cluster", "object_ids": ["o1"], "spatial_summary": "..." }
  ],
  "ambiguity_candidates": [
    { "candidate_type": "object", "ref": "o1", "why_ambiguous": "multiple similar items" }
  ]
}

Use short unique ids. List as ambiguity candidates the objects or groups a person
could plausibly mean when asking about "it" or "that one".`

// Config controls the vision call.
type Config struct {
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Extractor describes images as scene JSON.
type Extractor struct {
	provider llm.Provider
	cfg      Config
	logger   *zap.Logger
}

// New creates an Extractor backed by a vision-capable provider.
func New(provider llm.Provider, cfg Config) *Extractor {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &Extractor{
		provider: provider,
		cfg:      cfg,
		logger:   logging.OrNop(cfg.Logger).Named("extractor"),
	}
}

// Extract asks the model for a scene description of img and returns it as
// normalized JSON. Output that does not parse as a scene is an error wrapping
// scene.ErrInvalidScene.
func (e *Extractor) Extract(ctx context.Context, img llm.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", ErrNoImage
	}
	if e.provider == nil {
		return "", fmt.Errorf("no vision provider configured")
	}
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model: e.cfg.Model,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: extractPrompt, Images: []llm.Image{img}},
		},
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: 0.2,
		JSONMode:    true,
	})
	if err != nil {
		return "", fmt.Errorf("extracting scene: %w", err)
	}

	s, err := scene.Parse(resp.Content)
	if err != nil {
		e.logger.Warn("model returned an unusable scene", zap.String("model", resp.Model), zap.Error(err))
		return "", fmt.Errorf("extracting scene: %w", err)
	}

	out, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encoding scene: %w", err)
	}

	e.logger.Debug("scene extracted",
		zap.String("model", resp.Model),
		zap.Int("objects", len(s.Objects)),
		zap.Int("groups", len(s.Groups)),
		zap.Int("candidates", len(s.Candidates)),
		zap.Float64("cost_usd", llm.EstimateCost(resp.Model, resp.InputTokens, resp.OutputTokens)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return string(out), nil
}
