package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/scene-clarify/internal/dialogue"
	"github.com/ziadkadry99/scene-clarify/internal/llm"
	"github.com/ziadkadry99/scene-clarify/internal/responder"
	"github.com/ziadkadry99/scene-clarify/internal/session"
)

const mugs = `{
  "objects": [
    {"id": "m1", "name": "mug", "count_guess": 1, "location": "left", "attributes": ["red"], "confidence": 0.9},
    {"id": "m2", "name": "mug", "count_guess": 1, "location": "right", "attributes": ["white"], "confidence": 0.8}
  ],
  "ambiguity_candidates": [
    {"candidate_type": "object", "ref": "m1", "why_ambiguous": "two mugs"},
    {"candidate_type": "object", "ref": "m2", "why_ambiguous": "two mugs"}
  ]
}`

type stubProvider struct {
	content string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: s.content, Model: "stub"}, nil
}

type fakeExtractor struct {
	got llm.Image
	err error
}

func (f *fakeExtractor) Extract(ctx context.Context, img llm.Image) (string, error) {
	f.got = img
	return mugs, f.err
}

func newTestServer(t *testing.T, ex dialogue.SceneExtractor) *Server {
	t.Helper()
	p := &stubProvider{content: `{"answer":"A red mug.","follow_up_question":"Anything else?"}`}
	store := session.NewMemoryStore(session.Config{})
	t.Cleanup(func() { store.Close() })
	engine := dialogue.NewEngine(responder.New(p, responder.Config{Model: "stub"}), 5, nil)
	return NewServer(dialogue.NewService(engine, store, 8, nil), ex)
}

// extractText gets the text content from a CallToolResult.
func extractText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func callTool(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"extract_scene", extractSceneTool, "extract_scene"},
		{"ask_about_scene", askAboutSceneTool, "ask_about_scene"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := newTestServer(t, nil)
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.svc == nil {
		t.Error("service not set")
	}
}

func TestHandleExtractScene(t *testing.T) {
	png := "\x89PNG\r\n\x1a\n"

	t.Run("from path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "desk.png")
		if err := os.WriteFile(path, []byte(png), 0o644); err != nil {
			t.Fatal(err)
		}
		ex := &fakeExtractor{}
		result := callTool(t, newTestServer(t, ex).handleExtractScene, map[string]any{"image_path": path})
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		if extractText(result) != mugs {
			t.Errorf("unexpected scene %q", extractText(result))
		}
		if ex.got.MIMEType != "image/png" {
			t.Errorf("extractor got %q", ex.got.MIMEType)
		}
	})

	t.Run("from data url", func(t *testing.T) {
		ex := &fakeExtractor{}
		img := llm.Image{MIMEType: "image/png", Data: []byte(png)}
		result := callTool(t, newTestServer(t, ex).handleExtractScene, map[string]any{"image_data_url": img.DataURL()})
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
	})

	errorCases := []struct {
		name string
		ex   dialogue.SceneExtractor
		args map[string]any
	}{
		{"not configured", nil, map[string]any{"image_data_url": "data:image/png;base64,iVBORw0KGgo="}},
		{"no image", &fakeExtractor{}, map[string]any{}},
		{"missing file", &fakeExtractor{}, map[string]any{"image_path": "/nonexistent/desk.png"}},
		{"extractor failure", &fakeExtractor{err: errors.New("vision down")}, map[string]any{"image_data_url": "data:image/png;base64,iVBORw0KGgo="}},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, newTestServer(t, tt.ex).handleExtractScene, tt.args)
			if !result.IsError {
				t.Error("expected tool error")
			}
		})
	}
}

func TestHandleAskAboutScene(t *testing.T) {
	srv := newTestServer(t, nil)

	first := callTool(t, srv.handleAskAboutScene, map[string]any{
		"question":   "what color is the mug?",
		"scene_json": mugs,
	})
	if first.IsError {
		t.Fatalf("unexpected tool error: %v", first.Content)
	}
	var resp1 struct {
		Phase        string            `json:"phase"`
		Options      []json.RawMessage `json:"options"`
		UpdatedState json.RawMessage   `json:"updated_state"`
	}
	if err := json.Unmarshal([]byte(extractText(first)), &resp1); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp1.Phase != "awaiting_selection" || len(resp1.Options) != 2 {
		t.Fatalf("unexpected first turn %s", extractText(first))
	}

	second := callTool(t, srv.handleAskAboutScene, map[string]any{
		"question":       "what color is the mug?",
		"scene_json":     mugs,
		"state_json":     string(resp1.UpdatedState),
		"selection_json": `{"type":"object","ref":"m1"}`,
	})
	if second.IsError {
		t.Fatalf("unexpected tool error: %v", second.Content)
	}
	text := extractText(second)
	if !strings.Contains(text, `"phase": "focused"`) || !strings.Contains(text, `"ref": "m1"`) {
		t.Errorf("expected a focused turn on m1, got %s", text)
	}

	onePass := callTool(t, srv.handleAskAboutScene, map[string]any{
		"question":   "what is on the desk?",
		"scene_json": mugs,
		"mode":       "one_pass",
	})
	if onePass.IsError || !strings.Contains(extractText(onePass), `"ambiguity_note"`) {
		t.Errorf("unexpected one-pass result %s", extractText(onePass))
	}
}

func TestHandleAskAboutSceneCountsFromDataURL(t *testing.T) {
	srv := newTestServer(t, nil)
	img := llm.Image{MIMEType: "image/png", Data: []byte("\x89PNG\r\n\x1a\n")}

	result := callTool(t, srv.handleAskAboutScene, map[string]any{
		"question":       "how many mugs are there?",
		"scene_json":     mugs,
		"clarification":  "all of them",
		"image_data_url": img.DataURL(),
	})
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	var resp struct {
		FollowUpQuestion string          `json:"follow_up_question"`
		Count            json.RawMessage `json:"count"`
	}
	if err := json.Unmarshal([]byte(extractText(result)), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Count) == 0 || resp.FollowUpQuestion != "" {
		t.Errorf("expected a counting answer, got %s", extractText(result))
	}
}

func TestHandleAskAboutSceneErrors(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing question", map[string]any{"scene_json": mugs}},
		{"missing scene", map[string]any{"question": "q"}},
		{"invalid scene", map[string]any{"question": "q", "scene_json": "not json"}},
		{"invalid state", map[string]any{"question": "q", "scene_json": mugs, "state_json": "{"}},
		{"invalid selection", map[string]any{"question": "q", "scene_json": mugs, "selection_json": "["}},
		{"unknown mode", map[string]any{"question": "q", "scene_json": mugs, "mode": "chatty"}},
		{"missing image", map[string]any{"question": "q", "scene_json": mugs, "image_path": "/nonexistent.png"}},
		{"invalid image data url", map[string]any{"question": "q", "scene_json": mugs, "image_data_url": "not a data url"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, srv.handleAskAboutScene, tt.args)
			if !result.IsError {
				t.Errorf("expected tool error, got %s", extractText(result))
			}
		})
	}
}
