package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/scene-clarify/internal/dialogue"
	"github.com/ziadkadry99/scene-clarify/internal/extractor"
	"github.com/ziadkadry99/scene-clarify/internal/llm"
	"github.com/ziadkadry99/scene-clarify/internal/scene"
)

// handleExtractScene runs the vision extractor on an image file or data URL.
func (s *Server) handleExtractScene(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.extractor == nil {
		return mcp.NewToolResultError("scene extraction is not configured"), nil
	}

	img, err := loadImage(request.GetString("image_path", ""), request.GetString("image_data_url", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(img.Data) == 0 {
		return mcp.NewToolResultError("one of image_path or image_data_url is required"), nil
	}

	text, err := s.extractor.Extract(ctx, img)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scene extraction failed: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// handleAskAboutScene runs one dialogue turn. The caller carries the state.
func (s *Server) handleAskAboutScene(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}
	sceneJSON, err := request.RequireString("scene_json")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: scene_json"), nil
	}

	req := dialogue.TurnRequest{
		Mode:          dialogue.Mode(request.GetString("mode", string(dialogue.ModeIterative))),
		Question:      question,
		SceneJSONText: sceneJSON,
		Clarification: request.GetString("clarification", ""),
	}

	if raw := request.GetString("state_json", ""); raw != "" {
		var st dialogue.State
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid state_json: %v", err)), nil
		}
		req.State = &st
	}
	if raw := request.GetString("selection_json", ""); raw != "" {
		var p scene.Pick
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid selection_json: %v", err)), nil
		}
		req.Selection = &p
	}
	img, err := loadImage(request.GetString("image_path", ""), request.GetString("image_data_url", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(img.Data) > 0 {
		req.ImageDataURL = img.DataURL()
	}

	resp, err := s.svc.Turn(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// loadImage prefers a file path over a data URL. Both empty yields a zero Image.
func loadImage(path, dataURL string) (llm.Image, error) {
	switch {
	case path != "":
		return extractor.LoadImage(path)
	case dataURL != "":
		return llm.ParseDataURL(dataURL)
	default:
		return llm.Image{}, nil
	}
}
