package mcp

import "github.com/mark3labs/mcp-go/mcp"

// extractSceneTool defines the extract_scene MCP tool.
var extractSceneTool = mcp.NewTool("extract_scene",
	mcp.WithDescription("Describe an image as scene JSON: objects, salient groups and the referents a question about the image could be ambiguous between."),
	mcp.WithString("image_path",
		mcp.Description("Path to a PNG, JPEG, GIF or WebP image"),
	),
	mcp.WithString("image_data_url",
		mcp.Description("The image as a data URL (data:image/png;base64,...). Used when image_path is empty."),
	),
)

// askAboutSceneTool defines the ask_about_scene MCP tool.
var askAboutSceneTool = mcp.NewTool("ask_about_scene",
	mcp.WithDescription("Answer a question about a described scene. In iterative mode an ambiguous question yields options to choose from; pass the returned updated_state back as state_json with the chosen option's pick as selection_json on the next call."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The user's question about the image"),
	),
	mcp.WithString("scene_json",
		mcp.Required(),
		mcp.Description("Scene JSON as returned by extract_scene"),
	),
	mcp.WithString("mode",
		mcp.Description("one_pass answers immediately; iterative clarifies first (default iterative)"),
		mcp.Enum("one_pass", "iterative"),
	),
	mcp.WithString("state_json",
		mcp.Description("The updated_state returned by the previous iterative call"),
	),
	mcp.WithString("clarification",
		mcp.Description("Free-text clarification of which referent the user means"),
	),
	mcp.WithString("selection_json",
		mcp.Description(`The pick of the chosen option, e.g. {"type":"object","ref":"o1"}`),
	),
	mcp.WithString("image_path",
		mcp.Description("Path to the original image; enables counting from the image"),
	),
	mcp.WithString("image_data_url",
		mcp.Description("The original image as a data URL. Used when image_path is empty."),
	),
)
