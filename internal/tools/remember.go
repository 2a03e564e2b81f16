package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/engram-ai/engram-go/internal/service"
)

// RememberInput defines the input schema for the remember tool.
type RememberInput struct {
	AgentID  string         `json:"agentId" jsonschema:"required,Agent that owns the memory"`
	RoomID   string         `json:"roomId,omitempty" jsonschema:"Room scope for the memory"`
	Text     string         `json:"text" jsonschema:"required,Memory text to store"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"Free-form metadata"`
}

// RememberResult is the response from the remember tool.
type RememberResult struct {
	ID     string `json:"id"`
	Unique bool   `json:"unique"`
}

// NewRememberHandler creates the remember tool handler. Embeddings are
// generated automatically and the dedup gate settles the unique flag.
func NewRememberHandler(deps *Dependencies) mcp.ToolHandlerFor[RememberInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RememberInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.AgentID == "" {
			return ErrorResult("agentId is required", "Every memory belongs to an agent"), nil, nil
		}
		if input.Text == "" {
			return ErrorResult("text is required", "Provide the memory text to store"), nil, nil
		}

		mem, err := deps.Memories.Create(ctx, service.CreateMemoryInput{
			AgentID:  input.AgentID,
			RoomID:   input.RoomID,
			Text:     input.Text,
			Metadata: input.Metadata,
		})
		if err != nil {
			deps.Logger.Error("remember failed", "agent", input.AgentID, "error", err)
			return ErrorResult("Failed to store memory", "Database may be unavailable"), nil, nil
		}

		jsonBytes, _ := json.MarshalIndent(RememberResult{ID: mem.ID, Unique: mem.Unique}, "", "  ")
		deps.Logger.Info("remember completed", "id", mem.ID, "unique", mem.Unique)
		return TextResult(string(jsonBytes)), nil, nil
	}
}
