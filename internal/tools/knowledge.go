package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/engram-ai/engram-go/internal/service"
)

// IngestKnowledgeInput defines the input schema for the ingest_knowledge tool.
type IngestKnowledgeInput struct {
	AgentID  string         `json:"agentId,omitempty" jsonschema:"Owning agent (omit for shared knowledge)"`
	Text     string         `json:"text" jsonschema:"required,Document text to ingest"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"Free-form metadata"`
	Shared   bool           `json:"shared,omitempty" jsonschema:"Visible to all agents"`
}

// NewIngestKnowledgeHandler creates the ingest_knowledge tool handler.
// Long documents are chunked; re-ingesting is idempotent per chunk.
func NewIngestKnowledgeHandler(deps *Dependencies) mcp.ToolHandlerFor[IngestKnowledgeInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IngestKnowledgeInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.Text == "" {
			return ErrorResult("text is required", "Provide the document text to ingest"), nil, nil
		}

		result, err := deps.Knowledge.Create(ctx, service.CreateKnowledgeInput{
			AgentID:  input.AgentID,
			Text:     input.Text,
			Metadata: input.Metadata,
			IsShared: input.Shared,
		})
		if err != nil {
			deps.Logger.Error("knowledge ingestion failed", "agent", input.AgentID, "error", err)
			return ErrorResult("Failed to ingest knowledge", "Database may be unavailable"), nil, nil
		}

		jsonBytes, _ := json.MarshalIndent(result, "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}

// SearchKnowledgeInput defines the input schema for the search_knowledge tool.
type SearchKnowledgeInput struct {
	AgentID   string  `json:"agentId" jsonschema:"required,Agent running the search"`
	Query     string  `json:"query" jsonschema:"required,Query text"`
	Threshold float64 `json:"threshold,omitempty" jsonschema:"Minimum vector similarity (default 0.85)"`
	Limit     int     `json:"limit,omitempty" jsonschema:"Maximum results (default 10)"`
}

// NewSearchKnowledgeHandler creates the search_knowledge tool handler.
// Results are served from the result cache when the same agent repeats a
// query within the cache TTL.
func NewSearchKnowledgeHandler(deps *Dependencies) mcp.ToolHandlerFor[SearchKnowledgeInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchKnowledgeInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.AgentID == "" {
			return ErrorResult("agentId is required", ""), nil, nil
		}
		if input.Query == "" {
			return ErrorResult("query is required", "Provide the text to search for"), nil, nil
		}
		if input.Limit == 0 {
			input.Limit = 10
		}

		results, err := deps.Knowledge.Search(ctx, service.SearchKnowledgeInput{
			AgentID:        input.AgentID,
			Text:           input.Query,
			MatchThreshold: input.Threshold,
			MatchCount:     input.Limit,
		})
		if err != nil {
			deps.Logger.Error("knowledge search failed", "agent", input.AgentID, "error", err)
			return ErrorResult("Search failed", "Database may be unavailable"), nil, nil
		}

		jsonBytes, _ := json.MarshalIndent(toHits(results), "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}

// ForgetKnowledgeInput defines the input schema for the forget_knowledge tool.
type ForgetKnowledgeInput struct {
	ID string `json:"id" jsonschema:"required,Knowledge record to remove (chunks go with it)"`
}

// NewForgetKnowledgeHandler creates the forget_knowledge tool handler.
func NewForgetKnowledgeHandler(deps *Dependencies) mcp.ToolHandlerFor[ForgetKnowledgeInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ForgetKnowledgeInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.ID == "" {
			return ErrorResult("id is required", "Provide the knowledge record ID"), nil, nil
		}

		removed, err := deps.Knowledge.Remove(ctx, input.ID)
		if err != nil {
			deps.Logger.Error("knowledge removal failed", "id", input.ID, "error", err)
			return ErrorResult("Failed to remove knowledge", "Check the record ID"), nil, nil
		}

		return TextResult(fmt.Sprintf("Removed %d document(s)", removed)), nil, nil
	}
}
