package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/engram-ai/engram-go/internal/search"
	"github.com/engram-ai/engram-go/internal/service"
)

// SearchMemoriesInput defines the input schema for the search_memories tool.
type SearchMemoriesInput struct {
	AgentID    string  `json:"agentId" jsonschema:"required,Agent whose memories to search"`
	RoomID     string  `json:"roomId,omitempty" jsonschema:"Restrict the search to one room"`
	Query      string  `json:"query" jsonschema:"required,Query text"`
	Threshold  float64 `json:"threshold,omitempty" jsonschema:"Minimum vector similarity (default 0.7)"`
	Limit      int     `json:"limit,omitempty" jsonschema:"Maximum results (default 10)"`
	UniqueOnly bool    `json:"uniqueOnly,omitempty" jsonschema:"Only consider memories marked unique"`
}

// SearchHit is one result row, scores included.
type SearchHit struct {
	ID            string  `json:"id"`
	Text          string  `json:"text"`
	VectorScore   float64 `json:"vectorScore"`
	KeywordScore  float64 `json:"keywordScore"`
	CombinedScore float64 `json:"combinedScore"`
}

func toHits(results []search.ScoredCandidate) []SearchHit {
	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{
			ID:            r.Record.ID,
			Text:          r.Record.Content.Text,
			VectorScore:   r.VectorScore,
			KeywordScore:  r.KeywordScore,
			CombinedScore: r.CombinedScore(),
		}
	}
	return hits
}

// NewSearchMemoriesHandler creates the search_memories tool handler.
func NewSearchMemoriesHandler(deps *Dependencies) mcp.ToolHandlerFor[SearchMemoriesInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchMemoriesInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.AgentID == "" {
			return ErrorResult("agentId is required", ""), nil, nil
		}
		if input.Query == "" {
			return ErrorResult("query is required", "Provide the text to search for"), nil, nil
		}
		if input.Threshold == 0 {
			input.Threshold = 0.7
		}
		if input.Limit == 0 {
			input.Limit = 10
		}

		results, err := deps.Memories.Search(ctx, service.SearchMemoriesInput{
			AgentID:        input.AgentID,
			RoomID:         input.RoomID,
			Text:           input.Query,
			UniqueOnly:     input.UniqueOnly,
			MatchThreshold: input.Threshold,
			MatchCount:     input.Limit,
		})
		if err != nil {
			deps.Logger.Error("memory search failed", "agent", input.AgentID, "error", err)
			return ErrorResult("Search failed", "Database may be unavailable"), nil, nil
		}

		jsonBytes, _ := json.MarshalIndent(toHits(results), "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}
