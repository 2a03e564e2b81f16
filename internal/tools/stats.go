package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatsInput defines the input schema for the stats tool.
type StatsInput struct{}

// NewStatsHandler creates the stats tool handler, exposing the in-memory
// metrics snapshot: search timings, native failures, cache hit rates.
func NewStatsHandler(deps *Dependencies) mcp.ToolHandlerFor[StatsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (
		*mcp.CallToolResult, any, error,
	) {
		snapshot := deps.Metrics.Snapshot()
		jsonBytes, _ := json.MarshalIndent(snapshot, "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}
