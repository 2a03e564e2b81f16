package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	// Ping tool - test/placeholder
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ping",
		Description: "Test tool - responds with pong or echoes input",
	}, NewPingHandler(deps))

	// Memory write with write-time deduplication
	mcp.AddTool(server, &mcp.Tool{
		Name:        "remember",
		Description: "Store a memory; near-duplicates of existing memories are marked non-unique",
	}, NewRememberHandler(deps))

	// Hybrid memory search
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_memories",
		Description: "Search an agent's memories with hybrid vector + keyword ranking",
	}, NewSearchMemoriesHandler(deps))

	// Knowledge ingestion with chunking
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_knowledge",
		Description: "Ingest a knowledge document, chunking long texts for retrieval",
	}, NewIngestKnowledgeHandler(deps))

	// Cached knowledge search
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search the knowledge base with hybrid ranking and a per-agent result cache",
	}, NewSearchKnowledgeHandler(deps))

	// Knowledge removal
	mcp.AddTool(server, &mcp.Tool{
		Name:        "forget_knowledge",
		Description: "Remove a knowledge document and all of its chunks",
	}, NewForgetKnowledgeHandler(deps))

	// Runtime statistics
	mcp.AddTool(server, &mcp.Tool{
		Name:        "stats",
		Description: "Engine statistics: search timings, native failures, cache hit rates",
	}, NewStatsHandler(deps))
}
