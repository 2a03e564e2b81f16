// Package tools provides MCP tool handlers and registration.
package tools

import (
	"log/slog"

	"github.com/engram-ai/engram-go/internal/metrics"
	"github.com/engram-ai/engram-go/internal/service"
)

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Memories  *service.MemoryService
	Knowledge *service.KnowledgeService
	Metrics   *metrics.Collector
	Logger    *slog.Logger
}
