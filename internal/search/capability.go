// Package search implements the hybrid similarity-search engine: native
// vector search with a transparent application-level fallback, lexical
// re-ranking, and the edit-distance machinery used for write-time
// deduplication.
package search

import (
	"log/slog"
	"sync"
)

// Capability records whether the backing store's native vector search is
// usable for this connection.
type Capability int

const (
	// CapabilityUnknown means detection has not run yet.
	CapabilityUnknown Capability = iota

	// CapabilityNative means native vector search is available.
	CapabilityNative

	// CapabilityFallback means only application-level similarity ranking
	// is available.
	CapabilityFallback
)

func (c Capability) String() string {
	switch c {
	case CapabilityNative:
		return "native"
	case CapabilityFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// CapabilityState is the connection-scoped capability flag. Transitions only
// move forward: unknown may become native or fallback, and native may be
// downgraded to fallback exactly once (topology change or runtime query
// failure). Fallback is terminal.
//
// Readers may briefly observe a stale native value during a downgrade; the
// orchestrator's native-failure retry makes that harmless.
type CapabilityState struct {
	mu      sync.RWMutex
	current Capability
}

// NewCapabilityState returns a state in the unknown position.
func NewCapabilityState() *CapabilityState {
	return &CapabilityState{}
}

// Current returns the capability as of now.
func (s *CapabilityState) Current() Capability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// MarkNative records a successful native-search probe. Ignored if the state
// already reached fallback.
func (s *CapabilityState) MarkNative() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == CapabilityUnknown {
		s.current = CapabilityNative
	}
}

// Downgrade forces the fallback-only position. Safe to call repeatedly; only
// the first call changes state.
func (s *CapabilityState) Downgrade(logger *slog.Logger, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == CapabilityFallback {
		return
	}
	if logger != nil {
		logger.Warn("vector search downgraded to fallback", "reason", reason)
	}
	s.current = CapabilityFallback
}
