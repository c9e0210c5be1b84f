package storedsafe

import (
	"context"
	"sync"
	"time"
)

// Phase names reported to the ObservabilityHook and used in error messages to
// identify where an invocation failed.
const (
	PhaseConfig  = "config"
	PhaseAuth    = "auth"
	PhaseFetch   = "fetch"
	PhaseRefresh = "refresh"
)

// ObservabilityHook defines hooks for monitoring lookup invocations.
//
// The default is NoOpObservabilityHook; host frameworks wire their own
// implementation to surface verbose trace output (the equivalent of a -vvvv
// flag) or to collect timing data.
type ObservabilityHook interface {
	// Called when a phase (config, auth, fetch, refresh) starts
	OnPhaseStart(ctx context.Context, phase string, metadata map[string]any)

	// Called when a phase completes (success or failure)
	OnPhaseComplete(ctx context.Context, phase string, duration time.Duration, err error, metadata map[string]any)

	// Called when errors occur
	OnError(ctx context.Context, phase string, err error, metadata map[string]any)

	// Called for verbose diagnostic trace points
	OnTrace(ctx context.Context, message string, metadata map[string]any)
}

// NoOpObservabilityHook is a no-op implementation of ObservabilityHook.
type NoOpObservabilityHook struct{}

func (n *NoOpObservabilityHook) OnPhaseStart(ctx context.Context, phase string, metadata map[string]any) {
}
func (n *NoOpObservabilityHook) OnPhaseComplete(ctx context.Context, phase string, duration time.Duration, err error, metadata map[string]any) {
}
func (n *NoOpObservabilityHook) OnError(ctx context.Context, phase string, err error, metadata map[string]any) {
}
func (n *NoOpObservabilityHook) OnTrace(ctx context.Context, message string, metadata map[string]any) {
}

// PhaseRecord captures one completed phase for inspection in tests.
type PhaseRecord struct {
	Phase    string
	Duration time.Duration
	Err      error
	Metadata map[string]any
	Time     time.Time
}

// TraceRecord captures one trace point for inspection in tests.
type TraceRecord struct {
	Message  string
	Metadata map[string]any
	Time     time.Time
}

// InMemoryObservabilityHook is a simple in-memory implementation for testing
// and development.
type InMemoryObservabilityHook struct {
	mu     sync.Mutex
	phases []PhaseRecord
	traces []TraceRecord
	errors []error
}

func NewInMemoryObservabilityHook() *InMemoryObservabilityHook {
	return &InMemoryObservabilityHook{}
}

func (h *InMemoryObservabilityHook) OnPhaseStart(ctx context.Context, phase string, metadata map[string]any) {
}

func (h *InMemoryObservabilityHook) OnPhaseComplete(ctx context.Context, phase string, duration time.Duration, err error, metadata map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.phases = append(h.phases, PhaseRecord{
		Phase:    phase,
		Duration: duration,
		Err:      err,
		Metadata: metadata,
		Time:     time.Now(),
	})
}

func (h *InMemoryObservabilityHook) OnError(ctx context.Context, phase string, err error, metadata map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, err)
}

func (h *InMemoryObservabilityHook) OnTrace(ctx context.Context, message string, metadata map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.traces = append(h.traces, TraceRecord{Message: message, Metadata: metadata, Time: time.Now()})
}

// Phases returns a copy of the recorded phase completions.
func (h *InMemoryObservabilityHook) Phases() []PhaseRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]PhaseRecord, len(h.phases))
	copy(out, h.phases)
	return out
}

// Traces returns a copy of the recorded trace points.
func (h *InMemoryObservabilityHook) Traces() []TraceRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]TraceRecord, len(h.traces))
	copy(out, h.traces)
	return out
}

// Errors returns a copy of the recorded errors.
func (h *InMemoryObservabilityHook) Errors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]error, len(h.errors))
	copy(out, h.errors)
	return out
}

// PhaseCount returns how many times the given phase completed.
func (h *InMemoryObservabilityHook) PhaseCount(phase string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	count := 0
	for _, p := range h.phases {
		if p.Phase == phase {
			count++
		}
	}
	return count
}
