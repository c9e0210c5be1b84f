package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/hengadev/storedsafe"
)

// traceHook writes observability events as human-readable lines, one per
// event. It backs the -v flag.
type traceHook struct {
	w io.Writer
}

func newTraceHook(w io.Writer) storedsafe.ObservabilityHook {
	return &traceHook{w: w}
}

func (h *traceHook) OnPhaseStart(ctx context.Context, phase string, metadata map[string]any) {
	fmt.Fprintf(h.w, "[%s] start%s\n", phase, formatMeta(metadata))
}

func (h *traceHook) OnPhaseComplete(ctx context.Context, phase string, duration time.Duration, err error, metadata map[string]any) {
	if err != nil {
		fmt.Fprintf(h.w, "[%s] failed after %s: %v\n", phase, duration.Round(time.Millisecond), err)
		return
	}
	fmt.Fprintf(h.w, "[%s] done in %s\n", phase, duration.Round(time.Millisecond))
}

func (h *traceHook) OnError(ctx context.Context, phase string, err error, metadata map[string]any) {
	fmt.Fprintf(h.w, "[%s] error: %v\n", phase, err)
}

func (h *traceHook) OnTrace(ctx context.Context, message string, metadata map[string]any) {
	fmt.Fprintf(h.w, "%s%s\n", message, formatMeta(metadata))
}

func formatMeta(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for _, k := range keys {
		out += fmt.Sprintf(" %s=%v", k, metadata[k])
	}
	return out
}
