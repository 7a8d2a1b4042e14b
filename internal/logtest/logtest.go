// Package logtest records slog output for assertions in tests.
package logtest

import (
	"context"
	"log/slog"
	"sync"
)

// Record is a captured log entry.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Handler is a slog.Handler that keeps every record in memory.
type Handler struct {
	mu      *sync.Mutex
	records *[]Record
	attrs   []slog.Attr
}

// New returns a logger backed by a fresh Handler, and the handler.
func New() (*slog.Logger, *Handler) {
	h := &Handler{mu: &sync.Mutex{}, records: &[]Record{}}
	return slog.New(h), h
}

// Enabled records every level.
func (h *Handler) Enabled(context.Context, slog.Level) bool { return true }

// Handle stores r.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	rec := Record{Level: r.Level, Message: r.Message, Attrs: make(map[string]any)}
	for _, a := range h.attrs {
		rec.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	*h.records = append(*h.records, rec)
	h.mu.Unlock()
	return nil
}

// WithAttrs returns a handler sharing storage with h.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		mu:      h.mu,
		records: h.records,
		attrs:   append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

// WithGroup ignores grouping; keys are recorded flat.
func (h *Handler) WithGroup(string) slog.Handler { return h }

// Records returns a copy of everything logged so far.
func (h *Handler) Records() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Record, len(*h.records))
	copy(out, *h.records)
	return out
}

// Count returns how many records were logged at level.
func (h *Handler) Count(level slog.Level) int {
	n := 0
	for _, r := range h.Records() {
		if r.Level == level {
			n++
		}
	}
	return n
}

// Reset discards all records.
func (h *Handler) Reset() {
	h.mu.Lock()
	*h.records = nil
	h.mu.Unlock()
}
