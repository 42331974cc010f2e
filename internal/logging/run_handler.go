package logging

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// runIDHandler wraps another handler to inject a run_id attribute into all records.
type runIDHandler struct {
	base  slog.Handler
	runID string
}

// WithRunHandler returns a logger whose records all carry runID. An empty
// runID is replaced with a fresh UUID; the identifier used is returned.
func WithRunHandler(logger *slog.Logger, runID string) (*slog.Logger, string) {
	if runID == "" {
		runID = uuid.NewString()
	}
	if logger == nil {
		return NewNop(), runID
	}
	return slog.New(&runIDHandler{base: logger.Handler(), runID: runID}), runID
}

func (h *runIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *runIDHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(slog.String(FieldRunID, h.runID))
	return h.base.Handle(ctx, record)
}

func (h *runIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &runIDHandler{base: h.base.WithAttrs(attrs), runID: h.runID}
}

func (h *runIDHandler) WithGroup(name string) slog.Handler {
	return &runIDHandler{base: h.base.WithGroup(name), runID: h.runID}
}
