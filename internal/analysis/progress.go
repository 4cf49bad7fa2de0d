package analysis

import (
	"log/slog"
	"sync/atomic"
)

// ProgressReporter observes coordinator progress. Pure side effect:
// removing it changes no aggregate result.
type ProgressReporter interface {
	ChunkDispatched(index int)
	ChunkCompleted(index int)
}

// NopReporter discards all progress updates.
type NopReporter struct{}

func (NopReporter) ChunkDispatched(int) {}
func (NopReporter) ChunkCompleted(int)  {}

// logReporter logs progress through the package logger, one line every
// `every` completed chunks plus one for the first completion.
type logReporter struct {
	logger     *slog.Logger
	every      int64
	dispatched atomic.Int64
	completed  atomic.Int64
}

// NewLogReporter returns a reporter logging every `every` completed chunks.
func NewLogReporter(logger *slog.Logger, every int) ProgressReporter {
	if every < 1 {
		every = 1
	}
	return &logReporter{logger: logger, every: int64(every)}
}

func (r *logReporter) ChunkDispatched(index int) {
	r.dispatched.Add(1)
}

func (r *logReporter) ChunkCompleted(index int) {
	completed := r.completed.Add(1)
	if completed == 1 || completed%r.every == 0 {
		r.logger.Info("aggregation progress",
			"chunks_completed", completed,
			"chunks_dispatched", r.dispatched.Load())
	}
}
