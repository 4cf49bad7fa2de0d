package analysis

import (
	"context"
	"time"

	"github.com/cecat/soundviz-go/internal/conf"
	"github.com/cecat/soundviz-go/internal/errors"
	"github.com/cecat/soundviz-go/internal/soundlog"
)

// Options configure one aggregation run.
type Options struct {
	InputPath      string
	ChunkSize      int     // rows per chunk, must be positive
	Workers        int     // 0 selects an automatic worker count
	NoiseThreshold float64 // minimum class score for class-level counts
	MatchPolicy    MatchPolicy
	Progress       ProgressReporter // nil selects the default log reporter
}

// OptionsFromSettings builds aggregation options from loaded settings.
func OptionsFromSettings(settings *conf.Settings) Options {
	policy := MatchOldestFirst
	if settings.Analysis.MatchPolicy == conf.MatchPolicyLIFO {
		policy = MatchNewestFirst
	}
	return Options{
		InputPath:      settings.Input.Path,
		ChunkSize:      settings.Analysis.ChunkSize,
		Workers:        settings.Analysis.Workers,
		NoiseThreshold: settings.Analysis.NoiseThreshold,
		MatchPolicy:    policy,
	}
}

func (o *Options) validate() error {
	if o.InputPath == "" {
		return errors.ValidationError("input path is required")
	}
	if o.ChunkSize <= 0 {
		return errors.Newf("chunk size must be positive, got %d", o.ChunkSize).
			Component("analysis").
			Category(errors.CategoryValidation).
			Build()
	}
	if o.NoiseThreshold < 0 || o.NoiseThreshold > 1 {
		return errors.Newf("noise threshold %g outside [0, 1]", o.NoiseThreshold).
			Component("analysis").
			Category(errors.CategoryValidation).
			Build()
	}
	switch o.MatchPolicy {
	case "", MatchOldestFirst, MatchNewestFirst:
	default:
		return errors.Newf("unknown match policy %q", o.MatchPolicy).
			Component("analysis").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// Aggregate runs the whole pipeline over the log at opts.InputPath:
// chunked read, parallel chunk processing, ordered merge. The returned
// aggregate is identical for any chunk size and worker count; a missing
// file, a worker failure or a cancelled context aborts the run with no
// partial result.
func Aggregate(ctx context.Context, opts Options) (*GlobalAggregate, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	reader, err := soundlog.NewChunkReader(opts.InputPath, opts.ChunkSize)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	workers := resolveWorkerCount(opts.Workers)
	progress := opts.Progress
	if progress == nil {
		progress = NewLogReporter(GetLogger(), 10)
	}

	merger := NewMerger(opts.MatchPolicy)
	process := func(chunk *soundlog.Chunk) (*PartialAggregate, error) {
		return processChunk(chunk, opts.NoiseThreshold, merger.policy), nil
	}

	start := time.Now()
	logger.Info("starting aggregation",
		"input", opts.InputPath,
		"chunk_size", opts.ChunkSize,
		"workers", workers,
		"noise_threshold", opts.NoiseThreshold)

	if err := runChunks(ctx, reader, workers, process, merger.Fold, progress); err != nil {
		return nil, err
	}

	agg := merger.Finalize()
	agg.InputPath = opts.InputPath

	logger.Info("aggregation complete",
		"rows", agg.TotalRows,
		"skipped", agg.SkippedRows,
		"event_spans", len(agg.EventSpans),
		"unmatched_ends", agg.UnmatchedEnds,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return agg, nil
}
