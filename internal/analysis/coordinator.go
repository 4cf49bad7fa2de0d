package analysis

import (
	"context"
	"io"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cecat/soundviz-go/internal/cpuspec"
	"github.com/cecat/soundviz-go/internal/errors"
	"github.com/cecat/soundviz-go/internal/soundlog"
)

// processFunc maps one chunk to its partial aggregate.
type processFunc func(*soundlog.Chunk) (*PartialAggregate, error)

// emitFunc receives partial aggregates strictly in ascending chunk order.
type emitFunc func(*PartialAggregate) error

// resolveWorkerCount sizes the pool: the requested count capped by the
// schedulable CPUs, or a CPU-topology based default when unset. The chunk
// count bound from the contract is applied naturally by the chunk stream
// draining before idle workers pick up work.
func resolveWorkerCount(requested int) int {
	if requested <= 0 {
		return cpuspec.GetCPUSpec().GetOptimalWorkerCount()
	}
	if available := runtime.NumCPU(); requested > available {
		return available
	}
	return requested
}

// runChunks dispatches chunks to a bounded worker pool, collects results,
// restores chunk-index order and hands each partial aggregate to emit. A
// worker failure or panic cancels outstanding work and aborts the run: no
// partial result is ever produced from an incomplete dataset.
func runChunks(ctx context.Context, reader *soundlog.ChunkReader, workers int, process processFunc, emit emitFunc, progress ProgressReporter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	chunkChan := make(chan *soundlog.Chunk, workers)
	resultChan := make(chan *PartialAggregate, workers)

	// Feeder: single forward pass over the file.
	g.Go(func() error {
		defer close(chunkChan)
		for {
			chunk, err := reader.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			progress.ChunkDispatched(chunk.Index)
			select {
			case chunkChan <- chunk:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	// Workers: each chunk is owned exclusively by the worker processing it.
	var workerWG sync.WaitGroup
	workerWG.Add(workers)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			defer workerWG.Done()
			for chunk := range chunkChan {
				pa, err := safeProcess(process, chunk)
				if err != nil {
					return err
				}
				select {
				case resultChan <- pa:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		workerWG.Wait()
		close(resultChan)
	}()

	// Collector: buffer completed results and re-emit strictly in ascending
	// chunk order, regardless of completion order.
	var emitErr error
	buffered := make(map[int]*PartialAggregate)
	nextIndex := 0
collect:
	for pa := range resultChan {
		buffered[pa.ChunkIndex] = pa
		for {
			next, ok := buffered[nextIndex]
			if !ok {
				break
			}
			delete(buffered, nextIndex)
			if err := emit(next); err != nil {
				emitErr = err
				cancel()
				break collect
			}
			progress.ChunkCompleted(nextIndex)
			nextIndex++
		}
	}

	werr := g.Wait()
	if emitErr != nil {
		return emitErr
	}
	if werr != nil {
		if errors.IsCategory(werr, errors.CategoryWorker) || errors.IsCategory(werr, errors.CategoryFileIO) {
			return werr
		}
		if errors.Is(werr, context.Canceled) && ctx.Err() != nil {
			return werr
		}
		return errors.New(werr).
			Component("analysis").
			Category(errors.CategoryWorker).
			Build()
	}
	return nil
}

// safeProcess converts a processor panic into a fatal worker error.
func safeProcess(process processFunc, chunk *soundlog.Chunk) (pa *PartialAggregate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("chunk %d processing panicked: %v", chunk.Index, r).
				Component("analysis").
				Category(errors.CategoryWorker).
				Build()
		}
	}()
	return process(chunk)
}
