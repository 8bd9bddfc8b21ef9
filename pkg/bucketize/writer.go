package bucketize

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rankproc/bucketdb/internal/logctx"
	"github.com/rankproc/bucketdb/pkg/dataset"
)

// BatchSize is the number of buffered assignments that triggers a flush to
// the output store. Peak memory is O(workers * BatchSize) regardless of
// window size.
const BatchSize = 1024

// BucketColumn is the output column bucket assignments are written under.
const BucketColumn = "bucket"

// RecordSink receives assignment batches. RecordRows must be safe to call
// concurrently from multiple goroutines with disjoint batches; the writer
// takes no locks of its own.
type RecordSink interface {
	RecordRows(rows []dataset.Row) error
}

// bucketWriter assigns one bucket label to every row of an index window,
// fanning the window out across a worker pool with worker-local batches.
type bucketWriter struct {
	rows    []string // ordered row ids, shared read-only
	out     RecordSink
	workers int
}

// writeWindow assigns bucket to rows[lo:hi] and flushes the assignments in
// batches. Every index is written exactly once. The first flush error aborts
// the remaining window; batches already handed to the sink are not rolled
// back. Returns only after all workers have drained or stopped.
func (w *bucketWriter) writeWindow(ctx context.Context, bucket string, ts time.Time, lo, hi int64) error {
	if hi <= lo {
		return nil
	}

	n := hi - lo
	workers := int64(w.workers)
	if workers > n {
		workers = n
	}

	log := logctx.FromContext(ctx)
	log.Debug().
		Str("bucket", bucket).
		Int64("from", lo).
		Int64("to", hi).
		Int64("workers", workers).
		Msg("writing bucket window")

	// Every row in the window gets the same cell; safe to share read-only.
	cells := []dataset.Cell{{Column: BucketColumn, Value: bucket, At: ts}}

	var wg sync.WaitGroup
	var failed atomic.Bool
	errs := make([]error, workers)

	// Contiguous chunks, remainder spread over the first workers
	chunk := n / workers
	rem := n % workers
	start := lo
	for i := int64(0); i < workers; i++ {
		size := chunk
		if i < rem {
			size++
		}
		from, to := start, start+size
		start = to

		wg.Add(1)
		go func(slot int64, from, to int64) {
			defer wg.Done()
			errs[slot] = w.writeChunk(cells, &failed, from, to)
		}(i, from, to)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// writeChunk assigns the shared cells to rows[from:to] through a local batch.
// The batch is owned exclusively by this goroutine; only the flush call
// touches the shared sink.
func (w *bucketWriter) writeChunk(cells []dataset.Cell, failed *atomic.Bool, from, to int64) error {
	batch := make([]dataset.Row, 0, BatchSize)

	flush := func() error {
		if err := w.out.RecordRows(batch); err != nil {
			failed.Store(true)
			return fmt.Errorf("record assignment batch: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for i := from; i < to; i++ {
		if failed.Load() {
			// Another worker hit a sink error; stop without flushing
			return nil
		}
		batch = append(batch, dataset.Row{ID: w.rows[i], Cells: cells})
		if len(batch) >= BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	// Drain the sub-threshold remainder
	if len(batch) > 0 {
		return flush()
	}
	return nil
}
