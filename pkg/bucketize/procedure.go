// Package bucketize assigns every row of an externally-ordered dataset to a
// named percentile bucket and records the assignments into an output store.
//
// The ranking itself is an input: a ranked scan delivers row identifiers in
// the intended order, and each row's bucket follows from the position of its
// rank inside the configured percentile windows. Assignments are written
// concurrently in bounded batches and become visible atomically at commit.
package bucketize

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rankproc/bucketdb/internal/logctx"
	"github.com/rankproc/bucketdb/pkg/dataset"
	"github.com/rankproc/bucketdb/pkg/source"
)

// Sink is the output store contract the procedure writes against.
type Sink interface {
	RecordSink
	// Commit makes all recorded assignments durable and queryable.
	Commit() error
}

// Config configures a bucketize procedure.
type Config struct {
	// Buckets are the percentile ranges, in declaration order. Windows are
	// written in this order; sorting is only used for overlap validation.
	Buckets []Bucket
	// Workers bounds the fan-out per bucket window. 0 picks a default.
	Workers int
	// OnProgress, when non-nil, is polled during row collection with the
	// running row count. Returning false aborts that phase. The write
	// phase has no cancellation hook.
	OnProgress func(rows int64) bool
}

// RunResult is the payload of a completed run.
type RunResult struct {
	RunID        string
	RowCount     int64
	BucketCount  int
	MaxTimestamp time.Time
}

// Procedure is a configured, validated bucketize run factory.
type Procedure struct {
	cfg Config
}

// New validates the bucket configuration and returns a procedure.
// Validation failures surface before any row is touched.
func New(cfg Config) (*Procedure, error) {
	if _, err := ValidateBuckets(cfg.Buckets); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers()
	}
	return &Procedure{cfg: cfg}, nil
}

func defaultWorkers() int {
	w := runtime.NumCPU()
	if w > 8 {
		w = 8 // Cap to avoid excessive parallelism
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Run executes the procedure: materialize the ranked sequence, write every
// bucket window, then commit the output store.
//
// Any error aborts the run. A failure during the write phase leaves the
// store partially populated and uncommitted; nothing is rolled back.
func (p *Procedure) Run(ctx context.Context, scan source.RankedScan, out Sink) (*RunResult, error) {
	runID := uuid.NewString()
	ctx = logctx.WithStr(ctx, "run_id", runID)
	log := logctx.FromContext(ctx)

	coll, err := collect(ctx, scan, p.cfg.OnProgress)
	if err != nil {
		return nil, err
	}

	n := int64(len(coll.Rows))
	log.Debug().
		Int64("row_count", n).
		Time("max_order_by_timestamp", coll.MaxTimestamp).
		Msg("collected ranked rows")

	writer := &bucketWriter{rows: coll.Rows, out: out, workers: p.cfg.Workers}

	// Buckets are processed sequentially, in declaration order; only the
	// indices within one window run concurrently.
	for _, b := range p.cfg.Buckets {
		lo, hi, err := Window(b.Low, b.High, n)
		if err != nil {
			return nil, err
		}
		if err := writer.writeWindow(ctx, b.Name, coll.MaxTimestamp, lo, hi); err != nil {
			return nil, fmt.Errorf("bucket %q: %w", b.Name, err)
		}
	}

	if err := out.Commit(); err != nil {
		return nil, fmt.Errorf("commit output dataset: %w", err)
	}

	res := &RunResult{
		RunID:        runID,
		RowCount:     n,
		BucketCount:  len(p.cfg.Buckets),
		MaxTimestamp: coll.MaxTimestamp,
	}
	log.Info().
		Int64("row_count", n).
		Int("buckets", res.BucketCount).
		Msg("bucketize run complete")
	return res, nil
}

// Workers reports the effective worker pool size.
func (p *Procedure) Workers() int {
	return p.cfg.Workers
}

var _ Sink = (*dataset.Store)(nil)
