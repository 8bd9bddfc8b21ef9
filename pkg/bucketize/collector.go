package bucketize

import (
	"context"
	"time"

	"github.com/rankproc/bucketdb/internal/logctx"
	"github.com/rankproc/bucketdb/pkg/logging"
	"github.com/rankproc/bucketdb/pkg/source"
)

// progressEvery is how many scanned rows pass between progress callback polls.
const progressEvery = 10_000

// Collection is the materialized result of one ranked scan: the ordered row
// identifiers (rank = index) and the maximum timestamp observed across all
// ordering-key values. MaxTimestamp is zero when no key carried one.
type Collection struct {
	Rows         []string
	MaxTimestamp time.Time
}

// collect replays the ranked scan into an index-addressable sequence.
//
// onProgress, when non-nil, is polled every progressEvery rows with the
// running row count; returning false aborts the scan and collect returns
// ErrScanAborted. Scan errors propagate unchanged.
func collect(ctx context.Context, scan source.RankedScan, onProgress func(rows int64) bool) (*Collection, error) {
	log := logctx.FromContext(ctx)
	progress := logging.NewScanProgress("collect", 0, log)

	c := &Collection{}
	aborted := false
	err := scan.Execute(ctx, func(id string, aux []source.TimedValue) bool {
		for i := range aux {
			if !aux[i].At.IsZero() && aux[i].At.After(c.MaxTimestamp) {
				c.MaxTimestamp = aux[i].At
			}
		}
		c.Rows = append(c.Rows, id)

		progress.Add(1)
		if onProgress != nil && int64(len(c.Rows))%progressEvery == 0 {
			if !onProgress(int64(len(c.Rows))) {
				aborted = true
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if aborted {
		return nil, ErrScanAborted
	}

	progress.Done()
	return c, nil
}
