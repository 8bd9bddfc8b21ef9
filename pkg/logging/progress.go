package logging

import (
	"sync/atomic"
	"time"

	"github.com/rankproc/bucketdb/pkg/humanfmt"
	"github.com/rs/zerolog"
)

// ScanProgress tracks progress for a long row scan and emits a log line
// every LogEvery rows. It is safe for concurrent use.
type ScanProgress struct {
	log       zerolog.Logger
	phase     string
	logEvery  int64
	startTime time.Time
	rows      atomic.Int64
}

// DefaultLogEvery is the default row interval between progress log lines.
const DefaultLogEvery = 100_000

// NewScanProgress creates a progress tracker for a scan.
// If logEvery <= 0, DefaultLogEvery is used.
func NewScanProgress(phase string, logEvery int64, log zerolog.Logger) *ScanProgress {
	if logEvery <= 0 {
		logEvery = DefaultLogEvery
	}
	return &ScanProgress{
		log:       log,
		phase:     phase,
		logEvery:  logEvery,
		startTime: time.Now(),
	}
}

// Add records n more scanned rows and logs if a reporting boundary was crossed.
func (sp *ScanProgress) Add(n int64) {
	total := sp.rows.Add(n)
	if total/sp.logEvery != (total-n)/sp.logEvery {
		elapsed := time.Since(sp.startTime)
		sp.log.Debug().
			Str("phase", sp.phase).
			Int64("rows", total).
			Str("rows_human", humanfmt.Count(total)).
			Str("elapsed", humanfmt.Duration(elapsed)).
			Str("rate", humanfmt.Rate(total, elapsed)).
			Msg("scan progress")
	}
}

// Rows returns the number of rows recorded so far.
func (sp *ScanProgress) Rows() int64 {
	return sp.rows.Load()
}

// Done emits a final summary line at info level.
func (sp *ScanProgress) Done() {
	total := sp.rows.Load()
	elapsed := time.Since(sp.startTime)
	sp.log.Info().
		Str("phase", sp.phase).
		Int64("rows", total).
		Str("elapsed", humanfmt.Duration(elapsed)).
		Str("rate", humanfmt.Rate(total, elapsed)).
		Msg("scan complete")
}
