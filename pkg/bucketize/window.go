package bucketize

import "fmt"

// Window maps a validated percentile range onto a half-open index window
// [lo, hi) over n ranked rows.
//
// The 0 and 100 extremes are special-cased so floating point division can
// never push the window out of [0, n]. Interior boundaries truncate toward
// zero. A post-check enforces hi <= n; a violation is a mapping defect and
// is returned as ErrInternalFault rather than clamped, since clamping would
// mask the bug. lo <= hi is not checked: an empty window is valid and simply
// assigns nothing.
func Window(low, high float64, n int64) (lo, hi int64, err error) {
	if low != 0 {
		lo = int64(low / 100 * float64(n))
	}
	if high == 100 {
		hi = n
	} else {
		hi = int64(high / 100 * float64(n))
	}
	if hi > n {
		return 0, 0, fmt.Errorf("%w: window [%d, %d) exceeds row count %d", ErrInternalFault, lo, hi, n)
	}
	return lo, hi, nil
}
