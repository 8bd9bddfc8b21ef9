package bucketize

import (
	"cmp"
	"fmt"
	"slices"
)

// Bucket is a named percentile range [Low, High). Ranges may share an
// endpoint but must not overlap.
type Bucket struct {
	Name string
	Low  float64
	High float64
}

// ValidateBuckets checks that every bucket range is within [0, 100], ordered,
// and that no two ranges overlap. Returns the buckets sorted by lower bound.
// The input slice is not modified.
func ValidateBuckets(buckets []Bucket) ([]Bucket, error) {
	sorted := slices.Clone(buckets)
	slices.SortStableFunc(sorted, func(a, b Bucket) int {
		return cmp.Compare(a.Low, b.Low)
	})

	last := Bucket{Low: -1, High: -1}
	for _, b := range sorted {
		switch {
		case b.Low < 0:
			return nil, fmt.Errorf("%w %q [%g, %g]: lower bound must be greater or equal to 0",
				ErrInvalidRange, b.Name, b.Low, b.High)
		case b.High > 100:
			return nil, fmt.Errorf("%w %q [%g, %g]: higher bound must be lower or equal to 100",
				ErrInvalidRange, b.Name, b.Low, b.High)
		case b.Low >= b.High:
			return nil, fmt.Errorf("%w %q [%g, %g]: higher bound must be greater than lower bound",
				ErrInvalidRange, b.Name, b.Low, b.High)
		case b.Low < last.High:
			return nil, fmt.Errorf("%w: %q [%g, %g] is overlapping with %q [%g, %g]",
				ErrInvalidRange, last.Name, last.Low, last.High, b.Name, b.Low, b.High)
		}
		last = b
	}
	return sorted, nil
}
