package bucketize

import (
	"errors"
	"math/rand"
	"testing"
)

func TestValidateBuckets(t *testing.T) {
	tests := []struct {
		name    string
		buckets []Bucket
		wantErr bool
	}{
		{
			name:    "empty configuration",
			buckets: nil,
			wantErr: false,
		},
		{
			name:    "single full range",
			buckets: []Bucket{{Name: "all", Low: 0, High: 100}},
			wantErr: false,
		},
		{
			name: "touching ranges",
			buckets: []Bucket{
				{Name: "a", Low: 0, High: 50},
				{Name: "b", Low: 50, High: 100},
			},
			wantErr: false,
		},
		{
			name: "gap between ranges",
			buckets: []Bucket{
				{Name: "a", Low: 0, High: 25},
				{Name: "b", Low: 75, High: 100},
			},
			wantErr: false,
		},
		{
			name: "unsorted declaration still valid",
			buckets: []Bucket{
				{Name: "b", Low: 50, High: 100},
				{Name: "a", Low: 0, High: 50},
			},
			wantErr: false,
		},
		{
			name:    "lower bound below 0",
			buckets: []Bucket{{Name: "a", Low: -1, High: 50}},
			wantErr: true,
		},
		{
			name:    "higher bound above 100",
			buckets: []Bucket{{Name: "a", Low: 0, High: 101}},
			wantErr: true,
		},
		{
			name:    "inverted range",
			buckets: []Bucket{{Name: "a", Low: 60, High: 40}},
			wantErr: true,
		},
		{
			name:    "degenerate range",
			buckets: []Bucket{{Name: "a", Low: 50, High: 50}},
			wantErr: true,
		},
		{
			name: "overlapping ranges",
			buckets: []Bucket{
				{Name: "a", Low: 0, High: 60},
				{Name: "b", Low: 50, High: 100},
			},
			wantErr: true,
		},
		{
			name: "contained range",
			buckets: []Bucket{
				{Name: "a", Low: 0, High: 100},
				{Name: "b", Low: 20, High: 30},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateBuckets(tt.buckets)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBuckets() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRange) {
				t.Errorf("error %v should wrap ErrInvalidRange", err)
			}
		})
	}
}

func TestValidateBuckets_SortsByLow(t *testing.T) {
	sorted, err := ValidateBuckets([]Bucket{
		{Name: "c", Low: 66, High: 100},
		{Name: "a", Low: 0, High: 33},
		{Name: "b", Low: 33, High: 66},
	})
	if err != nil {
		t.Fatalf("ValidateBuckets failed: %v", err)
	}
	for i, want := range []string{"a", "b", "c"} {
		if sorted[i].Name != want {
			t.Errorf("sorted[%d] = %q, want %q", i, sorted[i].Name, want)
		}
	}
}

// naiveValid is an independent oracle: every range in bounds and well formed,
// and no pair of ranges overlapping.
func naiveValid(buckets []Bucket) bool {
	for _, b := range buckets {
		if b.Low < 0 || b.High > 100 || b.Low >= b.High {
			return false
		}
	}
	for i := range buckets {
		for j := range buckets {
			if i == j {
				continue
			}
			// Open-interval intersection
			if buckets[i].Low < buckets[j].High && buckets[j].Low < buckets[i].High {
				return false
			}
		}
	}
	return true
}

func TestValidateBuckets_RandomizedAgainstOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 2000; trial++ {
		n := rng.Intn(5) + 1
		buckets := make([]Bucket, 0, n)
		for i := 0; i < n; i++ {
			// Draw from a slightly widened domain so out-of-bounds
			// and inverted ranges appear regularly
			low := float64(rng.Intn(120)-10) / 1.0
			high := float64(rng.Intn(120)-10) / 1.0
			buckets = append(buckets, Bucket{
				Name: string(rune('a' + i)),
				Low:  low,
				High: high,
			})
		}

		_, err := ValidateBuckets(buckets)
		if want := naiveValid(buckets); (err == nil) != want {
			t.Fatalf("trial %d: ValidateBuckets(%v) err=%v, oracle valid=%v",
				trial, buckets, err, want)
		}
	}
}
