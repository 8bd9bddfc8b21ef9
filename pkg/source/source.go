// Package source executes ranked scans over row datasets.
//
// A ranked scan delivers row identifiers in a declared order, together with
// one auxiliary timed value per ordering key. The scan order is the contract:
// consumers derive each row's rank from its position in the callback stream
// and never re-sort.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimedValue is an ordering-key value together with the latest timestamp
// associated with it. A zero At means the value carries no timestamp.
type TimedValue struct {
	Value string
	At    time.Time
}

// RowFunc receives one row per call, in rank order. aux holds one entry per
// ordering key. Returning false stops the scan early without error.
type RowFunc func(id string, aux []TimedValue) bool

// RankedScan is a bound, ordered, filtered row source.
type RankedScan interface {
	// Execute runs the scan and delivers every matching row to onRow in
	// the declared order, honoring the scan's offset and limit.
	Execute(ctx context.Context, onRow RowFunc) error
}

// OrderKey is one clause of the ordering that defines rank.
type OrderKey struct {
	// Column is the column whose value orders the rows.
	Column string
	// Desc orders descending when true.
	Desc bool
	// Numeric compares values numerically rather than lexically.
	Numeric bool
}

// Filter is a single conjunct of the optional where clause.
type Filter struct {
	Column string
	Op     string // one of =, !=, <, <=, >, >=
	Value  string
	// Numeric compares numerically rather than lexically.
	Numeric bool
}

var validOps = map[string]bool{
	"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

// Validate checks the filter's shape.
func (f *Filter) Validate() error {
	if f.Column == "" {
		return errors.New("filter column is required")
	}
	if !validOps[f.Op] {
		return fmt.Errorf("invalid filter operator %q", f.Op)
	}
	return nil
}
