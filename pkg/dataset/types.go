package dataset

import (
	"database/sql"
	"time"
)

// Cell is a single (column, value, timestamp) fact within a row.
// A zero At means the cell carries no timestamp.
type Cell struct {
	Column string
	Value  string
	At     time.Time
}

// Row is a row identifier together with the cells to record for it.
type Row struct {
	ID    string
	Cells []Cell
}

// EncodeTimestamp converts a time into the store's column representation:
// Unix microseconds, or NULL for the zero time.
func EncodeTimestamp(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMicro(), Valid: true}
}

// DecodeTimestamp converts the store's column representation back into a
// time. NULL decodes to the zero time.
func DecodeTimestamp(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMicro(v.Int64).UTC()
}
