package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rankproc/bucketdb/pkg/dataset"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteScan executes a ranked scan over a committed sparse mutable store.
//
// Rank is defined by OrderBy, evaluated inside SQLite with a stable row-id
// tiebreak so repeated scans of the same data produce the same order. Rows
// missing any ordering-key cell are excluded from the scan. The auxiliary
// value reported for each ordering key is the key cell's value and timestamp.
type SQLiteScan struct {
	// Path is the store's database file.
	Path string
	// OrderBy is the ordering that defines rank. Required.
	OrderBy []OrderKey
	// Where is an optional conjunction of filters.
	Where []Filter
	// Offset skips the first n ranked rows.
	Offset int64
	// Limit caps delivered rows; negative means no limit.
	Limit int64
}

// Execute runs the scan. See RankedScan.
func (s *SQLiteScan) Execute(ctx context.Context, onRow RowFunc) error {
	if s.Path == "" {
		return errors.New("scan path is required")
	}
	if len(s.OrderBy) == 0 {
		return errors.New("order by clause is required")
	}
	for i := range s.OrderBy {
		if s.OrderBy[i].Column == "" {
			return fmt.Errorf("order by clause %d: column is required", i)
		}
	}
	for i := range s.Where {
		if err := s.Where[i].Validate(); err != nil {
			return fmt.Errorf("where clause %d: %w", i, err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+s.Path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("open input dataset: %w", err)
	}
	defer db.Close()

	query, args := s.buildQuery()
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("execute ranked scan: %w", err)
	}
	defer rows.Close()

	nKeys := len(s.OrderBy)
	aux := make([]TimedValue, nKeys)
	dest := make([]interface{}, 1+2*nKeys)
	var rowID string
	values := make([]string, nKeys)
	stamps := make([]sql.NullInt64, nKeys)
	dest[0] = &rowID
	for i := 0; i < nKeys; i++ {
		dest[1+2*i] = &values[i]
		dest[2+2*i] = &stamps[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		for i := 0; i < nKeys; i++ {
			aux[i] = TimedValue{Value: values[i], At: dataset.DecodeTimestamp(stamps[i])}
		}
		if !onRow(rowID, aux) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate ranked scan: %w", err)
	}
	return nil
}

// buildQuery assembles the scan SQL. One cells alias is joined per ordering
// key; filters become EXISTS subqueries so they match any cell of the row.
func (s *SQLiteScan) buildQuery() (string, []interface{}) {
	var b strings.Builder
	var args []interface{}

	b.WriteString("SELECT k0.row_id")
	for i := range s.OrderBy {
		fmt.Fprintf(&b, ", k%d.value, k%d.ts", i, i)
	}
	b.WriteString(" FROM cells k0")
	for i := 1; i < len(s.OrderBy); i++ {
		fmt.Fprintf(&b, " JOIN cells k%d ON k%d.row_id = k0.row_id AND k%d.col = ?", i, i, i)
		args = append(args, s.OrderBy[i].Column)
	}

	b.WriteString(" WHERE k0.col = ?")
	args = append(args, s.OrderBy[0].Column)

	for i := range s.Where {
		f := &s.Where[i]
		if f.Numeric {
			fmt.Fprintf(&b,
				" AND EXISTS (SELECT 1 FROM cells f WHERE f.row_id = k0.row_id AND f.col = ? AND CAST(f.value AS REAL) %s CAST(? AS REAL))",
				f.Op)
		} else {
			fmt.Fprintf(&b,
				" AND EXISTS (SELECT 1 FROM cells f WHERE f.row_id = k0.row_id AND f.col = ? AND f.value %s ?)",
				f.Op)
		}
		args = append(args, f.Column, f.Value)
	}

	b.WriteString(" ORDER BY ")
	for i := range s.OrderBy {
		if i > 0 {
			b.WriteString(", ")
		}
		if s.OrderBy[i].Numeric {
			fmt.Fprintf(&b, "CAST(k%d.value AS REAL)", i)
		} else {
			fmt.Fprintf(&b, "k%d.value", i)
		}
		if s.OrderBy[i].Desc {
			b.WriteString(" DESC")
		}
	}
	// Stable tiebreak keeps repeated scans reproducible
	b.WriteString(", k0.row_id")

	limit := s.Limit
	if limit < 0 {
		limit = -1
	}
	b.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, s.Offset)

	return b.String(), args
}
