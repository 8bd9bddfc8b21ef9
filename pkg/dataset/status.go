package dataset

import (
	"database/sql"
	"fmt"
)

// Status describes the observable state of a store.
type Status struct {
	Path      string
	Type      string
	RowCount  int64
	CellCount int64
	Committed bool
}

// querier abstracts the open transaction and the database handle so reads
// observe uncommitted work while the write transaction is open.
type querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

func (s *Store) reader() querier {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Status reports the store's current row/cell counts and commit state.
func (s *Store) Status() (Status, error) {
	q := s.reader()

	st := Status{
		Path:      s.cfg.Path,
		Type:      TypeSparseMutable,
		Committed: s.committed,
	}

	if err := q.QueryRow("SELECT COUNT(DISTINCT row_id) FROM cells").Scan(&st.RowCount); err != nil {
		return Status{}, fmt.Errorf("count rows: %w", err)
	}
	if err := q.QueryRow("SELECT COUNT(*) FROM cells").Scan(&st.CellCount); err != nil {
		return Status{}, fmt.Errorf("count cells: %w", err)
	}
	return st, nil
}

// CellValue returns the (rowID, col) cell.
// The second return is false if the cell does not exist.
func (s *Store) CellValue(rowID, col string) (Cell, bool, error) {
	q := s.reader()

	var value string
	var ts sql.NullInt64
	err := q.QueryRow("SELECT value, ts FROM cells WHERE row_id = ? AND col = ?", rowID, col).
		Scan(&value, &ts)
	if err == sql.ErrNoRows {
		return Cell{}, false, nil
	}
	if err != nil {
		return Cell{}, false, fmt.Errorf("read cell (%s, %s): %w", rowID, col, err)
	}
	return Cell{Column: col, Value: value, At: DecodeTimestamp(ts)}, true, nil
}

// ColumnCells returns rowID -> cell for every row holding the given column.
func (s *Store) ColumnCells(col string) (map[string]Cell, error) {
	q := s.reader()

	rows, err := q.Query("SELECT row_id, value, ts FROM cells WHERE col = ?", col)
	if err != nil {
		return nil, fmt.Errorf("query column %q: %w", col, err)
	}
	defer rows.Close()

	out := make(map[string]Cell)
	for rows.Next() {
		var rowID, value string
		var ts sql.NullInt64
		if err := rows.Scan(&rowID, &value, &ts); err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		out[rowID] = Cell{Column: col, Value: value, At: DecodeTimestamp(ts)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column %q: %w", col, err)
	}
	return out, nil
}

// ColumnValueCounts returns how many rows hold each distinct value of a column.
func (s *Store) ColumnValueCounts(col string) (map[string]int64, error) {
	q := s.reader()

	rows, err := q.Query("SELECT value, COUNT(*) FROM cells WHERE col = ? GROUP BY value", col)
	if err != nil {
		return nil, fmt.Errorf("count values of %q: %w", col, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var value string
		var n int64
		if err := rows.Scan(&value, &n); err != nil {
			return nil, fmt.Errorf("scan value count: %w", err)
		}
		out[value] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate value counts: %w", err)
	}
	return out, nil
}
