// Package dataset implements a sparse, mutable row store backed by SQLite.
//
// A store holds cells addressed by (row, column), each carrying a text value
// and an optional timestamp. Rows are recorded inside a single long-lived
// transaction and become durable and queryable only after Commit.
package dataset

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rankproc/bucketdb/pkg/logging"
	_ "github.com/mattn/go-sqlite3"
)

// TypeSparseMutable is the only dataset type this store implements.
const TypeSparseMutable = "sparse.mutable"

// Config holds configuration for a sparse mutable store.
type Config struct {
	// Path is the path to the SQLite database file.
	Path string
	// Type is the dataset type. Only "sparse.mutable" is supported;
	// empty means the default.
	Type string
	// Synchronous sets the SQLite synchronous pragma.
	// "NORMAL" is the default (good balance of safety and speed).
	// "OFF" for maximum speed (unsafe on crash).
	// "FULL" for maximum safety.
	Synchronous string
	// CacheSizeKB is the cache size in KB (default 64MB).
	CacheSizeKB int
}

// DefaultConfig returns a default configuration for the store at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		Type:        TypeSparseMutable,
		Synchronous: "NORMAL",
		CacheSizeKB: 65536, // 64MB
	}
}

// Validate checks configuration values and returns an error for invalid settings.
func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.New("Path is required")
	}
	if c.Type != "" && c.Type != TypeSparseMutable {
		return fmt.Errorf("unsupported dataset type %q: only %q is available", c.Type, TypeSparseMutable)
	}
	switch c.Synchronous {
	case "", "OFF", "NORMAL", "FULL":
		// Valid values
	default:
		return fmt.Errorf("invalid Synchronous value %q: must be OFF, NORMAL, or FULL", c.Synchronous)
	}
	if c.CacheSizeKB < 0 {
		return fmt.Errorf("CacheSizeKB must be non-negative, got %d", c.CacheSizeKB)
	}
	return nil
}

// MultiRowBatchSize is the number of cells per multi-row UPSERT statement.
// Larger batches reduce SQLite exec calls but increase SQL parsing overhead.
const MultiRowBatchSize = 256

// colsPerCell is the number of bound parameters per cell row.
const colsPerCell = 4

// ErrCommitted is returned when writing to a store after Commit.
var ErrCommitted = errors.New("dataset already committed")

// Store is a sparse mutable row store.
//
// RecordRows may be called concurrently from multiple goroutines with
// disjoint batches; writes are serialized internally. Read methods observe
// committed state only.
type Store struct {
	db  *sql.DB
	cfg Config

	// writeMu serializes all writes against the single open transaction.
	writeMu   sync.Mutex
	tx        *sql.Tx
	upsertStmt *sql.Stmt // Single-cell upsert (for remainders)
	multiStmt  *sql.Stmt // Multi-cell upsert (batch of MultiRowBatchSize)
	committed  bool
	readOnly   bool

	cellsRecorded int64

	// Reusable flush buffers (avoids allocation per batch)
	batchArgs  []interface{}
	singleArgs []interface{}
}

// Open creates or opens a sparse mutable store for writing.
// The returned store has an open transaction; call Commit to make recorded
// rows durable, or Close to discard uncommitted work.
func Open(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logging.WithPhase("dataset_open")

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	sync := cfg.Synchronous
	if sync == "" {
		sync = "NORMAL"
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA synchronous=%s", sync),
		"PRAGMA temp_store=MEMORY",
	}
	if cfg.CacheSizeKB > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA cache_size=-%d", cfg.CacheSizeKB))
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.begin(); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().
		Str("path", cfg.Path).
		Str("synchronous", sync).
		Msg("opened sparse mutable store")

	return s, nil
}

// OpenRead opens an existing store for reading only.
// RecordRows and Commit fail on a read-only store.
func OpenRead(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	return &Store{
		db:        db,
		cfg:       Config{Path: path, Type: TypeSparseMutable},
		committed: true,
		readOnly:  true,
	}, nil
}

func createSchema(db *sql.DB) error {
	createCells := `
		CREATE TABLE IF NOT EXISTS cells (
			row_id TEXT NOT NULL,
			col    TEXT NOT NULL,
			value  TEXT NOT NULL,
			ts     INTEGER,
			PRIMARY KEY (row_id, col)
		)
	`
	if _, err := db.Exec(createCells); err != nil {
		return fmt.Errorf("create cells table: %w", err)
	}
	return nil
}

// begin starts the store's write transaction and prepares upsert statements.
func (s *Store) begin() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.tx = tx

	s.upsertStmt, err = tx.Prepare(buildUpsertSQL(1))
	if err != nil {
		tx.Rollback()
		s.tx = nil
		return fmt.Errorf("prepare upsert statement: %w", err)
	}

	s.multiStmt, err = tx.Prepare(buildUpsertSQL(MultiRowBatchSize))
	if err != nil {
		s.upsertStmt.Close()
		tx.Rollback()
		s.tx = nil
		return fmt.Errorf("prepare multi-row upsert statement: %w", err)
	}

	s.batchArgs = make([]interface{}, MultiRowBatchSize*colsPerCell)
	s.singleArgs = make([]interface{}, colsPerCell)
	return nil
}

// buildUpsertSQL builds an n-cell upsert statement.
func buildUpsertSQL(n int) string {
	oneRow := "(?, ?, ?, ?)"
	rows := make([]string, n)
	for i := range rows {
		rows[i] = oneRow
	}
	return fmt.Sprintf(`
		INSERT INTO cells (row_id, col, value, ts)
		VALUES %s
		ON CONFLICT(row_id, col) DO UPDATE SET
			value = excluded.value,
			ts = excluded.ts
	`, strings.Join(rows, ", "))
}

// RecordRows records a batch of rows within the open transaction.
// Safe for concurrent callers with disjoint batches.
func (s *Store) RecordRows(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.committed || s.tx == nil {
		return ErrCommitted
	}

	// Flatten the batch into cell tuples
	total := 0
	for i := range rows {
		total += len(rows[i].Cells)
	}

	filled := 0
	flushFull := func() error {
		if _, err := s.multiStmt.Exec(s.batchArgs...); err != nil {
			return fmt.Errorf("multi-row upsert: %w", err)
		}
		filled = 0
		return nil
	}

	remainder := total % MultiRowBatchSize
	written := 0
	for i := range rows {
		row := &rows[i]
		for j := range row.Cells {
			cell := &row.Cells[j]
			if total-written <= remainder {
				// Sub-batch tail goes through the single-cell statement
				s.singleArgs[0] = row.ID
				s.singleArgs[1] = cell.Column
				s.singleArgs[2] = cell.Value
				s.singleArgs[3] = EncodeTimestamp(cell.At)
				if _, err := s.upsertStmt.Exec(s.singleArgs...); err != nil {
					return fmt.Errorf("upsert cell (%s, %s): %w", row.ID, cell.Column, err)
				}
			} else {
				offset := filled * colsPerCell
				s.batchArgs[offset] = row.ID
				s.batchArgs[offset+1] = cell.Column
				s.batchArgs[offset+2] = cell.Value
				s.batchArgs[offset+3] = EncodeTimestamp(cell.At)
				filled++
				if filled == MultiRowBatchSize {
					if err := flushFull(); err != nil {
						return err
					}
				}
			}
			written++
		}
	}

	s.cellsRecorded += int64(total)
	return nil
}

// RecordRow records a single row within the open transaction.
func (s *Store) RecordRow(row Row) error {
	return s.RecordRows([]Row{row})
}

// Commit makes all recorded rows durable and queryable.
// The store cannot be written to afterwards.
func (s *Store) Commit() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.committed || s.tx == nil {
		return ErrCommitted
	}

	// Close prepared statements (errors intentionally ignored - best effort cleanup)
	if s.upsertStmt != nil {
		_ = s.upsertStmt.Close()
		s.upsertStmt = nil
	}
	if s.multiStmt != nil {
		_ = s.multiStmt.Close()
		s.multiStmt = nil
	}

	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.committed = true
	return nil
}

// Close closes the store. Uncommitted work is rolled back.
func (s *Store) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.tx != nil {
		// Rollback error is intentionally ignored during Close.
		// The transaction will be aborted when the connection closes anyway.
		_ = s.tx.Rollback()
		s.tx = nil
	}
	if s.upsertStmt != nil {
		_ = s.upsertStmt.Close()
		s.upsertStmt = nil
	}
	if s.multiStmt != nil {
		_ = s.multiStmt.Close()
		s.multiStmt = nil
	}
	return s.db.Close()
}
