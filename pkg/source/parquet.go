package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
)

// ParquetScan reads rows from a Parquet file whose physical row order is
// already the intended rank order. No re-sorting is performed.
//
// The file must carry an id column. Each entry in Keys names an ordering-key
// column; when a sibling column named "<key>_ts" (int64, Unix microseconds)
// is present, its value becomes the key's timestamp.
type ParquetScan struct {
	// Path is the Parquet file to read.
	Path string
	// IDColumn names the row identifier column. Defaults to "id".
	IDColumn string
	// Keys are the ordering-key columns reported as auxiliary values.
	Keys []string
	// Offset skips the first n rows.
	Offset int64
	// Limit caps delivered rows; negative means no limit.
	Limit int64
}

// parquetColumns holds resolved leaf column indices. -1 marks an absent
// optional column.
type parquetColumns struct {
	id     int
	values []int
	stamps []int
}

// Execute runs the scan. See RankedScan.
func (p *ParquetScan) Execute(ctx context.Context, onRow RowFunc) error {
	if p.Path == "" {
		return errors.New("scan path is required")
	}

	f, err := os.Open(p.Path)
	if err != nil {
		return fmt.Errorf("open parquet input: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat parquet input: %w", err)
	}

	file, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return fmt.Errorf("open parquet file: %w", err)
	}

	cols, err := p.resolveColumns(file.Schema())
	if err != nil {
		return err
	}

	aux := make([]TimedValue, len(p.Keys))
	rowBuf := make([]parquet.Row, 1024)
	var seen int64      // rows consumed from the file
	var delivered int64 // rows handed to onRow

	for _, rg := range file.RowGroups() {
		if err := ctx.Err(); err != nil {
			return err
		}

		rows := rg.Rows()
		for {
			n, readErr := rows.ReadRows(rowBuf)
			for i := 0; i < n; i++ {
				seen++
				if seen <= p.Offset {
					continue
				}
				if p.Limit >= 0 && delivered >= p.Limit {
					rows.Close()
					return nil
				}

				id, stop := p.deliver(rowBuf[i], cols, aux, onRow)
				if id == "" {
					rows.Close()
					return fmt.Errorf("row %d: missing %q column value", seen-1, p.idColumn())
				}
				delivered++
				if stop {
					rows.Close()
					return nil
				}
			}
			if readErr != nil {
				if !errors.Is(readErr, io.EOF) {
					rows.Close()
					return fmt.Errorf("read parquet rows: %w", readErr)
				}
				break
			}
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("close row group: %w", err)
		}
	}
	return nil
}

func (p *ParquetScan) idColumn() string {
	if p.IDColumn == "" {
		return "id"
	}
	return p.IDColumn
}

// resolveColumns maps configured column names to leaf column indices.
func (p *ParquetScan) resolveColumns(schema *parquet.Schema) (parquetColumns, error) {
	byName := make(map[string]int)
	for i, field := range schema.Fields() {
		byName[field.Name()] = i
	}

	cols := parquetColumns{
		id:     -1,
		values: make([]int, len(p.Keys)),
		stamps: make([]int, len(p.Keys)),
	}

	idx, ok := byName[p.idColumn()]
	if !ok {
		return cols, fmt.Errorf("parquet schema missing %q column", p.idColumn())
	}
	cols.id = idx

	for i, key := range p.Keys {
		idx, ok := byName[key]
		if !ok {
			return cols, fmt.Errorf("parquet schema missing ordering key column %q", key)
		}
		cols.values[i] = idx
		if tsIdx, ok := byName[key+"_ts"]; ok {
			cols.stamps[i] = tsIdx
		} else {
			cols.stamps[i] = -1
		}
	}
	return cols, nil
}

// deliver extracts one row's identifier and auxiliary values and passes them
// to onRow. Returns the row id and whether the callback requested a stop.
func (p *ParquetScan) deliver(row parquet.Row, cols parquetColumns, aux []TimedValue, onRow RowFunc) (string, bool) {
	var id string
	for i := range aux {
		aux[i] = TimedValue{}
	}

	for _, val := range row {
		if val.IsNull() {
			continue
		}
		colIdx := val.Column()
		if colIdx == cols.id {
			id = val.String()
			continue
		}
		for i := range cols.values {
			if colIdx == cols.values[i] {
				aux[i].Value = val.String()
			} else if colIdx == cols.stamps[i] {
				aux[i].At = time.UnixMicro(val.Int64()).UTC()
			}
		}
	}
	if id == "" {
		return "", false
	}
	return id, !onRow(id, aux)
}
