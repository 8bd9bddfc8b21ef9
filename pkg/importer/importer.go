// Package importer loads JSON-lines data files into a sparse dataset.
// Each input line is one JSON object, flattened into cells under a row
// named after its line number.
package importer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/rankproc/bucketdb/internal/logctx"
	"github.com/rankproc/bucketdb/pkg/dataset"
	"github.com/rankproc/bucketdb/pkg/logging"
	"github.com/rankproc/bucketdb/pkg/s3fetch"
)

// maxLineBytes bounds a single JSON line.
const maxLineBytes = 16 * 1024 * 1024

// Config controls one import run.
type Config struct {
	// DataURL is a local path or an s3://bucket/key URI. A .gz suffix
	// enables transparent gunzip.
	DataURL string
	// Offset skips that many leading lines. Skipped lines still count
	// toward row numbering.
	Offset int64
	// Limit caps the number of processed lines; negative means no limit.
	Limit int64
	// IgnoreBadLines counts and skips unparseable lines instead of
	// failing on the first one.
	IgnoreBadLines bool
}

// Result reports what an import run did.
type Result struct {
	RowCount   int64
	LineErrors int64
}

// RowSink receives one row per imported line and is committed once at
// the end of the run. *dataset.Store satisfies it.
type RowSink interface {
	RecordRow(row dataset.Row) error
	Commit() error
}

var _ RowSink = (*dataset.Store)(nil)

// Run imports cfg.DataURL into out.
func Run(ctx context.Context, cfg Config, out RowSink) (Result, error) {
	log := logctx.FromContext(ctx)

	rc, err := openData(ctx, cfg.DataURL)
	if err != nil {
		return Result{}, err
	}
	defer rc.Close()

	log.Info().Str("data", cfg.DataURL).Msg("importing JSON lines")
	progress := logging.NewScanProgress("import", 0, log)

	scanner := bufio.NewScanner(rc)
	// Set a large buffer for long lines
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var res Result
	var lineNumber int64
	for scanner.Scan() {
		lineNumber++
		if lineNumber <= cfg.Offset {
			continue
		}
		if cfg.Limit >= 0 && res.RowCount+res.LineErrors >= cfg.Limit {
			break
		}

		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		cells, err := flattenLine(line)
		if err != nil {
			if !cfg.IgnoreBadLines {
				return res, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			res.LineErrors++
			log.Warn().Int64("line", lineNumber).Err(err).Msg("skipping bad line")
			continue
		}

		row := dataset.Row{ID: "row" + strconv.FormatInt(lineNumber, 10), Cells: cells}
		if err := out.RecordRow(row); err != nil {
			return res, fmt.Errorf("record line %d: %w", lineNumber, err)
		}
		res.RowCount++
		progress.Add(1)
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read %s: %w", cfg.DataURL, err)
	}

	if err := out.Commit(); err != nil {
		return res, fmt.Errorf("commit output dataset: %w", err)
	}
	progress.Done()
	log.Info().
		Int64("rows", res.RowCount).
		Int64("line_errors", res.LineErrors).
		Msg("import complete")
	return res, nil
}

// openData opens the data source as a line stream, layering gunzip on
// top of local files and S3 objects as needed.
func openData(ctx context.Context, dataURL string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	if strings.HasPrefix(dataURL, "s3://") {
		bucket, key, err := s3fetch.ParseS3URI(dataURL)
		if err != nil {
			return nil, err
		}
		client, err := s3fetch.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		rc, err = client.StreamObject(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
	} else {
		f, err := os.Open(dataURL)
		if err != nil {
			return nil, fmt.Errorf("open data file: %w", err)
		}
		rc = f
	}

	if strings.HasSuffix(dataURL, ".gz") {
		gz, err := gzip.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("open gzip stream %s: %w", dataURL, err)
		}
		return &gzipReadCloser{gz: gz, raw: rc}, nil
	}
	return rc, nil
}

type gzipReadCloser struct {
	gz  *gzip.Reader
	raw io.ReadCloser
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	rawErr := g.raw.Close()
	if gzErr != nil {
		return gzErr
	}
	return rawErr
}
