// Package cli implements the command-line interface for bucketdb.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sort"

	"github.com/rankproc/bucketdb/internal/logctx"
	"github.com/rankproc/bucketdb/pkg/bucketize"
	"github.com/rankproc/bucketdb/pkg/config"
	"github.com/rankproc/bucketdb/pkg/dataset"
	"github.com/rankproc/bucketdb/pkg/humanfmt"
	"github.com/rankproc/bucketdb/pkg/importer"
	"github.com/rankproc/bucketdb/pkg/logging"
)

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: bucketdb <command> [options]\ncommands: bucketize, import-json, stats")
	}

	switch args[0] {
	case "bucketize":
		return runBucketize(args[1:])
	case "import-json":
		return runImportJSON(args[1:])
	case "stats":
		return runStats(args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func runBucketize(args []string) error {
	fs := flag.NewFlagSet("bucketize", flag.ContinueOnError)
	configPath := fs.String("config", "", "run configuration YAML file")
	workers := fs.Int("workers", 0, "bucket write workers (0 = auto)")
	debug := fs.Bool("debug", false, "enable debug logging")
	human := fs.Bool("human", false, "human-readable console logging")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return errors.New("--config is required")
	}

	logging.Init(*debug, *human)
	log := logging.WithPhase("bucketize")
	ctx := logctx.WithLogger(context.Background(), log)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	proc, err := bucketize.New(bucketize.Config{
		Buckets: cfg.PercentileBuckets,
		Workers: *workers,
	})
	if err != nil {
		return err
	}

	out, err := dataset.Open(cfg.Output())
	if err != nil {
		return err
	}
	defer out.Close()

	res, err := proc.Run(ctx, cfg.Scan(), out)
	if err != nil {
		return err
	}

	log.Info().
		Str("run_id", res.RunID).
		Str("rows", humanfmt.Count(res.RowCount)).
		Int("buckets", res.BucketCount).
		Str("output", cfg.OutputDataset.Path).
		Msg("bucketize complete")
	return nil
}

func runImportJSON(args []string) error {
	fs := flag.NewFlagSet("import-json", flag.ContinueOnError)
	data := fs.String("data", "", "JSON-lines input: local path or s3://bucket/key (.gz supported)")
	out := fs.String("out", "", "output dataset file")
	offset := fs.Int64("offset", 0, "skip this many leading lines")
	limit := fs.Int64("limit", -1, "max lines to process (-1 = no limit)")
	ignoreBadLines := fs.Bool("ignore-bad-lines", false, "skip unparseable lines instead of failing")
	debug := fs.Bool("debug", false, "enable debug logging")
	human := fs.Bool("human", false, "human-readable console logging")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *data == "" {
		return errors.New("--data is required")
	}
	if *out == "" {
		return errors.New("--out is required")
	}

	logging.Init(*debug, *human)
	log := logging.WithPhase("import")
	ctx := logctx.WithLogger(context.Background(), log)

	store, err := dataset.Open(dataset.DefaultConfig(*out))
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := importer.Run(ctx, importer.Config{
		DataURL:        *data,
		Offset:         *offset,
		Limit:          *limit,
		IgnoreBadLines: *ignoreBadLines,
	}, store)
	if err != nil {
		return err
	}

	log.Info().
		Str("rows", humanfmt.Count(res.RowCount)).
		Int64("line_errors", res.LineErrors).
		Str("output", *out).
		Msg("import complete")
	return nil
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	path := fs.String("path", "", "dataset file to inspect")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("--path is required")
	}

	store, err := dataset.OpenRead(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Status()
	if err != nil {
		return err
	}
	fmt.Printf("path:  %s\n", st.Path)
	fmt.Printf("type:  %s\n", st.Type)
	fmt.Printf("rows:  %s\n", humanfmt.Count(st.RowCount))
	fmt.Printf("cells: %s\n", humanfmt.Count(st.CellCount))

	counts, err := store.ColumnValueCounts(bucketize.BucketColumn)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		return nil
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("buckets:")
	for _, name := range names {
		fmt.Printf("  %-12s %s\n", name, humanfmt.Count(counts[name]))
	}
	return nil
}
