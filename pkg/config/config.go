// Package config loads and validates YAML run configurations for the
// bucketize procedure.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rankproc/bucketdb/pkg/bucketize"
	"github.com/rankproc/bucketdb/pkg/dataset"
	"github.com/rankproc/bucketdb/pkg/source"
)

// RunConfig is one bucketize run, as declared in a YAML file.
type RunConfig struct {
	InputData         InputData     `yaml:"inputData"`
	OutputDataset     OutputDataset `yaml:"outputDataset"`
	PercentileBuckets BucketList    `yaml:"percentileBuckets"`
}

// InputData selects and orders the rows to rank. Exactly one of Dataset
// and Parquet must be set.
type InputData struct {
	// Dataset is a sparse dataset file produced by this tool.
	Dataset string `yaml:"dataset"`
	// Parquet is a Parquet file whose physical row order defines rank.
	Parquet string `yaml:"parquet"`
	// IDColumn names the Parquet row identifier column.
	IDColumn string `yaml:"idColumn"`
	// Select is accepted for compatibility and only checked non-empty.
	Select  string      `yaml:"select"`
	OrderBy []OrderKey  `yaml:"orderBy"`
	Where   []Predicate `yaml:"where"`
	Offset  int64       `yaml:"offset"`
	// Limit caps scanned rows; negative means no limit.
	Limit int64 `yaml:"limit"`
}

// OrderKey is one orderBy clause.
type OrderKey struct {
	Column  string `yaml:"column"`
	Desc    bool   `yaml:"desc"`
	Numeric bool   `yaml:"numeric"`
}

// Predicate is one where conjunct.
type Predicate struct {
	Column  string `yaml:"column"`
	Op      string `yaml:"op"`
	Value   string `yaml:"value"`
	Numeric bool   `yaml:"numeric"`
}

// OutputDataset declares where bucket assignments are written.
type OutputDataset struct {
	Path string `yaml:"path"`
	Type string `yaml:"type"`
}

// BucketList preserves the YAML declaration order of percentileBuckets,
// which a plain Go map would lose.
type BucketList []bucketize.Bucket

// UnmarshalYAML decodes a mapping of name -> [low, high] in document order.
func (b *BucketList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("percentileBuckets must be a mapping, got %s", node.Tag)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]

		var bounds []float64
		if err := valNode.Decode(&bounds); err != nil {
			return fmt.Errorf("bucket %q: %w", keyNode.Value, err)
		}
		if len(bounds) != 2 {
			return fmt.Errorf("bucket %q: want [low, high], got %d value(s)", keyNode.Value, len(bounds))
		}
		*b = append(*b, bucketize.Bucket{Name: keyNode.Value, Low: bounds[0], High: bounds[1]})
	}
	return nil
}

// Load reads and validates a run configuration file.
func Load(path string) (*RunConfig, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(contents)
}

// Parse decodes and validates YAML config contents.
func Parse(contents []byte) (*RunConfig, error) {
	cfg := &RunConfig{
		InputData:     InputData{Limit: -1},
		OutputDataset: OutputDataset{Type: dataset.TypeSparseMutable},
	}
	dec := yaml.NewDecoder(bytes.NewReader(contents))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration's shape. Percentile range semantics
// are checked later, when the procedure is constructed.
func (c *RunConfig) Validate() error {
	in := &c.InputData
	switch {
	case in.Dataset == "" && in.Parquet == "":
		return errors.New("inputData: one of dataset or parquet is required")
	case in.Dataset != "" && in.Parquet != "":
		return errors.New("inputData: dataset and parquet are mutually exclusive")
	}
	if in.Select == "" {
		return errors.New("inputData: select is required")
	}
	if len(in.OrderBy) == 0 {
		return errors.New("inputData: orderBy must name at least one column")
	}
	for i, k := range in.OrderBy {
		if k.Column == "" {
			return fmt.Errorf("inputData: orderBy[%d]: column is required", i)
		}
	}
	for i, p := range in.Where {
		f := source.Filter{Column: p.Column, Op: p.Op, Value: p.Value, Numeric: p.Numeric}
		if err := f.Validate(); err != nil {
			return fmt.Errorf("inputData: where[%d]: %w", i, err)
		}
	}
	if c.OutputDataset.Path == "" {
		return errors.New("outputDataset: path is required")
	}
	if c.OutputDataset.Type != dataset.TypeSparseMutable {
		return fmt.Errorf("outputDataset: unsupported type %q", c.OutputDataset.Type)
	}
	if len(c.PercentileBuckets) == 0 {
		return errors.New("percentileBuckets: at least one bucket is required")
	}
	return nil
}

// Scan builds the ranked scan declared by inputData.
func (c *RunConfig) Scan() source.RankedScan {
	in := &c.InputData
	if in.Parquet != "" {
		keys := make([]string, len(in.OrderBy))
		for i, k := range in.OrderBy {
			keys[i] = k.Column
		}
		return &source.ParquetScan{
			Path:     in.Parquet,
			IDColumn: in.IDColumn,
			Keys:     keys,
			Offset:   in.Offset,
			Limit:    in.Limit,
		}
	}

	orderBy := make([]source.OrderKey, len(in.OrderBy))
	for i, k := range in.OrderBy {
		orderBy[i] = source.OrderKey{Column: k.Column, Desc: k.Desc, Numeric: k.Numeric}
	}
	where := make([]source.Filter, len(in.Where))
	for i, p := range in.Where {
		where[i] = source.Filter{Column: p.Column, Op: p.Op, Value: p.Value, Numeric: p.Numeric}
	}
	return &source.SQLiteScan{
		Path:    in.Dataset,
		OrderBy: orderBy,
		Where:   where,
		Offset:  in.Offset,
		Limit:   in.Limit,
	}
}

// Output builds the dataset store config for outputDataset.
func (c *RunConfig) Output() dataset.Config {
	out := dataset.DefaultConfig(c.OutputDataset.Path)
	out.Type = c.OutputDataset.Type
	return out
}
