package importer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/rankproc/bucketdb/pkg/dataset"
)

// memSink collects recorded rows in memory.
type memSink struct {
	rows      []dataset.Row
	committed bool
}

func (m *memSink) RecordRow(row dataset.Row) error {
	m.rows = append(m.rows, row)
	return nil
}

func (m *memSink) Commit() error {
	m.committed = true
	return nil
}

func (m *memSink) cellMap(t *testing.T, rowID string) map[string]string {
	t.Helper()
	for _, row := range m.rows {
		if row.ID != rowID {
			continue
		}
		cells := make(map[string]string, len(row.Cells))
		for _, c := range row.Cells {
			cells[c.Column] = c.Value
		}
		return cells
	}
	t.Fatalf("row %q not imported", rowID)
	return nil
}

func writeLines(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestImportFlattening(t *testing.T) {
	path := writeLines(t, "data.json",
		`{"name":"alice","score":4.5,"active":true,"meta":{"plan":"pro","tier":2},"tags":["red","blue"],"events":[{"kind":"click"}],"missing":null}`+"\n")

	sink := &memSink{}
	res, err := Run(context.Background(), Config{DataURL: path, Limit: -1}, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RowCount != 1 || res.LineErrors != 0 {
		t.Fatalf("result = %+v, want 1 row, 0 errors", res)
	}
	if !sink.committed {
		t.Error("sink was not committed")
	}

	cells := sink.cellMap(t, "row1")
	want := map[string]string{
		"name":      "alice",
		"score":     "4.5",
		"active":    "true",
		"meta.plan": "pro",
		"meta.tier": "2",
		"tags.red":  "true",
		"tags.blue": "true",
		"events":    `[{"kind":"click"}]`,
	}
	for col, val := range want {
		if got, ok := cells[col]; !ok || got != val {
			t.Errorf("cell %q = %q (present=%v), want %q", col, got, ok, val)
		}
	}
	if _, ok := cells["missing"]; ok {
		t.Error("null value produced a cell")
	}
	if len(cells) != len(want) {
		t.Errorf("got %d cells, want %d: %v", len(cells), len(want), cells)
	}
}

func TestImportRowNaming(t *testing.T) {
	path := writeLines(t, "data.json", `{"a":"1"}`+"\n\n"+`{"a":"2"}`+"\n"+`{"a":"3"}`+"\n")

	sink := &memSink{}
	res, err := Run(context.Background(), Config{DataURL: path, Limit: -1}, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RowCount != 3 {
		t.Fatalf("RowCount = %d, want 3", res.RowCount)
	}

	var ids []string
	for _, row := range sink.rows {
		ids = append(ids, row.ID)
	}
	sort.Strings(ids)
	// The blank line keeps its line number, so the third object is row4.
	want := []string{"row1", "row3", "row4"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("row IDs = %v, want %v", ids, want)
		}
	}
}

func TestImportOffsetLimit(t *testing.T) {
	path := writeLines(t, "data.json",
		`{"a":"1"}`+"\n"+`{"a":"2"}`+"\n"+`{"a":"3"}`+"\n"+`{"a":"4"}`+"\n")

	sink := &memSink{}
	res, err := Run(context.Background(), Config{DataURL: path, Offset: 1, Limit: 2}, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RowCount != 2 {
		t.Fatalf("RowCount = %d, want 2", res.RowCount)
	}
	if sink.rows[0].ID != "row2" || sink.rows[1].ID != "row3" {
		t.Errorf("imported %q and %q, want row2 and row3", sink.rows[0].ID, sink.rows[1].ID)
	}
}

func TestImportBadLineStrict(t *testing.T) {
	path := writeLines(t, "data.json", `{"a":"1"}`+"\n"+`not json`+"\n"+`{"a":"3"}`+"\n")

	sink := &memSink{}
	_, err := Run(context.Background(), Config{DataURL: path, Limit: -1}, sink)
	if err == nil {
		t.Fatal("Run succeeded on a bad line without IgnoreBadLines")
	}
	if sink.committed {
		t.Error("sink was committed after a fatal line error")
	}
}

func TestImportBadLineSkip(t *testing.T) {
	path := writeLines(t, "data.json",
		`{"a":"1"}`+"\n"+`not json`+"\n"+`["top-level array"]`+"\n"+`{"a":"4"}`+"\n")

	sink := &memSink{}
	res, err := Run(context.Background(), Config{DataURL: path, Limit: -1, IgnoreBadLines: true}, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RowCount != 2 || res.LineErrors != 2 {
		t.Fatalf("result = %+v, want 2 rows, 2 errors", res)
	}
	if !sink.committed {
		t.Error("sink was not committed")
	}
}

func TestImportGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(`{"a":"1"}` + "\n" + `{"a":"2"}` + "\n")); err != nil {
		t.Fatalf("write gzip: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	sink := &memSink{}
	res, err := Run(context.Background(), Config{DataURL: path, Limit: -1}, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RowCount != 2 {
		t.Fatalf("RowCount = %d, want 2", res.RowCount)
	}
}

func TestImportMissingFile(t *testing.T) {
	sink := &memSink{}
	_, err := Run(context.Background(), Config{DataURL: filepath.Join(t.TempDir(), "absent.json"), Limit: -1}, sink)
	if err == nil {
		t.Fatal("Run succeeded on a missing file")
	}
}
