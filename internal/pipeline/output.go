package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/xl-idp/reference-inn/internal/model"
)

// CSVWriter appends candidate rows to a CSV file as they finish. Safe for
// concurrent use by the worker pool.
type CSVWriter struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

// NewCSVWriter creates the file, its parent directories, and writes the
// header.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrap(err, "create output directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "create csv file %s", path)
	}
	w := csv.NewWriter(f)
	if err := w.Write(model.CSVHeader()); err != nil {
		f.Close()
		return nil, eris.Wrap(err, "write csv header")
	}
	w.Flush()
	return &CSVWriter{f: f, w: w}, nil
}

// Write appends one row and flushes, so a crashed run keeps what it earned.
func (c *CSVWriter) Write(row *model.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.w.Write(row.CSVRecord()); err != nil {
		return eris.Wrap(err, "write csv row")
	}
	c.w.Flush()
	return eris.Wrap(c.w.Error(), "flush csv")
}

func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return eris.Wrap(err, "flush csv")
	}
	return eris.Wrap(c.f.Close(), "close csv file")
}

// WriteBuckets writes the per-country JSON exports next to each other in
// dir, named after the source file.
func WriteBuckets(dir, baseName string, res *Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "create output directory")
	}
	buckets := map[string][]*model.Row{
		baseName + "_russia.json":  res.Russian,
		baseName + "_foreign.json": res.Foreign,
		baseName + "_unknown.json": res.Unknown,
	}
	for name, rows := range buckets {
		if rows == nil {
			rows = []*model.Row{}
		}
		payload, err := json.MarshalIndent(rows, "", "    ")
		if err != nil {
			return eris.Wrapf(err, "encode %s", name)
		}
		if err := os.WriteFile(filepath.Join(dir, name), payload, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", name)
		}
	}
	return nil
}
