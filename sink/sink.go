// Package sink persists period tables as files in an output directory.
package sink

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pevans/rangescrape"
)

// Format is an output file format.
type Format string

const (
	CSV   Format = "csv"
	JSONL Format = "jsonl"
)

var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates a format name. The empty string selects CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case CSV, "":
		return CSV, nil
	case JSONL:
		return JSONL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Writer writes one file per period table into a directory.
type Writer struct {
	dir    string
	format Format
}

// New creates a writer for dir, creating the directory if it doesn't exist.
func New(dir string, format Format) (*Writer, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if format == "" {
		format = CSV
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Writer{dir: dir, format: format}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteTable writes the table to "<start>_to_<end>_<keyword>.<format>" and
// returns the file's path. An existing file with that name is replaced.
func (w *Writer) WriteTable(table rangescrape.PeriodTable) (string, error) {
	path := filepath.Join(w.dir, table.Name(string(w.format)))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	switch w.format {
	case JSONL:
		err = writeJSONL(f, table.Records)
	default:
		err = writeCSV(f, table.Records)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}

func writeCSV(f *os.File, records []rangescrape.Record) error {
	cw := csv.NewWriter(f)
	if err := cw.Write(rangescrape.Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSONL(f *os.File, records []rangescrape.Record) error {
	enc := json.NewEncoder(f)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
