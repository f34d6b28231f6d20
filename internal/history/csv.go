package history

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"codeberg.org/mutker/wthud/internal/errors"
	"codeberg.org/mutker/wthud/internal/laptimer"
)

const timestampLayout = "2006-01-02 15:04:05"

var csvHeader = []string{"Timestamp", "Formatted Time", "Seconds"}

// CSVSink appends one row per lap to a CSV file, writing the header when the
// file is created.
type CSVSink struct {
	mu   sync.Mutex
	path string
}

func NewCSVSink(path string) (*CSVSink, error) {
	if path == "" {
		return nil, errors.New().New(ErrInvalidPath)
	}
	return &CSVSink{path: path}, nil
}

func (s *CSVSink) Append(_ context.Context, rec laptimer.Record) error {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
			return errFactory.Wrap(ErrAppendFailed, err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, defaultFilePerm)
	if err != nil {
		return errFactory.Wrap(ErrAppendFailed, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errFactory.Wrap(ErrAppendFailed, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return errFactory.Wrap(ErrAppendFailed, err)
		}
	}

	row := []string{
		rec.Timestamp.Local().Format(timestampLayout),
		rec.Formatted,
		strconv.FormatFloat(rec.Duration.Seconds(), 'f', 3, 64),
	}
	if err := w.Write(row); err != nil {
		return errFactory.Wrap(ErrAppendFailed, err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errFactory.Wrap(ErrAppendFailed, err)
	}

	return nil
}

func (s *CSVSink) Close() error {
	return nil
}
