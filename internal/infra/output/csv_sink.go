// internal/infra/output/csv_sink.go
package output

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"prayer_time_extractor/internal/domain/prayertime"

	"github.com/spf13/afero"
)

// ErrHeaderNotWritten is returned when records arrive before the header.
var ErrHeaderNotWritten = errors.New("csv header must be written before records")

// FileName derives the default output name from the run start time.
func FileName(runStarted time.Time) string {
	return fmt.Sprintf("hijri_date_%s.csv", runStarted.Format("20060102150405"))
}

// CSVSink writes records as CSV rows to a file on fs.
type CSVSink struct {
	file          afero.File
	buf           *bufio.Writer
	w             *csv.Writer
	headerWritten bool
}

// CreateCSV creates (or truncates) path, making parent directories as needed.
func CreateCSV(fs afero.Fs, path string) (*CSVSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create csv file %s: %w", path, err)
	}
	buf := bufio.NewWriter(f)
	return &CSVSink{file: f, buf: buf, w: csv.NewWriter(buf)}, nil
}

func (s *CSVSink) WriteHeader(header []string) error {
	if err := s.w.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	s.headerWritten = true
	return nil
}

// Write appends the records and flushes them, so a zone is on disk once written.
func (s *CSVSink) Write(_ context.Context, records []prayertime.Record) error {
	if !s.headerWritten {
		return ErrHeaderNotWritten
	}
	for _, rec := range records {
		if err := s.w.Write(rec.Row()); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv rows: %w", err)
	}
	return s.buf.Flush()
}

func (s *CSVSink) Close() error {
	s.w.Flush()
	return errors.Join(s.w.Error(), s.buf.Flush(), s.file.Close())
}
