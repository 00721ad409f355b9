package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"cp-tickets/models"
)

var csvHeader = []string{
	"run_id", "started_at", "finished_at", "duration_ms", "state", "failed_step", "error", "final_url",
	"origin", "destination", "travel_date", "passengers", "fare_class",
	"service", "departure", "arrival", "artifact_dir",
}

// CSVReportWriter appends one row per run to a CSV file.
// It is safe for concurrent use.
type CSVReportWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVReportWriter opens the CSV file at path for appending, creating it
// with a header row when it is new or empty. Intermediate directories are
// created automatically.
func NewCSVReportWriter(path string) (*CSVReportWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("csv: open file %q: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: stat %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csv: write header: %w", err)
		}
		w.Flush()
	}

	return &CSVReportWriter{file: f, writer: w}, nil
}

// Write appends the report as a single row.
func (c *CSVReportWriter) Write(r *models.RunReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Write(reportRow(r)); err != nil {
		return fmt.Errorf("csv: write row: %w", err)
	}
	c.writer.Flush()
	return c.writer.Error()
}

func reportRow(r *models.RunReport) []string {
	c := r.Criteria
	var service, dep, arr string
	if r.MatchedRow != nil {
		service, dep, arr = r.MatchedRow.Service, r.MatchedRow.Departure, r.MatchedRow.Arrival
	}

	return []string{
		r.RunID,
		formatTime(r.StartedAt),
		formatTime(r.FinishedAt),
		strconv.FormatInt(r.Duration().Milliseconds(), 10),
		string(r.State),
		string(r.FailedStep),
		r.Error,
		r.FinalURL,
		c.Origin,
		c.Destination,
		c.TravelDate(time.UTC).Format("2006-01-02"),
		strconv.Itoa(c.Passengers()),
		c.FareClass,
		service,
		dep,
		arr,
		r.ArtifactDir,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// Close flushes and closes the underlying file.
func (c *CSVReportWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}
