// Package exporter writes the pipeline's output artifacts: featured
// CSV partitions and sequence tensor files.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"seqforge/internal/dataset"
)

// TimestampFormat is the layout used for timestamp cells in exported
// CSV files. Missing timestamps export as empty cells, as do missing
// numeric values.
const TimestampFormat = "2006-01-02 15:04:05"

// CSVWriter writes frames to CSV files.
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a CSV writer. A nil logger falls back to
// slog.Default.
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteFrame writes a frame to filePath with a "timestamp" column
// followed by every numeric column in order.
func (w *CSVWriter) WriteFrame(filePath string, f *dataset.Frame) error {
	w.logger.Info("writing CSV file",
		slog.String("path", filePath),
		slog.Int("rows", f.Rows()),
		slog.Int("columns", len(f.Columns())+1))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	columns := f.Columns()
	header := append([]string{"timestamp"}, columns...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	record := make([]string, len(header))
	for i := 0; i < f.Rows(); i++ {
		record[0] = formatTimestamp(f.Timestamp(i))
		for j, name := range columns {
			record[j+1] = formatValue(f.Column(name)[i])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write CSV record %d: %w", i, err)
		}
	}
	return writer.Error()
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimestampFormat)
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
