package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Column names produced by LoadSeries for every raw source. The aligner
// prefixes them with the source name before joining.
const (
	ColPrice  = "price"
	ColVolume = "volume"
)

// Header aliases recognized in raw input files.
var (
	timestampAliases = []string{"timestamp", "time", "datetime", "date"}
	priceAliases     = []string{"current_price", "price", "close", "last_price"}
	volumeAliases    = []string{"volume", "vol"}
)

// Timestamp layouts tried in order when parsing raw rows.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// LoadSeries reads one raw series from a CSV or XLSX file into a frame
// with a "price" and, when present in the input, a "volume" column.
// Rows with unparseable timestamps are kept with a missing timestamp
// rather than dropped; unparseable numeric cells become missing values.
func LoadSeries(path string) (*Frame, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		rows, err = readExcelRows(path)
	default:
		rows, err = readCSVRows(path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return New(), nil
	}

	header := rows[0]
	tsIdx := findColumn(header, timestampAliases)
	priceIdx := findColumn(header, priceAliases)
	volumeIdx := findColumn(header, volumeAliases)

	if tsIdx < 0 {
		return nil, fmt.Errorf("no timestamp column in %s (header: %v)", path, header)
	}
	if priceIdx < 0 && volumeIdx < 0 {
		return nil, fmt.Errorf("no price or volume column in %s (header: %v)", path, header)
	}

	data := rows[1:]
	ts := make([]time.Time, len(data))
	price := make([]float64, len(data))
	volume := make([]float64, len(data))
	badTimestamps := 0

	for i, row := range data {
		ts[i], price[i], volume[i] = time.Time{}, math.NaN(), math.NaN()
		if tsIdx < len(row) {
			if t, ok := parseTimestamp(row[tsIdx]); ok {
				ts[i] = t
			} else {
				badTimestamps++
			}
		}
		if priceIdx >= 0 && priceIdx < len(row) {
			price[i] = parseFloat(row[priceIdx])
		}
		if volumeIdx >= 0 && volumeIdx < len(row) {
			volume[i] = parseFloat(row[volumeIdx])
		}
	}

	if badTimestamps > 0 {
		slog.Warn("rows with unparseable timestamps kept as missing",
			slog.String("file", filepath.Base(path)),
			slog.Int("count", badTimestamps))
	}

	f := NewWithTimestamps(ts)
	if priceIdx >= 0 {
		f.AddColumn(ColPrice, price)
	}
	if volumeIdx >= 0 {
		f.AddColumn(ColVolume, volume)
	}
	return f, nil
}

// readCSVRows reads all records from a CSV file, tolerating a UTF-8 BOM
// and ragged rows.
func readCSVRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open series file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read series file: %w", err)
	}

	// Remove BOM if present
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		content = content[3:]
	}

	reader := csv.NewReader(strings.NewReader(string(content)))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV %s: %w", path, err)
	}
	return records, nil
}

// readExcelRows reads all rows from the first sheet of an XLSX file.
func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// findColumn returns the index of the first header cell matching one of
// the aliases, or -1. Matching is case-insensitive and alias order sets
// priority.
func findColumn(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, cell := range header {
			if strings.EqualFold(strings.TrimSpace(cell), alias) {
				return i
			}
		}
	}
	return -1
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseFloat(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
