package exporter

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqforge/internal/dataset"
)

func TestWriteFrame(t *testing.T) {
	ts := []time.Time{
		time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC),
		time.Date(2024, 6, 3, 9, 31, 0, 0, time.UTC),
		{}, // missing timestamp
	}
	f := dataset.NewWithTimestamps(ts)
	require.NoError(t, f.AddColumn("spx_price", []float64{5321.5, math.NaN(), 5322}))
	require.NoError(t, f.AddColumn("target_1h", []float64{530.25, 530.5, 531}))

	path := filepath.Join(t.TempDir(), "out", "features.csv")
	require.NoError(t, NewCSVWriter(nil).WriteFrame(path, f))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 4)
	assert.Equal(t, []string{"timestamp", "spx_price", "target_1h"}, records[0])
	assert.Equal(t, []string{"2024-06-03 09:30:00", "5321.5", "530.25"}, records[1])
	assert.Equal(t, "", records[2][1], "missing values export as empty cells")
	assert.Equal(t, "", records[3][0], "missing timestamps export as empty cells")
}

func TestWriteFrame_EmptyFrame(t *testing.T) {
	f := dataset.New()
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, NewCSVWriter(nil).WriteFrame(path, f))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "timestamp\n", string(raw), "header only")
}
