package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"seqforge/internal/dataset"
)

// ColumnRange holds the fitted (min, max) pair of one feature column.
type ColumnRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// MinMaxScaler linearly remaps each fitted column's observed range to
// [0, 1]. It is fitted exactly once, on the full cleaned dataset, and
// the one set of parameters applies to every partition. The persisted
// artifact lets inference-time feature pipelines reuse the same
// scaling.
type MinMaxScaler struct {
	Columns  []string               `json:"columns"`
	Ranges   map[string]ColumnRange `json:"ranges"`
	FittedAt time.Time              `json:"fitted_at"`

	fitted bool
}

// NewMinMaxScaler creates an unfitted scaler.
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{Ranges: make(map[string]ColumnRange)}
}

// Fit records the observed min and max of each named column. Fitting
// twice is a programming error.
func (s *MinMaxScaler) Fit(f *dataset.Frame, columns []string) error {
	if s.fitted {
		return fmt.Errorf("scaler already fitted")
	}
	for _, name := range columns {
		vals := f.Column(name)
		if vals == nil {
			return fmt.Errorf("cannot fit scaler: column %s missing", name)
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range vals {
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if math.IsInf(lo, 1) {
			// Column with no observed values; range collapses to zero.
			lo, hi = 0, 0
		}
		s.Ranges[name] = ColumnRange{Min: lo, Max: hi}
		s.Columns = append(s.Columns, name)
	}
	s.FittedAt = time.Now().UTC()
	s.fitted = true
	return nil
}

// Transform scales every fitted column of f in place to [0, 1].
// Zero-range columns map to 0 rather than dividing by zero.
func (s *MinMaxScaler) Transform(f *dataset.Frame) error {
	if !s.fitted {
		return fmt.Errorf("scaler not fitted")
	}
	for _, name := range s.Columns {
		vals := f.Column(name)
		if vals == nil {
			return fmt.Errorf("cannot transform: column %s missing", name)
		}
		r := s.Ranges[name]
		span := r.Max - r.Min
		for i, v := range vals {
			if math.IsNaN(v) {
				continue
			}
			if span == 0 {
				vals[i] = 0
			} else {
				vals[i] = (v - r.Min) / span
			}
		}
	}
	return nil
}

// InverseTransform maps scaled columns back to their original units.
func (s *MinMaxScaler) InverseTransform(f *dataset.Frame) error {
	if !s.fitted {
		return fmt.Errorf("scaler not fitted")
	}
	for _, name := range s.Columns {
		vals := f.Column(name)
		if vals == nil {
			return fmt.Errorf("cannot inverse-transform: column %s missing", name)
		}
		r := s.Ranges[name]
		span := r.Max - r.Min
		for i, v := range vals {
			if math.IsNaN(v) {
				continue
			}
			vals[i] = v*span + r.Min
		}
	}
	return nil
}

// Save persists the fitted parameters as JSON.
func (s *MinMaxScaler) Save(path string) error {
	if !s.fitted {
		return fmt.Errorf("refusing to save unfitted scaler")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create scaler directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scaler: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write scaler file: %w", err)
	}
	return nil
}

// LoadScaler reads a persisted scaler back. The result is usable for
// Transform and InverseTransform.
func LoadScaler(path string) (*MinMaxScaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler file: %w", err)
	}
	var s MinMaxScaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scaler file: %w", err)
	}
	s.fitted = true
	return &s, nil
}
