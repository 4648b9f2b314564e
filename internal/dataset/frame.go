// Package dataset provides the column-oriented time-series frame the
// pipeline operates on. Missing values are NaN, missing timestamps are
// the zero time, and every transformation either mutates in place or
// returns a fresh frame, stated per method.
package dataset

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Frame is a column-oriented table with a shared timestamp axis.
// Numeric columns hold float64 values where NaN marks a missing
// observation; a zero time.Time marks a row whose timestamp could
// not be parsed. All columns always have exactly Rows() entries.
type Frame struct {
	ts    []time.Time
	order []string
	cols  map[string][]float64
}

// New creates an empty frame.
func New() *Frame {
	return &Frame{cols: make(map[string][]float64)}
}

// NewWithTimestamps creates a frame over the given timestamp axis.
func NewWithTimestamps(ts []time.Time) *Frame {
	f := New()
	f.ts = append(f.ts, ts...)
	return f
}

// Rows returns the number of rows in the frame.
func (f *Frame) Rows() int {
	return len(f.ts)
}

// Empty reports whether the frame has no rows.
func (f *Frame) Empty() bool {
	return len(f.ts) == 0
}

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Column returns the backing slice for the named column, or nil if it
// does not exist. Callers that mutate the slice mutate the frame.
func (f *Frame) Column(name string) []float64 {
	return f.cols[name]
}

// Timestamps returns the backing timestamp slice.
func (f *Frame) Timestamps() []time.Time {
	return f.ts
}

// Timestamp returns the timestamp of row i.
func (f *Frame) Timestamp(i int) time.Time {
	return f.ts[i]
}

// AddColumn appends a new column. The value count must match the row
// count; an existing column of the same name is replaced in place so
// column order stays stable.
func (f *Frame) AddColumn(name string, values []float64) error {
	if len(values) != len(f.ts) {
		return fmt.Errorf("column %s has %d values, frame has %d rows", name, len(values), len(f.ts))
	}
	if _, exists := f.cols[name]; !exists {
		f.order = append(f.order, name)
	}
	f.cols[name] = values
	return nil
}

// DropColumn removes the named column. Dropping an unknown column is a
// no-op.
func (f *Frame) DropColumn(name string) {
	if _, ok := f.cols[name]; !ok {
		return
	}
	delete(f.cols, name)
	for i, n := range f.order {
		if n == name {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// RenameColumn renames a column, keeping its position. Renaming an
// unknown column is a no-op.
func (f *Frame) RenameColumn(from, to string) {
	vals, ok := f.cols[from]
	if !ok || from == to {
		return
	}
	delete(f.cols, from)
	f.cols[to] = vals
	for i, n := range f.order {
		if n == from {
			f.order[i] = to
			break
		}
	}
}

// Copy returns a deep copy of the frame.
func (f *Frame) Copy() *Frame {
	out := NewWithTimestamps(f.ts)
	for _, name := range f.order {
		vals := make([]float64, len(f.cols[name]))
		copy(vals, f.cols[name])
		out.AddColumn(name, vals)
	}
	return out
}

// Slice returns a deep copy of rows [lo, hi).
func (f *Frame) Slice(lo, hi int) *Frame {
	if lo < 0 {
		lo = 0
	}
	if hi > len(f.ts) {
		hi = len(f.ts)
	}
	if lo > hi {
		lo = hi
	}
	out := NewWithTimestamps(f.ts[lo:hi])
	for _, name := range f.order {
		vals := make([]float64, hi-lo)
		copy(vals, f.cols[name][lo:hi])
		out.AddColumn(name, vals)
	}
	return out
}

// FilterRows returns a deep copy containing only the rows for which
// keep[i] is true.
func (f *Frame) FilterRows(keep []bool) *Frame {
	ts := make([]time.Time, 0, len(f.ts))
	for i, k := range keep {
		if k {
			ts = append(ts, f.ts[i])
		}
	}
	out := NewWithTimestamps(ts)
	for _, name := range f.order {
		src := f.cols[name]
		vals := make([]float64, 0, len(ts))
		for i, k := range keep {
			if k {
				vals = append(vals, src[i])
			}
		}
		out.AddColumn(name, vals)
	}
	return out
}

// SortByTimestamp stably sorts rows by timestamp ascending. Rows whose
// timestamp could not be parsed sort after every valid row, preserving
// their original relative order.
func (f *Frame) SortByTimestamp() {
	n := len(f.ts)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, tb := f.ts[idx[a]], f.ts[idx[b]]
		if ta.IsZero() {
			return false
		}
		if tb.IsZero() {
			return true
		}
		return ta.Before(tb)
	})
	f.reorder(idx)
}

// reorder permutes all rows according to idx.
func (f *Frame) reorder(idx []int) {
	ts := make([]time.Time, len(idx))
	for i, j := range idx {
		ts[i] = f.ts[j]
	}
	f.ts = ts
	for name, src := range f.cols {
		vals := make([]float64, len(idx))
		for i, j := range idx {
			vals[i] = src[j]
		}
		f.cols[name] = vals
	}
}

// ForwardFill replaces every missing value with the most recent prior
// observed value of the same column. Values before a column's first
// observation stay missing.
func (f *Frame) ForwardFill() {
	for _, name := range f.order {
		vals := f.cols[name]
		last := math.NaN()
		for i, v := range vals {
			if math.IsNaN(v) {
				vals[i] = last
			} else {
				last = v
			}
		}
	}
}

// OuterJoin joins two frames on their timestamp axes, producing one row
// per timestamp present in either frame, sorted ascending. Column names
// must not collide. When a frame contains duplicate timestamps the last
// occurrence wins.
func (f *Frame) OuterJoin(other *Frame) (*Frame, error) {
	for _, name := range other.order {
		if f.HasColumn(name) {
			return nil, fmt.Errorf("column %s exists in both frames", name)
		}
	}

	left := f.rowIndex()
	right := other.rowIndex()

	keys := make([]int64, 0, len(left)+len(right))
	seen := make(map[int64]bool, len(left)+len(right))
	for k := range left {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for k := range right {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a] < keys[b] })

	ts := make([]time.Time, len(keys))
	for i, k := range keys {
		if j, ok := left[k]; ok {
			ts[i] = f.ts[j]
		} else {
			ts[i] = other.ts[right[k]]
		}
	}
	out := NewWithTimestamps(ts)

	appendSide := func(src *Frame, index map[int64]int) {
		for _, name := range src.order {
			col := src.cols[name]
			vals := make([]float64, len(keys))
			for i, k := range keys {
				if j, ok := index[k]; ok {
					vals[i] = col[j]
				} else {
					vals[i] = math.NaN()
				}
			}
			out.AddColumn(name, vals)
		}
	}
	appendSide(f, left)
	appendSide(other, right)
	return out, nil
}

// rowIndex maps each timestamp key to the last row carrying it.
func (f *Frame) rowIndex() map[int64]int {
	index := make(map[int64]int, len(f.ts))
	for i, t := range f.ts {
		index[tsKey(t)] = i
	}
	return index
}

// tsKey converts a timestamp to a join/sort key. The zero time maps to
// a single shared key so unparseable rows collapse together.
func tsKey(t time.Time) int64 {
	if t.IsZero() {
		return math.MaxInt64
	}
	return t.UnixNano()
}

// Resample buckets rows into fixed intervals and keeps the last
// observation of each bucket. The output covers every interval between
// the first and last valid timestamp, with missing values for empty
// buckets. Rows without a valid timestamp are excluded.
func (f *Frame) Resample(interval time.Duration) *Frame {
	var first, last time.Time
	for _, t := range f.ts {
		if t.IsZero() {
			continue
		}
		if first.IsZero() || t.Before(first) {
			first = t
		}
		if last.IsZero() || t.After(last) {
			last = t
		}
	}
	if first.IsZero() {
		return New()
	}

	start := first.Truncate(interval)
	end := last.Truncate(interval)
	n := int(end.Sub(start)/interval) + 1

	ts := make([]time.Time, n)
	for i := range ts {
		ts[i] = start.Add(time.Duration(i) * interval)
	}
	out := NewWithTimestamps(ts)

	for _, name := range f.order {
		src := f.cols[name]
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = math.NaN()
		}
		for i, t := range f.ts {
			if t.IsZero() {
				continue
			}
			bucket := int(t.Truncate(interval).Sub(start) / interval)
			if bucket >= 0 && bucket < n && !math.IsNaN(src[i]) {
				vals[bucket] = src[i]
			}
		}
		out.AddColumn(name, vals)
	}
	return out
}
