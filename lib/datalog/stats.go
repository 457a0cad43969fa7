// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package datalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// placeholder marks a reading the scheduler skipped or failed.
const placeholder = "Ø"

// ErrEmptyLog is returned by Summarize for a log without a header row.
var ErrEmptyLog = errors.New("data log has no header row")

// ColumnStats summarises one column of a sensor CSV. Interval figures
// are between consecutive rows that carry a value for the column.
type ColumnStats struct {
	Name         string
	Count        int
	Min          float64
	Max          float64
	Mean         float64
	MeanInterval float64
	MaxInterval  float64
}

// Frequency is the mean sample frequency in Hz, or 0 with fewer than
// two samples.
func (c ColumnStats) Frequency() float64 {
	if c.MeanInterval <= 0 {
		return 0
	}
	return 1 / c.MeanInterval
}

// Summary is the result of Summarize.
type Summary struct {
	Rows      int
	Malformed int
	Columns   []ColumnStats
}

type accumulator struct {
	stats    ColumnStats
	sum      float64
	lastTime float64
	gaps     float64
}

// Summarize reads a sensor CSV and computes per-column statistics. The
// first column is the timestamp. Rows with the wrong field count or an
// unparseable timestamp (a truncated final line, typically) are
// counted as malformed and skipped; unparseable values are skipped.
func Summarize(r io.Reader) (Summary, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return Summary{}, err
		}
		return Summary{}, ErrEmptyLog
	}
	header := strings.Split(strings.TrimSpace(scanner.Text()), ",")
	columns := make([]accumulator, len(header))
	for i, name := range header {
		columns[i].stats = ColumnStats{Name: name, Min: math.Inf(1), Max: math.Inf(-1)}
	}

	var summary Summary
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != len(header) {
			summary.Malformed++
			continue
		}
		timestamp, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			summary.Malformed++
			continue
		}
		summary.Rows++
		for i, field := range fields {
			if field == placeholder {
				continue
			}
			value, err := strconv.ParseFloat(field, 64)
			if err != nil {
				continue
			}
			columns[i].add(timestamp, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("read data log: %w", err)
	}

	summary.Columns = make([]ColumnStats, len(columns))
	for i := range columns {
		summary.Columns[i] = columns[i].finish()
	}
	return summary, nil
}

func (a *accumulator) add(timestamp, value float64) {
	s := &a.stats
	if s.Count > 0 {
		gap := timestamp - a.lastTime
		a.gaps += gap
		s.MaxInterval = max(s.MaxInterval, gap)
	}
	a.lastTime = timestamp
	s.Count++
	a.sum += value
	s.Min = min(s.Min, value)
	s.Max = max(s.Max, value)
}

func (a *accumulator) finish() ColumnStats {
	s := a.stats
	if s.Count == 0 {
		s.Min, s.Max = math.NaN(), math.NaN()
		s.Mean = math.NaN()
		return s
	}
	s.Mean = a.sum / float64(s.Count)
	if s.Count > 1 {
		s.MeanInterval = a.gaps / float64(s.Count-1)
	}
	return s
}
