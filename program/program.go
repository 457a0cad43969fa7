// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package program

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
)

var (
	// ErrParse is returned when a program has fewer than two usable
	// rows.
	ErrParse = errors.New("malformed engine program")

	// ErrNotFound is returned for a program name with no file.
	ErrNotFound = errors.New("engine program not found")
)

// Row is one program waypoint.
type Row struct {
	Time     float64
	Fuel     float64
	Oxidizer float64
	Ignitor  float64
}

// Program is a parsed engine test program. It is immutable once
// parsed.
type Program struct {
	Name string
	Rows []Row

	// Digest is the BLAKE3-256 hash of the source text.
	Digest [32]byte
}

// DigestHex returns Digest as lowercase hex.
func (p *Program) DigestHex() string {
	return hex.EncodeToString(p.Digest[:])
}

// Duration is the time of the last row.
func (p *Program) Duration() float64 {
	return p.Rows[len(p.Rows)-1].Time
}

// Parse reads a program. Blank lines are ignored. Rows that do not
// have four numbers, or whose time runs backwards, are logged and
// skipped. At least two rows must remain.
func Parse(name string, source []byte, logger *slog.Logger) (*Program, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Program{Name: name, Digest: blake3.Sum256(source)}

	scanner := bufio.NewScanner(bytes.NewReader(source))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		row, err := parseRow(text)
		if err != nil {
			logger.Error("skipping bad program row", "program", name, "line", line, "error", err)
			continue
		}
		if n := len(p.Rows); n > 0 && row.Time < p.Rows[n-1].Time {
			logger.Error("skipping program row that goes back in time",
				"program", name, "line", line, "time", row.Time, "previous", p.Rows[n-1].Time)
			continue
		}
		p.Rows = append(p.Rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read program %q: %w", name, err)
	}
	if len(p.Rows) < 2 {
		return nil, fmt.Errorf("%w: %q has %d usable rows, need at least 2", ErrParse, name, len(p.Rows))
	}
	return p, nil
}

func parseRow(text string) (Row, error) {
	fields := strings.Split(text, ",")
	if len(fields) != 4 {
		return Row{}, fmt.Errorf("%d fields, want 4", len(fields))
	}
	var values [4]float64
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return Row{}, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Row{}, fmt.Errorf("field %d is %v", i+1, v)
		}
		values[i] = v
	}
	return Row{Time: values[0], Fuel: values[1], Oxidizer: values[2], Ignitor: values[3]}, nil
}
