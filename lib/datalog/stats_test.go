// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package datalog

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSummarize(t *testing.T) {
	t.Parallel()
	log := strings.Join([]string{
		"Time (s),Thrust (lbf),TC 1 (degC)",
		"0.0,10,Ø",
		"0.5,20,300",
		"1.0,30,Ø",
		"1.5,40,310",
		"2.0,50,Ø",
		"2.5,6", // truncated final line
	}, "\n")

	summary, err := Summarize(strings.NewReader(log))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Rows != 5 || summary.Malformed != 1 {
		t.Fatalf("rows = %d, malformed = %d, want 5 and 1", summary.Rows, summary.Malformed)
	}
	if len(summary.Columns) != 3 {
		t.Fatalf("columns = %d", len(summary.Columns))
	}

	thrust := summary.Columns[1]
	if thrust.Name != "Thrust (lbf)" || thrust.Count != 5 || thrust.Min != 10 || thrust.Max != 50 || !near(thrust.Mean, 30) {
		t.Errorf("thrust = %+v", thrust)
	}
	if !near(thrust.MeanInterval, 0.5) || !near(thrust.Frequency(), 2) {
		t.Errorf("thrust interval = %v, frequency = %v", thrust.MeanInterval, thrust.Frequency())
	}

	tc := summary.Columns[2]
	if tc.Count != 2 || !near(tc.Mean, 305) || !near(tc.MaxInterval, 1) {
		t.Errorf("thermocouple = %+v", tc)
	}
}

func TestSummarizeEmptyColumn(t *testing.T) {
	t.Parallel()
	summary, err := Summarize(strings.NewReader("Time (s),Battery (V)\n0.0,Ø\n0.1,Ø\n"))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	battery := summary.Columns[1]
	if battery.Count != 0 || !math.IsNaN(battery.Mean) || battery.Frequency() != 0 {
		t.Fatalf("battery = %+v", battery)
	}
}

func TestSummarizeEmptyLog(t *testing.T) {
	t.Parallel()
	if _, err := Summarize(strings.NewReader("")); !errors.Is(err, ErrEmptyLog) {
		t.Fatalf("Summarize = %v, want ErrEmptyLog", err)
	}
}
