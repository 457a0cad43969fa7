// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package metric

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersEveryCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.FramesSent.Inc()
	m.SensorReads.WithLabelValues("thrust", "ok").Add(3)
	m.Connected.Set(1)

	if got := testutil.ToFloat64(m.SensorReads.WithLabelValues("thrust", "ok")); got != 3 {
		t.Fatalf("sensor reads = %v, want 3", got)
	}
	if n := testutil.CollectAndCount(m.Connected); n != 1 {
		t.Fatalf("connected gauge samples = %d, want 1", n)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), "zero_") {
			t.Errorf("metric %q outside the zero namespace", family.GetName())
		}
	}
}

func TestOrNewIsUnregistered(t *testing.T) {
	m := OrNew(nil)
	m.LoopOverruns.Inc()
	if got := testutil.ToFloat64(m.LoopOverruns); got != 1 {
		t.Fatalf("overruns = %v, want 1", got)
	}
	existing := New(nil)
	if OrNew(existing) != existing {
		t.Fatal("OrNew replaced a non-nil set")
	}
}

func TestHandlerServesTextFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ProgramRuns.WithLabelValues("completed").Inc()

	server := httptest.NewServer(Handler(reg))
	defer server.Close()

	response, err := server.Client().Get(server.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer response.Body.Close()
	body, _ := io.ReadAll(response.Body)
	if !strings.Contains(string(body), `zero_sequencer_runs_total{outcome="completed"} 1`) {
		t.Fatalf("metrics output missing run counter:\n%s", body)
	}
}
