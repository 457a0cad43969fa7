// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zero"

// Metrics holds every instrument exported by the controller and the
// console.
type Metrics struct {
	// Transport
	FramesSent      prometheus.Counter
	FramesReceived  prometheus.Counter
	FramesConflated prometheus.Counter
	Reconnects      *prometheus.CounterVec // stream

	// Link
	DecodeErrors prometheus.Counter
	Connected    prometheus.Gauge
	Transitions  *prometheus.CounterVec // state

	// Scheduler
	SensorReads        *prometheus.CounterVec // sensor, outcome
	LoopDuration       prometheus.Histogram
	LoopOverruns       prometheus.Counter
	SnapshotsPublished prometheus.Counter

	// Sequencer and router
	SequencerState prometheus.Gauge
	ProgramRuns    *prometheus.CounterVec // outcome
	Actions        *prometheus.CounterVec // action, result
}

// New creates the instruments and registers them on reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "frames_sent_total",
			Help:      "Frames written to the outbound stream.",
		}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "frames_received_total",
			Help:      "Frames read from the inbound stream.",
		}),
		FramesConflated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "frames_conflated_total",
			Help:      "Queued outbound frames superseded by a newer frame before they could be sent.",
		}),
		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "connections_total",
			Help:      "TCP streams established, by direction.",
		}, []string{"stream"}),

		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "decode_errors_total",
			Help:      "Inbound frames dropped because they did not decode.",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "connected",
			Help:      "1 while the peer is considered alive.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "transitions_total",
			Help:      "Liveness state transitions, by the state entered.",
		}, []string{"state"}),

		SensorReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "sensor_reads_total",
			Help:      "Sensor reads by outcome (ok, error).",
		}, []string{"sensor", "outcome"}),
		LoopDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "loop_duration_seconds",
			Help:      "Time spent reading sensors in one scheduler iteration.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		LoopOverruns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "overruns_total",
			Help:      "Iterations whose reads took longer than the loop period.",
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "snapshots_total",
			Help:      "Aggregated snapshots delivered to subscribers.",
		}),

		SequencerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sequencer",
			Name:      "state",
			Help:      "Run state (0=idle, 1=running, 2=aborting).",
		}),
		ProgramRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sequencer",
			Name:      "runs_total",
			Help:      "Finished program runs by outcome (completed, aborted).",
		}, []string{"outcome"}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "actions_total",
			Help:      "Operator actions handled, by action and result (ok, rejected, failed).",
		}, []string{"action", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.collectors()...)
	}
	return m
}

// OrNew returns m, or a fresh unregistered set when m is nil.
func OrNew(m *Metrics) *Metrics {
	if m == nil {
		return New(nil)
	}
	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FramesSent, m.FramesReceived, m.FramesConflated, m.Reconnects,
		m.DecodeErrors, m.Connected, m.Transitions,
		m.SensorReads, m.LoopDuration, m.LoopOverruns, m.SnapshotsPublished,
		m.SequencerState, m.ProgramRuns, m.Actions,
	}
}

// Handler serves the metrics gathered by g in the Prometheus text
// format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
