// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package sensor

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/clock"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/metric"
	"github.com/cristian-bicheru/Zero-DAQ-Software/wire"
)

// Placeholder marks a skipped or failed reading in a data log row.
const Placeholder = "Ø"

// DefaultPublishInterval caps snapshots at 60 Hz.
const DefaultPublishInterval = time.Second / 60

// DefaultErrorLogInterval is the minimum gap between two logged read
// failures of the same sensor.
const DefaultErrorLogInterval = time.Second

// ErrNoSensors is returned by NewScheduler when no descriptor has a
// rate.
var ErrNoSensors = errors.New("no physical sensors configured")

// Config holds the Scheduler's collaborators and tuning. Zero values
// get defaults.
type Config struct {
	Logger           *slog.Logger
	Clock            clock.Clock
	Metrics          *metric.Metrics
	PublishInterval  time.Duration
	ErrorLogInterval time.Duration
}

// Scheduler samples the physical sensors at their configured rates.
type Scheduler struct {
	sensors    []Descriptor
	decimation []int
	period     time.Duration
	reader     Reader

	logger           *slog.Logger
	clock            clock.Clock
	metrics          *metric.Metrics
	publishInterval  time.Duration
	errorLogInterval time.Duration

	subscribersMu sync.Mutex
	onSnapshot    []func(wire.SensorData)
	onRow         []func(string)
}

// NewScheduler returns a Scheduler over the physical sensors in
// sensors, in their given order. Derived sensors are ignored.
func NewScheduler(sensors []Descriptor, reader Reader, config Config) (*Scheduler, error) {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.PublishInterval <= 0 {
		config.PublishInterval = DefaultPublishInterval
	}
	if config.ErrorLogInterval <= 0 {
		config.ErrorLogInterval = DefaultErrorLogInterval
	}

	var physical []Descriptor
	maxRate := 0
	for _, d := range sensors {
		if d.Physical() {
			physical = append(physical, d)
			maxRate = max(maxRate, d.Rate)
		}
	}
	if len(physical) == 0 {
		return nil, ErrNoSensors
	}
	decimation := make([]int, len(physical))
	for k, d := range physical {
		decimation[k] = maxRate / d.Rate
	}

	return &Scheduler{
		sensors:          physical,
		decimation:       decimation,
		period:           time.Second / time.Duration(maxRate),
		reader:           reader,
		logger:           config.Logger,
		clock:            config.Clock,
		metrics:          metric.OrNew(config.Metrics),
		publishInterval:  config.PublishInterval,
		errorLogInterval: config.ErrorLogInterval,
	}, nil
}

// Sensors returns the sampled sensors in column order.
func (s *Scheduler) Sensors() []Descriptor {
	return append([]Descriptor(nil), s.sensors...)
}

// Period is the loop period, the inverse of the highest rate.
func (s *Scheduler) Period() time.Duration { return s.period }

// Decimation returns how many iterations apart sensor k is read.
func (s *Scheduler) Decimation(k int) int { return s.decimation[k] }

// Header is the data log header row.
func (s *Scheduler) Header() string {
	var b strings.Builder
	b.WriteString("Time [s]")
	for _, d := range s.sensors {
		b.WriteByte(',')
		b.WriteString(d.Column())
	}
	return b.String()
}

// OnSnapshot registers a subscriber for averaged snapshots. Subscribers
// run on the scheduler goroutine and must not block.
func (s *Scheduler) OnSnapshot(fn func(wire.SensorData)) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()
	s.onSnapshot = append(s.onSnapshot, fn)
}

// OnRow registers a subscriber for raw data log rows, without a
// trailing newline. Subscribers run on the scheduler goroutine and must
// not block.
func (s *Scheduler) OnRow(fn func(string)) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()
	s.onRow = append(s.onRow, fn)
}

// Run samples until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	start := s.clock.Now()
	last := start
	nextPublish := start.Add(s.publishInterval)

	sums := make([]float64, len(s.sensors))
	counts := make([]int, len(s.sensors))
	lastErrorLog := make([]time.Time, len(s.sensors))
	var row strings.Builder

	s.logger.Info("sensor scheduler started",
		"sensors", len(s.sensors), "period", s.period, "publish_interval", s.publishInterval)

	for i := 0; ; i++ {
		if ctx.Err() != nil {
			return nil
		}
		timestamp := last.Sub(start).Seconds()
		row.Reset()
		row.WriteString(strconv.FormatFloat(timestamp, 'g', -1, 64))

		for k, d := range s.sensors {
			row.WriteByte(',')
			if (i+k+1)%s.decimation[k] != 0 {
				row.WriteString(Placeholder)
				continue
			}
			raw, err := s.reader.Read(d)
			if err != nil {
				s.metrics.SensorReads.WithLabelValues(d.Name, "error").Inc()
				now := s.clock.Now()
				if lastErrorLog[k].IsZero() || now.Sub(lastErrorLog[k]) >= s.errorLogInterval {
					s.logger.Error("sensor read failed", "sensor", d.Name, "error", err)
					lastErrorLog[k] = now
				}
				row.WriteString(Placeholder)
				continue
			}
			s.metrics.SensorReads.WithLabelValues(d.Name, "ok").Inc()
			value := d.Calibrate(raw)
			sums[k] += value
			counts[k]++
			row.WriteString(strconv.FormatFloat(value, 'g', -1, 64))
		}

		if now := s.clock.Now(); now.After(nextPublish) {
			s.publish(timestamp, sums, counts)
			nextPublish = now.Add(s.publishInterval)
			clear(sums)
			clear(counts)
		}
		s.emitRow(row.String())

		elapsed := s.clock.Now().Sub(last)
		s.metrics.LoopDuration.Observe(elapsed.Seconds())
		if wait := s.period - elapsed; wait > 0 {
			select {
			case <-s.clock.After(wait):
			case <-ctx.Done():
				return nil
			}
		} else if wait < 0 {
			s.metrics.LoopOverruns.Inc()
		}
		last = s.clock.Now()
	}
}

func (s *Scheduler) publish(timestamp float64, sums []float64, counts []int) {
	snapshot := wire.SensorData{Timestamp: timestamp}
	for k, d := range s.sensors {
		if counts[k] > 0 {
			snapshot.Readings = append(snapshot.Readings, wire.Reading{
				SensorID: d.ID,
				Value:    sums[k] / float64(counts[k]),
			})
		}
	}
	s.subscribersMu.Lock()
	subscribers := s.onSnapshot
	s.subscribersMu.Unlock()
	for _, fn := range subscribers {
		fn(snapshot)
	}
	s.metrics.SnapshotsPublished.Inc()
}

func (s *Scheduler) emitRow(row string) {
	s.subscribersMu.Lock()
	subscribers := s.onRow
	s.subscribersMu.Unlock()
	for _, fn := range subscribers {
		fn(row)
	}
}
