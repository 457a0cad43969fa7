// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package sensor

import (
	"math/rand/v2"
	"sync"
)

// Simulator produces readings with Gaussian noise around the middle of
// each Kind's range, scaled by the Kind's noise figure. It stands in
// for the sensor boards on bench runs.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator returns a Simulator seeded with seed, so runs are
// reproducible.
func NewSimulator(seed uint64) *Simulator {
	return &Simulator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *Simulator) Read(d Descriptor) (float64, error) {
	low, high := d.Kind.Range()
	s.mu.Lock()
	noise := s.rng.NormFloat64()
	s.mu.Unlock()
	return (low+high)/2 + noise*d.Kind.Noise(), nil
}
