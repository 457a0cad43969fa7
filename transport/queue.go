// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"slices"
	"sync"
)

// frameQueue is an unbounded FIFO of frames shared between a caller and
// a stream goroutine. The notify channel (capacity 1) wakes the
// consumer after a push.
//
// In latest-only mode a push replaces any queued frame of the same
// kind, which bounds the queue while nobody is draining it.
type frameQueue struct {
	mu         sync.Mutex
	frames     [][]byte
	latestOnly bool
	notify     chan struct{}
}

func newFrameQueue() *frameQueue {
	return &frameQueue{notify: make(chan struct{}, 1)}
}

// kind is the conflation key of a frame: its leading byte, or -1 for an
// empty frame.
func kind(frame []byte) int {
	if len(frame) == 0 {
		return -1
	}
	return int(frame[0])
}

// push appends frame and returns how many queued frames it superseded.
func (q *frameQueue) push(frame []byte) int {
	q.mu.Lock()
	replaced := 0
	if q.latestOnly {
		key := kind(frame)
		kept := q.frames[:0]
		for _, queued := range q.frames {
			if kind(queued) == key {
				replaced++
				continue
			}
			kept = append(kept, queued)
		}
		clear(q.frames[len(kept):])
		q.frames = kept
	}
	q.frames = append(q.frames, frame)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return replaced
}

// pop removes the oldest frame.
func (q *frameQueue) pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) == 0 {
		return nil, false
	}
	frame := q.frames[0]
	q.frames[0] = nil
	q.frames = q.frames[1:]
	return frame, true
}

// drain removes and returns every queued frame, conflated if asked,
// along with the number of frames conflation discarded.
func (q *frameQueue) drain(conflateFrames bool) ([][]byte, int) {
	q.mu.Lock()
	frames := q.frames
	q.frames = nil
	q.mu.Unlock()
	if !conflateFrames {
		return frames, 0
	}
	kept := conflate(frames)
	return kept, len(frames) - len(kept)
}

// setLatestOnly switches latest-only mode. Turning it on conflates the
// frames already queued; the number discarded is returned.
func (q *frameQueue) setLatestOnly(on bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.latestOnly = on
	if !on {
		return 0
	}
	before := len(q.frames)
	q.frames = conflate(q.frames)
	return before - len(q.frames)
}

func (q *frameQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// conflate keeps the newest frame of each kind, preserving the relative
// order of the survivors.
func conflate(frames [][]byte) [][]byte {
	if len(frames) < 2 {
		return frames
	}
	seen := make(map[int]bool)
	kept := make([][]byte, 0, len(frames))
	for i := len(frames) - 1; i >= 0; i-- {
		key := kind(frames[i])
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, frames[i])
	}
	slices.Reverse(kept)
	return kept
}
