// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"reflect"
	"testing"
)

func frames(texts ...string) [][]byte {
	out := make([][]byte, len(texts))
	for i, text := range texts {
		out[i] = []byte(text)
	}
	return out
}

func TestConflateKeepsNewestPerKind(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   [][]byte
		want [][]byte
	}{
		{name: "empty", in: nil, want: nil},
		{name: "single", in: frames("a1"), want: frames("a1")},
		{name: "same kind", in: frames("a1", "a2", "a3"), want: frames("a3")},
		{name: "mixed kinds keep order of survivors", in: frames("a1", "b1", "a2", "c1", "b2"), want: frames("a2", "c1", "b2")},
		{name: "empty frames are their own kind", in: [][]byte{{}, []byte("a1"), {}}, want: [][]byte{[]byte("a1"), {}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := conflate(test.in); !reflect.DeepEqual(got, test.want) {
				t.Fatalf("conflate = %q, want %q", got, test.want)
			}
		})
	}
}

func TestFrameQueueFIFO(t *testing.T) {
	t.Parallel()
	q := newFrameQueue()
	for _, frame := range frames("a1", "a2", "b1") {
		if replaced := q.push(frame); replaced != 0 {
			t.Fatalf("push replaced %d frames outside latest-only mode", replaced)
		}
	}
	select {
	case <-q.notify:
	default:
		t.Fatal("push did not signal notify")
	}
	for _, want := range []string{"a1", "a2", "b1"} {
		got, ok := q.pop()
		if !ok || string(got) != want {
			t.Fatalf("pop = %q, %v, want %q", got, ok, want)
		}
	}
	if _, ok := q.pop(); ok {
		t.Fatal("pop on empty queue succeeded")
	}
}

func TestFrameQueueLatestOnly(t *testing.T) {
	t.Parallel()
	q := newFrameQueue()
	q.push([]byte("a1"))
	q.push([]byte("b1"))
	q.push([]byte("a2"))
	if dropped := q.setLatestOnly(true); dropped != 1 {
		t.Fatalf("setLatestOnly dropped %d, want 1", dropped)
	}
	if replaced := q.push([]byte("b2")); replaced != 1 {
		t.Fatalf("push replaced %d, want 1", replaced)
	}
	got, dropped := q.drain(false)
	if dropped != 0 || !reflect.DeepEqual(got, frames("a2", "b2")) {
		t.Fatalf("drain = %q (%d dropped), want [a2 b2]", got, dropped)
	}
	if q.len() != 0 {
		t.Fatalf("len after drain = %d", q.len())
	}
}

func TestFrameQueueDrainConflates(t *testing.T) {
	t.Parallel()
	q := newFrameQueue()
	for _, frame := range frames("a1", "a2", "a3", "b1") {
		q.push(frame)
	}
	got, dropped := q.drain(true)
	if dropped != 2 || !reflect.DeepEqual(got, frames("a3", "b1")) {
		t.Fatalf("drain(true) = %q (%d dropped), want [a3 b1] (2 dropped)", got, dropped)
	}
}
