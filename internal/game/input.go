package game

import "soccer-arena/internal/physics"

// InputQueue is a bounded per-player FIFO of directional inputs. Clients
// send batches at ~8 ms cadence; the simulation consumes one entry per
// 16 ms tick, so the queue drains about half as fast as it fills when the
// client never skips a frame. The cap (~120 = 2 s) bounds the memory and
// the worst-case replay debt of a stalled connection.
type InputQueue struct {
	items []physics.Input
	cap   int
}

// NewInputQueue creates a queue bounded at capacity entries.
func NewInputQueue(capacity int) InputQueue {
	return InputQueue{cap: capacity}
}

// Push appends an input, enforcing the ingestion rules:
//   - entries at or below lastProcessed are stale and silently dropped,
//   - a duplicate of the last queued sequence is coalesced,
//   - on overflow the front (oldest) entry is dropped.
//
// It reports whether the input was queued.
func (q *InputQueue) Push(in physics.Input, lastProcessed uint32) bool {
	if in.Sequence <= lastProcessed {
		return false
	}
	if n := len(q.items); n > 0 {
		last := q.items[n-1]
		if in.Sequence == last.Sequence {
			q.items[n-1] = in
			return true
		}
		if in.Sequence < last.Sequence {
			return false
		}
	}
	if len(q.items) >= q.cap {
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
	}
	q.items = append(q.items, in)
	return true
}

// Pop removes and returns the front entry.
func (q *InputQueue) Pop() (physics.Input, bool) {
	if len(q.items) == 0 {
		return physics.Input{}, false
	}
	in := q.items[0]
	copy(q.items, q.items[1:])
	q.items = q.items[:len(q.items)-1]
	return in, true
}

// PopLatest drains the queue and returns the newest entry. Used only in the
// latest-input comparison mode; the default consumption is Pop.
func (q *InputQueue) PopLatest() (physics.Input, bool) {
	if len(q.items) == 0 {
		return physics.Input{}, false
	}
	in := q.items[len(q.items)-1]
	q.items = q.items[:0]
	return in, true
}

// Len returns the number of queued inputs.
func (q *InputQueue) Len() int {
	return len(q.items)
}

// Reset drops all queued inputs.
func (q *InputQueue) Reset() {
	q.items = q.items[:0]
}
