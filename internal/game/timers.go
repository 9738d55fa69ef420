package game

import "container/heap"

// TimerQueue is a simulation-time priority queue of one-shot callbacks.
// Skill expirations, goal resets and selection deadlines all fire from here,
// drained once per physics tick, so timer behavior is deterministic when the
// loop is stepped manually in tests. Cancellation sets a tombstone; the
// entry is discarded when it surfaces.
type TimerQueue struct {
	entries timerHeap
	seq     uint64
}

// TimerHandle allows cancelling a scheduled callback.
type TimerHandle struct {
	cancelled bool
}

// Cancel tombstones the timer. Safe to call multiple times, and safe on
// timers that already fired.
func (h *TimerHandle) Cancel() {
	h.cancelled = true
}

// Cancelled reports whether the timer was cancelled.
func (h *TimerHandle) Cancelled() bool {
	return h.cancelled
}

type timerEntry struct {
	fireAt int64 // sim ms
	seq    uint64
	fn     func()
	handle *TimerHandle
}

type timerHeap []timerEntry

func (t timerHeap) Len() int { return len(t) }
func (t timerHeap) Less(i, j int) bool {
	if t[i].fireAt != t[j].fireAt {
		return t[i].fireAt < t[j].fireAt
	}
	return t[i].seq < t[j].seq // stable order for equal deadlines
}
func (t timerHeap) Swap(i, j int) { t[i], t[j] = t[j], t[i] }

func (t *timerHeap) Push(x interface{}) { *t = append(*t, x.(timerEntry)) }
func (t *timerHeap) Pop() interface{} {
	old := *t
	n := len(old)
	e := old[n-1]
	*t = old[:n-1]
	return e
}

// NewTimerQueue creates an empty timer queue.
func NewTimerQueue() *TimerQueue {
	return &TimerQueue{}
}

// Schedule registers fn to run at sim time fireAt.
func (q *TimerQueue) Schedule(fireAt int64, fn func()) *TimerHandle {
	h := &TimerHandle{}
	q.seq++
	heap.Push(&q.entries, timerEntry{fireAt: fireAt, seq: q.seq, fn: fn, handle: h})
	return h
}

// RunDue fires every non-cancelled timer with fireAt <= now, in deadline
// then insertion order. Callbacks may schedule new timers; those fire on a
// later call even if already due, which keeps a misbehaving callback from
// wedging the tick.
func (q *TimerQueue) RunDue(now int64) int {
	fired := 0
	limit := len(q.entries)
	for i := 0; i < limit && len(q.entries) > 0; i++ {
		if q.entries[0].fireAt > now {
			break
		}
		e := heap.Pop(&q.entries).(timerEntry)
		if e.handle.cancelled {
			continue
		}
		e.fn()
		fired++
	}
	return fired
}

// Len returns the number of pending entries, including tombstones.
func (q *TimerQueue) Len() int {
	return len(q.entries)
}

// Reset drops every pending timer.
func (q *TimerQueue) Reset() {
	q.entries = q.entries[:0]
}
