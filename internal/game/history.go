package game

// HistorySample is one recorded position with its simulation timestamp.
type HistorySample struct {
	X, Y float64
	T    int64 // sim ms
}

// History is a fixed-size ring of position samples, one per physics tick,
// kept for lag-compensated kick validation. With 60 samples at 16 ms it
// covers roughly one second.
type History struct {
	samples []HistorySample
	head    int // next write position
	count   int
}

// NewHistory creates a ring holding up to n samples.
func NewHistory(n int) *History {
	return &History{samples: make([]HistorySample, n)}
}

// Push appends a sample, overwriting the oldest when full.
func (h *History) Push(x, y float64, t int64) {
	h.samples[h.head] = HistorySample{X: x, Y: y, T: t}
	h.head = (h.head + 1) % len(h.samples)
	if h.count < len(h.samples) {
		h.count++
	}
}

// Len returns the number of stored samples.
func (h *History) Len() int {
	return h.count
}

// At returns the stored sample whose timestamp is closest to t. It reports
// false when the ring is empty or the best match is further than maxAge away,
// in which case callers fall back to the current state (lag compensation
// disabled for that validation).
func (h *History) At(t, maxAge int64) (HistorySample, bool) {
	if h.count == 0 {
		return HistorySample{}, false
	}
	var best HistorySample
	bestDelta := int64(-1)
	for i := 0; i < h.count; i++ {
		idx := (h.head - 1 - i + len(h.samples)) % len(h.samples)
		s := h.samples[idx]
		delta := s.T - t
		if delta < 0 {
			delta = -delta
		}
		if bestDelta < 0 || delta < bestDelta {
			best = s
			bestDelta = delta
		}
	}
	if bestDelta > maxAge {
		return HistorySample{}, false
	}
	return best, true
}

// Latest returns the most recent sample.
func (h *History) Latest() (HistorySample, bool) {
	if h.count == 0 {
		return HistorySample{}, false
	}
	idx := (h.head - 1 + len(h.samples)) % len(h.samples)
	return h.samples[idx], true
}
