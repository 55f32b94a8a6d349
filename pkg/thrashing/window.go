package thrashing

import "time"

// Observation is a single sample of the cumulative hard fault counter.
type Observation struct {
	Count     uint64
	Timestamp time.Time
}

// Window keeps the samples needed to compute the average hard fault rate over
// at least Length() of wall-clock time. Samples are appended at the back and
// trimmed from the front; the window never trims itself below two samples.
type Window struct {
	length       time.Duration
	observations []Observation
}

// NewWindow returns an empty window covering length.
func NewWindow(length time.Duration) *Window {
	return &Window{length: length}
}

// Reset drops every observation and sets a new target length.
func (w *Window) Reset(length time.Duration) {
	w.length = length
	w.observations = w.observations[:0]
}

// Observe appends obs and discards the samples no longer needed to cover the
// window length.
func (w *Window) Observe(obs Observation) {
	w.observations = append(w.observations, obs)
	if len(w.observations) <= 2 {
		return
	}

	// Walk back from the second-to-last sample and stop at the newest one
	// that alone covers the window. The front sample is a valid stop point.
	last := w.observations[len(w.observations)-1]
	keepFrom := -1
	for i := len(w.observations) - 2; i >= 0; i-- {
		if last.Timestamp.Sub(w.observations[i].Timestamp) >= w.length {
			keepFrom = i
			break
		}
	}
	if keepFrom <= 0 {
		return
	}
	n := copy(w.observations, w.observations[keepFrom:])
	w.observations = w.observations[:n]
}

// AverageRate returns the hard faults per second between the oldest and the
// newest retained observation. ok is false until the retained span covers the
// window length.
func (w *Window) AverageRate() (rate float64, ok bool) {
	if len(w.observations) < 2 {
		return 0, false
	}
	oldest := w.observations[0]
	newest := w.observations[len(w.observations)-1]
	span := newest.Timestamp.Sub(oldest.Timestamp)
	if span < w.length || span <= 0 {
		return 0, false
	}
	return (float64(newest.Count) - float64(oldest.Count)) / span.Seconds(), true
}

// Span returns the time covered by the retained observations.
func (w *Window) Span() time.Duration {
	if len(w.observations) < 2 {
		return 0
	}
	return w.observations[len(w.observations)-1].Timestamp.Sub(w.observations[0].Timestamp)
}

// MostRecent returns the newest observation. It panics on an empty window.
func (w *Window) MostRecent() Observation {
	if len(w.observations) == 0 {
		panic("thrashing: MostRecent called on an empty window")
	}
	return w.observations[len(w.observations)-1]
}

// Length returns the configured window length.
func (w *Window) Length() time.Duration {
	return w.length
}

// Len returns the number of retained observations.
func (w *Window) Len() int {
	return len(w.observations)
}
