package thrashing

import "time"

// WindowStatus is a read-only view of one observation window.
type WindowStatus struct {
	Length       time.Duration
	Span         time.Duration
	Observations int
	Rate         float64
	Ready        bool
}

// Status describes the detector after its last evaluation. Escalation and
// Cooldown are nil when the current level has no such window.
type Status struct {
	Level            Level
	Escalation       *WindowStatus
	Cooldown         *WindowStatus
	LastSample       time.Time
	SamplingFailures int
}

// Status snapshots the detector state for reporting.
func (d *Detector) Status() Status {
	return Status{
		Level:            d.level,
		Escalation:       windowStatus(d.escalation),
		Cooldown:         windowStatus(d.cooldown),
		LastSample:       d.lastSample,
		SamplingFailures: d.samplingFailures,
	}
}

func windowStatus(w *Window) *WindowStatus {
	if w == nil {
		return nil
	}
	rate, ok := w.AverageRate()
	return &WindowStatus{
		Length:       w.Length(),
		Span:         w.Span(),
		Observations: w.Len(),
		Rate:         rate,
		Ready:        ok,
	}
}
