// Package thrashing classifies swap thrashing from a cumulative hard page
// fault counter. A Detector samples the counter on every Evaluate call, keeps
// one or two observation windows depending on its current level, and moves
// between none, suspected and confirmed with separate escalation and cooldown
// windows so the level does not flap.
package thrashing

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// FaultCounter returns the cumulative number of hard page faults of whatever
// the caller monitors: the machine, a cgroup, a group of processes.
type FaultCounter interface {
	HardFaultCount() (uint64, error)
}

// FaultCounterFunc adapts a function to FaultCounter.
type FaultCounterFunc func() (uint64, error)

// HardFaultCount calls f.
func (f FaultCounterFunc) HardFaultCount() (uint64, error) {
	return f()
}

// Detector is the hysteretic three-level thrashing state machine.
//
// A Detector is not safe for concurrent use; callers that evaluate from
// several goroutines must serialize the calls (see Monitor).
type Detector struct {
	counter FaultCounter
	clock   clock.Clock
	log     *slog.Logger
	cfg     Config

	level Level
	// escalation exists in none and suspected, cooldown in suspected and confirmed.
	escalation *Window
	cooldown   *Window

	lastSample       time.Time
	samplingFailures int
}

// Option customizes a Detector.
type Option func(*Detector)

// WithClock sets the time source. Tests use clock.NewMock().
func WithClock(c clock.Clock) Option {
	return func(d *Detector) { d.clock = c }
}

// WithLogger sets the logger used for sampling failures and transitions.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.log = l }
}

// WithConfig overrides the default window lengths and thresholds.
func WithConfig(cfg Config) Option {
	return func(d *Detector) { d.cfg = cfg }
}

// NewDetector builds a detector at LevelNone and seeds its escalation window
// with a first sample. A failing first sample only leaves the window empty.
func NewDetector(counter FaultCounter, opts ...Option) (*Detector, error) {
	if counter == nil {
		return nil, fmt.Errorf("thrashing: nil fault counter")
	}
	d := &Detector{
		counter: counter,
		clock:   clock.New(),
		log:     slog.New(slog.DiscardHandler),
		cfg:     DefaultConfig(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detector config: %w", err)
	}

	d.escalation = NewWindow(d.cfg.NoneToSuspected)
	if obs, ok := d.sample(); ok {
		d.escalation.Observe(obs)
	}
	return d, nil
}

// Evaluate samples the fault counter, feeds the active windows and applies the
// transition rules. A failed sample leaves the level and windows untouched.
func (d *Detector) Evaluate() Level {
	obs, ok := d.sample()
	if !ok {
		return d.level
	}
	if d.escalation != nil {
		d.escalation.Observe(obs)
	}
	if d.cooldown != nil {
		d.cooldown.Observe(obs)
	}

	up := d.escalation != nil && rateAtLeast(d.escalation, d.cfg.EscalationThreshold)
	down := d.cooldown != nil && rateAtMost(d.cooldown, d.cfg.CooldownThreshold)

	prev := d.level
	switch d.level {
	case LevelNone:
		if up {
			d.level = LevelSuspected
			d.escalation = transitionWindow(d.escalation, d.cfg.SuspectedToConfirmed)
			d.cooldown = NewWindow(d.cfg.SuspectedToNone)
		}
	case LevelSuspected:
		// Escalation wins when both windows fire on the same sample.
		if up {
			d.level = LevelConfirmed
			d.escalation = nil
			d.cooldown = transitionWindow(d.cooldown, d.cfg.ConfirmedToSuspected)
		} else if down {
			d.level = LevelNone
			d.escalation = transitionWindow(d.escalation, d.cfg.NoneToSuspected)
			d.cooldown = nil
		}
	case LevelConfirmed:
		if down {
			d.level = LevelSuspected
			d.escalation = transitionWindow(d.escalation, d.cfg.SuspectedToConfirmed)
			d.cooldown = transitionWindow(d.cooldown, d.cfg.SuspectedToNone)
		}
	}

	if d.level != prev {
		d.log.Debug("thrashing level changed",
			"from", prev, "to", d.level, "hard_faults", obs.Count)
	}
	return d.level
}

// Level returns the level computed by the last Evaluate call.
func (d *Detector) Level() Level {
	return d.level
}

// Config returns the detector tuning.
func (d *Detector) Config() Config {
	return d.cfg
}

func (d *Detector) sample() (Observation, bool) {
	count, err := d.counter.HardFaultCount()
	if err != nil {
		d.samplingFailures++
		d.log.Debug("hard fault sample failed",
			"error", err, "consecutive_failures", d.samplingFailures, "level", d.level)
		return Observation{}, false
	}
	d.samplingFailures = 0
	now := d.clock.Now()
	d.lastSample = now
	return Observation{Count: count, Timestamp: now}, true
}

// transitionWindow returns a window of the given length that carries over the
// most recent observation of old. A nil old window yields an empty one.
func transitionWindow(old *Window, length time.Duration) *Window {
	if old == nil {
		return NewWindow(length)
	}
	last := old.MostRecent()
	old.Reset(length)
	old.Observe(last)
	return old
}

func rateAtLeast(w *Window, threshold float64) bool {
	rate, ok := w.AverageRate()
	return ok && rate >= threshold
}

func rateAtMost(w *Window, threshold float64) bool {
	rate, ok := w.AverageRate()
	return ok && rate <= threshold
}
