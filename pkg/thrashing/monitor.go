package thrashing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Transition is reported to OnChange hooks when the level moves.
type Transition struct {
	From   Level
	To     Level
	At     time.Time
	Status Status
}

// Monitor drives a Detector on a fixed interval and fans the results out to
// hooks. All access to the detector goes through the monitor's mutex.
type Monitor struct {
	mu       sync.Mutex
	detector *Detector
	interval time.Duration
	clock    clock.Clock
	log      *slog.Logger

	onChange   []func(Transition)
	onEvaluate []func(Status)
}

// NewMonitor wraps d. The monitor shares the detector's clock and logger.
func NewMonitor(d *Detector, interval time.Duration) (*Monitor, error) {
	if d == nil {
		return nil, fmt.Errorf("thrashing: nil detector")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("thrashing: monitor interval must be positive, got %v", interval)
	}
	return &Monitor{
		detector: d,
		interval: interval,
		clock:    d.clock,
		log:      d.log,
	}, nil
}

// OnChange registers fn to run after every level change. Hooks run on the
// evaluating goroutine, in registration order.
func (m *Monitor) OnChange(fn func(Transition)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// OnEvaluate registers fn to run after every evaluation.
func (m *Monitor) OnEvaluate(fn func(Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvaluate = append(m.onEvaluate, fn)
}

// Tick evaluates the detector once and runs the hooks.
func (m *Monitor) Tick() Level {
	m.mu.Lock()
	prev := m.detector.Level()
	level := m.detector.Evaluate()
	status := m.detector.Status()
	onChange := m.onChange
	onEvaluate := m.onEvaluate
	m.mu.Unlock()

	for _, fn := range onEvaluate {
		fn(status)
	}
	if level == prev {
		return level
	}

	m.log.Info("swap thrashing level changed", "from", prev, "to", level)
	t := Transition{From: prev, To: level, At: status.LastSample, Status: status}
	for _, fn := range onChange {
		fn(t)
	}
	return level
}

// Run ticks until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := m.clock.Ticker(m.interval)
	defer ticker.Stop()

	m.log.Debug("thrashing monitor started", "interval", m.interval)
	for {
		select {
		case <-ctx.Done():
			m.log.Debug("thrashing monitor stopped")
			return nil
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Level returns the level of the last evaluation.
func (m *Monitor) Level() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detector.Level()
}

// Status returns the detector status of the last evaluation.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detector.Status()
}
