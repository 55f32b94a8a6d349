package thrashing

import (
	"errors"
	"fmt"
	"time"
)

// Default window lengths and rate thresholds.
const (
	DefaultNoneToSuspected      = 6 * time.Second
	DefaultSuspectedToNone      = 8 * time.Second
	DefaultSuspectedToConfirmed = 10 * time.Second
	DefaultConfirmedToSuspected = 16 * time.Second

	// DefaultEscalationThreshold is the sustained hard faults per second that
	// indicates worsening thrashing.
	DefaultEscalationThreshold = 5.0
	// DefaultCooldownThreshold is the sustained hard faults per second below
	// which the detector steps down a level.
	DefaultCooldownThreshold = 3.0
)

// Config holds the window lengths and thresholds of the detector.
type Config struct {
	NoneToSuspected      time.Duration
	SuspectedToNone      time.Duration
	SuspectedToConfirmed time.Duration
	ConfirmedToSuspected time.Duration

	EscalationThreshold float64
	CooldownThreshold   float64
}

// DefaultConfig returns the stock detector tuning.
func DefaultConfig() Config {
	return Config{
		NoneToSuspected:      DefaultNoneToSuspected,
		SuspectedToNone:      DefaultSuspectedToNone,
		SuspectedToConfirmed: DefaultSuspectedToConfirmed,
		ConfirmedToSuspected: DefaultConfirmedToSuspected,
		EscalationThreshold:  DefaultEscalationThreshold,
		CooldownThreshold:    DefaultCooldownThreshold,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"none-to-suspected window", c.NoneToSuspected},
		{"suspected-to-none window", c.SuspectedToNone},
		{"suspected-to-confirmed window", c.SuspectedToConfirmed},
		{"confirmed-to-suspected window", c.ConfirmedToSuspected},
	}
	for _, d := range durations {
		if d.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", d.name, d.d))
		}
	}
	if c.EscalationThreshold <= 0 {
		errs = append(errs, fmt.Errorf("escalation threshold must be positive, got %g", c.EscalationThreshold))
	}
	if c.CooldownThreshold < 0 {
		errs = append(errs, fmt.Errorf("cooldown threshold must not be negative, got %g", c.CooldownThreshold))
	}
	if c.CooldownThreshold > c.EscalationThreshold {
		errs = append(errs, fmt.Errorf("cooldown threshold %g exceeds escalation threshold %g",
			c.CooldownThreshold, c.EscalationThreshold))
	}
	return errors.Join(errs...)
}
