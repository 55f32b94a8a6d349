//go:build linux

package memory

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SelfCounter reports the major faults of the current process.
type SelfCounter struct{}

// HardFaultCount implements thrashing.FaultCounter.
func (SelfCounter) HardFaultCount() (uint64, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, fmt.Errorf("%w: getrusage: %w", ErrCounterUnavailable, err)
	}
	return uint64(ru.Majflt), nil
}
