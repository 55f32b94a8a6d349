//go:build !linux

package memory

import "fmt"

// SelfCounter is unsupported outside Linux.
type SelfCounter struct{}

// HardFaultCount always fails on unsupported platforms.
func (SelfCounter) HardFaultCount() (uint64, error) {
	return 0, fmt.Errorf("%w: %w", ErrCounterUnavailable, errUnsupported)
}
