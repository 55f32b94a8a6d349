//go:build !linux
// +build !linux

package memory

import (
	"errors"
	"fmt"
	"time"

	"github.com/srodi/thrashwatch/pkg/types"
)

var errUnsupported = errors.New("memory collector requires linux")

// DefaultObjectPath is where `go generate` places the compiled fault tracker.
const DefaultObjectPath = "bpf/hard_faults.o"

// Collector is a placeholder on non-Linux platforms.
type Collector struct{}

// NewCollector returns an error because eBPF is only supported on Linux.
func NewCollector(objectPath string) (*Collector, error) {
	return nil, errUnsupported
}

// HardFaultCount always fails on unsupported platforms.
func (c *Collector) HardFaultCount() (uint64, error) {
	return 0, fmt.Errorf("%w: %w", ErrCounterUnavailable, errUnsupported)
}

// Snapshot always fails on unsupported platforms.
func (c *Collector) Snapshot(limit int, window time.Duration) ([]types.PageFaultStat, error) {
	return nil, errUnsupported
}

// Reset does nothing on unsupported platforms.
func (c *Collector) Reset() error {
	return nil
}

// Close is a no-op stub.
func (c *Collector) Close() error {
	return nil
}
