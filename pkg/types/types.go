package types

// DefaultTopK controls how many faulting processes we display.
const DefaultTopK = 5

// PageFaultStat tracks per-PID major faults during a window.
type PageFaultStat struct {
	PID          uint32
	Comm         string
	HardFaults   uint64
	FaultsPerSec float64
}
