//go:build linux
// +build linux

package memory

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"

	"github.com/srodi/thrashwatch/pkg/types"
)

// DefaultObjectPath is where `go generate` places the compiled fault tracker.
const DefaultObjectPath = "bpf/hard_faults.o"

// Collector owns the eBPF program counting per-PID major faults.
type Collector struct {
	objs faultObjects
	hook link.Link

	mu sync.Mutex
	// retired holds the faults of entries already swept by Reset so the
	// cumulative count never goes backwards.
	retired uint64
}

type faultObjects struct {
	HandleMmFaultRet *ebpf.Program `ebpf:"handle_mm_fault_ret"`
	HardFaults       *ebpf.Map     `ebpf:"hard_faults"`
}

func (o *faultObjects) Close() error {
	var err error
	if o.HandleMmFaultRet != nil {
		err = errors.Join(err, o.HandleMmFaultRet.Close())
	}
	if o.HardFaults != nil {
		err = errors.Join(err, o.HardFaults.Close())
	}
	return err
}

const resetSweepRetries = 3

// NewCollector loads the fault tracker from objectPath and attaches it to the
// return of handle_mm_fault, where the VM_FAULT_MAJOR bit is known.
func NewCollector(objectPath string) (*Collector, error) {
	if objectPath == "" {
		objectPath = DefaultObjectPath
	}
	spec, err := ebpf.LoadCollectionSpec(objectPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", objectPath, err)
	}

	var objs faultObjects
	if err := spec.LoadAndAssign(&objs, nil); err != nil {
		return nil, fmt.Errorf("loading fault tracker objects: %w", err)
	}

	kp, kerr := link.Kretprobe("handle_mm_fault", objs.HandleMmFaultRet, nil)
	if kerr != nil {
		objs.Close()
		return nil, fmt.Errorf("attaching handle_mm_fault kretprobe failed: %w", kerr)
	}

	return &Collector{objs: objs, hook: kp}, nil
}

// Close releases the BPF resources.
func (c *Collector) Close() error {
	var err error
	if c.hook != nil {
		err = errors.Join(err, c.hook.Close())
	}
	return errors.Join(err, c.objs.Close())
}

// HardFaultCount implements thrashing.FaultCounter: every major fault seen
// since the tracker was attached.
func (c *Collector) HardFaultCount() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	live, err := c.sum()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCounterUnavailable, err)
	}
	return c.retired + live, nil
}

// Snapshot returns the PIDs with the most major faults since the last Reset.
func (c *Collector) Snapshot(limit int, window time.Duration) ([]types.PageFaultStat, error) {
	stats := make([]types.PageFaultStat, 0, limit)
	iter := c.objs.HardFaults.Iterate()
	var pid uint32
	var stat faultStat

	windowSeconds := window.Seconds()
	if windowSeconds <= 0 {
		windowSeconds = 1
	}

	for iter.Next(&pid, &stat) {
		if stat.Faults == 0 {
			continue
		}
		comm := cStr(stat.Comm[:])
		if comm == "" {
			comm = fmt.Sprintf("pid-%d", pid)
		}
		stats = append(stats, types.PageFaultStat{
			PID:          pid,
			Comm:         comm,
			HardFaults:   stat.Faults,
			FaultsPerSec: float64(stat.Faults) / windowSeconds,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("iterating hard fault map: %w", err)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].HardFaults > stats[j].HardFaults })
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}

	return stats, nil
}

// Reset clears the per-PID map for the next interval. Faults counted between
// the read and the delete of an entry are lost.
func (c *Collector) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for attempt := 1; attempt <= resetSweepRetries; attempt++ {
		iter := c.objs.HardFaults.Iterate()
		var pid uint32
		var stat faultStat
		for iter.Next(&pid, &stat) {
			if err := c.objs.HardFaults.Delete(&pid); err != nil {
				if errors.Is(err, ebpf.ErrKeyNotExist) {
					continue
				}
				return fmt.Errorf("clearing pid %d: %w", pid, err)
			}
			c.retired += stat.Faults
		}
		if err := iter.Err(); err != nil {
			if errors.Is(err, ebpf.ErrIterationAborted) && attempt < resetSweepRetries {
				continue
			}
			return fmt.Errorf("iterating hard fault map: %w", err)
		}
		return nil
	}
	return nil
}

func (c *Collector) sum() (uint64, error) {
	var total uint64
	for attempt := 1; attempt <= resetSweepRetries; attempt++ {
		total = 0
		iter := c.objs.HardFaults.Iterate()
		var pid uint32
		var stat faultStat
		for iter.Next(&pid, &stat) {
			total += stat.Faults
		}
		if err := iter.Err(); err != nil {
			if errors.Is(err, ebpf.ErrIterationAborted) && attempt < resetSweepRetries {
				continue
			}
			return 0, fmt.Errorf("iterating hard fault map: %w", err)
		}
		break
	}
	return total, nil
}

type faultStat struct {
	Faults uint64
	Comm   [16]byte
}
