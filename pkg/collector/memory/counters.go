package memory

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/prometheus/procfs"
)

// ErrCounterUnavailable wraps every failure to read a hard fault counter.
var ErrCounterUnavailable = errors.New("hard fault counter unavailable")

// DefaultProcRoot is where procfs is normally mounted.
const DefaultProcRoot = "/proc"

const majorFaultKey = "pgmajfault"

// SystemCounter reads the machine-wide major fault count from /proc/vmstat.
type SystemCounter struct {
	ProcRoot string
}

// HardFaultCount implements thrashing.FaultCounter.
func (c SystemCounter) HardFaultCount() (uint64, error) {
	root := c.ProcRoot
	if root == "" {
		root = DefaultProcRoot
	}
	n, err := readKeyedCounter(filepath.Join(root, "vmstat"), majorFaultKey)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCounterUnavailable, err)
	}
	return n, nil
}

// CgroupCounter reads the major fault count of a cgroup v2 group from its
// memory.stat file.
type CgroupCounter struct {
	// Path is the cgroup directory, e.g. /sys/fs/cgroup/system.slice/db.service.
	Path string
}

// HardFaultCount implements thrashing.FaultCounter.
func (c CgroupCounter) HardFaultCount() (uint64, error) {
	if c.Path == "" {
		return 0, fmt.Errorf("%w: empty cgroup path", ErrCounterUnavailable)
	}
	n, err := readKeyedCounter(filepath.Join(c.Path, "memory.stat"), majorFaultKey)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCounterUnavailable, err)
	}
	return n, nil
}

// ProcessCounter sums the major faults of a fixed set of processes. A PID
// that exits keeps contributing its last seen count, so the total never
// decreases while members of the group come and go.
type ProcessCounter struct {
	mu      sync.Mutex
	fs      procfs.FS
	pids    []int
	last    map[int]uint64
	retired uint64
}

// NewProcessCounter opens procfs at procRoot for the given PIDs.
func NewProcessCounter(procRoot string, pids []int) (*ProcessCounter, error) {
	if len(pids) == 0 {
		return nil, fmt.Errorf("process counter needs at least one pid")
	}
	if procRoot == "" {
		procRoot = DefaultProcRoot
	}
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return nil, fmt.Errorf("opening procfs at %s: %w", procRoot, err)
	}
	return &ProcessCounter{
		fs:   fs,
		pids: append([]int(nil), pids...),
		last: make(map[int]uint64, len(pids)),
	}, nil
}

// HardFaultCount implements thrashing.FaultCounter. It only fails when no
// PID of the group has ever been readable.
func (c *ProcessCounter) HardFaultCount() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, pid := range c.pids {
		proc, err := c.fs.Proc(pid)
		if err != nil {
			errs = append(errs, fmt.Errorf("pid %d: %w", pid, err))
			continue
		}
		stat, err := proc.Stat()
		if err != nil {
			errs = append(errs, fmt.Errorf("pid %d stat: %w", pid, err))
			continue
		}
		majflt := uint64(stat.MajFlt)
		// A lower count under a known PID means the PID was reused.
		if prev, ok := c.last[pid]; ok && majflt < prev {
			c.retired += prev
		}
		c.last[pid] = majflt
	}
	if len(c.last) == 0 {
		return 0, fmt.Errorf("%w: %w", ErrCounterUnavailable, errors.Join(errs...))
	}

	total := c.retired
	for _, n := range c.last {
		total += n
	}
	return total, nil
}
