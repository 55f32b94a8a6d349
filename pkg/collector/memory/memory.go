package memory

import (
	"fmt"

	"github.com/prometheus/procfs"
)

var procRoot = DefaultProcRoot

// SetProcRoot points the RSS and meminfo readers at another procfs mount,
// e.g. the host /proc bind-mounted into a container.
func SetProcRoot(root string) {
	if root == "" {
		root = DefaultProcRoot
	}
	procRoot = root
}

// RSSBytesForPIDs returns a PID->RSS map for the provided set. PIDs that
// cannot be read are left out.
func RSSBytesForPIDs(pids []int) map[int]uint64 {
	result := make(map[int]uint64, len(pids))
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return result
	}
	for _, pid := range pids {
		if pid <= 0 {
			continue
		}
		if _, ok := result[pid]; ok {
			continue
		}
		proc, err := fs.Proc(pid)
		if err != nil {
			continue
		}
		stat, err := proc.Stat()
		if err != nil {
			continue
		}
		if rss := stat.ResidentMemory(); rss > 0 {
			result[pid] = uint64(rss)
		}
	}
	return result
}

// TotalMemoryBytes returns the total system memory in bytes.
func TotalMemoryBytes() (uint64, error) {
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return 0, err
	}
	info, err := fs.Meminfo()
	if err != nil {
		return 0, err
	}
	if info.MemTotal == nil {
		return 0, fmt.Errorf("MemTotal not found in %s/meminfo", procRoot)
	}
	return *info.MemTotal * 1024, nil
}
