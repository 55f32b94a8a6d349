package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/srodi/thrashwatch/pkg/collector/memory"
	"github.com/srodi/thrashwatch/pkg/thrashing"
	"github.com/srodi/thrashwatch/pkg/types"
)

// Stubbed by tests; both normally hit /proc.
var (
	rssBytesForPIDs  = memory.RSSBytesForPIDs
	totalMemoryBytes = memory.TotalMemoryBytes
)

// Diagnoses, in increasing severity.
const (
	DiagnosisOK        = "OK"
	DiagnosisPaging    = "Paging"
	DiagnosisThrashing = "Thrashing"
	DiagnosisOOMRisk   = "OOM risk"
)

// thrashingRate is the per-process hard fault rate reported as thrashing.
const thrashingRate = thrashing.DefaultEscalationThreshold

// FaultRow condenses the hard fault and memory stats of a PID for one window.
type FaultRow struct {
	PID          uint32
	Comm         string
	HardFaults   uint64
	FaultsPerSec float64
	RSSBytes     uint64
	RSSRatio     float64
	Diagnosis    string
}

// FilterConfig controls which processes appear in CLI tables.
type FilterConfig struct {
	HideKernel *bool // nil defaults to true so kernel threads stay hidden unless explicitly shown
	CommFilter string
}

func (cfg FilterConfig) hideKernelEnabled() bool {
	if cfg.HideKernel == nil {
		return true
	}
	return *cfg.HideKernel
}

// BuildFaultRows merges per-PID hard fault stats with their resident memory.
func BuildFaultRows(stats []types.PageFaultStat, interval time.Duration) []FaultRow {
	totalMemBytes, err := totalMemoryBytes()
	if err != nil || totalMemBytes == 0 {
		totalMemBytes = 1
	}
	intervalSeconds := interval.Seconds()
	if intervalSeconds <= 0 {
		intervalSeconds = 1
	}

	pids := make([]int, 0, len(stats))
	for _, st := range stats {
		if st.PID != 0 {
			pids = append(pids, int(st.PID))
		}
	}
	rssMap := rssBytesForPIDs(pids)

	rows := make([]FaultRow, 0, len(stats))
	for _, st := range stats {
		if st.PID == 0 {
			continue
		}
		row := FaultRow{
			PID:          st.PID,
			Comm:         st.Comm,
			HardFaults:   st.HardFaults,
			FaultsPerSec: st.FaultsPerSec,
			RSSBytes:     rssMap[int(st.PID)],
		}
		if row.FaultsPerSec == 0 && row.HardFaults > 0 {
			row.FaultsPerSec = float64(row.HardFaults) / intervalSeconds
		}
		row.RSSRatio = float64(row.RSSBytes) / float64(totalMemBytes)
		row.Diagnosis = classifyRow(&row)
		rows = append(rows, row)
	}
	return rows
}

// FilterRows applies the kernel thread and comm filters.
func FilterRows(rows []FaultRow, cfg FilterConfig) []FaultRow {
	filtered := make([]FaultRow, 0, len(rows))
	for _, row := range rows {
		if passesFilters(row, cfg) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

// TopFaultRows returns the rows with the highest fault rate up to topK.
func TopFaultRows(rows []FaultRow, topK int) []FaultRow {
	candidates := make([]FaultRow, 0, len(rows))
	for _, row := range rows {
		if row.HardFaults == 0 {
			continue
		}
		candidates = append(candidates, row)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].FaultsPerSec == candidates[j].FaultsPerSec {
			return candidates[i].RSSBytes > candidates[j].RSSBytes
		}
		return candidates[i].FaultsPerSec > candidates[j].FaultsPerSec
	})
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

// SelectFocusCandidate picks the process most likely behind the thrashing.
func SelectFocusCandidate(rows []FaultRow) *FaultRow {
	var best *FaultRow
	bestScore := -1.0
	for _, row := range rows {
		severity := diagnosisSeverity(row.Diagnosis)
		if severity == 0 {
			continue
		}
		score := float64(severity)*1e6 + row.FaultsPerSec
		if best == nil || score > bestScore {
			copy := row
			best = &copy
			bestScore = score
		}
	}
	return best
}

// FocusSummary returns a short explanation string for the status line.
func FocusSummary(row FaultRow) string {
	switch row.Diagnosis {
	case DiagnosisOOMRisk:
		return fmt.Sprintf("OOM risk – %.1f GB RSS, %.0f hard faults/sec",
			float64(row.RSSBytes)/(1<<30), row.FaultsPerSec)
	case DiagnosisThrashing:
		return fmt.Sprintf("%.0f hard faults/sec, %.0f%% of RAM resident",
			row.FaultsPerSec, row.RSSRatio*100)
	default:
		return fmt.Sprintf("%.1f hard faults/sec", row.FaultsPerSec)
	}
}

func classifyRow(row *FaultRow) string {
	if row.HardFaults == 0 {
		return DiagnosisOK
	}
	bigProcess := row.RSSBytes > 1<<30 // > 1GB
	highRatio := row.RSSRatio > 0.3    // > 30% of RAM
	hot := row.FaultsPerSec >= thrashingRate

	switch {
	case hot && (bigProcess || highRatio):
		return DiagnosisOOMRisk
	case hot:
		return DiagnosisThrashing
	default:
		return DiagnosisPaging
	}
}

func passesFilters(row FaultRow, cfg FilterConfig) bool {
	if cfg.hideKernelEnabled() && isKernelThread(row) {
		return false
	}
	if cfg.CommFilter != "" {
		if !strings.Contains(strings.ToLower(row.Comm), strings.ToLower(cfg.CommFilter)) {
			return false
		}
	}
	return true
}

func isKernelThread(row FaultRow) bool {
	if row.PID == 0 {
		return true
	}
	name := strings.ToLower(row.Comm)
	switch {
	case strings.HasPrefix(name, "kworker"), strings.HasPrefix(name, "ksoftirqd"), strings.HasPrefix(name, "kthreadd"),
		strings.HasPrefix(name, "kswapd"), strings.HasPrefix(name, "khugepaged"), strings.HasPrefix(name, "kcompactd"),
		strings.HasPrefix(name, "migration"), strings.HasPrefix(name, "watchdog"), strings.HasPrefix(name, "rcu"),
		strings.HasPrefix(name, "irq/"):
		return true
	}
	return false
}

func diagnosisSeverity(label string) int {
	switch label {
	case DiagnosisOOMRisk:
		return 3
	case DiagnosisThrashing:
		return 2
	case DiagnosisPaging:
		return 1
	default:
		return 0
	}
}
