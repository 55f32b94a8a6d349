package report

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/srodi/thrashwatch/pkg/collector/memory"
	"github.com/srodi/thrashwatch/pkg/thrashing"
	"github.com/srodi/thrashwatch/pkg/types"
)

func stubMemory(t *testing.T, rss map[int]uint64, total uint64) {
	t.Helper()
	t.Cleanup(func() {
		rssBytesForPIDs = memory.RSSBytesForPIDs
		totalMemoryBytes = memory.TotalMemoryBytes
	})
	rssBytesForPIDs = func(pids []int) map[int]uint64 { return rss }
	totalMemoryBytes = func() (uint64, error) {
		if total == 0 {
			return 0, errors.New("no meminfo")
		}
		return total, nil
	}
}

func TestBuildFaultRowsMergesStats(t *testing.T) {
	stubMemory(t, map[int]uint64{123: 2 << 30, 456: 64 << 20}, 4<<30)

	stats := []types.PageFaultStat{
		{PID: 123, Comm: "db", HardFaults: 50, FaultsPerSec: 10},
		{PID: 456, Comm: "worker", HardFaults: 6, FaultsPerSec: 6},
		{PID: 789, Comm: "cron", HardFaults: 2, FaultsPerSec: 0.4},
		{PID: 0, Comm: "idle", HardFaults: 99},
	}
	rows := BuildFaultRows(stats, 5*time.Second)
	if len(rows) != 3 {
		t.Fatalf("expected pid 0 to be dropped, got %d rows", len(rows))
	}

	index := make(map[uint32]FaultRow)
	for _, row := range rows {
		index[row.PID] = row
	}
	db := index[123]
	if db.RSSBytes != 2<<30 || math.Abs(db.RSSRatio-0.5) > 1e-9 {
		t.Fatalf("unexpected db memory: %+v", db)
	}
	if db.Diagnosis != DiagnosisOOMRisk {
		t.Fatalf("expected OOM risk for db, got %s", db.Diagnosis)
	}
	if index[456].Diagnosis != DiagnosisThrashing {
		t.Fatalf("expected thrashing for worker, got %s", index[456].Diagnosis)
	}
	if index[789].Diagnosis != DiagnosisPaging || index[789].RSSBytes != 0 {
		t.Fatalf("unexpected cron row: %+v", index[789])
	}
}

func TestBuildFaultRowsDerivesRateFromInterval(t *testing.T) {
	stubMemory(t, nil, 0)

	rows := BuildFaultRows([]types.PageFaultStat{{PID: 9, Comm: "tiny", HardFaults: 10}}, 2*time.Second)
	if rows[0].FaultsPerSec != 5 {
		t.Fatalf("expected 5 faults/sec, got %.3f", rows[0].FaultsPerSec)
	}

	rows = BuildFaultRows([]types.PageFaultStat{{PID: 9, Comm: "tiny", HardFaults: 10}}, 0)
	if rows[0].FaultsPerSec != 10 {
		t.Fatalf("zero interval should fall back to one second, got %.3f", rows[0].FaultsPerSec)
	}
}

func TestFilterRowsRespectsKernelAndComm(t *testing.T) {
	rows := []FaultRow{
		{PID: 1, Comm: "kswapd0"},
		{PID: 42, Comm: "postgres"},
		{PID: 43, Comm: "java"},
	}

	visible := FilterRows(rows, FilterConfig{})
	if len(visible) != 2 {
		t.Fatalf("expected 2 user rows, got %d", len(visible))
	}
	scoped := FilterRows(rows, FilterConfig{HideKernel: boolPtr(false), CommFilter: "POST"})
	if len(scoped) != 1 || scoped[0].PID != 42 {
		t.Fatalf("expected only postgres row, got %+v", scoped)
	}
	all := FilterRows(rows, FilterConfig{HideKernel: boolPtr(false)})
	if len(all) != 3 {
		t.Fatalf("expected kernel thread when not hidden, got %+v", all)
	}
}

func TestTopFaultRowsSortingAndLimit(t *testing.T) {
	rows := []FaultRow{
		{PID: 1, HardFaults: 10, FaultsPerSec: 2},
		{PID: 2, HardFaults: 40, FaultsPerSec: 8, RSSBytes: 10},
		{PID: 3, HardFaults: 40, FaultsPerSec: 8, RSSBytes: 20},
		{PID: 4},
	}
	top := TopFaultRows(rows, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(top))
	}
	if top[0].PID != 3 || top[1].PID != 2 {
		t.Fatalf("unexpected ordering: %+v", top)
	}
	if all := TopFaultRows(rows, 0); len(all) != 3 {
		t.Fatalf("zero-fault rows should be dropped, got %+v", all)
	}
}

func TestSelectFocusCandidate(t *testing.T) {
	t.Run("severityPreferred", func(t *testing.T) {
		rows := []FaultRow{
			{PID: 1, Diagnosis: DiagnosisPaging, FaultsPerSec: 4},
			{PID: 2, Diagnosis: DiagnosisThrashing, FaultsPerSec: 900},
			{PID: 3, Diagnosis: DiagnosisOOMRisk, FaultsPerSec: 6},
		}
		candidate := SelectFocusCandidate(rows)
		if candidate == nil || candidate.PID != 3 {
			t.Fatalf("expected OOM risk row, got %+v", candidate)
		}
	})

	t.Run("rateBreaksTies", func(t *testing.T) {
		rows := []FaultRow{
			{PID: 10, Diagnosis: DiagnosisThrashing, FaultsPerSec: 8},
			{PID: 11, Diagnosis: DiagnosisThrashing, FaultsPerSec: 80},
		}
		candidate := SelectFocusCandidate(rows)
		if candidate == nil || candidate.PID != 11 {
			t.Fatalf("expected highest rate row, got %+v", candidate)
		}
	})

	t.Run("nothingToFocus", func(t *testing.T) {
		if c := SelectFocusCandidate([]FaultRow{{PID: 1, Diagnosis: DiagnosisOK}}); c != nil {
			t.Fatalf("expected no candidate, got %+v", c)
		}
	})
}

func TestFocusSummary(t *testing.T) {
	cases := []struct {
		name     string
		row      FaultRow
		expected string
	}{
		{"oom", FaultRow{Diagnosis: DiagnosisOOMRisk, RSSBytes: 3 << 30, FaultsPerSec: 40}, "3.0 GB RSS"},
		{"thrash", FaultRow{Diagnosis: DiagnosisThrashing, FaultsPerSec: 120, RSSRatio: 0.1}, "120 hard faults/sec"},
		{"default", FaultRow{Diagnosis: DiagnosisPaging, FaultsPerSec: 1.5}, "1.5 hard faults/sec"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			summary := FocusSummary(tc.row)
			if !strings.Contains(summary, tc.expected) {
				t.Fatalf("summary %q does not contain %q", summary, tc.expected)
			}
		})
	}
}

func TestClassifyRow(t *testing.T) {
	cases := []struct {
		name     string
		row      FaultRow
		expected string
	}{
		{"quiet", FaultRow{}, DiagnosisOK},
		{"paging", FaultRow{HardFaults: 3, FaultsPerSec: 1}, DiagnosisPaging},
		{"thrashing", FaultRow{HardFaults: 30, FaultsPerSec: thrashingRate}, DiagnosisThrashing},
		{"oomByRatio", FaultRow{HardFaults: 30, FaultsPerSec: 30, RSSRatio: 0.4}, DiagnosisOOMRisk},
		{"oomBySize", FaultRow{HardFaults: 30, FaultsPerSec: 30, RSSBytes: 2 << 30}, DiagnosisOOMRisk},
		{"bigButCalm", FaultRow{HardFaults: 1, FaultsPerSec: 0.1, RSSBytes: 2 << 30}, DiagnosisPaging},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if label := classifyRow(&tc.row); label != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, label)
			}
		})
	}
}

func TestDiagnosisSeverity(t *testing.T) {
	labels := map[string]int{
		DiagnosisOOMRisk:   3,
		DiagnosisThrashing: 2,
		DiagnosisPaging:    1,
		DiagnosisOK:        0,
	}
	for label, expected := range labels {
		if got := diagnosisSeverity(label); got != expected {
			t.Fatalf("severity mismatch for %s: got %d want %d", label, got, expected)
		}
	}
}

func TestIsKernelThread(t *testing.T) {
	cases := []struct {
		row      FaultRow
		expected bool
	}{
		{FaultRow{PID: 0}, true},
		{FaultRow{PID: 1, Comm: "kworker/0:1"}, true},
		{FaultRow{PID: 2, Comm: "kswapd0"}, true},
		{FaultRow{PID: 3, Comm: "user"}, false},
	}
	for _, tc := range cases {
		if got := isKernelThread(tc.row); got != tc.expected {
			t.Fatalf("kernel detection mismatch for %+v: got %v", tc.row, got)
		}
	}
}

func TestRenderStatus(t *testing.T) {
	st := thrashing.Status{
		Level: thrashing.LevelSuspected,
		Escalation: &thrashing.WindowStatus{
			Length: 10 * time.Second, Span: 4 * time.Second, Observations: 5,
		},
		Cooldown: &thrashing.WindowStatus{
			Length: 8 * time.Second, Span: 8 * time.Second, Observations: 9, Rate: 4.25, Ready: true,
		},
		SamplingFailures: 2,
	}
	var buf bytes.Buffer
	if err := RenderStatus(&buf, st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"[Swap thrashing: suspected]", "last 2 sample(s)", "warming up", "4.25", "10s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := RenderStatus(&buf, thrashing.Status{Level: thrashing.LevelConfirmed}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "escalation  -") {
		t.Fatalf("absent window should render as dashes:\n%s", buf.String())
	}
}

func TestRenderFaultTable(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderFaultTable(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No hard faults") {
		t.Fatalf("unexpected empty output: %q", buf.String())
	}

	buf.Reset()
	rows := []FaultRow{{PID: 42, Comm: "db", RSSBytes: 3 << 20, HardFaults: 12345, FaultsPerSec: 2469, Diagnosis: DiagnosisThrashing}}
	if err := RenderFaultTable(&buf, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"db", "3.0 MiB", "12,345", "Thrashing"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("table missing %q:\n%s", want, buf.String())
		}
	}
}

func boolPtr(v bool) *bool { return &v }
