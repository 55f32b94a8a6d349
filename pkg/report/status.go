package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/srodi/thrashwatch/pkg/thrashing"
)

// RenderStatus writes the detector level and its active windows.
func RenderStatus(w io.Writer, st thrashing.Status) error {
	if _, err := fmt.Fprintf(w, "[Swap thrashing: %s]\n", st.Level); err != nil {
		return err
	}
	if st.SamplingFailures > 0 {
		fmt.Fprintf(w, "Counter unavailable for the last %d sample(s), level frozen\n", st.SamplingFailures)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WINDOW\tLENGTH\tCOVERED\tSAMPLES\tRATE(/s)")
	writeWindow(tw, "escalation", st.Escalation)
	writeWindow(tw, "cooldown", st.Cooldown)
	return tw.Flush()
}

func writeWindow(w io.Writer, name string, ws *thrashing.WindowStatus) {
	if ws == nil {
		fmt.Fprintf(w, "%s\t-\t-\t-\t-\n", name)
		return
	}
	rate := "warming up"
	if ws.Ready {
		rate = fmt.Sprintf("%.2f", ws.Rate)
	}
	fmt.Fprintf(w, "%s\t%v\t%v\t%d\t%s\n", name, ws.Length, ws.Span, ws.Observations, rate)
}

// RenderFaultTable writes one line per process.
func RenderFaultTable(w io.Writer, rows []FaultRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No hard faults recorded in this window")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PID\tCOMM\tRSS\tHARD FAULTS\tFaults/sec\tDiagnosis")
	for _, row := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f\t%s\n",
			row.PID, row.Comm, humanize.IBytes(row.RSSBytes), humanize.Comma(int64(row.HardFaults)),
			row.FaultsPerSec, row.Diagnosis)
	}
	return tw.Flush()
}
