//go:build linux

package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/srodi/thrashwatch/pkg/collector/memory"
	"github.com/srodi/thrashwatch/pkg/config"
	"github.com/srodi/thrashwatch/pkg/report"
	"github.com/srodi/thrashwatch/pkg/thrashing"
	"github.com/srodi/thrashwatch/pkg/types"
	"github.com/srodi/thrashwatch/pkg/ui"
)

type view struct {
	cfg       config.Config
	collector *memory.Collector
	log       *slog.Logger
	out       io.Writer
}

func newView(cfg config.Config, collector *memory.Collector, log *slog.Logger) *view {
	return &view{cfg: cfg, collector: collector, log: log, out: os.Stdout}
}

// render redraws the screen after every evaluation. With the ebpf source it
// also drains the per-process map for the next window.
func (v *view) render(st thrashing.Status) {
	var (
		stats    []types.PageFaultStat
		statsErr error
	)
	if v.collector != nil {
		stats, statsErr = v.collector.Snapshot(max(v.cfg.TopK*3, v.cfg.TopK*2), v.cfg.Interval)
		if err := v.collector.Reset(); err != nil {
			v.log.Warn("resetting fault map failed", slog.Any("err", err))
		}
	}

	var buf bytes.Buffer
	writeFrame(&buf, v.cfg, st, v.collector != nil, stats, statsErr)
	clearScreen(v.out)
	fmt.Fprint(v.out, buf.String())
}

func writeFrame(buf *bytes.Buffer, cfg config.Config, st thrashing.Status, perProcess bool, stats []types.PageFaultStat, statsErr error) {
	buf.WriteString(ui.Banner())
	fmt.Fprintf(buf, "thrashwatch (press Ctrl+C to exit)\n")
	fmt.Fprintf(buf, "Updated: %s | Interval: %v | Source: %s\n\n",
		st.LastSample.Format(time.RFC3339), cfg.Interval, cfg.Source.Kind)
	fmt.Fprintf(buf, "Level: %s\n", ui.LevelBadge(st.Level))
	if err := report.RenderStatus(buf, st); err != nil {
		fmt.Fprintf(buf, "status unavailable: %v\n", err)
	}

	fmt.Fprintf(buf, "\n[Top %d hard faulting processes, window %v]\n", cfg.TopK, cfg.Interval)
	switch {
	case !perProcess:
		fmt.Fprintln(buf, "Per-process breakdown needs -source ebpf")
		return
	case statsErr != nil:
		fmt.Fprintf(buf, "Page fault tracker unavailable: %v\n", statsErr)
		return
	}

	hideKernel := cfg.HideKernel
	rows := report.FilterRows(report.BuildFaultRows(stats, cfg.Interval),
		report.FilterConfig{HideKernel: &hideKernel, CommFilter: cfg.CommFilter})
	if focus := report.SelectFocusCandidate(rows); focus != nil && st.Level != thrashing.LevelNone {
		fmt.Fprintf(buf, "[!] Focus: %s (pid %d)\n", focus.Comm, focus.PID)
		fmt.Fprintf(buf, "   Reason: %s - %s\n", focus.Diagnosis, report.FocusSummary(*focus))
	}
	if err := report.RenderFaultTable(buf, report.TopFaultRows(rows, cfg.TopK)); err != nil {
		fmt.Fprintf(buf, "table unavailable: %v\n", err)
	}
}

func clearScreen(w io.Writer) {
	fmt.Fprint(w, "\033[H\033[2J")
}

func enableSingleView(log *slog.Logger) func() {
	stdoutFD := int(os.Stdout.Fd())
	stdinFD := int(os.Stdin.Fd())
	if !term.IsTerminal(stdoutFD) {
		return func() {}
	}

	fmt.Print("\033[?1049h") // switch to alternate buffer
	fmt.Print("\033[?25l")   // hide cursor

	var restore []func()
	if term.IsTerminal(stdinFD) {
		if undoEcho, err := disableInputEcho(stdinFD); err != nil {
			log.Warn("unable to suppress stdin echo", slog.Any("err", err))
		} else if undoEcho != nil {
			restore = append(restore, undoEcho)
		}
	}

	return func() {
		for i := len(restore) - 1; i >= 0; i-- {
			restore[i]()
		}
		fmt.Print("\033[?25h")   // show cursor
		fmt.Print("\033[?1049l") // restore main buffer
	}
}

// disableInputEcho turns off stdin echo so the alternate-screen view stays clean.
func disableInputEcho(fd int) (func(), error) {
	termState, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}

	updated := *termState
	updated.Lflag &^= unix.ECHO

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &updated); err != nil {
		return nil, err
	}

	return func() {
		_ = unix.IoctlSetTermios(fd, unix.TCSETS, termState)
	}, nil
}
