//go:build linux

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/lmittmann/tint"
	"golang.org/x/sys/unix"

	"github.com/srodi/thrashwatch/pkg/collector/memory"
	"github.com/srodi/thrashwatch/pkg/config"
	"github.com/srodi/thrashwatch/pkg/thrashing"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "thrashwatch: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := parseConfig(flag.NewFlagSet("thrashwatch", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Source.Kind == config.SourceEBPF {
		// Raise rlimit for locked memory to allow eBPF programs to load.
		if err := unix.Setrlimit(unix.RLIMIT_MEMLOCK, &unix.Rlimit{
			Cur: unix.RLIM_INFINITY,
			Max: unix.RLIM_INFINITY,
		}); err != nil {
			return fmt.Errorf("raising rlimit memlock: %w", err)
		}
	}
	memory.SetProcRoot(cfg.Source.ProcRoot)

	src, err := newFaultSource(cfg.Source)
	if err != nil {
		return fmt.Errorf("initializing %s fault source: %w", cfg.Source.Kind, err)
	}
	defer src.Close()

	detector, err := thrashing.NewDetector(src.counter,
		thrashing.WithClock(clock.New()),
		thrashing.WithLogger(logger),
		thrashing.WithConfig(cfg.ThrashingConfig()),
	)
	if err != nil {
		return err
	}
	monitor, err := thrashing.NewMonitor(detector, cfg.Interval)
	if err != nil {
		return err
	}
	monitor.OnChange(func(tr thrashing.Transition) {
		attrs := []any{slog.String("from", tr.From.String()), slog.String("to", tr.To.String())}
		if tr.Status.Escalation != nil && tr.Status.Escalation.Ready {
			attrs = append(attrs, slog.Float64("escalation_rate", tr.Status.Escalation.Rate))
		}
		if tr.To == thrashing.LevelConfirmed {
			logger.Warn("swap thrashing confirmed", attrs...)
		}
	})

	v := newView(cfg, src.collector, logger)
	cleanupTerminal := enableSingleView(logger)
	defer cleanupTerminal()
	monitor.OnEvaluate(v.render)

	logger.Info("watching hard faults",
		slog.String("source", cfg.Source.Kind),
		slog.Duration("interval", cfg.Interval),
		slog.Float64("escalation_threshold", cfg.Detector.EscalationThreshold),
		slog.Float64("cooldown_threshold", cfg.Detector.CooldownThreshold),
	)
	return monitor.Run(ctx)
}

// parseConfig loads -config and lets explicitly set flags override it.
func parseConfig(fs *flag.FlagSet, args []string) (config.Config, error) {
	def := config.Default()
	configPath := fs.String("config", "", "path to a YAML config file")
	interval := fs.Duration("interval", def.Interval, "sampling interval (e.g. 500ms, 2s)")
	source := fs.String("source", def.Source.Kind, "hard fault source: system, cgroup, pids, self or ebpf")
	procRoot := fs.String("proc-root", def.Source.ProcRoot, "procfs mount point")
	cgroupPath := fs.String("cgroup", "", "cgroup v2 directory for -source cgroup")
	pids := fs.String("pids", "", "comma separated PIDs for -source pids")
	bpfObject := fs.String("bpf-object", def.Source.BPFObject, "compiled eBPF object for -source ebpf")
	topK := fs.Int("topk", def.TopK, "number of processes to display")
	hideKernel := fs.Bool("hide-kernel", def.HideKernel, "hide kernel threads such as kswapd, kworker, etc")
	commFilter := fs.String("comm-filter", "", "only show processes whose command contains this substring (case-insensitive)")
	logLevel := fs.String("log-level", def.LogLevel, "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return def, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}

	var errs []error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "interval":
			cfg.Interval = *interval
		case "source":
			cfg.Source.Kind = *source
		case "proc-root":
			cfg.Source.ProcRoot = *procRoot
		case "cgroup":
			cfg.Source.CgroupPath = *cgroupPath
		case "pids":
			list, err := parsePIDs(*pids)
			if err != nil {
				errs = append(errs, err)
			}
			cfg.Source.PIDs = list
		case "bpf-object":
			cfg.Source.BPFObject = *bpfObject
		case "topk":
			cfg.TopK = *topK
		case "hide-kernel":
			cfg.HideKernel = *hideKernel
		case "comm-filter":
			cfg.CommFilter = strings.TrimSpace(*commFilter)
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}
	return cfg, cfg.Validate()
}

func parsePIDs(s string) ([]int, error) {
	var pids []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		pid, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid pid %q: %w", field, err)
		}
		pids = append(pids, pid)
	}
	return pids, nil
}
