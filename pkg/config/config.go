// Package config loads the thrashwatch YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/srodi/thrashwatch/pkg/thrashing"
	"github.com/srodi/thrashwatch/pkg/types"
)

// DefaultInterval is how often the detector samples the fault counter.
const DefaultInterval = time.Second

// Source kinds.
const (
	SourceSystem = "system"
	SourceCgroup = "cgroup"
	SourcePIDs   = "pids"
	SourceSelf   = "self"
	SourceEBPF   = "ebpf"
)

// Config is the on-disk configuration.
type Config struct {
	Interval   time.Duration `yaml:"interval"`
	LogLevel   string        `yaml:"log_level"`
	TopK       int           `yaml:"topk"`
	HideKernel bool          `yaml:"hide_kernel"`
	CommFilter string        `yaml:"comm_filter"`
	Source     Source        `yaml:"source"`
	Detector   Detector      `yaml:"detector"`
}

// Source selects where hard fault counts come from.
type Source struct {
	Kind       string `yaml:"kind"`
	ProcRoot   string `yaml:"proc_root"`
	CgroupPath string `yaml:"cgroup_path"`
	PIDs       []int  `yaml:"pids"`
	BPFObject  string `yaml:"bpf_object"`
}

// Detector mirrors thrashing.Config.
type Detector struct {
	NoneToSuspected      time.Duration `yaml:"none_to_suspected"`
	SuspectedToNone      time.Duration `yaml:"suspected_to_none"`
	SuspectedToConfirmed time.Duration `yaml:"suspected_to_confirmed"`
	ConfirmedToSuspected time.Duration `yaml:"confirmed_to_suspected"`
	EscalationThreshold  float64       `yaml:"escalation_threshold"`
	CooldownThreshold    float64       `yaml:"cooldown_threshold"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	d := thrashing.DefaultConfig()
	return Config{
		Interval:   DefaultInterval,
		LogLevel:   "info",
		TopK:       types.DefaultTopK,
		HideKernel: true,
		Source: Source{
			Kind:      SourceSystem,
			ProcRoot:  "/proc",
			BPFObject: "bpf/hard_faults.o",
		},
		Detector: Detector{
			NoneToSuspected:      d.NoneToSuspected,
			SuspectedToNone:      d.SuspectedToNone,
			SuspectedToConfirmed: d.SuspectedToConfirmed,
			ConfirmedToSuspected: d.ConfirmedToSuspected,
			EscalationThreshold:  d.EscalationThreshold,
			CooldownThreshold:    d.CooldownThreshold,
		},
	}
}

// Load reads path on top of Default. An empty path returns the defaults.
// The result is not validated; callers apply their overrides first and then
// call Validate.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields that cannot be defaulted.
func (c Config) Validate() error {
	var errs []error
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %v", c.Interval))
	}
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("topk must be positive, got %d", c.TopK))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.Source.Kind {
	case SourceSystem, SourceSelf, SourceEBPF:
	case SourceCgroup:
		if c.Source.CgroupPath == "" {
			errs = append(errs, errors.New("cgroup source needs source.cgroup_path"))
		}
	case SourcePIDs:
		if len(c.Source.PIDs) == 0 {
			errs = append(errs, errors.New("pids source needs at least one pid"))
		}
		for _, pid := range c.Source.PIDs {
			if pid <= 0 {
				errs = append(errs, fmt.Errorf("invalid pid %d", pid))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source kind %q", c.Source.Kind))
	}
	if err := c.ThrashingConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ThrashingConfig converts the detector section.
func (c Config) ThrashingConfig() thrashing.Config {
	return thrashing.Config{
		NoneToSuspected:      c.Detector.NoneToSuspected,
		SuspectedToNone:      c.Detector.SuspectedToNone,
		SuspectedToConfirmed: c.Detector.SuspectedToConfirmed,
		ConfirmedToSuspected: c.Detector.ConfirmedToSuspected,
		EscalationThreshold:  c.Detector.EscalationThreshold,
		CooldownThreshold:    c.Detector.CooldownThreshold,
	}
}

// ParseLogLevel maps debug/info/warn/error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
