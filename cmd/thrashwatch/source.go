//go:build linux

package main

import (
	"fmt"

	"github.com/srodi/thrashwatch/pkg/collector/memory"
	"github.com/srodi/thrashwatch/pkg/config"
	"github.com/srodi/thrashwatch/pkg/thrashing"
)

// faultSource is the counter the detector samples. collector is set only for
// the ebpf source, which also feeds the per-process table.
type faultSource struct {
	counter   thrashing.FaultCounter
	collector *memory.Collector
}

func newFaultSource(src config.Source) (*faultSource, error) {
	switch src.Kind {
	case config.SourceSystem:
		return &faultSource{counter: memory.SystemCounter{ProcRoot: src.ProcRoot}}, nil
	case config.SourceCgroup:
		return &faultSource{counter: memory.CgroupCounter{Path: src.CgroupPath}}, nil
	case config.SourcePIDs:
		counter, err := memory.NewProcessCounter(src.ProcRoot, src.PIDs)
		if err != nil {
			return nil, err
		}
		return &faultSource{counter: counter}, nil
	case config.SourceSelf:
		return &faultSource{counter: memory.SelfCounter{}}, nil
	case config.SourceEBPF:
		collector, err := memory.NewCollector(src.BPFObject)
		if err != nil {
			return nil, err
		}
		return &faultSource{counter: collector, collector: collector}, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

func (s *faultSource) Close() error {
	if s.collector == nil {
		return nil
	}
	return s.collector.Close()
}
