package sim

import (
	"sort"
	"time"

	"github.com/flock2go/starling/telemetry"
)

// PerfStats tracks rolling duration samples per pipeline phase.
type PerfStats struct {
	samples    map[string][]time.Duration
	maxSamples int
}

// NewPerfStats creates a tracker keeping up to window samples per
// phase. A window of zero or less falls back to 240.
func NewPerfStats(window int) *PerfStats {
	if window <= 0 {
		window = 240
	}
	return &PerfStats{
		samples:    make(map[string][]time.Duration),
		maxSamples: window,
	}
}

// Record adds a duration sample for the named phase, discarding the
// oldest sample once the window is full.
func (p *PerfStats) Record(name string, d time.Duration) {
	s := append(p.samples[name], d)
	if len(s) > p.maxSamples {
		s = s[len(s)-p.maxSamples:]
	}
	p.samples[name] = s
}

// Avg returns the average duration of the recorded samples for the
// named phase, or zero if none were recorded.
func (p *PerfStats) Avg(name string) time.Duration {
	s := p.samples[name]
	if len(s) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range s {
		sum += d
	}
	return sum / time.Duration(len(s))
}

// Total returns the sum of per-phase averages, approximating the cost
// of one full pipeline pass.
func (p *PerfStats) Total() time.Duration {
	var sum time.Duration
	for name := range p.samples {
		sum += p.Avg(name)
	}
	return sum
}

// Averages returns the per-phase average durations, keyed by the
// telemetry phase names.
func (p *PerfStats) Averages() map[string]time.Duration {
	avgs := make(map[string]time.Duration, len(p.samples))
	for name := range p.samples {
		avgs[name] = p.Avg(name)
	}
	return avgs
}

// SortedNames returns the recorded phase names in alphabetical order.
func (p *PerfStats) SortedNames() []string {
	names := make([]string, 0, len(p.samples))
	for name := range p.samples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Row flattens the averages into a CSV-ready telemetry record.
func (p *PerfStats) Row(windowEnd int64) telemetry.PerfRow {
	return telemetry.NewPerfRow(windowEnd, p.Averages())
}
