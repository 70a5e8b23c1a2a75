// Package performance provides timing and memory monitoring for simulation runs.
package performance

import (
	"fmt"
	"runtime"
	"time"
)

// Stopwatch measures a run's wall-clock time and accumulates named stage laps.
// It is used from a single goroutine.
type Stopwatch struct {
	start time.Time
	last  time.Time
	laps  map[string]time.Duration
	order []string
	now   func() time.Time
}

// NewStopwatch creates a started stopwatch.
func NewStopwatch() *Stopwatch {
	return newStopwatch(time.Now)
}

func newStopwatch(now func() time.Time) *Stopwatch {
	t := now()
	return &Stopwatch{
		start: t,
		last:  t,
		laps:  make(map[string]time.Duration),
		now:   now,
	}
}

// Lap adds the time since the previous lap (or start) to the named stage
// and returns that interval.
func (s *Stopwatch) Lap(stage string) time.Duration {
	t := s.now()
	d := t.Sub(s.last)
	s.last = t
	if _, ok := s.laps[stage]; !ok {
		s.order = append(s.order, stage)
	}
	s.laps[stage] += d
	return d
}

// Elapsed returns the time since the stopwatch started.
func (s *Stopwatch) Elapsed() time.Duration {
	return s.now().Sub(s.start)
}

// StartedAt returns the start time.
func (s *Stopwatch) StartedAt() time.Time {
	return s.start
}

// Laps returns accumulated stage durations in first-seen order.
func (s *Stopwatch) Laps() []Lap {
	out := make([]Lap, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, Lap{Stage: name, Duration: s.laps[name]})
	}
	return out
}

// Lap is one named stage total.
type Lap struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// MemoryStats returns current memory statistics.
func MemoryStats() MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemStats{
		Alloc:      m.Alloc,
		TotalAlloc: m.TotalAlloc,
		Sys:        m.Sys,
		NumGC:      m.NumGC,
		HeapAlloc:  m.HeapAlloc,
		HeapInuse:  m.HeapInuse,
	}
}

// MemStats contains memory statistics.
type MemStats struct {
	Alloc      uint64 // bytes allocated and still in use
	TotalAlloc uint64 // bytes allocated (even if freed)
	Sys        uint64 // bytes obtained from system
	NumGC      uint32 // number of completed GC cycles
	HeapAlloc  uint64 // bytes allocated on heap
	HeapInuse  uint64 // bytes in non-idle spans
}

// FormatBytes formats bytes into human-readable format.
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	units := []string{"KB", "MB", "GB", "TB", "PB", "EB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), units[exp])
}
