// Package nerdstats snapshots Go runtime statistics for the shutdown report
// every service prints on exit.
package nerdstats

import (
	"runtime"
	"time"
)

type NerdStats struct {
	// Memory stats
	HeapAlloc    uint64
	HeapSys      uint64
	HeapInuse    uint64
	HeapReleased uint64
	StackInuse   uint64
	TotalAlloc   uint64
	Mallocs      uint64
	Frees        uint64

	// Garbage collection stats
	NumGC         uint32
	LastGC        time.Time
	TotalGCTime   time.Duration
	GCCPUFraction float64

	// Goroutine stats
	NumGoroutines int

	// Runtime stats
	NumCPU     int
	GOMAXPROCS int
	GoVersion  string
	Uptime     time.Duration
}

func Snapshot(startTime time.Time) *NerdStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := &NerdStats{
		HeapAlloc:    m.HeapAlloc,
		HeapSys:      m.HeapSys,
		HeapInuse:    m.HeapInuse,
		HeapReleased: m.HeapReleased,
		StackInuse:   m.StackInuse,
		TotalAlloc:   m.TotalAlloc,
		Mallocs:      m.Mallocs,
		Frees:        m.Frees,

		NumGC:         m.NumGC,
		GCCPUFraction: m.GCCPUFraction,

		NumGoroutines: runtime.NumGoroutine(),

		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		GoVersion:  runtime.Version(),
		Uptime:     time.Since(startTime),
	}

	if m.LastGC > 0 {
		stats.LastGC = time.Unix(0, int64(m.LastGC))
		stats.TotalGCTime = time.Duration(m.PauseTotalNs)
	}

	return stats
}

// GetGoroutineHealthStatus gives a rough judgement used in shutdown logs.
func (s *NerdStats) GetGoroutineHealthStatus() string {
	switch {
	case s.NumGoroutines < 100:
		return "healthy"
	case s.NumGoroutines < 1000:
		return "elevated"
	default:
		return "excessive"
	}
}
