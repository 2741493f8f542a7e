package service

import (
	"sync"
	"time"

	"ingestion-gateway/internal/model"
)

// StatsCollector aggregates transfer outcomes in memory for the stats endpoint
type StatsCollector struct {
	byDirection map[model.Direction]*DirectionStats
	previews    int64
	mutex       sync.RWMutex
	startTime   time.Time
}

// DirectionStats holds totals for one transfer direction
type DirectionStats struct {
	Total            int64     `json:"total"`
	Succeeded        int64     `json:"succeeded"`
	Failed           int64     `json:"failed"`
	RowsMoved        int64     `json:"rowsMoved"`
	MinDurationMs    int64     `json:"minDurationMs"`
	MaxDurationMs    int64     `json:"maxDurationMs"`
	AvgDurationMs    int64     `json:"avgDurationMs"`
	LastTransferTime time.Time `json:"lastTransferTime"`
	LastError        string    `json:"lastError,omitempty"`
	LastErrorTime    time.Time `json:"lastErrorTime,omitempty"`

	totalDurationMs int64
}

// TransferStats is a point-in-time copy of the collector
type TransferStats struct {
	ByDirection map[model.Direction]DirectionStats `json:"byDirection"`
	Previews    int64                              `json:"previews"`
	StartTime   time.Time                          `json:"startTime"`
}

// NewStatsCollector creates a new stats collector
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{
		byDirection: make(map[model.Direction]*DirectionStats),
		startTime:   time.Now(),
	}
}

// RecordTransfer records one finished transfer
func (sc *StatsCollector) RecordTransfer(direction model.Direction, err error, duration time.Duration, rows int64) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	ds, exists := sc.byDirection[direction]
	durationMs := duration.Milliseconds()
	if !exists {
		ds = &DirectionStats{MinDurationMs: durationMs, MaxDurationMs: durationMs}
		sc.byDirection[direction] = ds
	}

	now := time.Now()
	ds.Total++
	ds.LastTransferTime = now
	if err != nil {
		ds.Failed++
		ds.LastError = err.Error()
		ds.LastErrorTime = now
	} else {
		ds.Succeeded++
		ds.RowsMoved += rows
	}

	ds.totalDurationMs += durationMs
	ds.MinDurationMs = min(ds.MinDurationMs, durationMs)
	ds.MaxDurationMs = max(ds.MaxDurationMs, durationMs)
	ds.AvgDurationMs = ds.totalDurationMs / ds.Total
}

// RecordPreview counts one preview
func (sc *StatsCollector) RecordPreview() {
	sc.mutex.Lock()
	sc.previews++
	sc.mutex.Unlock()
}

// Snapshot returns a copy safe to serialize
func (sc *StatsCollector) Snapshot() TransferStats {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()

	out := TransferStats{
		ByDirection: make(map[model.Direction]DirectionStats, len(sc.byDirection)),
		Previews:    sc.previews,
		StartTime:   sc.startTime,
	}
	for d, ds := range sc.byDirection {
		out.ByDirection[d] = *ds
	}
	return out
}
