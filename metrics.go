package horago

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordCreate is called after each Create.
	RecordCreate()

	// RecordAdd is called after each Add on an existing index.
	RecordAdd(err error)

	// RecordBuild is called after each build attempt on an existing index.
	RecordBuild(duration time.Duration, err error)

	// RecordSearch is called after each search on an existing index.
	// cached reports whether the result came from the query cache.
	RecordSearch(k int, duration time.Duration, cached bool, err error)

	// RecordLoad is called after each load attempt.
	RecordLoad(duration time.Duration, err error)

	// RecordDump is called after each dump attempt on an existing index.
	RecordDump(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCreate()                                {}
func (NoopMetricsCollector) RecordAdd(error)                              {}
func (NoopMetricsCollector) RecordBuild(time.Duration, error)             {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, bool, error) {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)              {}
func (NoopMetricsCollector) RecordDump(time.Duration, error)              {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	CreateCount      atomic.Int64
	AddCount         atomic.Int64
	AddErrors        atomic.Int64
	BuildCount       atomic.Int64
	BuildErrors      atomic.Int64
	BuildTotalNanos  atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchCacheHits  atomic.Int64
	SearchTotalNanos atomic.Int64
	LoadCount        atomic.Int64
	LoadErrors       atomic.Int64
	DumpCount        atomic.Int64
	DumpErrors       atomic.Int64
}

// RecordCreate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCreate() {
	b.CreateCount.Add(1)
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(err error) {
	b.AddCount.Add(1)
	if err != nil {
		b.AddErrors.Add(1)
	}
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(k int, duration time.Duration, cached bool, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if cached {
		b.SearchCacheHits.Add(1)
	}
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(duration time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordDump implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDump(duration time.Duration, err error) {
	b.DumpCount.Add(1)
	if err != nil {
		b.DumpErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CreateCount:     b.CreateCount.Load(),
		AddCount:        b.AddCount.Load(),
		AddErrors:       b.AddErrors.Load(),
		BuildCount:      b.BuildCount.Load(),
		BuildErrors:     b.BuildErrors.Load(),
		BuildAvgNanos:   avg(b.BuildTotalNanos.Load(), b.BuildCount.Load()),
		SearchCount:     b.SearchCount.Load(),
		SearchErrors:    b.SearchErrors.Load(),
		SearchCacheHits: b.SearchCacheHits.Load(),
		SearchAvgNanos:  avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		LoadCount:       b.LoadCount.Load(),
		LoadErrors:      b.LoadErrors.Load(),
		DumpCount:       b.DumpCount.Load(),
		DumpErrors:      b.DumpErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CreateCount     int64 `json:"create_count"`
	AddCount        int64 `json:"add_count"`
	AddErrors       int64 `json:"add_errors"`
	BuildCount      int64 `json:"build_count"`
	BuildErrors     int64 `json:"build_errors"`
	BuildAvgNanos   int64 `json:"build_avg_nanos"`
	SearchCount     int64 `json:"search_count"`
	SearchErrors    int64 `json:"search_errors"`
	SearchCacheHits int64 `json:"search_cache_hits"`
	SearchAvgNanos  int64 `json:"search_avg_nanos"`
	LoadCount       int64 `json:"load_count"`
	LoadErrors      int64 `json:"load_errors"`
	DumpCount       int64 `json:"dump_count"`
	DumpErrors      int64 `json:"dump_errors"`
}
