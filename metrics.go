package eyot

import (
	"sync/atomic"
	"time"
)

// Metrics tracks allocation and work-flow statistics for a runtime
type Metrics struct {
	// Collector counters
	PagesAllocated atomic.Uint64 // Total pages allocated
	BytesAllocated atomic.Uint64 // Total bytes allocated (cumulative)
	PagesFreed     atomic.Uint64 // Pages swept by the collector
	BytesFreed     atomic.Uint64 // Bytes swept by the collector
	Collections    atomic.Uint64 // Completed collect passes
	CollectNs      atomic.Uint64 // Cumulative collect latency in nanoseconds

	// Pipe traffic
	PipeSends    atomic.Uint64 // Values sent into pipes
	PipeReceives atomic.Uint64 // Values delivered from pipes

	// Worker traffic
	WorkerItems atomic.Uint64 // Elements fed to workers
	GPUBatches  atomic.Uint64 // Kernel batches enqueued
	GPUItems    atomic.Uint64 // Elements covered by those batches

	// Runtime lifecycle
	StartTime atomic.Int64 // Runtime start timestamp (UnixNano)
	StopTime  atomic.Int64 // Runtime stop timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// Stop marks the runtime as stopped
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of the counters
type MetricsSnapshot struct {
	PagesAllocated uint64
	BytesAllocated uint64
	PagesFreed     uint64
	BytesFreed     uint64
	Collections    uint64
	CollectNs      uint64

	PipeSends    uint64
	PipeReceives uint64

	WorkerItems uint64
	GPUBatches  uint64
	GPUItems    uint64

	UptimeNs int64
}

// Snapshot returns a point-in-time snapshot of metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	end := m.StopTime.Load()
	if end == 0 {
		end = time.Now().UnixNano()
	}

	return MetricsSnapshot{
		PagesAllocated: m.PagesAllocated.Load(),
		BytesAllocated: m.BytesAllocated.Load(),
		PagesFreed:     m.PagesFreed.Load(),
		BytesFreed:     m.BytesFreed.Load(),
		Collections:    m.Collections.Load(),
		CollectNs:      m.CollectNs.Load(),
		PipeSends:      m.PipeSends.Load(),
		PipeReceives:   m.PipeReceives.Load(),
		WorkerItems:    m.WorkerItems.Load(),
		GPUBatches:     m.GPUBatches.Load(),
		GPUItems:       m.GPUItems.Load(),
		UptimeNs:       end - m.StartTime.Load(),
	}
}

// MetricsObserver feeds internal observations into a Metrics instance
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer recording into metrics
func NewMetricsObserver(metrics *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: metrics}
}

func (o *MetricsObserver) ObserveAlloc(bytes uint64) {
	o.metrics.PagesAllocated.Add(1)
	o.metrics.BytesAllocated.Add(bytes)
}

func (o *MetricsObserver) ObserveFree(bytes uint64) {
	o.metrics.PagesFreed.Add(1)
	o.metrics.BytesFreed.Add(bytes)
}

func (o *MetricsObserver) ObserveCollect(freedPages uint64, latencyNs uint64) {
	o.metrics.Collections.Add(1)
	o.metrics.CollectNs.Add(latencyNs)
}

func (o *MetricsObserver) ObserveSend() {
	o.metrics.PipeSends.Add(1)
}

func (o *MetricsObserver) ObserveReceive() {
	o.metrics.PipeReceives.Add(1)
}

func (o *MetricsObserver) ObserveWorkerItems(n uint64) {
	o.metrics.WorkerItems.Add(n)
}

func (o *MetricsObserver) ObserveBatch(count uint64) {
	o.metrics.GPUBatches.Add(1)
	o.metrics.GPUItems.Add(count)
}

// NoOpObserver discards every observation
type NoOpObserver struct{}

func (NoOpObserver) ObserveAlloc(bytes uint64)                   {}
func (NoOpObserver) ObserveFree(bytes uint64)                    {}
func (NoOpObserver) ObserveCollect(freedPages, latencyNs uint64) {}
func (NoOpObserver) ObserveSend()                                {}
func (NoOpObserver) ObserveReceive()                             {}
func (NoOpObserver) ObserveWorkerItems(n uint64)                 {}
func (NoOpObserver) ObserveBatch(count uint64)                   {}
