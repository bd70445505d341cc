package metrics

import (
	"runtime"
)

// RegisterRuntime adds Go runtime gauges to r, sampled on every scrape.
func RegisterRuntime(r *Registry) {
	goroutines := r.NewGauge("go_goroutines", "Number of goroutines that currently exist")
	heapAlloc := r.NewGauge("go_memstats_heap_alloc_bytes", "Number of heap bytes allocated and still in use")
	heapObjects := r.NewGauge("go_memstats_heap_objects", "Number of allocated objects")
	numGC := r.NewGauge("go_gc_cycles_total", "Number of completed GC cycles")
	info := r.NewGauge("go_info", "Information about the Go environment", "version")

	if v, err := info.WithLabels(runtime.Version()); err == nil {
		v.Set(1)
	}

	r.OnGather(func() {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		_ = goroutines.Set(float64(runtime.NumGoroutine()))
		_ = heapAlloc.Set(float64(m.HeapAlloc))
		_ = heapObjects.Set(float64(m.HeapObjects))
		_ = numGC.Set(float64(m.NumGC))
	})
}
