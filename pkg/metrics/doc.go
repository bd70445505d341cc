// Package metrics renders counters, gauges and histograms in the Prometheus
// text exposition format (text/plain; version=0.0.4).
//
// All metric types are safe for concurrent use. Gauges that reflect sampled
// state (store size, runtime stats) are refreshed by hooks registered with
// OnGather, which run right before each exposition.
//
//	registry := metrics.NewRegistry()
//	svc := metrics.NewService(registry, store.Count)
//	svc.Observe("GetUsers", 200, time.Since(start))
//
//	mux.Handle("/metrics", registry.Handler())
package metrics
