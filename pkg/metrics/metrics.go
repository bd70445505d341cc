package metrics

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// ContentType is the Prometheus text exposition content type.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

var (
	// ErrLabelCount is returned when label values do not match the declared label names.
	ErrLabelCount = errors.New("label count mismatch")
	// ErrNegativeAdd is returned when a counter is decremented.
	ErrNegativeAdd = errors.New("counter cannot decrease")
)

// MetricType is the Prometheus TYPE of a metric family.
type MetricType string

// Metric types
const (
	TypeCounter   MetricType = "counter"
	TypeGauge     MetricType = "gauge"
	TypeHistogram MetricType = "histogram"
)

// DefaultBuckets are latency buckets in seconds.
var DefaultBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Metric is a family of samples sharing a name.
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	write(w *bufio.Writer)
}

type atomicFloat64 struct {
	bits atomic.Uint64
}

func (a *atomicFloat64) Load() float64 { return math.Float64frombits(a.bits.Load()) }

func (a *atomicFloat64) Store(v float64) { a.bits.Store(math.Float64bits(v)) }

func (a *atomicFloat64) Add(delta float64) {
	for {
		old := a.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if a.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

// family holds what every metric type shares: identity and labelled series.
type family[T any] struct {
	name       string
	help       string
	labelNames []string
	newSeries  func() *T

	mu     sync.RWMutex
	series map[string]*T
	values map[string][]string
}

func (f *family[T]) init(name, help string, labelNames []string, mk func() *T) {
	f.name = name
	f.help = help
	f.labelNames = labelNames
	f.newSeries = mk
	f.series = make(map[string]*T)
	f.values = make(map[string][]string)
}

func (f *family[T]) Name() string { return f.name }
func (f *family[T]) Help() string { return f.help }

func (f *family[T]) get(values []string) (*T, error) {
	if len(values) != len(f.labelNames) {
		return nil, fmt.Errorf("%w: %s expects %d values, got %d", ErrLabelCount, f.name, len(f.labelNames), len(values))
	}
	key := strings.Join(values, "\x00")

	f.mu.RLock()
	s, ok := f.series[key]
	f.mu.RUnlock()
	if ok {
		return s, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.series[key]; ok {
		return s, nil
	}
	s = f.newSeries()
	f.series[key] = s
	f.values[key] = slices.Clone(values)
	return s, nil
}

// each visits series in label order so output is stable.
func (f *family[T]) each(fn func(labels string, s *T)) {
	f.mu.RLock()
	keys := make([]string, 0, len(f.series))
	for k := range f.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	type entry struct {
		labels string
		s      *T
	}
	entries := make([]entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, entry{formatLabels(f.labelNames, f.values[k]), f.series[k]})
	}
	f.mu.RUnlock()

	for _, e := range entries {
		fn(e.labels, e.s)
	}
}

// Counter is a monotonically increasing value.
type Counter struct {
	family[atomicFloat64]
}

// CounterVec is one labelled counter series.
type CounterVec struct {
	v *atomicFloat64
}

// WithLabels returns the series for the given label values.
func (c *Counter) WithLabels(values ...string) (*CounterVec, error) {
	v, err := c.get(values)
	if err != nil {
		return nil, err
	}
	return &CounterVec{v: v}, nil
}

// Inc increments an unlabelled counter.
func (c *Counter) Inc() error { return c.Add(1) }

// Add adds delta to an unlabelled counter.
func (c *Counter) Add(delta float64) error {
	v, err := c.WithLabels()
	if err != nil {
		return err
	}
	return v.Add(delta)
}

// Type implements Metric.
func (c *Counter) Type() MetricType { return TypeCounter }

func (c *Counter) write(w *bufio.Writer) {
	c.each(func(labels string, v *atomicFloat64) {
		writeSample(w, c.name, labels, v.Load())
	})
}

// Inc adds one.
func (v *CounterVec) Inc() { v.v.Add(1) }

// Add adds a non-negative delta.
func (v *CounterVec) Add(delta float64) error {
	if delta < 0 {
		return ErrNegativeAdd
	}
	v.v.Add(delta)
	return nil
}

// Value returns the current count.
func (v *CounterVec) Value() float64 { return v.v.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	family[atomicFloat64]
}

// GaugeVec is one labelled gauge series.
type GaugeVec struct {
	v *atomicFloat64
}

// WithLabels returns the series for the given label values.
func (g *Gauge) WithLabels(values ...string) (*GaugeVec, error) {
	v, err := g.get(values)
	if err != nil {
		return nil, err
	}
	return &GaugeVec{v: v}, nil
}

// Set sets an unlabelled gauge.
func (g *Gauge) Set(value float64) error {
	v, err := g.WithLabels()
	if err != nil {
		return err
	}
	v.Set(value)
	return nil
}

// Type implements Metric.
func (g *Gauge) Type() MetricType { return TypeGauge }

func (g *Gauge) write(w *bufio.Writer) {
	g.each(func(labels string, v *atomicFloat64) {
		writeSample(w, g.name, labels, v.Load())
	})
}

func (v *GaugeVec) Set(value float64) { v.v.Store(value) }
func (v *GaugeVec) Add(delta float64) { v.v.Add(delta) }
func (v *GaugeVec) Inc()              { v.v.Add(1) }
func (v *GaugeVec) Dec()              { v.v.Add(-1) }
func (v *GaugeVec) Value() float64    { return v.v.Load() }

type histogramSeries struct {
	mu     sync.Mutex
	counts []uint64 // per bucket, not cumulative
	sum    float64
	count  uint64
}

// Histogram buckets observations.
type Histogram struct {
	family[histogramSeries]
	buckets []float64
}

// HistogramVec is one labelled histogram series.
type HistogramVec struct {
	h *Histogram
	s *histogramSeries
}

// WithLabels returns the series for the given label values.
func (h *Histogram) WithLabels(values ...string) (*HistogramVec, error) {
	s, err := h.get(values)
	if err != nil {
		return nil, err
	}
	return &HistogramVec{h: h, s: s}, nil
}

// Observe records a value on an unlabelled histogram.
func (h *Histogram) Observe(value float64) error {
	v, err := h.WithLabels()
	if err != nil {
		return err
	}
	v.Observe(value)
	return nil
}

// Type implements Metric.
func (h *Histogram) Type() MetricType { return TypeHistogram }

func (h *Histogram) write(w *bufio.Writer) {
	h.each(func(labels string, s *histogramSeries) {
		s.mu.Lock()
		counts := slices.Clone(s.counts)
		sum, count := s.sum, s.count
		s.mu.Unlock()

		var cumulative uint64
		for i, le := range h.buckets {
			cumulative += counts[i]
			writeSample(w, h.name+"_bucket", withLE(labels, formatFloat(le)), float64(cumulative))
		}
		writeSample(w, h.name+"_bucket", withLE(labels, "+Inf"), float64(count))
		writeSample(w, h.name+"_sum", labels, sum)
		writeSample(w, h.name+"_count", labels, float64(count))
	})
}

// Observe records value.
func (v *HistogramVec) Observe(value float64) {
	i := sort.SearchFloat64s(v.h.buckets, value)
	v.s.mu.Lock()
	if i < len(v.s.counts) {
		v.s.counts[i]++
	}
	v.s.sum += value
	v.s.count++
	v.s.mu.Unlock()
}

// Count returns the number of observations.
func (v *HistogramVec) Count() uint64 {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.s.count
}

// Registry holds metric families and renders them.
type Registry struct {
	mu      sync.RWMutex
	metrics []Metric
	names   map[string]bool
	hooks   []func()
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// NewCounter registers a counter. It panics on a duplicate name.
func (r *Registry) NewCounter(name, help string, labels ...string) *Counter {
	c := &Counter{}
	c.init(name, help, labels, func() *atomicFloat64 { return &atomicFloat64{} })
	r.register(c)
	return c
}

// NewGauge registers a gauge. It panics on a duplicate name.
func (r *Registry) NewGauge(name, help string, labels ...string) *Gauge {
	g := &Gauge{}
	g.init(name, help, labels, func() *atomicFloat64 { return &atomicFloat64{} })
	r.register(g)
	return g
}

// NewHistogram registers a histogram. Nil buckets use DefaultBuckets. It
// panics on a duplicate name.
func (r *Registry) NewHistogram(name, help string, buckets []float64, labels ...string) *Histogram {
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	buckets = slices.Clone(buckets)
	sort.Float64s(buckets)

	h := &Histogram{buckets: buckets}
	h.init(name, help, labels, func() *histogramSeries {
		return &histogramSeries{counts: make([]uint64, len(buckets))}
	})
	r.register(h)
	return h
}

// OnGather adds a hook run before every exposition, for gauges that are
// sampled rather than updated.
func (r *Registry) OnGather(fn func()) {
	r.mu.Lock()
	r.hooks = append(r.hooks, fn)
	r.mu.Unlock()
}

func (r *Registry) register(m Metric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.names[m.Name()] {
		panic("metrics: duplicate metric " + m.Name())
	}
	r.names[m.Name()] = true
	r.metrics = append(r.metrics, m)
}

// WriteTo renders every family in registration order.
func (r *Registry) WriteTo(out io.Writer) (int64, error) {
	r.mu.RLock()
	hooks := slices.Clone(r.hooks)
	metrics := slices.Clone(r.metrics)
	r.mu.RUnlock()

	for _, fn := range hooks {
		fn()
	}

	cw := &countingWriter{w: out}
	w := bufio.NewWriter(cw)
	for _, m := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", m.Name(), escapeHelp(m.Help()))
		fmt.Fprintf(w, "# TYPE %s %s\n", m.Name(), m.Type())
		m.write(w)
	}
	err := w.Flush()
	return cw.n, err
}

// Handler serves the registry in the text exposition format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", ContentType)
		_, _ = r.WriteTo(w)
	})
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func writeSample(w *bufio.Writer, name, labels string, v float64) {
	w.WriteString(name)
	if labels != "" {
		w.WriteString("{" + labels + "}")
	}
	w.WriteByte(' ')
	w.WriteString(formatFloat(v))
	w.WriteByte('\n')
}

func formatLabels(names, values []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + `="` + escapeLabelValue(values[i]) + `"`
	}
	return strings.Join(parts, ",")
}

func withLE(labels, le string) string {
	if labels == "" {
		return `le="` + le + `"`
	}
	return labels + `,le="` + le + `"`
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case math.IsNaN(v):
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

var (
	helpEscaper  = strings.NewReplacer(`\`, `\\`, "\n", `\n`)
	labelEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)
)

func escapeHelp(s string) string       { return helpEscaper.Replace(s) }
func escapeLabelValue(s string) string { return labelEscaper.Replace(s) }
