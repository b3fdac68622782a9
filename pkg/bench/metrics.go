package bench

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-metrics"
)

const metricsService = "csrbench"

// runMetrics records verdict counters and traversal timers in memory for
// the report.
type runMetrics struct {
	sink *metrics.InmemSink
	m    *metrics.Metrics
}

func newRunMetrics() (*runMetrics, error) {
	sink := metrics.NewInmemSink(time.Minute, 10*time.Minute)
	conf := metrics.DefaultConfig(metricsService)
	conf.EnableHostname = false
	conf.EnableRuntimeMetrics = false
	m, err := metrics.New(conf, sink)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	return &runMetrics{sink: sink, m: m}, nil
}

func (r *runMetrics) traversal(backend string, start time.Time) {
	r.m.MeasureSince([]string{"traverse", backend}, start)
}

func (r *runMetrics) verdict(passed bool) {
	if passed {
		r.m.IncrCounter([]string{"verify", "pass"}, 1)
	} else {
		r.m.IncrCounter([]string{"verify", "fail"}, 1)
	}
}

// counters sums every counter and timer sample count across the retained
// intervals.
func (r *runMetrics) counters() map[string]float64 {
	out := make(map[string]float64)
	for _, interval := range r.sink.Data() {
		interval.RLock()
		for _, sv := range interval.Counters {
			out[sv.Name] += sv.Sum
		}
		for _, sv := range interval.Samples {
			out[sv.Name+".count"] += float64(sv.Count)
		}
		interval.RUnlock()
	}
	return out
}
