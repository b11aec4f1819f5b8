package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	taskDuration     *prom.HistogramVec
	runDuration      prom.Histogram
	taskResults      *prom.CounterVec
	runOutcome       *prom.CounterVec
	retries          *prom.CounterVec
	retriesExhausted *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.taskDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "tplbuild",
			Name:      "task_duration_seconds",
			Help:      "Duration of individual conversion tasks",
			Buckets:   prom.DefBuckets,
		}, []string{"format"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "tplbuild",
			Name:      "run_duration_seconds",
			Help:      "Total build run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.taskResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "tplbuild",
			Name:      "task_results_total",
			Help:      "Task result counts by outcome",
		}, []string{"format", "result"})
		pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "tplbuild",
			Name:      "run_outcomes_total",
			Help:      "Run outcomes by final state",
		}, []string{"outcome"})
		pr.retries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "tplbuild",
			Name:      "task_retries_total",
			Help:      "Total task retries (transient failures)",
		}, []string{"format"})
		pr.retriesExhausted = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "tplbuild",
			Name:      "task_retry_exhausted_total",
			Help:      "Count of tasks where retries were exhausted",
		}, []string{"format"})
		reg.MustRegister(pr.taskDuration, pr.runDuration, pr.taskResults, pr.runOutcome, pr.retries, pr.retriesExhausted)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveTaskDuration(format string, d time.Duration) {
	if p == nil || p.taskDuration == nil {
		return
	}
	p.taskDuration.WithLabelValues(format).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTaskResult(format string, result ResultLabel) {
	if p == nil || p.taskResults == nil {
		return
	}
	p.taskResults.WithLabelValues(format, string(result)).Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	if p == nil || p.runOutcome == nil {
		return
	}
	p.runOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncTaskRetry(format string) {
	if p == nil || p.retries == nil {
		return
	}
	p.retries.WithLabelValues(format).Inc()
}

func (p *PrometheusRecorder) IncTaskRetryExhausted(format string) {
	if p == nil || p.retriesExhausted == nil {
		return
	}
	p.retriesExhausted.WithLabelValues(format).Inc()
}
