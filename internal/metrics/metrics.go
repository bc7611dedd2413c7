package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures latency and failures of gateway operations.
type Observer interface {
	Observe(resource, op string, duration time.Duration, err error)
}

type Nop struct{}

func (Nop) Observe(string, string, time.Duration, error) {}

// PrometheusObserver exports operation metrics to Prometheus.
type PrometheusObserver struct {
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "mshelf"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of resource and object store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource", "op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Count of failed resource and object store operations.",
		}, []string{"resource", "op"}),
	}
	duration, err := register(reg, o.duration)
	if err != nil {
		return nil, err
	}
	failures, err := register(reg, o.failures)
	if err != nil {
		return nil, err
	}
	o.duration, o.failures = duration, failures
	return o, nil
}

// register returns the collector already registered under the same
// descriptor when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return collector, fmt.Errorf("register metric: %w", err)
	}
	return collector, nil
}

func (o *PrometheusObserver) Observe(resource, op string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues(resource, op).Observe(duration.Seconds())
	if err != nil {
		o.failures.WithLabelValues(resource, op).Inc()
	}
}

// NewGauge registers a gauge, or returns the one already registered under
// the same name.
func NewGauge(namespace, name, help string, reg prometheus.Registerer) (prometheus.Gauge, error) {
	if namespace == "" {
		namespace = "mshelf"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return register[prometheus.Gauge](reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}))
}
