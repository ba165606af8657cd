package metrics

import "github.com/prometheus/client_golang/prometheus"

// PrometheusRecorder implements Recorder with client_golang counters.
type PrometheusRecorder struct {
	assignments *prometheus.CounterVec
	failOpen    prometheus.Counter
	bulkItems   *prometheus.CounterVec
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheus registers the counters on reg, prometheus.DefaultRegisterer
// when nil. namespace defaults to "lead_router".
func NewPrometheus(reg prometheus.Registerer, namespace string) (*PrometheusRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "lead_router"
	}

	p := &PrometheusRecorder{
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignments_total",
			Help:      "Assignment attempts by path and outcome.",
		}, []string{"path", "outcome"}),
		failOpen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capacity_read_failopen_total",
			Help:      "Capacity reads that failed and returned the default snapshot.",
		}),
		bulkItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_items_total",
			Help:      "Bulk operation items by operation and status.",
		}, []string{"operation", "status"}),
	}

	for _, c := range []prometheus.Collector{p.assignments, p.failOpen, p.bulkItems} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *PrometheusRecorder) RecordAssignment(path, outcome string) {
	p.assignments.WithLabelValues(path, outcome).Inc()
}

func (p *PrometheusRecorder) RecordCapacityFailOpen() { p.failOpen.Inc() }

func (p *PrometheusRecorder) RecordBulkItem(operation, status string) {
	p.bulkItems.WithLabelValues(operation, status).Inc()
}
