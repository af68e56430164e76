package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics for the monitoring loop.
type Metrics struct {
	CyclesTotal   prometheus.Counter
	RoutesChecked prometheus.Counter
	AlertsSent    prometheus.Counter
	ErrorsCount   *prometheus.CounterVec
	CycleDuration prometheus.Histogram
}

// NewMetrics creates new prometheus metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		CyclesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_cycles_total",
			Help:      "The total number of completed monitoring cycles",
		}),
		RoutesChecked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_checked_total",
			Help:      "The total number of per-route price checks",
		}),
		AlertsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_alerts_sent_total",
			Help:      "The total number of price-drop alerts sent",
		}),
		ErrorsCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "monitor_cycle_duration_seconds",
			Help:      "Time taken to run one monitoring cycle",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
