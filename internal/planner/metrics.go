package planner

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	cacheTotal     *prometheus.CounterVec
	actionsTotal   *prometheus.CounterVec
	partitionTotal prometheus.Counter
	planDuration   prometheus.Histogram
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		cacheTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tmerge",
			Name:      "pipeline_cache_total",
			Help:      "Compiled pipeline cache lookups.",
		}, []string{"result"}),
		actionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tmerge",
			Name:      "planned_actions_total",
			Help:      "Planned actions by kind.",
		}, []string{"mode", "kind"}),
		partitionTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tmerge",
			Name:      "planned_partitions_total",
			Help:      "Entity partitions planned.",
		}),
		planDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tmerge",
			Name:      "plan_duration_seconds",
			Help:      "Latency distribution of planning calls.",
			Buckets: []float64{
				0.0005, 0.001, 0.002, 0.005,
				0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5,
			},
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
