package typeval

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "typeval"

// metrics holds the evaluator's collectors. It implements
// typesystem.Observer so the checker's memo cache reports into it.
type metrics struct {
	queries  *prometheus.CounterVec
	cache    *prometheus.CounterVec
	stored   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "queries_total",
			Help:      "Queries evaluated, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "checker_cache_lookups_total",
			Help:      "Checker memo cache lookups, by operation and result.",
		}, []string{"op", "result"}),
		stored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "store_lookups_total",
			Help:      "Result store lookups, by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "query_duration_seconds",
			Help:      "Time spent evaluating a query.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"kind"}),
	}
	reg.MustRegister(m.queries, m.cache, m.stored, m.duration)
	return m
}

func (m *metrics) CacheHit(op string)  { m.cache.WithLabelValues(op, "hit").Inc() }
func (m *metrics) CacheMiss(op string) { m.cache.WithLabelValues(op, "miss").Inc() }
