package index

import (
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the coordinator's observability surface: prometheus gauges
// for point-in-time state and an hdrhistogram for publish-latency
// distribution, in the style of dreamsxin-wal's walMetrics.
type metrics struct {
	segmentCount prometheus.Gauge
	docstamp     prometheus.Gauge
	poolInUse    prometheus.Gauge
	publishTotal prometheus.Counter
	loadFailures prometheus.Counter

	mu        sync.Mutex
	publishNS *hdrhistogram.Histogram
}

// newMetrics registers the coordinator's gauges and counters against reg.
// Pass prometheus.NewRegistry() in tests to avoid collisions with the
// global default registerer.
func newMetrics(reg prometheus.Registerer, indexName string) *metrics {
	labels := prometheus.Labels{"index": indexName}
	return &metrics{
		segmentCount: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name:        "indexkernel_segment_count",
			Help:        "indexkernel_segment_count reports the number of segments currently in meta.",
			ConstLabels: labels,
		}),
		docstamp: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name:        "indexkernel_docstamp",
			Help:        "indexkernel_docstamp reports the cumulative committed document count.",
			ConstLabels: labels,
		}),
		poolInUse: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name:        "indexkernel_pool_in_use",
			Help:        "indexkernel_pool_in_use reports the number of leased searchers.",
			ConstLabels: labels,
		}),
		publishTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "indexkernel_publish_total",
			Help:        "indexkernel_publish_total counts successful publish_segments and publish_merge_segment calls.",
			ConstLabels: labels,
		}),
		loadFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "indexkernel_load_searchers_failures_total",
			Help:        "indexkernel_load_searchers_failures_total counts load_searchers calls that failed to open a segment.",
			ConstLabels: labels,
		}),
		publishNS: hdrhistogram.New(1, 10_000_000_000, 3),
	}
}

func (m *metrics) recordPublish(durationNS int64) {
	m.publishTotal.Inc()
	m.mu.Lock()
	m.publishNS.RecordValue(durationNS)
	m.mu.Unlock()
}

// PublishLatencyP99 returns the 99th percentile publish latency observed so
// far, in nanoseconds. Exposed for diagnostics; not wired to a prometheus
// collector to avoid per-scrape lock contention on the histogram.
func (m *metrics) PublishLatencyP99() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.publishNS.ValueAtQuantile(99)
}
