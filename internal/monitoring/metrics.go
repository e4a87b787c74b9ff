package monitoring

import "github.com/prometheus/client_golang/prometheus"

var (
	storeUp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "provenance",
		Name:      "store_up",
		Help:      "1 when the last scheduled store probe succeeded.",
	})
	pingSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "provenance",
		Name:      "store_ping_seconds",
		Help:      "Latency of scheduled store probes.",
		Buckets:   prometheus.DefBuckets,
	})
	alertsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "provenance",
			Name:      "alerts_total",
			Help:      "Alerts raised by type and delivery result.",
		},
		[]string{"type", "result"},
	)
)

func init() {
	prometheus.MustRegister(storeUp, pingSeconds, alertsSent)
}
