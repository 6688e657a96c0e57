package kenall

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kenall_lookups_total",
			Help: "Total number of kenall.jp postal code lookups, by result",
		},
		[]string{"result"},
	)

	lookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kenall_lookup_duration_seconds",
			Help:    "kenall.jp postal code lookup duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func observeLookup(res Result, err error, d time.Duration) {
	lookupDuration.Observe(d.Seconds())

	result := "error"
	if err == nil {
		switch res.(type) {
		case Found:
			result = "found"
		case NotFound:
			result = "not_found"
		}
	}

	lookupsTotal.WithLabelValues(result).Inc()
}
