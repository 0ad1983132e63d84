package analysis

import "github.com/prometheus/client_golang/prometheus"

var (
	runsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sparklens",
		Subsystem: "analysis",
		Name:      "runs_started_total",
		Help:      "Analysis pipeline runs launched.",
	})
	runsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sparklens",
		Subsystem: "analysis",
		Name:      "runs_completed_total",
		Help:      "Analysis pipeline runs that reached the completed state.",
	})
	runsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sparklens",
		Subsystem: "analysis",
		Name:      "runs_failed_total",
		Help:      "Analysis pipeline runs that ended in the failed state.",
	})
	stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sparklens",
		Subsystem: "analysis",
		Name:      "stage_duration_seconds",
		Help:      "Wall time per pipeline stage.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 11),
	}, []string{"stage"})
)

func init() {
	prometheus.MustRegister(runsStarted, runsCompleted, runsFailed, stageDuration)
}
