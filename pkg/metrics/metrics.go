package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RPC metrics
	RPCRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rds_rpc_requests_total",
			Help: "Total number of RPC requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	RPCRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rds_rpc_request_duration_seconds",
			Help:    "RPC request handling duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	RPCRequestsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rds_rpc_requests_expired_total",
			Help: "Total number of requests dropped because they expired in the mailbox",
		},
	)

	RPCRequestsDeduplicated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rds_rpc_requests_deduplicated_total",
			Help: "Total number of duplicate requests suppressed by the dedup ledger",
		},
	)

	// Runner metrics
	JobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rds_job_runs_total",
			Help: "Total number of job runs by runtime kind and result",
		},
		[]string{"runtime_kind", "result"},
	)

	JobRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rds_job_run_duration_seconds",
			Help:    "Job run duration in seconds by runtime kind",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"runtime_kind"},
	)
)

func init() {
	prometheus.MustRegister(
		RPCRequestsTotal,
		RPCRequestDuration,
		RPCRequestsExpired,
		RPCRequestsDeduplicated,
		JobRunsTotal,
		JobRunDuration,
	)
}
