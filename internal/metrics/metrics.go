package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Settlement
	PaymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Settlement attempts persisted to the payment ledger",
		},
		[]string{"estado"}, // completado|rechazado
	)
	InsufficientFundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_insufficient_funds_total",
			Help: "Payment requests short-circuited for insufficient funds",
		},
	)
	AutomaticBatchRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "automatic_batch_runs_total",
			Help: "Automatic deposit batch invocations",
		},
	)
	BankBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bank_balance",
			Help: "Current mock bank balance",
		},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

// handler for the /metrics endpoint
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(PaymentsTotal)
	prometheus.MustRegister(InsufficientFundsTotal)
	prometheus.MustRegister(AutomaticBatchRuns)
	prometheus.MustRegister(BankBalance)
	prometheus.MustRegister(WorkerQueueDepth)
}
