// Package metrics registers the Prometheus metrics used by the device
// manager. Import this package (via blank import) from the daemon entry
// point to register all metrics before the status sidecar's /metrics
// handler is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts dispatched requests labelled by action, model_type,
	// and outcome ("ok", "error").
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hailo_devmgr_requests_total",
			Help: "Total number of requests dispatched by the device manager worker.",
		},
		[]string{"action", "model_type", "status"},
	)

	// DispatchDuration observes the time a request spends inside the worker's
	// dispatch call, from pop off the queue to handler return.
	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hailo_devmgr_dispatch_duration_seconds",
			Help:    "Time spent dispatching a request inside the worker.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"action", "model_type"},
	)

	// QueueDepth tracks the number of requests currently queued or in flight
	// ahead of the worker's single in-progress slot.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hailo_devmgr_queue_depth",
			Help: "Current number of requests queued for the device worker.",
		},
	)

	// HandlerErrors counts handler-reported errors by model_type and action.
	HandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hailo_devmgr_handler_errors_total",
			Help: "Total handler errors by model_type and action.",
		},
		[]string{"model_type", "action"},
	)

	// LoadedModels tracks the number of currently loaded model table entries.
	LoadedModels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hailo_devmgr_loaded_models",
			Help: "Current number of loaded models in the model table.",
		},
	)

	// ConnectionsTotal counts accepted Unix socket connections.
	ConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hailo_devmgr_connections_total",
			Help: "Total Unix socket connections accepted by the device manager.",
		},
	)
)
