package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SweepRuns counts sweep cycles by sweep name and outcome.
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_sweep_runs_total",
		Help: "Total sweep cycles executed",
	}, []string{"sweep", "outcome"})

	// SweepSkips counts cycles skipped because the previous run was still in flight.
	SweepSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_sweep_skips_total",
		Help: "Sweep cycles skipped due to an overlapping run",
	}, []string{"sweep"})

	// SweepDuration tracks how long a sweep cycle takes.
	SweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sla_sweep_duration_seconds",
		Help:    "Duration of one sweep cycle",
		Buckets: prometheus.DefBuckets,
	}, []string{"sweep"})

	// SweepTicketErrors counts per-ticket failures that were isolated and skipped.
	SweepTicketErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_sweep_ticket_errors_total",
		Help: "Per-ticket sweep failures that did not abort the cycle",
	}, []string{"sweep"})

	// Escalations counts escalation records written, labeled by target level.
	Escalations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_escalations_total",
		Help: "Tickets escalated after a response deadline breach",
	}, []string{"to_level"})

	// Assignments counts ownership changes by kind (auto, manual, transfer, rebalance, complete).
	Assignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_assignments_total",
		Help: "Assignment operations recorded",
	}, []string{"kind"})

	// TimerTransitions counts timer state changes applied by the sweep.
	TimerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_timer_transitions_total",
		Help: "Timer status transitions applied",
	}, []string{"type", "to_status"})

	// NotificationDeliveries counts outbound notification attempts by channel and outcome.
	NotificationDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_notification_deliveries_total",
		Help: "Outbound notification attempts",
	}, []string{"channel", "outcome"})

	// HTTPRequests counts handled requests by route, method and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_http_requests_total",
		Help: "HTTP requests handled",
	}, []string{"path", "method", "status"})
)
