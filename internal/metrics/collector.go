package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/civicgrid/grievance-engine/internal/database"
)

// Collector exposes engine activity as Prometheus metrics. It satisfies the
// metrics interfaces of the lifecycle engine, review gate, and scheduler.
type Collector struct {
	complaintsSubmitted *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	escalations         *prometheus.CounterVec
	slaBreaches         prometheus.Counter
	reviews             *prometheus.CounterVec
	schedulerRuns       *prometheus.CounterVec
}

// NewCollector registers the collector's metrics with the default registry.
func NewCollector() *Collector {
	return &Collector{
		complaintsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_complaints_submitted_total",
			Help: "Total complaints submitted, by category and severity",
		}, []string{"category", "severity"}),
		transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_transitions_total",
			Help: "Total lifecycle transitions applied, by from and to status",
		}, []string{"from", "to"}),
		escalations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_escalations_total",
			Help: "Total escalations to supervisor review, by trigger",
		}, []string{"trigger"}),
		slaBreaches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "grievance_sla_breaches_total",
			Help: "Total SLA breaches flagged",
		}),
		reviews: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_supervisor_reviews_total",
			Help: "Total supervisor review decisions, by outcome",
		}, []string{"decision"}),
		schedulerRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_scheduler_runs_total",
			Help: "Total scheduler task executions, by task and result",
		}, []string{"task", "result"}),
	}
}

func (c *Collector) ComplaintSubmitted(category, severity string) {
	c.complaintsSubmitted.WithLabelValues(category, severity).Inc()
}

func (c *Collector) TransitionApplied(from, to database.Status) {
	c.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (c *Collector) EscalationTriggered(auto bool) {
	trigger := "manual"
	if auto {
		trigger = "auto"
	}
	c.escalations.WithLabelValues(trigger).Inc()
}

func (c *Collector) SLABreachFlagged() {
	c.slaBreaches.Inc()
}

func (c *Collector) ReviewDecided(decision string) {
	c.reviews.WithLabelValues(decision).Inc()
}

func (c *Collector) SchedulerTaskRan(task string, failed bool) {
	result := "success"
	if failed {
		result = "error"
	}
	c.schedulerRuns.WithLabelValues(task, result).Inc()
}
