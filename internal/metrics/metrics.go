package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics prometheus collectors for the service. Constructed once in
// main and injected; nothing registers on the default registry.
type Metrics struct {
	registry *prometheus.Registry

	ControllerOps   *prometheus.CounterVec
	WorkflowSteps   *prometheus.CounterVec
	ActiveWorkflows prometheus.Gauge
	AnalysesCreated prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.ControllerOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scentpanel_controller_ops_total",
		Help: "Room controller operations by op and outcome.",
	}, []string{"op", "outcome"})

	m.WorkflowSteps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scentpanel_workflow_steps_total",
		Help: "Room-visit workflow steps by step and outcome.",
	}, []string{"step", "outcome"})

	m.ActiveWorkflows = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scentpanel_active_workflows",
		Help: "Room-visit workflows currently holding the rig.",
	})

	m.AnalysesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scentpanel_analyses_created_total",
		Help: "Analyses created since process start.",
	})

	m.registry.MustRegister(
		m.ControllerOps,
		m.WorkflowSteps,
		m.ActiveWorkflows,
		m.AnalysesCreated,
	)
	return m
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordControllerOp records one gateway call.
func (m *Metrics) RecordControllerOp(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ControllerOps.WithLabelValues(op, outcome).Inc()
}

// RecordWorkflowStep records one orchestrator step.
func (m *Metrics) RecordWorkflowStep(step string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.WorkflowSteps.WithLabelValues(step, outcome).Inc()
}
