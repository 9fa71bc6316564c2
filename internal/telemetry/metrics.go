package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics — метрики выполнения workflow.
//
// Все методы безопасны для nil-получателя: компоненты, созданные
// без метрик, просто ничего не считают.
type Metrics struct {
	StepAttempts     prometheus.Counter
	StepResults      *prometheus.CounterVec
	WorkflowRuns     *prometheus.CounterVec
	WorkflowDuration *prometheus.HistogramVec
	FinalizeActions  *prometheus.CounterVec
	DispatchSkipped  prometheus.Counter
}

// NewMetrics регистрирует метрики в reg.
// Для production передаётся prometheus.DefaultRegisterer,
// в тестах — prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StepAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "adws_step_attempts_total",
			Help: "Total number of step attempts.",
		}),
		StepResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adws_step_results_total",
			Help: "Final step results by status.",
		}, []string{"status"}),
		WorkflowRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adws_workflow_runs_total",
			Help: "Workflow runs by workflow and status.",
		}, []string{"workflow", "status"}),
		WorkflowDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "adws_workflow_duration_seconds",
			Help:    "Workflow run duration in seconds.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}, []string{"workflow"}),
		FinalizeActions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adws_finalize_actions_total",
			Help: "Finalize actions by result.",
		}, []string{"action"}),
		DispatchSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "adws_dispatch_skipped_total",
			Help: "Dispatches skipped by the failure guard.",
		}),
	}
}

// StepAttempt увеличивает счётчик попыток.
func (m *Metrics) StepAttempt() {
	if m == nil {
		return
	}
	m.StepAttempts.Inc()
}

// StepResult учитывает финальный статус шага.
func (m *Metrics) StepResult(status string) {
	if m == nil {
		return
	}
	m.StepResults.WithLabelValues(status).Inc()
}

// WorkflowRun учитывает завершённый run и его длительность.
func (m *Metrics) WorkflowRun(workflow, status string, seconds float64) {
	if m == nil {
		return
	}
	m.WorkflowRuns.WithLabelValues(workflow, status).Inc()
	m.WorkflowDuration.WithLabelValues(workflow).Observe(seconds)
}

// FinalizeAction учитывает результат finalize.
func (m *Metrics) FinalizeAction(action string) {
	if m == nil {
		return
	}
	m.FinalizeActions.WithLabelValues(action).Inc()
}

// DispatchSkip учитывает пропуск диспетчеризации.
func (m *Metrics) DispatchSkip() {
	if m == nil {
		return
	}
	m.DispatchSkipped.Inc()
}

// Handler возвращает HTTP handler для /metrics.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
