package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector 协调引擎指标收集器
// 所有方法对 nil 接收者安全，便于在不启用指标时直接传 nil。
type Collector struct {
	// 状态转换指标
	transitionsTotal *prometheus.CounterVec
	validationErrors prometheus.Counter

	// 恢复指标
	recoveryAttempts *prometheus.CounterVec

	// 检查点指标
	checkpointsTotal *prometheus.CounterVec
	agentsRestored   prometheus.Counter
	agentsSkipped    prometheus.Counter

	// 消息指标
	messagesTotal *prometheus.CounterVec

	// 观察者指标
	observerPanics prometheus.Counter

	// 工作流指标
	workflowRuns  *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
}

// NewCollector creates a collector registered against reg. Pass
// prometheus.DefaultRegisterer for production use and a fresh
// prometheus.NewRegistry() in tests.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{}

	c.transitionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_state_transitions_total",
			Help:      "Total number of agent state transition attempts",
		},
		[]string{"from", "to", "result"},
	)

	c.validationErrors = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transition_validation_errors_total",
			Help:      "Total number of rejected state transitions",
		},
	)

	c.recoveryAttempts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_recovery_attempts_total",
			Help:      "Total number of error-state recovery attempts",
		},
		[]string{"result"},
	)

	c.checkpointsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_total",
			Help:      "Total number of checkpoint persist attempts",
		},
		[]string{"result"},
	)

	c.agentsRestored = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_agents_restored_total",
			Help:      "Total number of agent snapshots restored from checkpoints",
		},
	)

	c.agentsSkipped = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_agents_skipped_total",
			Help:      "Total number of checkpoint entries skipped during restore",
		},
	)

	c.messagesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_messages_total",
			Help:      "Total number of inter-agent messages sent",
		},
		[]string{"kind", "result"},
	)

	c.observerPanics = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observer_panics_total",
			Help:      "Total number of recovered observer panics",
		},
	)

	c.workflowRuns = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_runs_total",
			Help:      "Total number of workflow executions",
		},
		[]string{"result"},
	)

	c.phaseDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_phase_duration_seconds",
			Help:      "Workflow phase execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"phase"},
	)

	return c
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordTransition records a state transition attempt.
func (c *Collector) RecordTransition(from, to string, ok bool) {
	if c == nil {
		return
	}
	c.transitionsTotal.WithLabelValues(from, to, result(ok)).Inc()
	if !ok {
		c.validationErrors.Inc()
	}
}

// RecordRecovery records an error-state recovery attempt.
func (c *Collector) RecordRecovery(ok bool) {
	if c == nil {
		return
	}
	c.recoveryAttempts.WithLabelValues(result(ok)).Inc()
}

// RecordCheckpoint records a checkpoint persist attempt.
func (c *Collector) RecordCheckpoint(ok bool) {
	if c == nil {
		return
	}
	c.checkpointsTotal.WithLabelValues(result(ok)).Inc()
}

// RecordRestore records the outcome of a checkpoint restore.
func (c *Collector) RecordRestore(restored, skipped int) {
	if c == nil {
		return
	}
	c.agentsRestored.Add(float64(restored))
	c.agentsSkipped.Add(float64(skipped))
}

// RecordMessage records an inter-agent message send attempt.
func (c *Collector) RecordMessage(kind string, ok bool) {
	if c == nil {
		return
	}
	c.messagesTotal.WithLabelValues(kind, result(ok)).Inc()
}

// RecordObserverPanic records a recovered observer panic.
func (c *Collector) RecordObserverPanic() {
	if c == nil {
		return
	}
	c.observerPanics.Inc()
}

// RecordWorkflowRun records a workflow execution outcome.
func (c *Collector) RecordWorkflowRun(ok bool) {
	if c == nil {
		return
	}
	c.workflowRuns.WithLabelValues(result(ok)).Inc()
}

// ObservePhaseDuration records one phase's execution duration.
func (c *Collector) ObservePhaseDuration(phase string, d time.Duration) {
	if c == nil {
		return
	}
	c.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}
