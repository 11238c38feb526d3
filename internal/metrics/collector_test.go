package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector

	require.NotPanics(t, func() {
		c.RecordTransition("active", "waiting", true)
		c.RecordRecovery(false)
		c.RecordCheckpoint(true)
		c.RecordRestore(3, 1)
		c.RecordMessage("handoff", true)
		c.RecordObserverPanic()
		c.RecordWorkflowRun(false)
		c.ObservePhaseDuration("completion", time.Second)
	})
}

func TestRecordTransition(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("test", reg)

	c.RecordTransition("initializing", "active", true)
	c.RecordTransition("initializing", "active", true)
	c.RecordTransition("completed", "waiting", false)

	assert.Equal(t, float64(2), testutil.ToFloat64(
		c.transitionsTotal.WithLabelValues("initializing", "active", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.transitionsTotal.WithLabelValues("completed", "waiting", "failure")))

	// Failed transitions also count as validation errors.
	assert.Equal(t, float64(1), testutil.ToFloat64(c.validationErrors))
}

func TestRecordCheckpointAndRestore(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("test", reg)

	c.RecordCheckpoint(true)
	c.RecordCheckpoint(false)
	c.RecordRestore(4, 2)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.checkpointsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.checkpointsTotal.WithLabelValues("failure")))
	assert.Equal(t, float64(4), testutil.ToFloat64(c.agentsRestored))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.agentsSkipped))
}

func TestRecordMessagesRecoveriesAndPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("test", reg)

	c.RecordMessage("handoff", true)
	c.RecordMessage("notification", false)
	c.RecordRecovery(true)
	c.RecordObserverPanic()
	c.RecordWorkflowRun(true)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.messagesTotal.WithLabelValues("handoff", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.messagesTotal.WithLabelValues("notification", "failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.recoveryAttempts.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.observerPanics))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.workflowRuns.WithLabelValues("success")))
}

func TestMetricsAreRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("coordflow", reg)

	c.RecordTransition("active", "completed", true)
	c.ObservePhaseDuration("completion", 50*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["coordflow_agent_state_transitions_total"])
	assert.True(t, names["coordflow_workflow_phase_duration_seconds"])
}
