package coordination

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/BaSui01/coordflow/store"
	"github.com/BaSui01/coordflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTransitionLogger_AppendAndHistory(t *testing.T) {
	tlog := NewTransitionLogger(nil, zap.NewNop())
	ctx := context.Background()

	tlog.LogTransition(ctx, types.NewTransitionLogEntry(
		"a1", types.StatusInitializing, types.StatusActive, types.TransitionActivate, true, "", nil))
	tlog.LogTransition(ctx, types.NewTransitionLogEntry(
		"a2", types.StatusActive, types.StatusCompleted, types.TransitionComplete, true, "", nil))
	tlog.LogTransition(ctx, types.NewTransitionLogEntry(
		"a1", types.StatusActive, types.StatusWaiting, types.TransitionPause, true, "", nil))

	history := tlog.TransitionHistory("a1")
	require.Len(t, history, 2)
	assert.Equal(t, types.StatusActive, history[0].ToStatus)
	assert.Equal(t, types.StatusWaiting, history[1].ToStatus)

	assert.Empty(t, tlog.TransitionHistory("unknown"))
}

func TestTransitionLogger_FailedTransitions(t *testing.T) {
	tlog := NewTransitionLogger(nil, zap.NewNop())
	ctx := context.Background()

	tlog.LogTransition(ctx, types.NewTransitionLogEntry(
		"a1", types.StatusInitializing, types.StatusActive, types.TransitionActivate, true, "", nil))
	tlog.LogTransition(ctx, types.NewTransitionLogEntry(
		"a1", types.StatusActive, types.StatusInitializing, types.TransitionRetry, false,
		"invalid state transition: active -> initializing", nil))

	failed := tlog.FailedTransitions()
	require.Len(t, failed, 1)
	assert.Equal(t, types.StatusInitializing, failed[0].ToStatus)
	assert.NotEmpty(t, failed[0].ErrorMessage)
}

func TestTransitionLogger_Summary(t *testing.T) {
	tlog := NewTransitionLogger(nil, zap.NewNop())
	ctx := context.Background()

	// Empty log reports a zero rate, not NaN.
	empty := tlog.Summary()
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.SuccessRate)

	for i := 0; i < 3; i++ {
		tlog.LogTransition(ctx, types.NewTransitionLogEntry(
			"a1", types.StatusActive, types.StatusWaiting, types.TransitionPause, true, "", nil))
	}
	tlog.LogTransition(ctx, types.NewTransitionLogEntry(
		"a1", types.StatusWaiting, types.StatusHandoff, types.TransitionHandoff, false, "rejected", nil))

	summary := tlog.Summary()
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 3, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.InDelta(t, 0.75, summary.SuccessRate, 1e-9)
}

func TestTransitionLogger_DurableMirror(t *testing.T) {
	docStore := store.NewMemoryStore()
	tlog := NewTransitionLogger(docStore, zap.NewNop())
	ctx := context.Background()

	entry := types.NewTransitionLogEntry(
		"a1", types.StatusActive, types.StatusError, types.TransitionFail, false, "boom", nil)
	tlog.LogTransition(ctx, entry)

	docs, err := docStore.QueryDocuments(ctx, TransitionLogCollection, store.Filter{
		Tags: []string{"agent_state_transition", "a1", "failed_transition"},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	var mirrored types.TransitionLogEntry
	require.NoError(t, json.Unmarshal([]byte(docs[0].Content), &mirrored))
	assert.Equal(t, entry.LogID, mirrored.LogID)
	assert.Equal(t, "boom", mirrored.ErrorMessage)
}

// A failing durable store must not lose the local entry.
func TestTransitionLogger_MirrorFailureIsSoft(t *testing.T) {
	tlog := NewTransitionLogger(failingStore{}, zap.NewNop())
	ctx := context.Background()

	tlog.LogTransition(ctx, types.NewTransitionLogEntry(
		"a1", types.StatusInitializing, types.StatusActive, types.TransitionActivate, true, "", nil))

	assert.Len(t, tlog.TransitionHistory("a1"), 1)
	assert.Equal(t, 1, tlog.Summary().Total)
}
