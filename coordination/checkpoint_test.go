package coordination

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/BaSui01/coordflow/store"
	"github.com/BaSui01/coordflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	createActiveAgent(t, s, "a1")
	createActiveAgent(t, s, "a2")
	require.True(t, s.State.TransitionAgentState(ctx, "a2", types.StatusWaiting, types.TransitionPause, types.StateData{
		"current_task": "waiting for input",
	}))

	checkpointID, err := s.Checkpoint(ctx, map[string]any{"phase": "mid-run"})
	require.NoError(t, err)
	require.NotEmpty(t, checkpointID)

	// Wipe the in-memory state, then restore.
	s.State.Clear()
	require.Zero(t, s.State.AgentCount())

	result, err := s.Restore(ctx, checkpointID)
	require.NoError(t, err)
	assert.Equal(t, checkpointID, result.CheckpointID)
	assert.Zero(t, result.Skipped)
	require.Len(t, result.Snapshots, 2)

	a1 := s.State.GetAgentState("a1")
	require.NotNil(t, a1)
	assert.Equal(t, types.StatusActive, a1.Status)

	a2 := s.State.GetAgentState("a2")
	require.NotNil(t, a2)
	assert.Equal(t, types.StatusWaiting, a2.Status)
	assert.Equal(t, "waiting for input", a2.StateData["current_task"])
}

func TestRestore_LatestWhenIDEmpty(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	createActiveAgent(t, s, "a1")
	first, err := s.Checkpoint(ctx, nil)
	require.NoError(t, err)

	createActiveAgent(t, s, "a2")
	second, err := s.Checkpoint(ctx, nil)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	result, err := s.Persistence.RestoreFromCheckpoint(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, second, result.CheckpointID)
	assert.Len(t, result.Snapshots, 2)
}

// A checkpoint with one corrupted agent entry restores the remaining agents
// and counts the skip.
func TestRestore_SkipsMalformedAgentEntry(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	createActiveAgent(t, s, "good")
	createActiveAgent(t, s, "bad")

	checkpointID, err := s.Checkpoint(ctx, nil)
	require.NoError(t, err)

	corruptCheckpointAgent(t, s.Store(), checkpointID, "bad")

	result, err := s.Persistence.RestoreFromCheckpoint(ctx, checkpointID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Snapshots, 1)
	assert.Contains(t, result.Snapshots, "good")
}

func TestRestore_SkipsUnknownStatus(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	createActiveAgent(t, s, "good")
	createActiveAgent(t, s, "weird")

	checkpointID, err := s.Checkpoint(ctx, nil)
	require.NoError(t, err)

	rewriteCheckpointAgent(t, s.Store(), checkpointID, "weird", func(raw map[string]any) {
		raw["status"] = "hibernating"
	})

	result, err := s.Persistence.RestoreFromCheckpoint(ctx, checkpointID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Contains(t, result.Snapshots, "good")
	assert.NotContains(t, result.Snapshots, "weird")
}

func TestRestore_NoCheckpointFound(t *testing.T) {
	s := newTestSession(t)

	result, err := s.Persistence.RestoreFromCheckpoint(context.Background(), "")
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestRestore_AllEntriesBadReturnsError(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	createActiveAgent(t, s, "only")
	checkpointID, err := s.Checkpoint(ctx, nil)
	require.NoError(t, err)

	corruptCheckpointAgent(t, s.Store(), checkpointID, "only")

	result, err := s.Persistence.RestoreFromCheckpoint(ctx, checkpointID)
	require.Error(t, err)
	assert.Nil(t, result)

	var coordErr *types.Error
	require.ErrorAs(t, err, &coordErr)
	assert.Equal(t, types.ErrPartialRestore, coordErr.Code)
}

func TestRestore_QueryFailure(t *testing.T) {
	pm := NewPersistenceManager(failingStore{}, "test-coordination", nil)

	result, err := pm.RestoreFromCheckpoint(context.Background(), "whatever")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestListCheckpoints(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	ids, err := s.Persistence.ListCheckpoints(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	createActiveAgent(t, s, "a1")
	first, err := s.Checkpoint(ctx, nil)
	require.NoError(t, err)
	second, err := s.Checkpoint(ctx, nil)
	require.NoError(t, err)

	ids, err = s.Persistence.ListCheckpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, ids)
}

func TestPersistCheckpoint_WriteFailure(t *testing.T) {
	pm := NewPersistenceManager(failingStore{}, "test-coordination", nil)

	_, err := pm.PersistCheckpoint(context.Background(), nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
}

// corruptCheckpointAgent rewrites the stored checkpoint so that one agent's
// entry is no longer a valid snapshot object.
func corruptCheckpointAgent(t *testing.T, docStore store.DocumentStore, checkpointID, agentID string) {
	t.Helper()
	rewriteCheckpointDoc(t, docStore, checkpointID, func(cp map[string]json.RawMessage) {
		var states map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(cp["agent_states"], &states))
		states[agentID] = json.RawMessage(`"not an object"`)
		patched, err := json.Marshal(states)
		require.NoError(t, err)
		cp["agent_states"] = patched
	})
}

// rewriteCheckpointAgent applies an in-place mutation to one agent's entry.
func rewriteCheckpointAgent(t *testing.T, docStore store.DocumentStore, checkpointID, agentID string, mutate func(map[string]any)) {
	t.Helper()
	rewriteCheckpointDoc(t, docStore, checkpointID, func(cp map[string]json.RawMessage) {
		var states map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(cp["agent_states"], &states))
		var entry map[string]any
		require.NoError(t, json.Unmarshal(states[agentID], &entry))
		mutate(entry)
		patchedEntry, err := json.Marshal(entry)
		require.NoError(t, err)
		states[agentID] = patchedEntry
		patched, err := json.Marshal(states)
		require.NoError(t, err)
		cp["agent_states"] = patched
	})
}

func rewriteCheckpointDoc(t *testing.T, docStore store.DocumentStore, checkpointID string, mutate func(map[string]json.RawMessage)) {
	t.Helper()
	ctx := context.Background()

	docs, err := docStore.QueryDocuments(ctx, CheckpointCollection, store.Filter{ID: checkpointID})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	var cp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(docs[0].Content), &cp))
	mutate(cp)
	patched, err := json.Marshal(cp)
	require.NoError(t, err)

	_, err = docStore.StoreDocument(ctx, CheckpointCollection, checkpointID, string(patched), docs[0].Tags)
	require.NoError(t, err)
}
