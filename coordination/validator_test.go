package coordination

import (
	"testing"

	"github.com/BaSui01/coordflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// allowedPairs is the full transition table, flattened.
var allowedPairs = map[types.AgentStatus][]types.AgentStatus{
	types.StatusInitializing: {types.StatusActive, types.StatusError},
	types.StatusActive:       {types.StatusWaiting, types.StatusCompleted, types.StatusError, types.StatusHandoff},
	types.StatusWaiting:      {types.StatusActive, types.StatusError, types.StatusCompleted},
	types.StatusCompleted:    {types.StatusActive},
	types.StatusError:        {types.StatusActive, types.StatusInitializing},
	types.StatusHandoff:      {types.StatusCompleted, types.StatusActive},
}

func isAllowed(from, to types.AgentStatus) bool {
	for _, s := range allowedPairs[from] {
		if s == to {
			return true
		}
	}
	return false
}

func TestValidateTransition_AllPairs(t *testing.T) {
	// Every one of the 36 (from, to) pairs must match the table exactly.
	statuses := types.AllStatuses()
	require.Len(t, statuses, 6)

	for _, from := range statuses {
		for _, to := range statuses {
			got := ValidateTransition(from, to)
			assert.Equal(t, isAllowed(from, to), got, "%s -> %s", from, to)
		}
	}
}

func TestValidateTransition_UnknownStatus(t *testing.T) {
	assert.False(t, ValidateTransition("bogus", types.StatusActive))
	assert.False(t, ValidateTransition(types.StatusActive, "bogus"))
}

func TestValidateTransition_Property(t *testing.T) {
	statuses := types.AllStatuses()
	rapid.Check(t, func(t *rapid.T) {
		from := rapid.SampledFrom(statuses).Draw(t, "from")
		to := rapid.SampledFrom(statuses).Draw(t, "to")

		got := ValidateTransition(from, to)
		assert.Equal(t, isAllowed(from, to), got)

		// No self-loops exist in the table.
		if from == to {
			assert.False(t, got)
		}
	})
}

func TestValidateStateData(t *testing.T) {
	tests := []struct {
		name    string
		data    types.StateData
		wantErr bool
	}{
		{
			name: "valid with nil current_task",
			data: types.StateData{
				"agent_id":     "a1",
				"task_scope":   []string{},
				"current_task": nil,
			},
		},
		{
			name: "valid with string current_task",
			data: types.StateData{
				"agent_id":     "a1",
				"task_scope":   []any{"analyze"},
				"current_task": "analyze",
			},
		},
		{
			name: "valid without current_task",
			data: types.StateData{
				"agent_id":   "a1",
				"task_scope": []string{"analyze"},
			},
		},
		{
			name: "extra keys are permitted",
			data: types.StateData{
				"agent_id":   "a1",
				"task_scope": []string{},
				"extra":      42,
			},
		},
		{
			name:    "missing agent_id",
			data:    types.StateData{"task_scope": []string{}},
			wantErr: true,
		},
		{
			name:    "agent_id not a string",
			data:    types.StateData{"agent_id": 1, "task_scope": []string{}},
			wantErr: true,
		},
		{
			name:    "missing task_scope",
			data:    types.StateData{"agent_id": "a1"},
			wantErr: true,
		},
		{
			name:    "task_scope not a sequence",
			data:    types.StateData{"agent_id": "a1", "task_scope": "all"},
			wantErr: true,
		},
		{
			name: "current_task not a string",
			data: types.StateData{
				"agent_id":     "a1",
				"task_scope":   []string{},
				"current_task": 7,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStateData(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
