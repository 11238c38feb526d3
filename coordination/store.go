package coordination

import (
	"context"
	"sync"

	"github.com/BaSui01/coordflow/internal/metrics"
	"github.com/BaSui01/coordflow/types"
	"go.uber.org/zap"
)

// StateStore 持有每个 Agent 的当前状态快照并应用经过校验的转换。
// 快照替换、审计日志追加和观察者通知都发生在一次 TransitionAgentState
// 调用里；观察者只在转换提交之后收到通知，被拒绝的转换只留审计记录。
type StateStore struct {
	snapshots map[string]*types.StateSnapshot
	tlog      *TransitionLogger
	observers *ObserverHub
	metrics   *metrics.Collector
	logger    *zap.Logger

	taskID         string
	conversationID string

	mu sync.RWMutex
}

// NewStateStore creates a store wired to the given audit log and observer
// hub. Either collaborator may be nil, which disables it.
func NewStateStore(tlog *TransitionLogger, observers *ObserverHub, logger *zap.Logger) *StateStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateStore{
		snapshots: make(map[string]*types.StateSnapshot),
		tlog:      tlog,
		observers: observers,
		logger:    logger.With(zap.String("component", "state_store")),
	}
}

// SetContextIDs sets the task and conversation ids stamped on new snapshots.
func (s *StateStore) SetContextIDs(taskID, conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taskID = taskID
	s.conversationID = conversationID
}

// CreateAgentState validates the initial data and stores the agent's first
// snapshot. It fails without mutating anything when the data is malformed
// or the agent already exists.
func (s *StateStore) CreateAgentState(agentID string, initial types.AgentStatus, data types.StateData) error {
	if err := ValidateStateData(data); err != nil {
		s.logger.Warn("rejected agent state creation",
			zap.String("agent_id", agentID), zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.snapshots[agentID]; exists {
		return types.NewError(types.ErrAgentExists, "agent already has a state snapshot: "+agentID)
	}

	snapshot := types.NewStateSnapshot(agentID, initial, data)
	snapshot.TaskID = s.taskID
	snapshot.ConversationID = s.conversationID
	s.snapshots[agentID] = snapshot

	s.logger.Info("agent state created",
		zap.String("agent_id", agentID),
		zap.String("status", string(initial)),
		zap.String("snapshot_id", snapshot.SnapshotID),
	)
	return nil
}

// TransitionAgentState attempts to move the agent to a new status.
//
// On success it shallow-merges updates into the prior state data, replaces
// the snapshot, appends a successful audit entry, and notifies observers
// with (agentID, old, new). On a rejected transition it appends a failed
// audit entry and leaves the snapshot untouched; observers are not
// notified. An unknown agent returns false with no audit entry.
func (s *StateStore) TransitionAgentState(ctx context.Context, agentID string, to types.AgentStatus, kind types.TransitionKind, updates types.StateData) bool {
	s.mu.Lock()

	current, ok := s.snapshots[agentID]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("transition for unknown agent", zap.String("agent_id", agentID))
		return false
	}

	from := current.Status
	if !ValidateTransition(from, to) {
		s.mu.Unlock()
		if s.tlog != nil {
			s.tlog.LogTransition(ctx, types.NewTransitionLogEntry(
				agentID, from, to, kind, false,
				ErrInvalidTransition{From: from, To: to}.Error(), updates))
		}
		s.metrics.RecordTransition(string(from), string(to), false)
		s.logger.Warn("rejected invalid transition",
			zap.String("agent_id", agentID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return false
	}

	next := current.WithUpdates(to, updates)
	s.snapshots[agentID] = next
	s.mu.Unlock()

	if s.tlog != nil {
		s.tlog.LogTransition(ctx, types.NewTransitionLogEntry(
			agentID, from, to, kind, true, "", updates))
	}
	if s.observers != nil {
		s.observers.NotifyObservers(agentID, from, to)
	}
	s.metrics.RecordTransition(string(from), string(to), true)

	s.logger.Info("state transition",
		zap.String("agent_id", agentID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("kind", string(kind)),
	)
	return true
}

// GetAgentState returns the agent's current snapshot, or nil when unknown.
func (s *StateStore) GetAgentState(agentID string) *types.StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshots[agentID]
}

// GetAllAgentStates returns a copy of the current snapshot map.
func (s *StateStore) GetAllAgentStates() map[string]*types.StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*types.StateSnapshot, len(s.snapshots))
	for id, snapshot := range s.snapshots {
		out[id] = snapshot
	}
	return out
}

// GetAgentsByStatus returns the ids of agents currently in the status.
func (s *StateStore) GetAgentsByStatus(status types.AgentStatus) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for id, snapshot := range s.snapshots {
		if snapshot.Status == status {
			out = append(out, id)
		}
	}
	return out
}

// RestoreSnapshots merges restored snapshots into the store, overwriting
// matching agent ids. Used by the persistence manager after a checkpoint
// restore.
func (s *StateStore) RestoreSnapshots(snapshots map[string]*types.StateSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, snapshot := range snapshots {
		s.snapshots[id] = snapshot
	}
}

// RemoveAgentState deletes the agent's snapshot. Session teardown only.
func (s *StateStore) RemoveAgentState(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, agentID)
}

// Clear removes every snapshot. Session teardown only.
func (s *StateStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = make(map[string]*types.StateSnapshot)
}

// AgentCount returns the number of tracked agents.
func (s *StateStore) AgentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}
