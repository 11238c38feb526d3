package coordination

import (
	"context"
	"sync/atomic"

	"github.com/BaSui01/coordflow/internal/metrics"
	"github.com/BaSui01/coordflow/types"
	"go.uber.org/zap"
)

// RecoveryManager drives agents out of the error state back toward
// initialization or activity, following only the valid error-origin edges.
type RecoveryManager struct {
	state    *StateStore
	hub      *ObserverHub
	metrics  *metrics.Collector
	logger   *zap.Logger
	attempts atomic.Int64
}

// NewRecoveryManager creates a manager operating on the given state store.
func NewRecoveryManager(state *StateStore, hub *ObserverHub, logger *zap.Logger) *RecoveryManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecoveryManager{
		state:  state,
		hub:    hub,
		logger: logger.With(zap.String("component", "recovery_manager")),
	}
}

// RecoverAgentState attempts a Retry transition into the target status.
// Only the error-origin edges are accepted: Error -> Active and
// Error -> Initializing. Anything else fails without touching the store.
func (r *RecoveryManager) RecoverAgentState(ctx context.Context, agentID string, target types.AgentStatus) bool {
	r.attempts.Add(1)

	if target != types.StatusActive && target != types.StatusInitializing {
		r.metrics.RecordRecovery(false)
		r.logger.Warn("recovery target must be active or initializing",
			zap.String("agent_id", agentID),
			zap.String("target", string(target)),
		)
		return false
	}

	ok := r.state.TransitionAgentState(ctx, agentID, target, types.TransitionRetry, types.StateData{
		"recovery": true,
	})
	r.metrics.RecordRecovery(ok)
	if ok {
		r.logger.Info("agent recovered",
			zap.String("agent_id", agentID),
			zap.String("target", string(target)),
		)
	}
	return ok
}

// RecoverToActive is the common recovery path: Error -> Active.
func (r *RecoveryManager) RecoverToActive(ctx context.Context, agentID string) bool {
	return r.RecoverAgentState(ctx, agentID, types.StatusActive)
}

// RecoveryAttempts returns the number of recovery attempts so far.
func (r *RecoveryManager) RecoveryAttempts() int64 {
	return r.attempts.Load()
}

// RegisterObserver is a convenience passthrough for recovery-triggered
// retry logic that wants to watch an agent's status.
func (r *RecoveryManager) RegisterObserver(agentID string, observer StateObserver) {
	if r.hub != nil {
		r.hub.RegisterObserver(agentID, observer)
	}
}
