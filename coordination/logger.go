package coordination

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/BaSui01/coordflow/store"
	"github.com/BaSui01/coordflow/types"
	"go.uber.org/zap"
)

// TransitionLogCollection is the durable collection transition entries
// mirror into.
const TransitionLogCollection = "transition_logs"

// TransitionLogger 转换审计日志
// 本地追加永远成功；持久化镜像是尽力而为的：外部存储写入失败只记日志,
// 不影响返回值，也不影响本地日志。
type TransitionLogger struct {
	entries []*types.TransitionLogEntry
	store   store.DocumentStore
	logger  *zap.Logger
	mu      sync.RWMutex
}

// NewTransitionLogger creates a logger mirroring into the given store.
// A nil store disables the durable mirror.
func NewTransitionLogger(docStore store.DocumentStore, logger *zap.Logger) *TransitionLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransitionLogger{
		store:  docStore,
		logger: logger.With(zap.String("component", "transition_logger")),
	}
}

// LogTransition appends an audit entry for a transition attempt. The local
// append never fails; the durable mirror write is best-effort.
func (l *TransitionLogger) LogTransition(ctx context.Context, entry *types.TransitionLogEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	if l.store == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Warn("failed to serialize transition entry for durable mirror",
			zap.String("agent_id", entry.AgentID), zap.Error(err))
		return
	}

	tags := []string{"agent_state_transition", entry.AgentID, string(entry.TransitionType)}
	if !entry.Success {
		tags = append(tags, "failed_transition")
	}
	if _, err := l.store.StoreDocument(ctx, TransitionLogCollection, entry.LogID, string(data), tags); err != nil {
		// Durable mirror is a soft dependency: the local entry stands.
		l.logger.Warn("failed to mirror transition entry to durable store",
			zap.String("agent_id", entry.AgentID),
			zap.String("log_id", entry.LogID),
			zap.Error(err),
		)
	}
}

// TransitionHistory returns the chronological subsequence of entries for
// one agent.
func (l *TransitionLogger) TransitionHistory(agentID string) []*types.TransitionLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*types.TransitionLogEntry
	for _, entry := range l.entries {
		if entry.AgentID == agentID {
			out = append(out, entry)
		}
	}
	return out
}

// FailedTransitions returns every entry with Success == false.
func (l *TransitionLogger) FailedTransitions() []*types.TransitionLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*types.TransitionLogEntry
	for _, entry := range l.entries {
		if !entry.Success {
			out = append(out, entry)
		}
	}
	return out
}

// Summary returns transition counts and success rate. The rate is 0.0 when
// no transitions have been logged.
func (l *TransitionLogger) Summary() types.TransitionSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	summary := types.TransitionSummary{Total: len(l.entries)}
	for _, entry := range l.entries {
		if entry.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	if summary.Total > 0 {
		summary.SuccessRate = float64(summary.Successful) / float64(summary.Total)
	}
	return summary
}
