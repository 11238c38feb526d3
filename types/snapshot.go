package types

import (
	"time"

	"github.com/google/uuid"
)

// StateData Agent 状态数据（应用层负载，框架不解释其内容）
type StateData map[string]any

// Clone returns a shallow copy of the data map.
func (d StateData) Clone() StateData {
	if d == nil {
		return StateData{}
	}
	out := make(StateData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// StateSnapshot 是某个 Agent 在某一时刻的完整状态记录。
// 快照一经创建不可变：每次成功的状态转换都会生成新快照替换旧快照，
// 同一 Agent 任意时刻只有一个"当前"快照。
type StateSnapshot struct {
	AgentID        string            `json:"agent_id"`
	Status         AgentStatus       `json:"status"`
	StateData      StateData         `json:"state_data"`
	Timestamp      time.Time         `json:"timestamp"`
	TaskID         string            `json:"task_id,omitempty"`
	ConversationID string            `json:"conversation_id,omitempty"`
	SnapshotID     string            `json:"snapshot_id"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// NewStateSnapshot creates a snapshot with a fresh id and timestamp.
func NewStateSnapshot(agentID string, status AgentStatus, data StateData) *StateSnapshot {
	return &StateSnapshot{
		AgentID:    agentID,
		Status:     status,
		StateData:  data.Clone(),
		Timestamp:  time.Now(),
		SnapshotID: uuid.New().String(),
		Metadata:   map[string]string{},
	}
}

// WithUpdates returns a successor snapshot: same agent, new status, the
// prior state data shallow-merged with updates, fresh id and timestamp.
// The receiver is left untouched.
func (s *StateSnapshot) WithUpdates(status AgentStatus, updates StateData) *StateSnapshot {
	next := &StateSnapshot{
		AgentID:        s.AgentID,
		Status:         status,
		StateData:      s.StateData.Clone(),
		Timestamp:      time.Now(),
		TaskID:         s.TaskID,
		ConversationID: s.ConversationID,
		SnapshotID:     uuid.New().String(),
		Metadata:       map[string]string{},
	}
	for k, v := range s.Metadata {
		next.Metadata[k] = v
	}
	for k, v := range updates {
		next.StateData[k] = v
	}
	return next
}
