package types

import "time"

// Checkpoint 协调会话检查点：某一时刻所有 Agent 快照加性能指标的持久化快照。
// checkpoint_action 字段固定为 "state_checkpoint"，用于存储层按类型检索。
type Checkpoint struct {
	CheckpointAction   string                    `json:"checkpoint_action"`
	CoordinationID     string                    `json:"coordination_id"`
	Timestamp          time.Time                 `json:"timestamp"`
	TotalAgents        int                       `json:"total_agents"`
	AgentStates        map[string]*StateSnapshot `json:"agent_states"`
	PerformanceMetrics map[string]any            `json:"performance_metrics,omitempty"`
	CheckpointID       string                    `json:"checkpoint_id"`
}

// CheckpointAction is the fixed document discriminator for checkpoints.
const CheckpointAction = "state_checkpoint"
