package types

import (
	"time"

	"github.com/google/uuid"
)

// TransitionLogEntry 状态转换审计记录
// 记录每一次转换尝试（无论成功与否），创建后不可修改，按创建时间排序。
type TransitionLogEntry struct {
	AgentID        string         `json:"agent_id"`
	FromStatus     AgentStatus    `json:"from_status"`
	ToStatus       AgentStatus    `json:"to_status"`
	TransitionType TransitionKind `json:"transition_type"`
	Timestamp      time.Time      `json:"timestamp"`
	Success        bool           `json:"success"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	TransitionData StateData      `json:"transition_data,omitempty"`
	LogID          string         `json:"log_id"`
}

// NewTransitionLogEntry stamps a fresh log id and timestamp.
func NewTransitionLogEntry(agentID string, from, to AgentStatus, kind TransitionKind, success bool, errMsg string, data StateData) *TransitionLogEntry {
	return &TransitionLogEntry{
		AgentID:        agentID,
		FromStatus:     from,
		ToStatus:       to,
		TransitionType: kind,
		Timestamp:      time.Now(),
		Success:        success,
		ErrorMessage:   errMsg,
		TransitionData: data.Clone(),
		LogID:          uuid.New().String(),
	}
}

// TransitionSummary 转换统计
type TransitionSummary struct {
	Total       int     `json:"total_transitions"`
	Successful  int     `json:"successful_transitions"`
	Failed      int     `json:"failed_transitions"`
	SuccessRate float64 `json:"success_rate"`
}
