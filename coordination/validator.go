package coordination

import (
	"fmt"

	"github.com/BaSui01/coordflow/types"
)

// validTransitions 定义合法的状态转换
// Completed 和 Error 都有出边：已完成的 Agent 可以被重新激活，
// 出错的 Agent 可以通过 RecoveryManager 恢复。
var validTransitions = map[types.AgentStatus][]types.AgentStatus{
	types.StatusInitializing: {types.StatusActive, types.StatusError},
	types.StatusActive:       {types.StatusWaiting, types.StatusCompleted, types.StatusError, types.StatusHandoff},
	types.StatusWaiting:      {types.StatusActive, types.StatusError, types.StatusCompleted},
	types.StatusCompleted:    {types.StatusActive},                         // 支持重新调度
	types.StatusError:        {types.StatusActive, types.StatusInitializing}, // 支持重试或重置
	types.StatusHandoff:      {types.StatusCompleted, types.StatusActive},
}

// ValidateTransition 检查状态转换是否合法
// 纯查表，无副作用；不在表中的 (from, to) 对一律返回 false。
func ValidateTransition(from, to types.AgentStatus) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition 非法状态转换错误
type ErrInvalidTransition struct {
	From types.AgentStatus
	To   types.AgentStatus
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}

// ValidateStateData checks the shape of an agent's initial state data.
// Required: "agent_id" (string) and "task_scope" (a sequence). "current_task"
// may be absent or nil, but must be a string when present. All other keys
// are permitted and ignored.
func ValidateStateData(data types.StateData) error {
	agentID, ok := data["agent_id"]
	if !ok {
		return types.NewError(types.ErrInvalidStateData, "state data missing agent_id")
	}
	if _, ok := agentID.(string); !ok {
		return types.NewError(types.ErrInvalidStateData, "agent_id must be a string")
	}

	scope, ok := data["task_scope"]
	if !ok {
		return types.NewError(types.ErrInvalidStateData, "state data missing task_scope")
	}
	switch scope.(type) {
	case []string, []any:
	default:
		return types.NewError(types.ErrInvalidStateData, "task_scope must be a sequence")
	}

	if task, ok := data["current_task"]; ok && task != nil {
		if _, ok := task.(string); !ok {
			return types.NewError(types.ErrInvalidStateData, "current_task must be a string when present")
		}
	}
	return nil
}
