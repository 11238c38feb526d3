package types

import "fmt"

// AgentStatus 定义 Agent 生命周期状态
type AgentStatus string

const (
	StatusInitializing AgentStatus = "initializing" // Setting up, not yet doing work
	StatusActive       AgentStatus = "active"       // Executing its task
	StatusWaiting      AgentStatus = "waiting"      // Paused, waiting for input or another agent
	StatusCompleted    AgentStatus = "completed"    // Finished; can be reactivated
	StatusError        AgentStatus = "error"        // Failed; recoverable via RecoveryManager
	StatusHandoff      AgentStatus = "handoff"      // Transferring work to another agent
)

// AllStatuses lists every defined status, in declaration order.
func AllStatuses() []AgentStatus {
	return []AgentStatus{
		StatusInitializing,
		StatusActive,
		StatusWaiting,
		StatusCompleted,
		StatusError,
		StatusHandoff,
	}
}

// ParseAgentStatus maps a stored status string back to the enumeration.
// Unknown strings are rejected so checkpoint restores can skip bad records.
func ParseAgentStatus(s string) (AgentStatus, error) {
	switch AgentStatus(s) {
	case StatusInitializing, StatusActive, StatusWaiting,
		StatusCompleted, StatusError, StatusHandoff:
		return AgentStatus(s), nil
	}
	return "", fmt.Errorf("unknown agent status: %q", s)
}

// TransitionKind 转换类型标签
// 标签只是审计语义，转换是否合法完全由 (from, to) 状态对决定。
type TransitionKind string

const (
	TransitionInitialize TransitionKind = "initialize"
	TransitionActivate   TransitionKind = "activate"
	TransitionPause      TransitionKind = "pause"
	TransitionResume     TransitionKind = "resume"
	TransitionComplete   TransitionKind = "complete"
	TransitionFail       TransitionKind = "fail"
	TransitionHandoff    TransitionKind = "handoff"
	TransitionRetry      TransitionKind = "retry"
)
