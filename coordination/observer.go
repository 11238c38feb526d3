package coordination

import (
	"sync"

	"github.com/BaSui01/coordflow/internal/metrics"
	"github.com/BaSui01/coordflow/types"
	"go.uber.org/zap"
)

// StateObserver receives status-change notifications after a transition
// commits. Notifications are synchronous and in-process; a panicking
// observer is isolated and never affects the commit or other observers.
type StateObserver interface {
	OnStateChange(agentID string, from, to types.AgentStatus)
}

// ObserverFunc adapts a function to the StateObserver interface.
type ObserverFunc func(agentID string, from, to types.AgentStatus)

// OnStateChange calls the function.
func (f ObserverFunc) OnStateChange(agentID string, from, to types.AgentStatus) {
	f(agentID, from, to)
}

// ObserverHub 状态变更事件的发布/订阅中心
// 订阅分两类：绑定特定 Agent 的，和全局的（收到所有 Agent 的变更）。
// 通知顺序：先按注册顺序通知该 Agent 的订阅者，再通知全局订阅者。
type ObserverHub struct {
	agents  map[string][]StateObserver
	globals []StateObserver
	logger  *zap.Logger
	metrics *metrics.Collector
	mu      sync.RWMutex
}

// NewObserverHub creates an empty hub.
func NewObserverHub(logger *zap.Logger) *ObserverHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObserverHub{
		agents: make(map[string][]StateObserver),
		logger: logger.With(zap.String("component", "observer_hub")),
	}
}

// RegisterObserver subscribes the observer to one agent's status changes.
func (h *ObserverHub) RegisterObserver(agentID string, observer StateObserver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.agents[agentID] = append(h.agents[agentID], observer)
}

// RegisterGlobalObserver subscribes the observer to every agent's changes.
func (h *ObserverHub) RegisterGlobalObserver(observer StateObserver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.globals = append(h.globals, observer)
}

// NotifyObservers invokes, in order, the agent's observers then the global
// observers. Each invocation is isolated: a panic is recovered and logged
// and does not prevent the remaining observers from running.
func (h *ObserverHub) NotifyObservers(agentID string, from, to types.AgentStatus) {
	h.mu.RLock()
	observers := make([]StateObserver, 0, len(h.agents[agentID])+len(h.globals))
	observers = append(observers, h.agents[agentID]...)
	observers = append(observers, h.globals...)
	h.mu.RUnlock()

	for _, obs := range observers {
		h.notifyOne(obs, agentID, from, to)
	}
}

func (h *ObserverHub) notifyOne(obs StateObserver, agentID string, from, to types.AgentStatus) {
	defer func() {
		if r := recover(); r != nil {
			h.metrics.RecordObserverPanic()
			h.logger.Error("observer panicked",
				zap.String("agent_id", agentID),
				zap.String("from", string(from)),
				zap.String("to", string(to)),
				zap.Any("panic", r),
			)
		}
	}()
	obs.OnStateChange(agentID, from, to)
}

// ObserverCount returns the number of observers bound to one agent.
func (h *ObserverHub) ObserverCount(agentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.agents[agentID])
}

// GlobalObserverCount returns the number of global observers.
func (h *ObserverHub) GlobalObserverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.globals)
}

// TotalObserverCount returns the total number of registrations.
func (h *ObserverHub) TotalObserverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := len(h.globals)
	for _, obs := range h.agents {
		total += len(obs)
	}
	return total
}

// HasObservers reports whether any observer is bound to the agent.
func (h *ObserverHub) HasObservers(agentID string) bool {
	return h.ObserverCount(agentID) > 0
}

// ClearObservers removes all observers bound to one agent.
func (h *ObserverHub) ClearObservers(agentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.agents, agentID)
}

// ClearAllObservers removes every registration, per-agent and global.
func (h *ObserverHub) ClearAllObservers() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.agents = make(map[string][]StateObserver)
	h.globals = nil
}

// ObserverSummary describes the hub's registrations.
type ObserverSummary struct {
	PerAgent map[string]int `json:"per_agent"`
	Global   int            `json:"global"`
	Total    int            `json:"total"`
}

// Summary returns a full registration summary.
func (h *ObserverHub) Summary() ObserverSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	perAgent := make(map[string]int, len(h.agents))
	total := len(h.globals)
	for id, obs := range h.agents {
		perAgent[id] = len(obs)
		total += len(obs)
	}
	return ObserverSummary{
		PerAgent: perAgent,
		Global:   len(h.globals),
		Total:    total,
	}
}
