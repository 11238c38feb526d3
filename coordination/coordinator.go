package coordination

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/BaSui01/coordflow/store"
	"github.com/BaSui01/coordflow/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Durable collections owned by the coordinator.
const (
	RegistrationCollection = "agent_registrations"
	HandoffCollection      = "handoff_records"
)

// AgentRegistration describes one participating agent's role in a session.
type AgentRegistration struct {
	AgentID         string    `json:"agent_id"`
	AgentType       string    `json:"agent_type"`
	TaskScope       []string  `json:"task_scope"`
	ExpectedOutputs []string  `json:"expected_outputs,omitempty"`
	RegisteredAt    time.Time `json:"registered_at"`
}

// CoordinationSummary aggregates session-level counts.
type CoordinationSummary struct {
	CoordinationID   string         `json:"coordination_id"`
	RegisteredAgents int            `json:"registered_agents"`
	MessagesSent     int            `json:"messages_sent"`
	Handoffs         int            `json:"handoffs"`
	AgentsByStatus   map[string]int `json:"agents_by_status"`
}

// Coordinator registers participating agents, orchestrates handoffs between
// them, and aggregates session summaries.
type Coordinator struct {
	state          *StateStore
	broker         *MessageBroker
	store          store.DocumentStore
	coordinationID string
	logger         *zap.Logger

	registered map[string]*AgentRegistration
	messages   int
	handoffs   int
	mu         sync.RWMutex
}

// NewCoordinator creates a coordinator over the given collaborators.
func NewCoordinator(state *StateStore, broker *MessageBroker, docStore store.DocumentStore, coordinationID string, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		state:          state,
		broker:         broker,
		store:          docStore,
		coordinationID: coordinationID,
		logger:         logger.With(zap.String("component", "coordinator")),
		registered:     make(map[string]*AgentRegistration),
	}
}

// RegisterAgent records a participating agent. Duplicate ids are rejected.
// The registration is written to the durable store and an entity link
// describing the agent's role is recorded; the local registration stands
// even when the durable writes fail.
func (c *Coordinator) RegisterAgent(ctx context.Context, reg *AgentRegistration) bool {
	if reg == nil || reg.AgentID == "" {
		return false
	}

	c.mu.Lock()
	if _, exists := c.registered[reg.AgentID]; exists {
		c.mu.Unlock()
		c.logger.Warn("duplicate agent registration rejected",
			zap.String("agent_id", reg.AgentID))
		return false
	}
	if reg.RegisteredAt.IsZero() {
		reg.RegisteredAt = time.Now()
	}
	c.registered[reg.AgentID] = reg
	c.mu.Unlock()

	ok := true
	data, err := json.Marshal(reg)
	if err != nil {
		ok = false
	} else {
		tags := []string{"agent_registration", reg.AgentID, reg.AgentType}
		if _, err := c.store.StoreDocument(ctx, RegistrationCollection, "", string(data), tags); err != nil {
			c.logger.Warn("failed to persist agent registration",
				zap.String("agent_id", reg.AgentID), zap.Error(err))
			ok = false
		}
	}

	if err := c.store.LinkEntities(ctx, reg.AgentID, c.coordinationID, "participates_in", map[string]any{
		"agent_type": reg.AgentType,
		"task_scope": reg.TaskScope,
	}); err != nil {
		c.logger.Warn("failed to link agent role",
			zap.String("agent_id", reg.AgentID), zap.Error(err))
		ok = false
	}

	c.logger.Info("agent registered",
		zap.String("agent_id", reg.AgentID),
		zap.String("agent_type", reg.AgentType),
	)
	return ok
}

// IsRegistered reports whether the agent id is known to this session.
func (c *Coordinator) IsRegistered(agentID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.registered[agentID]
	return ok
}

// Registration returns the agent's registration, or nil when unknown.
func (c *Coordinator) Registration(agentID string) *AgentRegistration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registered[agentID]
}

// RegisteredAgents returns the ids of every registered agent.
func (c *Coordinator) RegisteredAgents() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.registered))
	for id := range c.registered {
		out = append(out, id)
	}
	return out
}

// knownAgentSet snapshots the registration set for the broker.
func (c *Coordinator) knownAgentSet() map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	known := make(map[string]bool, len(c.registered))
	for id := range c.registered {
		known[id] = true
	}
	return known
}

// CoordinateAgentHandoff transfers work from one agent to another: the
// sender transitions to Handoff, the handoff data is delivered as a message
// to the recipient, and the handoff is recorded for audit. Fails fast when
// either agent is unregistered or the transition is invalid.
func (c *Coordinator) CoordinateAgentHandoff(ctx context.Context, fromAgent, toAgent string, handoffData map[string]any) bool {
	if !c.IsRegistered(fromAgent) || !c.IsRegistered(toAgent) {
		c.logger.Warn("handoff between unregistered agents rejected",
			zap.String("from", fromAgent),
			zap.String("to", toAgent),
		)
		return false
	}

	if !c.state.TransitionAgentState(ctx, fromAgent, types.StatusHandoff, types.TransitionHandoff, types.StateData{
		"handoff_to": toAgent,
	}) {
		return false
	}

	msg := &types.AgentMessage{
		SenderAgent:    fromAgent,
		RecipientAgent: toAgent,
		MessageKind:    types.MessageHandoff,
		Content:        handoffData,
		Timestamp:      time.Now(),
	}
	if snapshot := c.state.GetAgentState(fromAgent); snapshot != nil {
		msg.TaskID = snapshot.TaskID
		msg.ConversationID = snapshot.ConversationID
	}
	if !c.broker.SendAgentMessage(ctx, msg, c.knownAgentSet()) {
		return false
	}

	c.mu.Lock()
	c.messages++
	c.handoffs++
	c.mu.Unlock()

	c.recordHandoff(ctx, fromAgent, toAgent, handoffData)

	c.logger.Info("handoff coordinated",
		zap.String("from", fromAgent),
		zap.String("to", toAgent),
	)
	return true
}

// recordHandoff writes the audit document and graph edge. Best-effort.
func (c *Coordinator) recordHandoff(ctx context.Context, fromAgent, toAgent string, handoffData map[string]any) {
	record := map[string]any{
		"handoff_id":      uuid.New().String(),
		"coordination_id": c.coordinationID,
		"from_agent":      fromAgent,
		"to_agent":        toAgent,
		"handoff_data":    handoffData,
		"timestamp":       time.Now(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	tags := []string{"agent_handoff", fromAgent, toAgent}
	if _, err := c.store.StoreDocument(ctx, HandoffCollection, "", string(data), tags); err != nil {
		c.logger.Warn("failed to persist handoff record", zap.Error(err))
	}
	if err := c.store.LinkEntities(ctx, fromAgent, toAgent, "handoff_to", map[string]any{
		"coordination_id": c.coordinationID,
	}); err != nil {
		c.logger.Warn("failed to link handoff edge", zap.Error(err))
	}
}

// NoteMessageSent bumps the session message counter for sends performed
// directly through the broker.
func (c *Coordinator) NoteMessageSent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages++
}

// Summary returns aggregate counts for the session.
func (c *Coordinator) Summary() CoordinationSummary {
	c.mu.RLock()
	registered := len(c.registered)
	messages := c.messages
	handoffs := c.handoffs
	c.mu.RUnlock()

	byStatus := make(map[string]int)
	for _, snapshot := range c.state.GetAllAgentStates() {
		byStatus[string(snapshot.Status)]++
	}

	return CoordinationSummary{
		CoordinationID:   c.coordinationID,
		RegisteredAgents: registered,
		MessagesSent:     messages,
		Handoffs:         handoffs,
		AgentsByStatus:   byStatus,
	}
}
