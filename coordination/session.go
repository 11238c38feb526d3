package coordination

import (
	"context"

	"github.com/BaSui01/coordflow/internal/metrics"
	"github.com/BaSui01/coordflow/store"
	"github.com/BaSui01/coordflow/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionConfig configures a coordination session.
type SessionConfig struct {
	// CoordinationID correlates the session's durable writes. Generated
	// when empty.
	CoordinationID string

	// ConversationID stamps snapshots and messages. Generated when empty.
	ConversationID string

	// TaskID stamps snapshots created in this session. Optional.
	TaskID string

	// Store is the durable document store. Defaults to an in-memory store.
	Store store.DocumentStore

	// Metrics is the Prometheus collector. Nil disables metrics.
	Metrics *metrics.Collector

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Session 一次协调会话：持有全部协作者，是隔离单元。
// 不同 Session 在内存中互不共享，持久化写入以 coordination id 关联。
// 单写者约定：复合操作（转换+检查点、交接序列）由调用方串行化。
type Session struct {
	CoordinationID string
	ConversationID string

	State       *StateStore
	Observers   *ObserverHub
	Transitions *TransitionLogger
	Persistence *PersistenceManager
	Recovery    *RecoveryManager
	Broker      *MessageBroker
	Coordinator *Coordinator

	store  store.DocumentStore
	logger *zap.Logger
}

// NewSession wires up one coordination session from the config.
func NewSession(cfg SessionConfig) *Session {
	if cfg.CoordinationID == "" {
		cfg.CoordinationID = uuid.New().String()
	}
	if cfg.ConversationID == "" {
		cfg.ConversationID = uuid.New().String()
	}
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	logger := cfg.Logger.With(zap.String("coordination_id", cfg.CoordinationID))

	hub := NewObserverHub(logger)
	hub.metrics = cfg.Metrics

	tlog := NewTransitionLogger(cfg.Store, logger)

	state := NewStateStore(tlog, hub, logger)
	state.metrics = cfg.Metrics
	state.SetContextIDs(cfg.TaskID, cfg.ConversationID)

	persistence := NewPersistenceManager(cfg.Store, cfg.CoordinationID, logger)
	persistence.metrics = cfg.Metrics

	recovery := NewRecoveryManager(state, hub, logger)
	recovery.metrics = cfg.Metrics

	broker := NewMessageBroker(cfg.Store, logger)
	broker.metrics = cfg.Metrics

	coordinator := NewCoordinator(state, broker, cfg.Store, cfg.CoordinationID, logger)

	return &Session{
		CoordinationID: cfg.CoordinationID,
		ConversationID: cfg.ConversationID,
		State:          state,
		Observers:      hub,
		Transitions:    tlog,
		Persistence:    persistence,
		Recovery:       recovery,
		Broker:         broker,
		Coordinator:    coordinator,
		store:          cfg.Store,
		logger:         logger,
	}
}

// Store returns the session's durable document store.
func (s *Session) Store() store.DocumentStore {
	return s.store
}

// Checkpoint persists every current snapshot plus the given metrics.
func (s *Session) Checkpoint(ctx context.Context, performanceMetrics map[string]any) (string, error) {
	return s.Persistence.PersistCheckpoint(ctx, s.State.GetAllAgentStates(), performanceMetrics)
}

// Restore loads the checkpoint with the given id (or the latest when empty)
// and merges the recovered snapshots into the state store, overwriting
// matching agent ids.
func (s *Session) Restore(ctx context.Context, checkpointID string) (*RestoreResult, error) {
	result, err := s.Persistence.RestoreFromCheckpoint(ctx, checkpointID)
	if err != nil {
		return nil, err
	}
	s.State.RestoreSnapshots(result.Snapshots)
	return result, nil
}

// SendMessage relays a message through the broker, restricted to the
// session's registered agents, and counts it in the coordination summary.
func (s *Session) SendMessage(ctx context.Context, msg *types.AgentMessage) bool {
	if msg != nil && msg.ConversationID == "" {
		msg.ConversationID = s.ConversationID
	}
	ok := s.Broker.SendAgentMessage(ctx, msg, s.Coordinator.knownAgentSet())
	if ok {
		s.Coordinator.NoteMessageSent()
	}
	return ok
}

// Teardown removes every snapshot and observer registration. The durable
// record (logs, checkpoints, messages) is left intact.
func (s *Session) Teardown() {
	s.State.Clear()
	s.Observers.ClearAllObservers()
	s.logger.Info("session torn down")
}
