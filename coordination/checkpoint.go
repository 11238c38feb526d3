package coordination

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BaSui01/coordflow/internal/metrics"
	"github.com/BaSui01/coordflow/store"
	"github.com/BaSui01/coordflow/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckpointCollection is the durable collection checkpoints persist into.
const CheckpointCollection = "checkpoints"

// PersistenceManager builds and writes whole-session checkpoints and
// reconstructs agent snapshots from them.
type PersistenceManager struct {
	store          store.DocumentStore
	coordinationID string
	metrics        *metrics.Collector
	logger         *zap.Logger
}

// NewPersistenceManager creates a manager persisting into the given store.
func NewPersistenceManager(docStore store.DocumentStore, coordinationID string, logger *zap.Logger) *PersistenceManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersistenceManager{
		store:          docStore,
		coordinationID: coordinationID,
		logger:         logger.With(zap.String("component", "persistence_manager")),
	}
}

// BuildCheckpoint assembles a checkpoint from the current snapshots and
// metrics, with a generated id and timestamp.
func (m *PersistenceManager) BuildCheckpoint(snapshots map[string]*types.StateSnapshot, performanceMetrics map[string]any) *types.Checkpoint {
	states := make(map[string]*types.StateSnapshot, len(snapshots))
	for id, snapshot := range snapshots {
		states[id] = snapshot
	}
	return &types.Checkpoint{
		CheckpointAction:   types.CheckpointAction,
		CoordinationID:     m.coordinationID,
		Timestamp:          time.Now(),
		TotalAgents:        len(states),
		AgentStates:        states,
		PerformanceMetrics: performanceMetrics,
		CheckpointID:       uuid.New().String(),
	}
}

// PersistCheckpoint serializes every current snapshot plus metrics into a
// checkpoint document and writes it to the durable store. Cache statistics
// are queried to enrich the metrics; a failure there is non-fatal. Returns
// the checkpoint id; the error reflects the store write only.
func (m *PersistenceManager) PersistCheckpoint(ctx context.Context, snapshots map[string]*types.StateSnapshot, performanceMetrics map[string]any) (string, error) {
	if performanceMetrics == nil {
		performanceMetrics = map[string]any{}
	}

	// Cache stats feed future tuning; the checkpoint stands without them.
	if stats, err := m.store.CacheStats(ctx); err != nil {
		m.logger.Debug("cache stats unavailable for checkpoint", zap.Error(err))
	} else {
		performanceMetrics["cache_stats"] = stats
	}

	cp := m.BuildCheckpoint(snapshots, performanceMetrics)

	data, err := json.Marshal(cp)
	if err != nil {
		m.metrics.RecordCheckpoint(false)
		return "", types.NewError(types.ErrStorageWrite, "failed to serialize checkpoint").WithCause(err)
	}

	tags := []string{types.CheckpointAction, m.coordinationID, cp.CheckpointID}
	if _, err := m.store.StoreDocument(ctx, CheckpointCollection, cp.CheckpointID, string(data), tags); err != nil {
		m.metrics.RecordCheckpoint(false)
		m.logger.Warn("failed to persist checkpoint",
			zap.String("checkpoint_id", cp.CheckpointID), zap.Error(err))
		return "", types.NewError(types.ErrStorageWrite, "failed to persist checkpoint").WithCause(err)
	}

	m.metrics.RecordCheckpoint(true)
	m.logger.Info("checkpoint persisted",
		zap.String("checkpoint_id", cp.CheckpointID),
		zap.Int("total_agents", cp.TotalAgents),
	)
	return cp.CheckpointID, nil
}

// RestoreResult carries the outcome of a checkpoint restore.
type RestoreResult struct {
	CheckpointID string
	Snapshots    map[string]*types.StateSnapshot
	Skipped      int
}

// RestoreFromCheckpoint reads back the checkpoint with the given id, or the
// most recent one for this session when id is empty. Each stored agent entry
// is decoded defensively: entries that fail to parse or carry an unknown
// status are skipped and counted, never fatal. Returns nil when the query
// itself failed or zero agents were recovered.
func (m *PersistenceManager) RestoreFromCheckpoint(ctx context.Context, checkpointID string) (*RestoreResult, error) {
	filter := store.Filter{Tags: []string{types.CheckpointAction, m.coordinationID}}
	if checkpointID != "" {
		filter.ID = checkpointID
	}

	docs, err := m.store.QueryDocuments(ctx, CheckpointCollection, filter)
	if err != nil {
		m.logger.Warn("checkpoint query failed", zap.Error(err))
		return nil, types.NewError(types.ErrStorageQuery, "checkpoint query failed").WithCause(err)
	}
	if len(docs) == 0 {
		return nil, types.NewError(types.ErrStorageQuery, "no checkpoint found")
	}

	// Documents come back oldest-first; the last one is the most recent.
	doc := docs[len(docs)-1]

	// Agent entries decode individually so one malformed record cannot
	// poison the whole restore.
	var cp struct {
		CheckpointID string                     `json:"checkpoint_id"`
		AgentStates  map[string]json.RawMessage `json:"agent_states"`
	}
	if err := json.Unmarshal([]byte(doc.Content), &cp); err != nil {
		return nil, types.NewError(types.ErrPartialRestore, "checkpoint document is malformed").WithCause(err)
	}

	result := &RestoreResult{
		CheckpointID: cp.CheckpointID,
		Snapshots:    make(map[string]*types.StateSnapshot),
	}
	for agentID, raw := range cp.AgentStates {
		restored, err := restoreSnapshot(agentID, raw)
		if err != nil {
			result.Skipped++
			m.logger.Warn("skipping unrecoverable agent entry",
				zap.String("agent_id", agentID), zap.Error(err))
			continue
		}
		result.Snapshots[agentID] = restored
	}

	m.metrics.RecordRestore(len(result.Snapshots), result.Skipped)

	if len(result.Snapshots) == 0 {
		return nil, types.NewError(types.ErrPartialRestore, "no agents recovered from checkpoint")
	}

	m.logger.Info("checkpoint restored",
		zap.String("checkpoint_id", result.CheckpointID),
		zap.Int("restored", len(result.Snapshots)),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// restoreSnapshot decodes and validates one stored agent entry.
func restoreSnapshot(agentID string, raw json.RawMessage) (*types.StateSnapshot, error) {
	var snapshot types.StateSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, types.NewError(types.ErrPartialRestore, "agent entry is malformed").WithCause(err)
	}
	if _, err := types.ParseAgentStatus(string(snapshot.Status)); err != nil {
		return nil, err
	}
	if snapshot.AgentID == "" {
		snapshot.AgentID = agentID
	}
	if snapshot.StateData == nil {
		snapshot.StateData = types.StateData{}
	}
	return &snapshot, nil
}

// ListCheckpoints returns this session's checkpoint ids, oldest first.
func (m *PersistenceManager) ListCheckpoints(ctx context.Context) ([]string, error) {
	docs, err := m.store.QueryDocuments(ctx, CheckpointCollection, store.Filter{
		Tags: []string{types.CheckpointAction, m.coordinationID},
	})
	if err != nil {
		return nil, types.NewError(types.ErrStorageQuery, "checkpoint query failed").WithCause(err)
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}
