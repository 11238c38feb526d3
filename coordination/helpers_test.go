package coordination

import (
	"context"
	"errors"
	"testing"

	"github.com/BaSui01/coordflow/store"
	"github.com/BaSui01/coordflow/types"
	"go.uber.org/zap"
)

// newTestSession builds a memory-backed session for tests.
func newTestSession(t *testing.T) *Session {
	t.Helper()
	return NewSession(SessionConfig{
		CoordinationID: "test-coordination",
		ConversationID: "test-conversation",
		Logger:         zap.NewNop(),
	})
}

// validStateData builds a minimal valid initial payload.
func validStateData(agentID string) types.StateData {
	return types.StateData{
		"agent_id":     agentID,
		"task_scope":   []string{},
		"current_task": nil,
	}
}

// createActiveAgent creates an agent and moves it to Active.
func createActiveAgent(t *testing.T, s *Session, agentID string) {
	t.Helper()
	if err := s.State.CreateAgentState(agentID, types.StatusInitializing, validStateData(agentID)); err != nil {
		t.Fatalf("create agent %s: %v", agentID, err)
	}
	if !s.State.TransitionAgentState(context.Background(), agentID, types.StatusActive, types.TransitionActivate, nil) {
		t.Fatalf("activate agent %s", agentID)
	}
}

var errStoreDown = errors.New("store unreachable")

// failingStore is a DocumentStore double whose every call fails.
type failingStore struct{}

func (failingStore) StoreDocument(ctx context.Context, collection, id, content string, tags []string) (string, error) {
	return "", errStoreDown
}

func (failingStore) QueryDocuments(ctx context.Context, collection string, filter store.Filter) ([]*store.Document, error) {
	return nil, errStoreDown
}

func (failingStore) LinkEntities(ctx context.Context, source, target, relation string, properties map[string]any) error {
	return errStoreDown
}

func (failingStore) CacheStats(ctx context.Context) (*store.CacheStats, error) {
	return nil, errStoreDown
}

func (failingStore) Ping(ctx context.Context) error { return errStoreDown }

func (failingStore) Close() error { return nil }
