package coordination

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/coordflow/internal/metrics"
	"github.com/BaSui01/coordflow/store"
	"github.com/BaSui01/coordflow/types"
	"go.uber.org/zap"
)

// MessageCollection is the durable collection agent messages persist into.
const MessageCollection = "agent_messages"

// CommunicationTag marks every message document for retrieval.
const CommunicationTag = "agent_communication"

// MessageBroker 基于持久化存储的 Agent 间消息中继
//
// 投递语义：至少一次、尽力而为。没有确认和去重，检索是拉取式的，
// 顺序只取决于底层存储。
type MessageBroker struct {
	store   store.DocumentStore
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewMessageBroker creates a broker persisting into the given store.
func NewMessageBroker(docStore store.DocumentStore, logger *zap.Logger) *MessageBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageBroker{
		store:  docStore,
		logger: logger.With(zap.String("component", "message_broker")),
	}
}

// messageHeader renders the human-readable first line of a message document.
func messageHeader(msg *types.AgentMessage) string {
	return fmt.Sprintf("Agent Message: %s -> %s", msg.SenderAgent, msg.RecipientTag())
}

// SendAgentMessage persists the message for later retrieval. The sender
// must be a known agent; an unknown sender is rejected without a write.
// A storage failure is converted to a false return.
func (b *MessageBroker) SendAgentMessage(ctx context.Context, msg *types.AgentMessage, knownAgents map[string]bool) bool {
	if msg == nil || msg.SenderAgent == "" {
		return false
	}
	if !knownAgents[msg.SenderAgent] {
		b.metrics.RecordMessage(string(msg.MessageKind), false)
		b.logger.Warn("rejected message from unknown sender",
			zap.String("sender", msg.SenderAgent))
		return false
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		b.metrics.RecordMessage(string(msg.MessageKind), false)
		b.logger.Warn("failed to serialize message", zap.Error(err))
		return false
	}
	content := messageHeader(msg) + "\n" + string(payload)

	tags := []string{CommunicationTag, msg.SenderAgent, msg.RecipientTag()}
	if msg.TaskID != "" {
		tags = append(tags, msg.TaskID)
	}

	if _, err := b.store.StoreDocument(ctx, MessageCollection, "", content, tags); err != nil {
		b.metrics.RecordMessage(string(msg.MessageKind), false)
		b.logger.Warn("failed to persist message",
			zap.String("sender", msg.SenderAgent),
			zap.String("recipient", msg.RecipientTag()),
			zap.Error(err),
		)
		return false
	}

	b.metrics.RecordMessage(string(msg.MessageKind), true)
	b.logger.Debug("message sent",
		zap.String("sender", msg.SenderAgent),
		zap.String("recipient", msg.RecipientTag()),
		zap.String("kind", string(msg.MessageKind)),
	)
	return true
}

// RetrieveAgentMessages returns the messages addressed to the recipient.
// Use types.BroadcastRecipient to pull broadcast messages. Each document
// is parsed defensively: malformed ones are skipped, not fatal. Time
// filtering is left to the caller via FilterSince.
func (b *MessageBroker) RetrieveAgentMessages(ctx context.Context, recipient string) ([]*types.AgentMessage, error) {
	docs, err := b.store.QueryDocuments(ctx, MessageCollection, store.Filter{
		Tags: []string{CommunicationTag, recipient},
	})
	if err != nil {
		return nil, types.NewError(types.ErrStorageQuery, "message query failed").WithCause(err)
	}

	var out []*types.AgentMessage
	for _, doc := range docs {
		msg, err := parseMessageDocument(doc.Content)
		if err != nil {
			b.logger.Warn("skipping malformed message document",
				zap.String("doc_id", doc.ID), zap.Error(err))
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// parseMessageDocument splits the header line off and decodes the payload.
func parseMessageDocument(content string) (*types.AgentMessage, error) {
	_, payload, found := strings.Cut(content, "\n")
	if !found {
		return nil, fmt.Errorf("message document missing payload")
	}
	var msg types.AgentMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return nil, fmt.Errorf("message payload is malformed: %w", err)
	}
	if msg.SenderAgent == "" {
		return nil, fmt.Errorf("message payload missing sender")
	}
	return &msg, nil
}

// FilterSince returns the subset of messages stamped at or after since.
func FilterSince(messages []*types.AgentMessage, since time.Time) []*types.AgentMessage {
	var out []*types.AgentMessage
	for _, msg := range messages {
		if !msg.Timestamp.Before(since) {
			out = append(out, msg)
		}
	}
	return out
}
