package types

import "time"

// MessageKind Agent 间消息类型
type MessageKind string

const (
	MessageHandoff      MessageKind = "handoff"
	MessageNotification MessageKind = "notification"
	MessageRequest      MessageKind = "request"
	MessageResponse     MessageKind = "response"
)

// BroadcastRecipient tags a message that targets every agent in the session.
const BroadcastRecipient = "broadcast"

// AgentMessage Agent 间点对点或广播消息
// RecipientAgent 为空表示广播。
type AgentMessage struct {
	SenderAgent      string         `json:"sender_agent"`
	RecipientAgent   string         `json:"recipient_agent,omitempty"`
	MessageKind      MessageKind    `json:"message_kind"`
	Content          map[string]any `json:"content"`
	Timestamp        time.Time      `json:"timestamp"`
	ConversationID   string         `json:"conversation_id,omitempty"`
	TaskID           string         `json:"task_id,omitempty"`
	RequiresResponse bool           `json:"requires_response"`
}

// IsBroadcast reports whether the message has no specific recipient.
func (m *AgentMessage) IsBroadcast() bool {
	return m.RecipientAgent == ""
}

// RecipientTag returns the recipient agent id, or the broadcast tag when
// the message has no specific recipient.
func (m *AgentMessage) RecipientTag() string {
	if m.IsBroadcast() {
		return BroadcastRecipient
	}
	return m.RecipientAgent
}
