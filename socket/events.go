package socket

// Client -> server events
const (
	EventConversationJoin  = "conversation:join"
	EventConversationLeave = "conversation:leave"
	EventMessageSend       = "message:send"
	EventMessageRead       = "message:read"
	EventMessageDelete     = "message:delete"
	EventTypingStart       = "typing:start"
	EventTypingStop        = "typing:stop"
)

// Server -> client events
const (
	EventMessageNew         = "message:new"
	EventMessageSent        = "message:sent"
	EventMessageError       = "message:error"
	EventMessageReadAck     = "message:read"
	EventMessageDeleted     = "message:deleted"
	EventConversationUpdate = "conversation:update"
	EventTypingIndicator    = "typing:indicator"
	EventUserOnline         = "user:online"
	EventUserOffline        = "user:offline"
	EventConnectionRequest  = "connection:request"
	EventConnectionUpdate   = "connection:update"
)

// SendMessagePayload is the body of message:send. tempId is an opaque client
// token echoed back in message:sent for optimistic-UI reconciliation.
type SendMessagePayload struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	TempID         string `json:"tempId"`
}

// ReadPayload is the body of message:read. An empty MessageID means "mark
// the whole conversation read".
type ReadPayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId,omitempty"`
}

// DeletePayload is the body of message:delete.
type DeletePayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

// TypingPayload is the body of typing:start / typing:stop.
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
}

// ErrorPayload is delivered only to the connection whose event failed.
type ErrorPayload struct {
	Error string `json:"error"`
}

// MessageEnvelope wraps a message for room broadcast.
type MessageEnvelope struct {
	ConversationID string      `json:"conversationId"`
	Message        interface{} `json:"message"`
}

// SentAck confirms persistence to the originating connection only.
type SentAck struct {
	ConversationID string      `json:"conversationId"`
	Message        interface{} `json:"message"`
	TempID         string      `json:"tempId"`
}

// ConversationUpdate refreshes chat-list entries in personal rooms.
type ConversationUpdate struct {
	ConversationID string      `json:"conversationId"`
	LastMessage    interface{} `json:"lastMessage"`
	UnreadCount    int         `json:"unreadCount"`
}

// ReadBroadcast fans a read receipt out to the conversation room.
type ReadBroadcast struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	MessageID      string `json:"messageId,omitempty"`
}

// DeletedBroadcast announces a soft-deleted message to the room.
type DeletedBroadcast struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

// TypingIndicator is fanned out to the other members of the room.
type TypingIndicator struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	IsTyping       bool   `json:"isTyping"`
}

// PresencePayload announces user online/offline transitions.
type PresencePayload struct {
	UserID string `json:"userId"`
}
