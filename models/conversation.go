package models

import (
	"sort"
	"strings"
)

// LastMessage is a denormalized cache of the newest message in a
// conversation, kept for chat-list rendering. It is overwritten by whichever
// send persists last and may briefly trail the Messages table.
type LastMessage struct {
	Content   string `dynamodbav:"content" json:"content"`
	Sender    string `dynamodbav:"sender" json:"sender"`
	Timestamp string `dynamodbav:"timestamp" json:"timestamp"`
}

// Conversation is a persistent thread between a fixed set of participants.
// For 1:1 threads the conversationId is the sorted participant pair joined
// with "_", which makes creation naturally idempotent under a conditional
// put. The per-user maps are only ever touched through field-path updates so
// concurrent writers cannot clobber each other's entries.
type Conversation struct {
	ConversationID string            `dynamodbav:"conversationId" json:"conversationId"`
	Participants   []string          `dynamodbav:"participants" json:"participants"`
	ParticipantA   string            `dynamodbav:"participantA" json:"-"` // GSI partition keys,
	ParticipantB   string            `dynamodbav:"participantB" json:"-"` // sorted pair
	LastMessage    *LastMessage      `dynamodbav:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	LastMessageAt  string            `dynamodbav:"lastMessageAt" json:"lastMessageAt"` // GSI sort key, creation time until first message
	LastReadBy     map[string]string `dynamodbav:"lastReadBy" json:"lastReadBy"`
	Archived       map[string]bool   `dynamodbav:"archived" json:"archived"`
	DeletedBy      map[string]bool   `dynamodbav:"deletedBy" json:"deletedBy"`
	CreatedAt      string            `dynamodbav:"createdAt" json:"createdAt"`
}

// ConversationsTable is the DynamoDB table name for conversations
const ConversationsTable = "Conversations"

// GSIs for listing a user's conversations ordered by lastMessageAt
const (
	ParticipantAIndex = "participantA-index"
	ParticipantBIndex = "participantB-index"
)

// DirectConversationID derives the deterministic id of a 1:1 conversation.
func DirectConversationID(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// DeletedFor reports whether the conversation is soft-deleted for userID.
func (c *Conversation) DeletedFor(userID string) bool {
	return c.DeletedBy[userID]
}

// ArchivedFor reports whether userID archived the conversation.
func (c *Conversation) ArchivedFor(userID string) bool {
	return c.Archived[userID]
}
