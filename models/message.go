package models

// ReadReceipt records that a user has read a message.
type ReadReceipt struct {
	User   string `dynamodbav:"user" json:"user"`
	ReadAt string `dynamodbav:"readAt" json:"readAt"`
}

// Message is one entry in a conversation's append-mostly log. The table key
// is (conversationId, createdAt) so history queries page straight off the
// sort key; the messageId GSI resolves ids coming from clients back to the
// full key. ReaderIDs mirrors ReadBy as a string set so "mark read" can be a
// single conditional update that is idempotent per user.
type Message struct {
	ConversationID string        `dynamodbav:"conversationId" json:"conversationId"`
	CreatedAt      string        `dynamodbav:"createdAt" json:"createdAt"` // RFC3339Nano, sort key
	MessageID      string        `dynamodbav:"messageId" json:"messageId"`
	SenderID       string        `dynamodbav:"senderId" json:"senderId"`
	Content        string        `dynamodbav:"content" json:"content"`
	MessageType    string        `dynamodbav:"messageType" json:"messageType"` // text, system
	ReadBy         []ReadReceipt `dynamodbav:"readBy" json:"readBy"`
	ReaderIDs      []string      `dynamodbav:"readerIds,stringset" json:"-"`
	Deleted        bool          `dynamodbav:"deleted" json:"deleted"`
}

// MessagesTable is the DynamoDB table name for chat messages
const MessagesTable = "Messages"

// MessageIDIndex is the GSI for resolving a message by its id
const MessageIDIndex = "messageId-index"

// ReadByUser reports whether userID already has a read receipt.
func (m *Message) ReadByUser(userID string) bool {
	for _, id := range m.ReaderIDs {
		if id == userID {
			return true
		}
	}
	return false
}
