package models

// Connection represents a friend/connection request between two users.
// Exactly one record exists per user pair, keyed by the requester side:
// PK = "USER#<requester>", SK = "CONNECTION#<recipient>". Incoming requests
// are resolved through the recipient GSI, lookups by id through the
// connectionId GSI.
type Connection struct {
	PK             string  `dynamodbav:"PK" json:"-"`                 // "USER#<requester>"
	SK             string  `dynamodbav:"SK" json:"-"`                 // "CONNECTION#<recipient>"
	ConnectionID   string  `dynamodbav:"connectionId" json:"connectionId"`
	Requester      string  `dynamodbav:"requester" json:"requester"`
	Recipient      string  `dynamodbav:"recipient" json:"recipient"`
	Status         string  `dynamodbav:"status" json:"status"` // pending, accepted, rejected, blocked
	BlockedBy      *string `dynamodbav:"blockedBy,omitempty" json:"blockedBy,omitempty"`
	RequestMessage *string `dynamodbav:"requestMessage,omitempty" json:"requestMessage,omitempty"`
	RequestedAt    string  `dynamodbav:"requestedAt" json:"requestedAt"`
	RespondedAt    *string `dynamodbav:"respondedAt,omitempty" json:"respondedAt,omitempty"`
}

// ConnectionsTable is the DynamoDB table name for connection requests
const ConnectionsTable = "Connections"

// RecipientIndex is the GSI for querying requests addressed to a user
const RecipientIndex = "recipient-index"

// ConnectionIDIndex is the GSI for resolving a connection by its id
const ConnectionIDIndex = "connectionId-index"

// ConnectionPK builds the partition key for a requester
func ConnectionPK(requester string) string {
	return "USER#" + requester
}

// ConnectionSK builds the sort key for a recipient
func ConnectionSK(recipient string) string {
	return "CONNECTION#" + recipient
}

// Other returns the participant that is not userID.
func (c *Connection) Other(userID string) string {
	if c.Requester == userID {
		return c.Recipient
	}
	return c.Requester
}

// Involves reports whether userID is one of the two participants.
func (c *Connection) Involves(userID string) bool {
	return c.Requester == userID || c.Recipient == userID
}
