package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/srishtayal/nalum-sub003/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// Notifier pushes a realtime event to a user's personal room. The socket
// gateway implements it; a nil Notifier simply skips notifications.
type Notifier interface {
	NotifyUser(userID string, event string, payload interface{})
}

// ConnectionService manages connection (friend-request) records. Connections
// gate who may open a conversation.
type ConnectionService struct {
	Dynamo   DynamoAPI
	Notifier Notifier
}

func connectionKey(requester, recipient string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: models.ConnectionPK(requester)},
		"SK": &types.AttributeValueMemberS{Value: models.ConnectionSK(recipient)},
	}
}

// getDirected fetches the connection record requester->recipient, nil if absent.
func (s *ConnectionService) getDirected(ctx context.Context, requester, recipient string) (*models.Connection, error) {
	item, err := s.Dynamo.GetItem(ctx, models.ConnectionsTable, connectionKey(requester, recipient))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	var conn models.Connection
	if err := attributevalue.UnmarshalMap(item, &conn); err != nil {
		return nil, fmt.Errorf("failed to parse connection: %w", err)
	}
	return &conn, nil
}

// GetBetween returns the connection between two users regardless of which
// side requested it, nil if the pair has no record.
func (s *ConnectionService) GetBetween(ctx context.Context, userA, userB string) (*models.Connection, error) {
	conn, err := s.getDirected(ctx, userA, userB)
	if err != nil || conn != nil {
		return conn, err
	}
	return s.getDirected(ctx, userB, userA)
}

// AreConnected reports whether an accepted connection exists between the two users.
func (s *ConnectionService) AreConnected(ctx context.Context, userA, userB string) (bool, error) {
	conn, err := s.GetBetween(ctx, userA, userB)
	if err != nil {
		return false, err
	}
	return conn != nil && conn.Status == models.StatusAccepted, nil
}

// GetByID resolves a connection through the connectionId GSI.
func (s *ConnectionService) GetByID(ctx context.Context, connectionID string) (*models.Connection, error) {
	keyCondition := "#connectionId = :connectionId"
	expressionValues := map[string]types.AttributeValue{
		":connectionId": &types.AttributeValueMemberS{Value: connectionID},
	}
	expressionNames := map[string]string{"#connectionId": "connectionId"}

	items, err := s.Dynamo.QueryItemsWithIndex(ctx, models.ConnectionsTable, models.ConnectionIDIndex, keyCondition, expressionValues, expressionNames, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch connection: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}

	var conn models.Connection
	if err := attributevalue.UnmarshalMap(items[0], &conn); err != nil {
		return nil, fmt.Errorf("failed to parse connection: %w", err)
	}
	return &conn, nil
}

// SendRequest creates a pending connection request. It fails with
// ErrConflict when any record already exists between the pair, in either
// direction; the reverse ordering is checked explicitly and the forward one
// is also guarded by a conditional put so near-simultaneous duplicates lose.
func (s *ConnectionService) SendRequest(ctx context.Context, requester, recipient string, requestMessage *string) (*models.Connection, error) {
	if recipient == "" {
		return nil, fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if requester == recipient {
		return nil, fmt.Errorf("%w: cannot connect with yourself", ErrValidation)
	}
	if requestMessage != nil && len([]rune(*requestMessage)) > models.MaxRequestMessageLength {
		return nil, fmt.Errorf("%w: request message too long (max %d characters)", ErrValidation, models.MaxRequestMessageLength)
	}

	existing, err := s.GetBetween(ctx, requester, recipient)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: connection already exists with status %q", ErrConflict, existing.Status)
	}

	conn := models.Connection{
		PK:             models.ConnectionPK(requester),
		SK:             models.ConnectionSK(recipient),
		ConnectionID:   uuid.New().String(),
		Requester:      requester,
		Recipient:      recipient,
		Status:         models.StatusPending,
		RequestMessage: requestMessage,
		RequestedAt:    time.Now().UTC().Format(time.RFC3339),
	}

	err = s.Dynamo.PutItemWithCondition(ctx, models.ConnectionsTable, conn,
		"attribute_not_exists(PK) AND attribute_not_exists(SK)", nil)
	if errors.Is(err, ErrConditionFailed) {
		return nil, fmt.Errorf("%w: connection request already exists", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create connection request: %w", err)
	}

	log.Printf("✅ Connection request created: %s -> %s", requester, recipient)
	if s.Notifier != nil {
		s.Notifier.NotifyUser(recipient, "connection:request", conn)
	}
	return &conn, nil
}

// RespondToRequest accepts or rejects a pending request addressed to
// recipientID. Only the addressed recipient may respond.
func (s *ConnectionService) RespondToRequest(ctx context.Context, recipientID, connectionID, action string) (*models.Connection, error) {
	if action != "accept" && action != "reject" {
		return nil, fmt.Errorf("%w: invalid action %q", ErrValidation, action)
	}

	conn, err := s.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn.Recipient != recipientID {
		return nil, fmt.Errorf("%w: not authorized to respond to this request", ErrForbidden)
	}
	if conn.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: connection request already processed", ErrConflict)
	}

	newStatus := models.StatusAccepted
	if action == "reject" {
		newStatus = models.StatusRejected
	}

	updated, err := s.updateStatus(ctx, conn, newStatus, nil)
	if err != nil {
		return nil, err
	}

	log.Printf("🔄 Connection %s %sed by %s", connectionID, action, recipientID)
	if s.Notifier != nil {
		s.Notifier.NotifyUser(conn.Requester, "connection:update", updated)
	}
	return updated, nil
}

// CancelRequest lets the original requester withdraw a still-pending
// request. The record is hard-deleted. A recipient trying to cancel gets
// Forbidden; declining is what RespondToRequest is for.
func (s *ConnectionService) CancelRequest(ctx context.Context, requesterID, recipientID string) error {
	conn, err := s.GetBetween(ctx, requesterID, recipientID)
	if err != nil {
		return err
	}
	if conn == nil || conn.Status != models.StatusPending {
		return fmt.Errorf("%w: request not found or already processed", ErrNotFound)
	}
	if conn.Requester != requesterID {
		return fmt.Errorf("%w: only the requester may cancel", ErrForbidden)
	}

	if err := s.Dynamo.DeleteItem(ctx, models.ConnectionsTable, connectionKey(conn.Requester, conn.Recipient)); err != nil {
		return fmt.Errorf("failed to cancel request: %w", err)
	}
	log.Printf("🗑️ Connection request cancelled: %s -> %s", requesterID, recipientID)
	return nil
}

// BlockUser moves the connection to blocked, recording who blocked. Either
// participant may block, from any prior status.
func (s *ConnectionService) BlockUser(ctx context.Context, callerID, connectionID string) (*models.Connection, error) {
	conn, err := s.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !conn.Involves(callerID) {
		return nil, fmt.Errorf("%w: not authorized to block this connection", ErrForbidden)
	}
	return s.updateStatus(ctx, conn, models.StatusBlocked, &callerID)
}

// BlockUserByUserID blocks the other user given only their id, for callers
// in a chat window that never saw the connection id.
func (s *ConnectionService) BlockUserByUserID(ctx context.Context, callerID, otherID string) (*models.Connection, error) {
	conn, err := s.GetBetween(ctx, callerID, otherID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, fmt.Errorf("%w: connection not found", ErrNotFound)
	}
	return s.updateStatus(ctx, conn, models.StatusBlocked, &callerID)
}

// UnblockUser reverses a block. Only the user who blocked may unblock, and
// unblocking deletes the record entirely: a clean slate, messaging requires
// a fresh accepted request.
func (s *ConnectionService) UnblockUser(ctx context.Context, callerID, otherID string) error {
	conn, err := s.GetBetween(ctx, callerID, otherID)
	if err != nil {
		return err
	}
	if conn == nil || conn.Status != models.StatusBlocked {
		return fmt.Errorf("%w: blocked connection not found", ErrNotFound)
	}
	if conn.BlockedBy != nil && *conn.BlockedBy != callerID {
		return fmt.Errorf("%w: you cannot unblock this user", ErrForbidden)
	}

	if err := s.Dynamo.DeleteItem(ctx, models.ConnectionsTable, connectionKey(conn.Requester, conn.Recipient)); err != nil {
		return fmt.Errorf("failed to unblock: %w", err)
	}
	log.Printf("🔓 %s unblocked %s", callerID, otherID)
	return nil
}

// RemoveConnection hard-deletes an accepted connection, ending the ability
// to message until a new request is sent and accepted.
func (s *ConnectionService) RemoveConnection(ctx context.Context, callerID, connectionID string) error {
	conn, err := s.GetByID(ctx, connectionID)
	if err != nil {
		return err
	}
	if !conn.Involves(callerID) {
		return fmt.Errorf("%w: not authorized to remove this connection", ErrForbidden)
	}
	if conn.Status != models.StatusAccepted {
		return fmt.Errorf("%w: only accepted connections can be removed", ErrConflict)
	}

	if err := s.Dynamo.DeleteItem(ctx, models.ConnectionsTable, connectionKey(conn.Requester, conn.Recipient)); err != nil {
		return fmt.Errorf("failed to remove connection: %w", err)
	}
	log.Printf("🗑️ Connection removed: %s by %s", connectionID, callerID)
	return nil
}

func (s *ConnectionService) updateStatus(ctx context.Context, conn *models.Connection, newStatus string, blockedBy *string) (*models.Connection, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	updateExpression := "SET #status = :status, #respondedAt = :respondedAt"
	expressionValues := map[string]types.AttributeValue{
		":status":      &types.AttributeValueMemberS{Value: newStatus},
		":respondedAt": &types.AttributeValueMemberS{Value: now},
	}
	expressionNames := map[string]string{
		"#status":      "status",
		"#respondedAt": "respondedAt",
	}
	if blockedBy != nil {
		updateExpression += ", #blockedBy = :blockedBy"
		expressionValues[":blockedBy"] = &types.AttributeValueMemberS{Value: *blockedBy}
		expressionNames["#blockedBy"] = "blockedBy"
	}

	attrs, err := s.Dynamo.UpdateItem(ctx, models.ConnectionsTable, updateExpression,
		connectionKey(conn.Requester, conn.Recipient), expressionValues, expressionNames)
	if err != nil {
		return nil, fmt.Errorf("failed to update connection: %w", err)
	}

	var updated models.Connection
	if err := attributevalue.UnmarshalMap(attrs, &updated); err != nil {
		return nil, fmt.Errorf("failed to parse updated connection: %w", err)
	}
	return &updated, nil
}

// ListConnections returns every connection involving the user, newest first,
// optionally filtered by status. Outgoing records come off the table
// partition, incoming ones off the recipient GSI.
func (s *ConnectionService) ListConnections(ctx context.Context, userID, status string, limit int32) ([]models.Connection, error) {
	if limit <= 0 {
		limit = 20
	}

	outgoing, err := s.queryOutgoing(ctx, userID)
	if err != nil {
		return nil, err
	}
	incoming, err := s.queryIncoming(ctx, userID)
	if err != nil {
		return nil, err
	}

	connections := []models.Connection{}
	for _, conn := range append(outgoing, incoming...) {
		if status == "" || conn.Status == status {
			connections = append(connections, conn)
		}
	}

	sort.SliceStable(connections, func(i, j int) bool {
		return connections[i].RequestedAt > connections[j].RequestedAt
	})
	if int32(len(connections)) > limit {
		connections = connections[:limit]
	}

	log.Printf("✅ Found %d connections for %s", len(connections), userID)
	return connections, nil
}

// ListPending returns incoming pending requests for the user, newest first.
func (s *ConnectionService) ListPending(ctx context.Context, userID string) ([]models.Connection, error) {
	incoming, err := s.queryIncoming(ctx, userID)
	if err != nil {
		return nil, err
	}
	return filterPending(incoming), nil
}

// ListSent returns outgoing pending requests from the user, newest first.
func (s *ConnectionService) ListSent(ctx context.Context, userID string) ([]models.Connection, error) {
	outgoing, err := s.queryOutgoing(ctx, userID)
	if err != nil {
		return nil, err
	}
	return filterPending(outgoing), nil
}

func (s *ConnectionService) queryOutgoing(ctx context.Context, userID string) ([]models.Connection, error) {
	keyCondition := "PK = :user"
	expressionValues := map[string]types.AttributeValue{
		":user": &types.AttributeValueMemberS{Value: models.ConnectionPK(userID)},
	}

	items, err := s.Dynamo.QueryItems(ctx, models.ConnectionsTable, keyCondition, expressionValues, nil, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outgoing connections: %w", err)
	}
	return unmarshalConnections(items)
}

func (s *ConnectionService) queryIncoming(ctx context.Context, userID string) ([]models.Connection, error) {
	keyCondition := "#recipient = :user"
	expressionValues := map[string]types.AttributeValue{
		":user": &types.AttributeValueMemberS{Value: userID},
	}
	expressionNames := map[string]string{"#recipient": "recipient"}

	items, err := s.Dynamo.QueryItemsWithIndex(ctx, models.ConnectionsTable, models.RecipientIndex, keyCondition, expressionValues, expressionNames, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch incoming connections: %w", err)
	}
	return unmarshalConnections(items)
}

func unmarshalConnections(items []map[string]types.AttributeValue) ([]models.Connection, error) {
	var connections []models.Connection
	if err := attributevalue.UnmarshalListOfMaps(items, &connections); err != nil {
		return nil, fmt.Errorf("failed to parse connections: %w", err)
	}
	return connections, nil
}

func filterPending(connections []models.Connection) []models.Connection {
	pending := []models.Connection{}
	for _, conn := range connections {
		if conn.Status == models.StatusPending {
			pending = append(pending, conn)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].RequestedAt > pending[j].RequestedAt
	})
	return pending
}
