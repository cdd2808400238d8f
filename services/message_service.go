package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/srishtayal/nalum-sub003/models"
	"github.com/srishtayal/nalum-sub003/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// MessageService is the append-mostly log of messages per conversation.
// Mutations after the initial put are limited to read-receipt appends and
// the soft-delete flag, each a single atomic document update.
type MessageService struct {
	Dynamo        DynamoAPI
	Conversations *ConversationService
}

func messageKey(conversationID, createdAt string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		"createdAt":      &types.AttributeValueMemberS{Value: createdAt},
	}
}

// Append validates and persists a new message, stamping the sender's own
// read receipt at creation, then refreshes the conversation's last-message
// cache. The message is the source of truth: if the cache refresh fails
// after one retry the send still counts and the cache catches up on the
// next message.
func (s *MessageService) Append(ctx context.Context, conv *models.Conversation, senderID, content string) (*models.Message, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: message content is required", ErrValidation)
	}
	if len([]rune(trimmed)) > models.MaxMessageLength {
		return nil, fmt.Errorf("%w: message too long (max %d characters)", ErrValidation, models.MaxMessageLength)
	}
	if !conv.HasParticipant(senderID) {
		return nil, fmt.Errorf("%w: not a participant of this conversation", ErrForbidden)
	}

	now := time.Now().UTC()
	message := models.Message{
		ConversationID: conv.ConversationID,
		CreatedAt:      now.Format(time.RFC3339Nano),
		MessageID:      uuid.New().String(),
		SenderID:       senderID,
		Content:        trimmed,
		MessageType:    models.MessageTypeText,
		ReadBy: []models.ReadReceipt{
			{User: senderID, ReadAt: now.Format(time.RFC3339Nano)},
		},
		ReaderIDs: []string{senderID},
		Deleted:   false,
	}

	if err := s.Dynamo.PutItem(ctx, models.MessagesTable, message); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	if err := s.Conversations.RecordLastMessage(ctx, conv, senderID, trimmed, message.CreatedAt); err != nil {
		// compensating retry; on repeated failure the denormalized cache
		// lags until the next send, which is tolerable
		if err = s.Conversations.RecordLastMessage(ctx, conv, senderID, trimmed, message.CreatedAt); err != nil {
			log.Printf("⚠️ Failed to refresh lastMessage for %s: %v", conv.ConversationID, err)
		}
	}

	log.Printf("📩 Message stored: %s in %s", message.MessageID, conv.ConversationID)
	return &message, nil
}

// List returns messages newest-first, soft-deleted ones excluded, paginated
// by an exclusive "before" cursor on createdAt.
func (s *MessageService) List(ctx context.Context, conversationID, before string, limit int32) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	keyCondition := "#conversationId = :conversationId"
	expressionValues := map[string]types.AttributeValue{
		":conversationId": &types.AttributeValueMemberS{Value: conversationID},
		":false":          &types.AttributeValueMemberBOOL{Value: false},
	}
	expressionNames := map[string]string{
		"#conversationId": "conversationId",
		"#deleted":        "deleted",
	}
	if before != "" {
		keyCondition += " AND #createdAt < :before"
		expressionValues[":before"] = &types.AttributeValueMemberS{Value: before}
		expressionNames["#createdAt"] = "createdAt"
	}

	items, err := s.Dynamo.QueryItemsWithOptions(ctx, models.MessagesTable, keyCondition,
		expressionValues, expressionNames, "#deleted = :false", limit, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	var messages []models.Message
	if err := attributevalue.UnmarshalListOfMaps(items, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse messages: %w", err)
	}

	log.Printf("✅ Found %d messages for %s", len(messages), conversationID)
	return messages, nil
}

// GetByID resolves a message through the messageId GSI.
func (s *MessageService) GetByID(ctx context.Context, messageID string) (*models.Message, error) {
	keyCondition := "#messageId = :messageId"
	expressionValues := map[string]types.AttributeValue{
		":messageId": &types.AttributeValueMemberS{Value: messageID},
	}
	expressionNames := map[string]string{"#messageId": "messageId"}

	items, err := s.Dynamo.QueryItemsWithIndex(ctx, models.MessagesTable, models.MessageIDIndex, keyCondition, expressionValues, expressionNames, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: message not found", ErrNotFound)
	}

	var message models.Message
	if err := attributevalue.UnmarshalMap(items[0], &message); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &message, nil
}

// MarkRead records read receipts for readerID. With a messageID it marks
// that one message; without, every message in the conversation not sent by
// the reader and not already read. Both paths are idempotent: the receipt
// append is guarded by a set-membership condition so a repeat call is a
// no-op, never a duplicate entry.
func (s *MessageService) MarkRead(ctx context.Context, conv *models.Conversation, readerID, messageID string) error {
	if !conv.HasParticipant(readerID) {
		return fmt.Errorf("%w: not a participant of this conversation", ErrForbidden)
	}

	if messageID != "" {
		message, err := s.GetByID(ctx, messageID)
		if err != nil {
			return err
		}
		if message.ConversationID != conv.ConversationID {
			return fmt.Errorf("%w: message not in this conversation", ErrNotFound)
		}
		return s.appendReceipt(ctx, message, readerID)
	}

	items, err := s.queryUnread(ctx, conv.ConversationID, readerID)
	if err != nil {
		return err
	}
	for _, item := range items {
		message := models.Message{
			ConversationID: conv.ConversationID,
			CreatedAt:      utils.ExtractString(item, "createdAt"),
			MessageID:      utils.ExtractString(item, "messageId"),
		}
		if message.CreatedAt == "" {
			continue
		}
		if err := s.appendReceipt(ctx, &message, readerID); err != nil {
			log.Printf("⚠️ Failed to mark message %s read: %v", message.MessageID, err)
		}
	}
	return nil
}

// appendReceipt atomically appends a read receipt unless readerID already
// has one. A lost condition means someone (possibly a concurrent call by
// the same reader) got there first, which is success.
func (s *MessageService) appendReceipt(ctx context.Context, message *models.Message, readerID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	receipt, err := attributevalue.MarshalMap(models.ReadReceipt{User: readerID, ReadAt: now})
	if err != nil {
		return fmt.Errorf("failed to marshal read receipt: %w", err)
	}

	updateExpression := "SET #readBy = list_append(#readBy, :receipt) ADD #readerIds :reader"
	conditionExpression := "NOT contains(#readerIds, :readerId)"
	expressionValues := map[string]types.AttributeValue{
		":receipt":  &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberM{Value: receipt}}},
		":reader":   &types.AttributeValueMemberSS{Value: []string{readerID}},
		":readerId": &types.AttributeValueMemberS{Value: readerID},
	}
	expressionNames := map[string]string{
		"#readBy":    "readBy",
		"#readerIds": "readerIds",
	}

	_, err = s.Dynamo.UpdateItemWithCondition(ctx, models.MessagesTable, updateExpression, conditionExpression,
		messageKey(message.ConversationID, message.CreatedAt), expressionValues, expressionNames)
	if errors.Is(err, ErrConditionFailed) {
		return nil // already read
	}
	if err != nil {
		return fmt.Errorf("failed to append read receipt: %w", err)
	}
	return nil
}

func (s *MessageService) queryUnread(ctx context.Context, conversationID, readerID string) ([]map[string]types.AttributeValue, error) {
	keyCondition := "#conversationId = :conversationId"
	filterExpression := "#senderId <> :reader AND NOT contains(#readerIds, :reader) AND #deleted = :false"
	expressionValues := map[string]types.AttributeValue{
		":conversationId": &types.AttributeValueMemberS{Value: conversationID},
		":reader":         &types.AttributeValueMemberS{Value: readerID},
		":false":          &types.AttributeValueMemberBOOL{Value: false},
	}
	expressionNames := map[string]string{
		"#conversationId": "conversationId",
		"#senderId":       "senderId",
		"#readerIds":      "readerIds",
		"#deleted":        "deleted",
	}

	items, err := s.Dynamo.QueryItemsWithOptions(ctx, models.MessagesTable, keyCondition,
		expressionValues, expressionNames, filterExpression, 100, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unread messages: %w", err)
	}
	return items, nil
}

// CountUnread is the authoritative unread count for a conversation, derived
// from the message log rather than the advisory cache.
func (s *MessageService) CountUnread(ctx context.Context, conversationID, userID string) (int, error) {
	items, err := s.queryUnread(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// SoftDelete flips the deleted flag, hiding the message from listings while
// retaining the record. Only the original sender may delete. The
// conversation's lastMessage cache is deliberately left alone; it is a
// display value that self-corrects on the next send.
func (s *MessageService) SoftDelete(ctx context.Context, requesterID, messageID string) (*models.Message, error) {
	message, err := s.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != requesterID {
		return nil, fmt.Errorf("%w: only the sender can delete this message", ErrForbidden)
	}

	updateExpression := "SET #deleted = :true"
	expressionValues := map[string]types.AttributeValue{
		":true": &types.AttributeValueMemberBOOL{Value: true},
	}
	expressionNames := map[string]string{"#deleted": "deleted"}

	_, err = s.Dynamo.UpdateItem(ctx, models.MessagesTable, updateExpression,
		messageKey(message.ConversationID, message.CreatedAt), expressionValues, expressionNames)
	if err != nil {
		return nil, fmt.Errorf("failed to delete message: %w", err)
	}

	message.Deleted = true
	log.Printf("🗑️ Message soft-deleted: %s by %s", messageID, requesterID)
	return message, nil
}
