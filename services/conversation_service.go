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
)

// ConversationService is the durable record of chat threads: participants,
// the denormalized last-message summary, and the per-participant
// read/archive/delete maps. Per-user map entries are only written through
// field-path updates so concurrent participants never clobber each other.
type ConversationService struct {
	Dynamo      DynamoAPI
	Connections *ConnectionService
}

func conversationKey(conversationID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"conversationId": &types.AttributeValueMemberS{Value: conversationID},
	}
}

// GetByID fetches a conversation, ErrNotFound if absent.
func (s *ConversationService) GetByID(ctx context.Context, conversationID string) (*models.Conversation, error) {
	item, err := s.Dynamo.GetItem(ctx, models.ConversationsTable, conversationKey(conversationID))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: conversation not found", ErrNotFound)
	}

	var conv models.Conversation
	if err := attributevalue.UnmarshalMap(item, &conv); err != nil {
		return nil, fmt.Errorf("failed to parse conversation: %w", err)
	}
	return &conv, nil
}

// GetForParticipant fetches a conversation and verifies membership.
func (s *ConversationService) GetForParticipant(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	conv, err := s.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: not a participant of this conversation", ErrForbidden)
	}
	return conv, nil
}

// GetOrCreate returns the 1:1 conversation between two connected users,
// creating it when absent. The deterministic id makes the conditional
// create race-free: a concurrent loser just re-reads the winner's record.
// Requires an accepted connection between the pair.
func (s *ConversationService) GetOrCreate(ctx context.Context, userA, userB string) (*models.Conversation, bool, error) {
	if userA == userB {
		return nil, false, fmt.Errorf("%w: cannot start a conversation with yourself", ErrValidation)
	}

	connected, err := s.Connections.AreConnected(ctx, userA, userB)
	if err != nil {
		return nil, false, err
	}
	if !connected {
		return nil, false, fmt.Errorf("%w: users must be connected to start a conversation", ErrForbidden)
	}

	conversationID := models.DirectConversationID(userA, userB)

	existing, err := s.GetByID(ctx, conversationID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	participants := []string{userA, userB}
	sort.Strings(participants)
	// RFC3339Nano like message createdAt; lastMessageAt must stay one
	// uniform lexicographic sort key across seed and message timestamps
	now := time.Now().UTC().Format(time.RFC3339Nano)

	conv := models.Conversation{
		ConversationID: conversationID,
		Participants:   participants,
		ParticipantA:   participants[0],
		ParticipantB:   participants[1],
		LastMessageAt:  now, // threads with no messages sort by creation time
		LastReadBy:     map[string]string{},
		Archived:       map[string]bool{},
		DeletedBy:      map[string]bool{},
		CreatedAt:      now,
	}

	err = s.Dynamo.PutItemWithCondition(ctx, models.ConversationsTable, conv,
		"attribute_not_exists(conversationId)", nil)
	if errors.Is(err, ErrConditionFailed) {
		// lost the create race; the other participant's write stands
		winner, gerr := s.GetByID(ctx, conversationID)
		return winner, false, gerr
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create conversation: %w", err)
	}

	log.Printf("✅ Conversation created: %s", conversationID)
	return &conv, true, nil
}

// ListForUser returns the user's conversations ordered by last activity,
// newest first. Threads the user soft-deleted are hidden; archived ones are
// hidden unless includeArchived is set. Message-less threads participate,
// sorted by their creation time.
func (s *ConversationService) ListForUser(ctx context.Context, userID string, includeArchived bool, limit int32) ([]models.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}

	asA, err := s.queryParticipantIndex(ctx, models.ParticipantAIndex, "participantA", userID, limit)
	if err != nil {
		return nil, err
	}
	asB, err := s.queryParticipantIndex(ctx, models.ParticipantBIndex, "participantB", userID, limit)
	if err != nil {
		return nil, err
	}

	conversations := []models.Conversation{}
	for _, conv := range append(asA, asB...) {
		if conv.DeletedFor(userID) {
			continue
		}
		if !includeArchived && conv.ArchivedFor(userID) {
			continue
		}
		conversations = append(conversations, conv)
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastMessageAt > conversations[j].LastMessageAt
	})
	if int32(len(conversations)) > limit {
		conversations = conversations[:limit]
	}

	log.Printf("✅ Found %d conversations for %s", len(conversations), userID)
	return conversations, nil
}

func (s *ConversationService) queryParticipantIndex(ctx context.Context, indexName, attrName, userID string, limit int32) ([]models.Conversation, error) {
	keyCondition := "#p = :user"
	expressionValues := map[string]types.AttributeValue{
		":user": &types.AttributeValueMemberS{Value: userID},
	}
	expressionNames := map[string]string{"#p": attrName}

	items, err := s.Dynamo.QueryItemsWithIndex(ctx, models.ConversationsTable, indexName, keyCondition, expressionValues, expressionNames, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversations: %w", err)
	}

	var conversations []models.Conversation
	if err := attributevalue.UnmarshalListOfMaps(items, &conversations); err != nil {
		return nil, fmt.Errorf("failed to parse conversations: %w", err)
	}
	return conversations, nil
}

// Archive hides the conversation in the caller's list without touching the
// other participant's view.
func (s *ConversationService) Archive(ctx context.Context, userID, conversationID string) error {
	return s.setUserFlag(ctx, userID, conversationID, "archived", true)
}

// Unarchive restores an archived conversation for the caller.
func (s *ConversationService) Unarchive(ctx context.Context, userID, conversationID string) error {
	return s.setUserFlag(ctx, userID, conversationID, "archived", false)
}

// SoftDelete hides the conversation for the caller. The record stays fully
// functional for the other participant, and a new inbound message makes it
// reappear (RecordLastMessage clears the flag).
func (s *ConversationService) SoftDelete(ctx context.Context, userID, conversationID string) error {
	return s.setUserFlag(ctx, userID, conversationID, "deletedBy", true)
}

func (s *ConversationService) setUserFlag(ctx context.Context, userID, conversationID, field string, value bool) error {
	if _, err := s.GetForParticipant(ctx, conversationID, userID); err != nil {
		return err
	}

	updateExpression := "SET #field.#uid = :val"
	expressionValues := map[string]types.AttributeValue{
		":val": &types.AttributeValueMemberBOOL{Value: value},
	}
	expressionNames := map[string]string{
		"#field": field,
		"#uid":   userID,
	}

	_, err := s.Dynamo.UpdateItem(ctx, models.ConversationsTable, updateExpression,
		conversationKey(conversationID), expressionValues, expressionNames)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return nil
}

// MarkRead stamps the caller's lastReadBy entry. Unread badges derive from
// this timestamp plus the message log, independent of per-message receipts.
func (s *ConversationService) MarkRead(ctx context.Context, userID, conversationID string, at time.Time) error {
	if _, err := s.GetForParticipant(ctx, conversationID, userID); err != nil {
		return err
	}

	updateExpression := "SET #lastReadBy.#uid = :ts"
	expressionValues := map[string]types.AttributeValue{
		":ts": &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339)},
	}
	expressionNames := map[string]string{
		"#lastReadBy": "lastReadBy",
		"#uid":        userID,
	}

	_, err := s.Dynamo.UpdateItem(ctx, models.ConversationsTable, updateExpression,
		conversationKey(conversationID), expressionValues, expressionNames)
	if err != nil {
		return fmt.Errorf("failed to mark conversation read: %w", err)
	}
	return nil
}

// RecordLastMessage refreshes the denormalized last-message cache and clears
// every participant's deletedBy flag in one atomic update, so soft-deleted
// threads reappear on new traffic. Under concurrent sends the later write
// wins; the cache may briefly trail the message log, which is acceptable for
// a display-only value.
func (s *ConversationService) RecordLastMessage(ctx context.Context, conv *models.Conversation, senderID, content, timestamp string) error {
	preview := []rune(content)
	if len(preview) > models.LastMessagePreviewLen {
		preview = preview[:models.LastMessagePreviewLen]
	}

	lastMessage, err := attributevalue.MarshalMap(models.LastMessage{
		Content:   string(preview),
		Sender:    senderID,
		Timestamp: timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal last message: %w", err)
	}

	updateExpression := "SET #lastMessage = :lm, #lastMessageAt = :ts REMOVE "
	expressionValues := map[string]types.AttributeValue{
		":lm": &types.AttributeValueMemberM{Value: lastMessage},
		":ts": &types.AttributeValueMemberS{Value: timestamp},
	}
	expressionNames := map[string]string{
		"#lastMessage":   "lastMessage",
		"#lastMessageAt": "lastMessageAt",
		"#deletedBy":     "deletedBy",
	}
	for i, participant := range conv.Participants {
		alias := fmt.Sprintf("#u%d", i)
		expressionNames[alias] = participant
		if i > 0 {
			updateExpression += ", "
		}
		updateExpression += "#deletedBy." + alias
	}

	_, err = s.Dynamo.UpdateItem(ctx, models.ConversationsTable, updateExpression,
		conversationKey(conv.ConversationID), expressionValues, expressionNames)
	if err != nil {
		return fmt.Errorf("failed to update last message: %w", err)
	}
	return nil
}
