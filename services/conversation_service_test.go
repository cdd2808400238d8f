package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/srishtayal/nalum-sub003/models"
	"github.com/srishtayal/nalum-sub003/services"
)

func acceptedConnection(t *testing.T, mockDynamo *MockDynamoAPI, userA, userB string) {
	t.Helper()
	conn := pendingConnection(userA, userB, "conn-1")
	conn.Status = models.StatusAccepted
	mockDynamo.On("GetItem", mock.Anything, models.ConnectionsTable, connKey(userA, userB)).Return(marshalItem(t, conn), nil)
}

func conversationBetween(userA, userB string) models.Conversation {
	participants := []string{userA, userB}
	if participants[0] > participants[1] {
		participants[0], participants[1] = participants[1], participants[0]
	}
	return models.Conversation{
		ConversationID: models.DirectConversationID(userA, userB),
		Participants:   participants,
		ParticipantA:   participants[0],
		ParticipantB:   participants[1],
		LastMessageAt:  "2026-08-01T10:00:00Z",
		LastReadBy:     map[string]string{},
		Archived:       map[string]bool{},
		DeletedBy:      map[string]bool{},
		CreatedAt:      "2026-08-01T10:00:00Z",
	}
}

func TestDirectConversationID(t *testing.T) {
	// order-insensitive and deterministic
	assert.Equal(t, models.DirectConversationID("alice", "bob"), models.DirectConversationID("bob", "alice"))
	assert.Equal(t, "alice_bob", models.DirectConversationID("bob", "alice"))
}

func TestGetOrCreate(t *testing.T) {
	t.Run("RequiresAcceptedConnection", func(t *testing.T) {
		mockDynamo := new(MockDynamoAPI)
		svc := &services.ConversationService{
			Dynamo:      mockDynamo,
			Connections: &services.ConnectionService{Dynamo: mockDynamo},
		}

		mockDynamo.On("GetItem", mock.Anything, models.ConnectionsTable, mock.Anything).Return(nil, nil)

		_, _, err := svc.GetOrCreate(context.Background(), "alice", "bob")
		assert.ErrorIs(t, err, services.ErrForbidden)
		mockDynamo.AssertNotCalled(t, "PutItemWithCondition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("PendingConnectionNotEnough", func(t *testing.T) {
		mockDynamo := new(MockDynamoAPI)
		svc := &services.ConversationService{
			Dynamo:      mockDynamo,
			Connections: &services.ConnectionService{Dynamo: mockDynamo},
		}

		conn := pendingConnection("alice", "bob", "conn-1")
		mockDynamo.On("GetItem", mock.Anything, models.ConnectionsTable, connKey("alice", "bob")).Return(marshalItem(t, conn), nil)

		_, _, err := svc.GetOrCreate(context.Background(), "alice", "bob")
		assert.ErrorIs(t, err, services.ErrForbidden)
	})

	t.Run("CreatesWithDeterministicID", func(t *testing.T) {
		mockDynamo := new(MockDynamoAPI)
		svc := &services.ConversationService{
			Dynamo:      mockDynamo,
			Connections: &services.ConnectionService{Dynamo: mockDynamo},
		}

		mockDynamo.On("GetItem", mock.Anything, models.ConnectionsTable, connKey("bob", "alice")).Return(nil, nil)
		acceptedConnection(t, mockDynamo, "alice", "bob")
		mockDynamo.On("GetItem", mock.Anything, models.ConversationsTable, convKey("alice_bob")).Return(nil, nil)
		mockDynamo.On("PutItemWithCondition", mock.Anything, models.ConversationsTable, mock.MatchedBy(func(c models.Conversation) bool {
			return c.ConversationID == "alice_bob" && c.ParticipantA == "alice" && c.ParticipantB == "bob"
		}), "attribute_not_exists(conversationId)", mock.Anything).Return(nil)

		conv, created, err := svc.GetOrCreate(context.Background(), "bob", "alice")
		assert.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "alice_bob", conv.ConversationID)
		assert.Equal(t, []string{"alice", "bob"}, conv.Participants)
	})

	t.Run("SeedSortsAgainstMessageTimestamps", func(t *testing.T) {
		mockDynamo := new(MockDynamoAPI)
		svc := &services.ConversationService{
			Dynamo:      mockDynamo,
			Connections: &services.ConnectionService{Dynamo: mockDynamo},
		}

		acceptedConnection(t, mockDynamo, "alice", "bob")
		mockDynamo.On("GetItem", mock.Anything, models.ConversationsTable, convKey("alice_bob")).Return(nil, nil)
		mockDynamo.On("PutItemWithCondition", mock.Anything, models.ConversationsTable, mock.Anything,
			mock.Anything, mock.Anything).Return(nil)

		conv, _, err := svc.GetOrCreate(context.Background(), "alice", "bob")
		assert.NoError(t, err)

		// lastMessageAt is one lexicographic sort key; the creation seed
		// must order correctly against sub-second message timestamps
		seeded, err := time.Parse(time.RFC3339Nano, conv.LastMessageAt)
		assert.NoError(t, err)
		later := seeded.Add(500 * time.Millisecond).Format(time.RFC3339Nano)
		assert.Less(t, conv.LastMessageAt, later)
		assert.Equal(t, conv.CreatedAt, conv.LastMessageAt)
	})

	t.Run("ReturnsExistingWithoutCreate", func(t *testing.T) {
		mockDynamo := new(MockDynamoAPI)
		svc := &services.ConversationService{
			Dynamo:      mockDynamo,
			Connections: &services.ConnectionService{Dynamo: mockDynamo},
		}

		acceptedConnection(t, mockDynamo, "alice", "bob")
		existing := conversationBetween("alice", "bob")
		mockDynamo.On("GetItem", mock.Anything, models.ConversationsTable, convKey("alice_bob")).Return(marshalItem(t, existing), nil)

		conv, created, err := svc.GetOrCreate(context.Background(), "alice", "bob")
		assert.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "alice_bob", conv.ConversationID)
		mockDynamo.AssertNotCalled(t, "PutItemWithCondition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("LostRaceReReadsWinner", func(t *testing.T) {
		mockDynamo := new(MockDynamoAPI)
		svc := &services.ConversationService{
			Dynamo:      mockDynamo,
			Connections: &services.ConnectionService{Dynamo: mockDynamo},
		}

		acceptedConnection(t, mockDynamo, "alice", "bob")
		winner := conversationBetween("alice", "bob")
		mockDynamo.On("GetItem", mock.Anything, models.ConversationsTable, convKey("alice_bob")).Return(nil, nil).Once()
		mockDynamo.On("PutItemWithCondition", mock.Anything, models.ConversationsTable, mock.Anything,
			mock.Anything, mock.Anything).Return(services.ErrConditionFailed)
		mockDynamo.On("GetItem", mock.Anything, models.ConversationsTable, convKey("alice_bob")).Return(marshalItem(t, winner), nil).Once()

		conv, created, err := svc.GetOrCreate(context.Background(), "alice", "bob")
		assert.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "alice_bob", conv.ConversationID)
	})

	t.Run("SelfConversation", func(t *testing.T) {
		svc := &services.ConversationService{
			Dynamo:      new(MockDynamoAPI),
			Connections: &services.ConnectionService{Dynamo: new(MockDynamoAPI)},
		}

		_, _, err := svc.GetOrCreate(context.Background(), "alice", "alice")
		assert.ErrorIs(t, err, services.ErrValidation)
	})
}

func TestGetForParticipant(t *testing.T) {
	mockDynamo := new(MockDynamoAPI)
	svc := &services.ConversationService{Dynamo: mockDynamo}

	conv := conversationBetween("alice", "bob")
	mockDynamo.On("GetItem", mock.Anything, models.ConversationsTable, convKey("alice_bob")).Return(marshalItem(t, conv), nil)

	t.Run("Participant", func(t *testing.T) {
		got, err := svc.GetForParticipant(context.Background(), "alice_bob", "alice")
		assert.NoError(t, err)
		assert.Equal(t, "alice_bob", got.ConversationID)
	})

	t.Run("Outsider", func(t *testing.T) {
		_, err := svc.GetForParticipant(context.Background(), "alice_bob", "mallory")
		assert.ErrorIs(t, err, services.ErrForbidden)
	})

	t.Run("Missing", func(t *testing.T) {
		mockDynamo.On("GetItem", mock.Anything, models.ConversationsTable, convKey("nope")).Return(nil, nil)

		_, err := svc.GetForParticipant(context.Background(), "nope", "alice")
		assert.ErrorIs(t, err, services.ErrNotFound)
	})
}

func TestListForUser(t *testing.T) {
	t.Run("HidesDeletedAndArchived", func(t *testing.T) {
		mockDynamo := new(MockDynamoAPI)
		svc := &services.ConversationService{Dynamo: mockDynamo}

		active := conversationBetween("alice", "bob")
		active.LastMessageAt = "2026-08-05T10:00:00Z"

		archived := conversationBetween("alice", "carol")
		archived.Archived = map[string]bool{"alice": true}
		archived.LastMessageAt = "2026-08-06T10:00:00Z"

		deleted := conversationBetween("alice", "dave")
		deleted.DeletedBy = map[string]bool{"alice": true}

		mockDynamo.On("QueryItemsWithIndex", mock.Anything, models.ConversationsTable, models.ParticipantAIndex,
			mock.Anything, mock.Anything, mock.Anything, int32(20)).Return(itemList(t, active, archived, deleted), nil)
		mockDynamo.On("QueryItemsWithIndex", mock.Anything, models.ConversationsTable, models.ParticipantBIndex,
			mock.Anything, mock.Anything, mock.Anything, int32(20)).Return(emptyItemList(), nil)

		conversations, err := svc.ListForUser(context.Background(), "alice", false, 20)
		assert.NoError(t, err)
		assert.Len(t, conversations, 1)
		assert.Equal(t, "alice_bob", conversations[0].ConversationID)

		withArchived, err := svc.ListForUser(context.Background(), "alice", true, 20)
		assert.NoError(t, err)
		assert.Len(t, withArchived, 2)
		// archived thread had later activity, so it leads
		assert.Equal(t, "alice_carol", withArchived[0].ConversationID)
	})

	t.Run("OrdersByLastActivity", func(t *testing.T) {
		mockDynamo := new(MockDynamoAPI)
		svc := &services.ConversationService{Dynamo: mockDynamo}

		older := conversationBetween("alice", "bob")
		older.LastMessageAt = "2026-08-01T10:00:00Z"
		newer := conversationBetween("alice", "carol")
		newer.LastMessageAt = "2026-08-04T10:00:00Z"

		mockDynamo.On("QueryItemsWithIndex", mock.Anything, models.ConversationsTable, models.ParticipantAIndex,
			mock.Anything, mock.Anything, mock.Anything, int32(20)).Return(itemList(t, older), nil)
		mockDynamo.On("QueryItemsWithIndex", mock.Anything, models.ConversationsTable, models.ParticipantBIndex,
			mock.Anything, mock.Anything, mock.Anything, int32(20)).Return(itemList(t, newer), nil)

		conversations, err := svc.ListForUser(context.Background(), "alice", false, 20)
		assert.NoError(t, err)
		assert.Len(t, conversations, 2)
		assert.Equal(t, "alice_carol", conversations[0].ConversationID)
		assert.Equal(t, "alice_bob", conversations[1].ConversationID)
	})
}

func TestUserFlags(t *testing.T) {
	t.Run("ArchiveTouchesOnlyCallerEntry", func(t *testing.T) {
		mockDynamo := new(MockDynamoAPI)
		svc := &services.ConversationService{Dynamo: mockDynamo}

		conv := conversationBetween("alice", "bob")
		mockDynamo.On("GetItem", mock.Anything, models.ConversationsTable, convKey("alice_bob")).Return(marshalItem(t, conv), nil)
		mockDynamo.On("UpdateItem", mock.Anything, models.ConversationsTable, "SET #field.#uid = :val",
			convKey("alice_bob"), mock.Anything, mock.MatchedBy(func(names map[string]string) bool {
				return names["#field"] == "archived" && names["#uid"] == "alice"
			})).Return(map[string]types.AttributeValue{}, nil)

		err := svc.Archive(context.Background(), "alice", "alice_bob")
		assert.NoError(t, err)
	})

	t.Run("SoftDeleteRequiresMembership", func(t *testing.T) {
		mockDynamo := new(MockDynamoAPI)
		svc := &services.ConversationService{Dynamo: mockDynamo}

		conv := conversationBetween("alice", "bob")
		mockDynamo.On("GetItem", mock.Anything, models.ConversationsTable, convKey("alice_bob")).Return(marshalItem(t, conv), nil)

		err := svc.SoftDelete(context.Background(), "mallory", "alice_bob")
		assert.ErrorIs(t, err, services.ErrForbidden)
		mockDynamo.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestConversationMarkRead(t *testing.T) {
	mockDynamo := new(MockDynamoAPI)
	svc := &services.ConversationService{Dynamo: mockDynamo}

	conv := conversationBetween("alice", "bob")
	mockDynamo.On("GetItem", mock.Anything, models.ConversationsTable, convKey("alice_bob")).Return(marshalItem(t, conv), nil)
	mockDynamo.On("UpdateItem", mock.Anything, models.ConversationsTable, "SET #lastReadBy.#uid = :ts",
		convKey("alice_bob"), mock.Anything, mock.MatchedBy(func(names map[string]string) bool {
			return names["#uid"] == "bob"
		})).Return(map[string]types.AttributeValue{}, nil)

	err := svc.MarkRead(context.Background(), "bob", "alice_bob", time.Now())
	assert.NoError(t, err)
}

func TestRecordLastMessage(t *testing.T) {
	mockDynamo := new(MockDynamoAPI)
	svc := &services.ConversationService{Dynamo: mockDynamo}

	conv := conversationBetween("alice", "bob")
	content := strings.Repeat("x", models.LastMessagePreviewLen+100)

	mockDynamo.On("UpdateItem", mock.Anything, models.ConversationsTable,
		mock.MatchedBy(func(expr string) bool {
			return strings.Contains(expr, "REMOVE #deletedBy.#u0, #deletedBy.#u1")
		}),
		convKey("alice_bob"),
		mock.MatchedBy(func(values map[string]types.AttributeValue) bool {
			lm, ok := values[":lm"].(*types.AttributeValueMemberM)
			if !ok {
				return false
			}
			preview, ok := lm.Value["content"].(*types.AttributeValueMemberS)
			return ok && len([]rune(preview.Value)) == models.LastMessagePreviewLen
		}),
		mock.Anything).Return(map[string]types.AttributeValue{}, nil)

	err := svc.RecordLastMessage(context.Background(), &conv, "alice", content, "2026-08-07T10:00:00Z")
	assert.NoError(t, err)
}
