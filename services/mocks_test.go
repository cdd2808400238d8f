package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/mock"

	"github.com/srishtayal/nalum-sub003/models"
)

// MockDynamoAPI mocks the DynamoDB access layer
type MockDynamoAPI struct {
	mock.Mock
}

func (m *MockDynamoAPI) PutItem(ctx context.Context, tableName string, item interface{}) error {
	args := m.Called(ctx, tableName, item)
	return args.Error(0)
}

func (m *MockDynamoAPI) PutItemWithCondition(ctx context.Context, tableName string, item interface{}, conditionExpression string, expressionAttributeNames map[string]string) error {
	args := m.Called(ctx, tableName, item, conditionExpression, expressionAttributeNames)
	return args.Error(0)
}

func (m *MockDynamoAPI) GetItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	args := m.Called(ctx, tableName, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]types.AttributeValue), args.Error(1)
}

func (m *MockDynamoAPI) UpdateItem(ctx context.Context, tableName string, updateExpression string, key map[string]types.AttributeValue, expressionAttributeValues map[string]types.AttributeValue, expressionAttributeNames map[string]string) (map[string]types.AttributeValue, error) {
	args := m.Called(ctx, tableName, updateExpression, key, expressionAttributeValues, expressionAttributeNames)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]types.AttributeValue), args.Error(1)
}

func (m *MockDynamoAPI) UpdateItemWithCondition(ctx context.Context, tableName string, updateExpression string, conditionExpression string, key map[string]types.AttributeValue, expressionAttributeValues map[string]types.AttributeValue, expressionAttributeNames map[string]string) (map[string]types.AttributeValue, error) {
	args := m.Called(ctx, tableName, updateExpression, conditionExpression, key, expressionAttributeValues, expressionAttributeNames)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]types.AttributeValue), args.Error(1)
}

func (m *MockDynamoAPI) DeleteItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) error {
	args := m.Called(ctx, tableName, key)
	return args.Error(0)
}

func (m *MockDynamoAPI) QueryItems(ctx context.Context, tableName string, keyConditionExpression string, expressionAttributeValues map[string]types.AttributeValue, expressionAttributeNames map[string]string, limit int32) ([]map[string]types.AttributeValue, error) {
	args := m.Called(ctx, tableName, keyConditionExpression, expressionAttributeValues, expressionAttributeNames, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]types.AttributeValue), args.Error(1)
}

func (m *MockDynamoAPI) QueryItemsWithIndex(ctx context.Context, tableName string, indexName string, keyConditionExpression string, expressionAttributeValues map[string]types.AttributeValue, expressionAttributeNames map[string]string, limit int32) ([]map[string]types.AttributeValue, error) {
	args := m.Called(ctx, tableName, indexName, keyConditionExpression, expressionAttributeValues, expressionAttributeNames, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]types.AttributeValue), args.Error(1)
}

func (m *MockDynamoAPI) QueryItemsWithOptions(ctx context.Context, tableName string, keyConditionExpression string, expressionAttributeValues map[string]types.AttributeValue, expressionAttributeNames map[string]string, filterExpression string, limit int32, latestFirst bool) ([]map[string]types.AttributeValue, error) {
	args := m.Called(ctx, tableName, keyConditionExpression, expressionAttributeValues, expressionAttributeNames, filterExpression, limit, latestFirst)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]types.AttributeValue), args.Error(1)
}

// recordingNotifier captures realtime events without a socket server
type recordingNotifier struct {
	mu     sync.Mutex
	events []notifiedEvent
}

type notifiedEvent struct {
	UserID string
	Event  string
}

func (n *recordingNotifier) NotifyUser(userID string, event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifiedEvent{UserID: userID, Event: event})
}

func marshalItem(t *testing.T, v interface{}) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		t.Fatalf("failed to marshal test item: %v", err)
	}
	return item
}

func itemList(t *testing.T, vs ...interface{}) []map[string]types.AttributeValue {
	t.Helper()
	items := make([]map[string]types.AttributeValue, 0, len(vs))
	for _, v := range vs {
		items = append(items, marshalItem(t, v))
	}
	return items
}

func emptyItemList() []map[string]types.AttributeValue {
	return []map[string]types.AttributeValue{}
}

func connKey(requester, recipient string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: models.ConnectionPK(requester)},
		"SK": &types.AttributeValueMemberS{Value: models.ConnectionSK(recipient)},
	}
}

func convKey(conversationID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"conversationId": &types.AttributeValueMemberS{Value: conversationID},
	}
}
