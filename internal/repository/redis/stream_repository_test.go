package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/poi-insight/internal/domain"
	"github.com/poi-insight/internal/domain/repository"
	redisRepo "github.com/poi-insight/internal/repository/redis"
)

const (
	testRequestStream  = "test:stream:analysis:requests"
	testResponseStream = "test:stream:analysis:responses"
)

// newStreamFixture подключается к локальному Redis (DB 1) и чистит
// тестовые стримы до и после теста. Без Redis тест пропускается.
func newStreamFixture(t *testing.T) (*redis.Client, repository.StreamRepository) {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available for integration tests: %v", err)
	}

	client.Del(ctx, testRequestStream, testResponseStream)
	t.Cleanup(func() {
		client.Del(context.Background(), testRequestStream, testResponseStream)
		client.Close()
	})

	return client, redisRepo.NewStreamRepository(client, zap.NewNop())
}

func requestEnvelope(t *testing.T, kind, requestID string, payload interface{}) *domain.AnalysisRequestEvent {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &domain.AnalysisRequestEvent{Kind: kind, RequestID: requestID, Payload: raw}
}

func TestStreamRepository_CreateConsumerGroup(t *testing.T) {
	client, repo := newStreamFixture(t)
	ctx := context.Background()

	err := repo.CreateConsumerGroup(ctx, testRequestStream, "test-group")
	require.NoError(t, err)

	groups, err := client.XInfoGroups(ctx, testRequestStream).Result()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "test-group", groups[0].Name)

	// Повторное создание группы не должно быть ошибкой (BUSYGROUP)
	err = repo.CreateConsumerGroup(ctx, testRequestStream, "test-group")
	assert.NoError(t, err)
}

func TestStreamRepository_PublishToStream(t *testing.T) {
	client, repo := newStreamFixture(t)
	ctx := context.Background()

	requestID := uuid.NewString()
	payload, err := json.Marshal(map[string]interface{}{
		"total":  3,
		"groups": map[string]int{"food": 2, "medical": 1},
	})
	require.NoError(t, err)

	err = repo.PublishToStream(ctx, testResponseStream, &domain.AnalysisResponseEvent{
		Kind:      "BBOX_STATS_RESULT",
		RequestID: requestID,
		Payload:   payload,
	})
	require.NoError(t, err)

	messages, err := client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{testResponseStream, "0"},
		Count:   1,
	}).Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Len(t, messages[0].Messages, 1)

	dataStr, ok := messages[0].Messages[0].Values["data"].(string)
	require.True(t, ok, "entry must carry the data field")

	var event domain.AnalysisResponseEvent
	require.NoError(t, json.Unmarshal([]byte(dataStr), &event))
	assert.Equal(t, "BBOX_STATS_RESULT", event.Kind)
	assert.Equal(t, requestID, event.RequestID)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(event.Payload, &got))
	assert.Equal(t, float64(3), got["total"])
}

func TestStreamRepository_ConsumeStream(t *testing.T) {
	_, repo := newStreamFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, repo.CreateConsumerGroup(ctx, testRequestStream, "test-consumer-group"))

	requestID := uuid.NewString()
	event := requestEnvelope(t, "QUERY", requestID, map[string]interface{}{
		"bbox": []float64{116.30, 39.85, 116.50, 39.95},
		"zoom": 12,
	})
	require.NoError(t, repo.PublishToStream(ctx, testRequestStream, event))

	msgChan, err := repo.ConsumeStream(ctx, testRequestStream, "test-consumer-group", "test-consumer")
	require.NoError(t, err)

	select {
	case msg := <-msgChan:
		assert.NotEmpty(t, msg.ID)

		var got domain.AnalysisRequestEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Data), &got))
		assert.Equal(t, "QUERY", got.Kind)
		assert.Equal(t, requestID, got.RequestID)

	case <-time.After(3 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestStreamRepository_ConsumeStream_SkipsEntriesWithoutData(t *testing.T) {
	client, repo := newStreamFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, repo.CreateConsumerGroup(ctx, testRequestStream, "test-skip-group"))

	// Запись с чужим полем должна быть молча пропущена
	err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: testRequestStream,
		Values: map[string]interface{}{"other": "noise"},
	}).Err()
	require.NoError(t, err)

	requestID := uuid.NewString()
	event := requestEnvelope(t, "STATS", requestID, nil)
	require.NoError(t, repo.PublishToStream(ctx, testRequestStream, event))

	msgChan, err := repo.ConsumeStream(ctx, testRequestStream, "test-skip-group", "test-consumer")
	require.NoError(t, err)

	select {
	case msg := <-msgChan:
		var got domain.AnalysisRequestEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Data), &got))
		assert.Equal(t, "STATS", got.Kind)
		assert.Equal(t, requestID, got.RequestID)

	case <-time.After(3 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestStreamRepository_AckMessage(t *testing.T) {
	client, repo := newStreamFixture(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateConsumerGroup(ctx, testRequestStream, "test-ack-group"))

	event := requestEnvelope(t, "STATS", uuid.NewString(), nil)
	require.NoError(t, repo.PublishToStream(ctx, testRequestStream, event))

	messages, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    "test-ack-group",
		Consumer: "test-consumer",
		Streams:  []string{testRequestStream, ">"},
		Count:    1,
	}).Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Len(t, messages[0].Messages, 1)
	messageID := messages[0].Messages[0].ID

	pending, err := client.XPending(ctx, testRequestStream, "test-ack-group").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)

	require.NoError(t, repo.AckMessage(ctx, testRequestStream, "test-ack-group", messageID))

	pending, err = client.XPending(ctx, testRequestStream, "test-ack-group").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestStreamRepository_ConsumeStream_ContextCancellation(t *testing.T) {
	_, repo := newStreamFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, repo.CreateConsumerGroup(ctx, testRequestStream, "test-cancel-group"))

	msgChan, err := repo.ConsumeStream(ctx, testRequestStream, "test-cancel-group", "test-consumer")
	require.NoError(t, err)

	time.AfterFunc(100*time.Millisecond, cancel)

	// После отмены контекста канал должен закрыться
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-msgChan:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("Channel not closed after context cancellation")
		}
	}
}
