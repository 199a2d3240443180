package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/poi-insight/internal/domain"
	"github.com/poi-insight/internal/domain/repository"
)

const (
	// streamField - единственное поле записи стрима с JSON-конвертом.
	streamField = "data"
	// readBlock - сколько XReadGroup ждёт новые сообщения за один вызов.
	readBlock = 2 * time.Second
	// readBatch - сколько сообщений забирается за один вызов.
	readBatch = 10
	// retryDelay - пауза перед повтором после ошибки чтения.
	retryDelay = time.Second
)

type streamRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewStreamRepository создает StreamRepository поверх Redis Streams.
// Через него воркер получает конверты запросов анализа и публикует
// конверты ответов.
func NewStreamRepository(client *redis.Client, logger *zap.Logger) repository.StreamRepository {
	return &streamRepository{
		client: client,
		logger: logger,
	}
}

// CreateConsumerGroup создаёт consumer group с чтением только новых
// сообщений; MKSTREAM создаёт и сам стрим, если его ещё нет.
func (r *streamRepository) CreateConsumerGroup(ctx context.Context, stream, group string) error {
	err := r.client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			r.logger.Debug("Consumer group already exists",
				zap.String("stream", stream),
				zap.String("group", group))
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	r.logger.Info("Consumer group created",
		zap.String("stream", stream),
		zap.String("group", group))
	return nil
}

// ConsumeStream читает непрочитанные сообщения стрима в канал. Канал
// закрывается при отмене контекста; ошибки чтения не фатальны и
// повторяются после паузы.
func (r *streamRepository) ConsumeStream(ctx context.Context, stream, group, consumer string) (<-chan domain.StreamMessage, error) {
	out := make(chan domain.StreamMessage, readBatch)

	go func() {
		defer close(out)

		for ctx.Err() == nil {
			batch, err := r.readBatch(ctx, stream, group, consumer)
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					break
				}
				r.logger.Error("Failed to read from stream",
					zap.String("stream", stream),
					zap.Error(err))
				time.Sleep(retryDelay)
				continue
			}

			for _, msg := range batch {
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}

		r.logger.Info("Stream consumer stopped",
			zap.String("stream", stream),
			zap.String("consumer", consumer))
	}()

	return out, nil
}

// readBatch выполняет один блокирующий XReadGroup и разворачивает
// записи в сообщения. Записи без поля data пропускаются.
func (r *streamRepository) readBatch(ctx context.Context, stream, group, consumer string) ([]domain.StreamMessage, error) {
	res, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    readBatch,
		Block:    readBlock,
	}).Result()
	if err != nil {
		return nil, err
	}

	var batch []domain.StreamMessage
	for _, s := range res {
		for _, msg := range s.Messages {
			data, ok := msg.Values[streamField].(string)
			if !ok {
				r.logger.Warn("Stream entry has no data field",
					zap.String("stream", stream),
					zap.String("message_id", msg.ID))
				continue
			}
			batch = append(batch, domain.StreamMessage{ID: msg.ID, Data: data})
		}
	}
	return batch, nil
}

// AckMessage подтверждает обработку сообщения
func (r *streamRepository) AckMessage(ctx context.Context, stream, group, messageID string) error {
	if err := r.client.XAck(ctx, stream, group, messageID).Err(); err != nil {
		return fmt.Errorf("failed to acknowledge message: %w", err)
	}
	return nil
}

// PublishToStream сериализует конверт в JSON и добавляет запись в стрим.
func (r *streamRepository) PublishToStream(ctx context.Context, stream string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal stream payload: %w", err)
	}

	id, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{streamField: string(payload)},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}

	r.logger.Debug("Message published",
		zap.String("stream", stream),
		zap.String("message_id", id))
	return nil
}
