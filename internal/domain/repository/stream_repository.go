package repository

import (
	"context"

	"github.com/poi-insight/internal/domain"
)

// StreamRepository - очередь запросов и ответов анализа поверх Redis
// Streams. Воркер подписывается на stream:analysis:requests через
// consumer group и публикует результаты в stream:analysis:responses.
type StreamRepository interface {
	// CreateConsumerGroup создаёт consumer group; существующая группа -
	// не ошибка
	CreateConsumerGroup(ctx context.Context, stream, group string) error

	// ConsumeStream отдаёт непрочитанные сообщения стрима; канал
	// закрывается при отмене контекста
	ConsumeStream(ctx context.Context, stream, group, consumer string) (<-chan domain.StreamMessage, error)

	// AckMessage подтверждает обработку сообщения
	AckMessage(ctx context.Context, stream, group, messageID string) error

	// PublishToStream сериализует данные в JSON и добавляет в стрим
	PublishToStream(ctx context.Context, stream string, data interface{}) error
}
