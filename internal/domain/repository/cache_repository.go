package repository

import (
	"context"
	"time"
)

// CacheRepository - кеш готовых ответов анализа. Ключи включают
// поколение набора данных, поэтому явная инвалидация не нужна:
// устаревшие записи вымываются по TTL.
type CacheRepository interface {
	// Get возвращает значение по ключу; промах - (nil, nil)
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение с TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
