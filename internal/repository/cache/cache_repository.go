package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/poi-insight/internal/domain/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// cacheRepository хранит готовые ответы анализа в Redis. Ключи версионируются
// поколением набора данных, поэтому инвалидация после переинициализации
// не требуется: старые записи доживают свой TTL и вымываются.
type cacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

func NewCacheRepository(redis *Redis) repository.CacheRepository {
	return &cacheRepository{
		client: redis.Client(),
		logger: redis.logger,
	}
}

// Get различает промах и недоступность кеша: промах - (nil, nil),
// ошибка Redis уходит вызывающему, который сам решает, считать ли её
// фатальной.
func (r *cacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == redis.Nil:
		return nil, nil
	case err != nil:
		r.logger.Warn("Cache get failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("cache get: %w", err)
	}

	r.logger.Debug("Cache hit", zap.String("key", key))
	return val, nil
}

func (r *cacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Warn("Cache set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set: %w", err)
	}

	r.logger.Debug("Cache set", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}
