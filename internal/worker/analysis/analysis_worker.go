package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/poi-insight/internal/domain"
	"github.com/poi-insight/internal/domain/repository"
	"github.com/poi-insight/internal/engine"
	"github.com/poi-insight/internal/pkg/errors"
	"github.com/poi-insight/internal/worker"
)

// Engine — подмножество движка анализа, нужное воркеру.
type Engine interface {
	Do(ctx context.Context, req engine.Request) engine.Response
	Generation() uint64
}

// AnalysisWorker выполняет запросы анализа из Redis Stream. Ответ уходит
// в выходной стрим с тем же request_id; битые сообщения подтверждаются
// и пропускаются, чтобы не блокировать consumer group.
type AnalysisWorker struct {
	*worker.Base
	streams      repository.StreamRepository
	cache        repository.CacheRepository
	eng          Engine
	consumerName string
	cacheTTL     time.Duration
}

// NewAnalysisWorker создает новый AnalysisWorker. cache может быть nil,
// тогда ответы site selection не кешируются.
func NewAnalysisWorker(
	eng Engine,
	streams repository.StreamRepository,
	cache repository.CacheRepository,
	consumerGroup string,
	consumerName string,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *AnalysisWorker {
	return &AnalysisWorker{
		Base:         worker.NewBase("analysis", consumerGroup, logger),
		streams:      streams,
		cache:        cache,
		eng:          eng,
		consumerName: consumerName,
		cacheTTL:     cacheTTL,
	}
}

// Start запускает воркер
func (w *AnalysisWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting AnalysisWorker",
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.consumerName))

	if err := w.streams.CreateConsumerGroup(ctx, domain.StreamAnalysisRequests, w.ConsumerGroup()); err != nil {
		logger.Error("Failed to create consumer group", zap.Error(err))
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	messages, err := w.streams.ConsumeStream(ctx, domain.StreamAnalysisRequests, w.ConsumerGroup(), w.consumerName)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil

		case <-ctx.Done():
			logger.Info("Context cancelled")
			return ctx.Err()

		case msg, ok := <-messages:
			if !ok {
				logger.Info("Message channel closed")
				return nil
			}
			w.handleMessage(ctx, msg)
		}
	}
}

// handleMessage обрабатывает одно сообщение. Подтверждение отправляется
// всегда: повторное выполнение INIT или SITE_SELECT при переобработке
// стоит дороже, чем один потерянный ответ.
func (w *AnalysisWorker) handleMessage(ctx context.Context, msg domain.StreamMessage) {
	logger := w.Logger()

	defer func() {
		if err := w.streams.AckMessage(ctx, domain.StreamAnalysisRequests, w.ConsumerGroup(), msg.ID); err != nil {
			logger.Error("Failed to ack message",
				zap.String("message_id", msg.ID),
				zap.Error(err))
		}
	}()

	var evt domain.AnalysisRequestEvent
	if err := json.Unmarshal([]byte(msg.Data), &evt); err != nil {
		logger.Warn("Malformed request envelope, skipping",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return
	}

	if evt.RequestID == "" {
		evt.RequestID = uuid.NewString()
	}

	cacheKey := ""
	if evt.Kind == string(engine.KindSiteSelect) && w.cache != nil {
		cacheKey = siteSelectCacheKey(w.eng.Generation(), evt.Payload)
		if cached, err := w.cache.Get(ctx, cacheKey); err == nil && cached != nil {
			logger.Debug("Serving site selection from cache",
				zap.String("request_id", evt.RequestID))
			w.publish(ctx, domain.AnalysisResponseEvent{
				Kind:      string(engine.KindSiteSelectResult),
				RequestID: evt.RequestID,
				Payload:   cached,
			})
			return
		}
	}

	resp := w.eng.Do(ctx, engine.Request{
		Kind:      engine.Kind(evt.Kind),
		RequestID: evt.RequestID,
		Payload:   evt.Payload,
	})

	payload, err := json.Marshal(resp.Payload)
	if err != nil {
		logger.Error("Failed to marshal response payload",
			zap.String("request_id", resp.RequestID),
			zap.Error(err))
		// Вызывающая сторона не должна остаться без ответа на разобранный запрос
		errPayload, _ := json.Marshal(engine.ErrorPayload{
			Code:       errors.ErrStreamError.Code,
			Message:    "response payload is not serializable",
			SourceType: evt.Kind,
		})
		w.publish(ctx, domain.AnalysisResponseEvent{
			Kind:      string(engine.KindError),
			RequestID: resp.RequestID,
			Payload:   errPayload,
		})
		return
	}

	w.publish(ctx, domain.AnalysisResponseEvent{
		Kind:      string(resp.Kind),
		RequestID: resp.RequestID,
		Payload:   payload,
	})

	if cacheKey != "" && !resp.IsError() {
		if err := w.cache.Set(ctx, cacheKey, payload, w.cacheTTL); err != nil {
			logger.Warn("Failed to cache site selection response",
				zap.String("request_id", resp.RequestID),
				zap.Error(err))
		}
	}
}

func (w *AnalysisWorker) publish(ctx context.Context, evt domain.AnalysisResponseEvent) {
	if err := w.streams.PublishToStream(ctx, domain.StreamAnalysisResponses, evt); err != nil {
		w.Logger().Error("Failed to publish response",
			zap.String("request_id", evt.RequestID),
			zap.Error(err))
	}
}

// siteSelectCacheKey версионирует ключ поколением набора данных: после
// переинициализации прежние записи недостижимы и доживают свой TTL.
func siteSelectCacheKey(generation uint64, payload []byte) string {
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("analysis:site:%d:%x", generation, sum)
}
