package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Worker - долгоживущий потребитель Redis Stream. Start блокирует до
// остановки воркера или отмены контекста; Stop идемпотентен и может
// вызываться из другой горутины.
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// Base несёт общий жизненный цикл воркера: имя, consumer group,
// размеченный именем логгер и одноразовый сигнал остановки.
type Base struct {
	name  string
	group string
	log   *zap.Logger

	quit     chan struct{}
	stopOnce sync.Once
}

// NewBase создает общее ядро воркера.
func NewBase(name, group string, log *zap.Logger) *Base {
	return &Base{
		name:  name,
		group: group,
		log:   log.With(zap.String("worker", name)),
		quit:  make(chan struct{}),
	}
}

// Name возвращает имя воркера
func (b *Base) Name() string {
	return b.name
}

// ConsumerGroup возвращает consumer group воркера
func (b *Base) ConsumerGroup() string {
	return b.group
}

// Logger возвращает логгер, размеченный именем воркера
func (b *Base) Logger() *zap.Logger {
	return b.log
}

// StopChan закрывается после первого Stop.
func (b *Base) StopChan() <-chan struct{} {
	return b.quit
}

// Stop сигналит воркеру о завершении. Повторные вызовы безвредны.
func (b *Base) Stop() error {
	b.stopOnce.Do(func() {
		b.log.Info("Stopping worker")
		close(b.quit)
	})
	return nil
}
