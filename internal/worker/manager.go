package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// stopGrace - сколько Stop ждёт завершения уже запущенных воркеров.
const stopGrace = 30 * time.Second

// Manager запускает зарегистрированных воркеров и останавливает их разом.
type Manager struct {
	mu      sync.Mutex
	workers []Worker
	log     *zap.Logger
	wg      sync.WaitGroup
}

// NewManager создает менеджер воркеров.
func NewManager(log *zap.Logger) *Manager {
	return &Manager{log: log}
}

// Register добавляет воркер. Регистрировать после Start нельзя.
func (m *Manager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, w)
	m.log.Info("Worker registered", zap.String("name", w.Name()))
}

// Start запускает каждый воркер в своей горутине и сразу возвращается.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	workers := append([]Worker(nil), m.workers...)
	m.mu.Unlock()

	if len(workers) == 0 {
		return fmt.Errorf("no workers registered")
	}

	m.log.Info("Starting workers", zap.Int("count", len(workers)))

	for _, w := range workers {
		m.wg.Add(1)
		go func(w Worker) {
			defer m.wg.Done()

			// Отмена контекста при остановке сервиса - штатный исход,
			// не ошибка воркера.
			if err := w.Start(ctx); err != nil && err != context.Canceled {
				m.log.Error("Worker exited with error",
					zap.String("name", w.Name()),
					zap.Error(err))
			}
		}(w)
	}

	return nil
}

// Stop сигналит всем воркерам и ждёт их завершения не дольше stopGrace.
func (m *Manager) Stop() error {
	m.mu.Lock()
	workers := append([]Worker(nil), m.workers...)
	m.mu.Unlock()

	m.log.Info("Stopping workers", zap.Int("count", len(workers)))

	for _, w := range workers {
		if err := w.Stop(); err != nil {
			m.log.Error("Failed to stop worker",
				zap.String("name", w.Name()),
				zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.log.Info("All workers stopped")
		return nil
	case <-time.After(stopGrace):
		return fmt.Errorf("workers did not stop within %v", stopGrace)
	}
}
