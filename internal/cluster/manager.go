package cluster

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/poi-insight/internal/domain"
)

// PointProvider возвращает точки группы текущего поколения
type PointProvider func(group string) []domain.Point

// Manager лениво строит и кеширует по одному индексу на группу.
// Кеш действителен в пределах одного поколения набора данных; при
// повторной загрузке менеджер заменяется целиком вместе с поколением.
// Доступ не синхронизируется: менеджером владеет один обработчик.
type Manager struct {
	provider PointProvider
	opts     Options
	logger   *zap.Logger
	indexes  map[string]*Index
}

// NewManager создаёт менеджер индексов над источником точек
func NewManager(provider PointProvider, opts Options, logger *zap.Logger) *Manager {
	return &Manager{
		provider: provider,
		opts:     opts.withDefaults(),
		logger:   logger,
		indexes:  make(map[string]*Index),
	}
}

// Options возвращает параметры кластеризации после подстановки значений по умолчанию
func (m *Manager) Options() Options {
	return m.opts
}

// Ensure возвращает индекс группы, строя его при первом обращении
func (m *Manager) Ensure(group string) *Index {
	if idx, ok := m.indexes[group]; ok {
		return idx
	}

	points := m.provider(group)
	start := time.Now()
	idx := NewIndex(points, m.opts)
	m.indexes[group] = idx

	m.logger.Debug("cluster index built",
		zap.String("group", group),
		zap.Int("points", len(points)),
		zap.Duration("took", time.Since(start)),
	)
	return idx
}

// Get возвращает индекс группы, если он уже построен
func (m *Manager) Get(group string) (*Index, bool) {
	idx, ok := m.indexes[group]
	return idx, ok
}

// Built возвращает отсортированный список групп с построенными индексами
func (m *Manager) Built() []string {
	groups := make([]string, 0, len(m.indexes))
	for group := range m.indexes {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	return groups
}
