package grid

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/poi-insight/internal/domain"
	"github.com/poi-insight/internal/pkg/utils"
)

// searchRadii — лестница радиусов поиска ближайшей точки, в метрах.
// Поиск останавливается на первом радиусе, внутри которого нашлась
// хотя бы одна точка.
var searchRadii = []float64{400, 800, 1600, 3200, 6400}

// Source отдаёт точки группы для ленивого построения сетки.
type Source func(group string) []domain.Point

// Set лениво строит и кэширует по одной сетке на группу. Сетки
// инвалидируются только полной перезагрузкой данных: владелец просто
// заводит новый Set.
//
// Set принадлежит одной горутине движка и не синхронизируется сам.
type Set struct {
	source Source
	cell   float64
	logger *zap.Logger
	grids  map[string]*Grid
}

// NewSet создаёт пустой набор сеток с заданным размером ячейки.
func NewSet(source Source, cell float64, logger *zap.Logger) *Set {
	if cell <= 0 {
		cell = DefaultCellSize
	}
	return &Set{
		source: source,
		cell:   cell,
		logger: logger,
		grids:  make(map[string]*Grid),
	}
}

// Ensure возвращает сетку группы, строя её при первом обращении.
func (s *Set) Ensure(group string) *Grid {
	if g, ok := s.grids[group]; ok {
		return g
	}

	started := time.Now()
	g := newGrid(s.source(group), s.cell)
	s.grids[group] = g

	s.logger.Debug("spatial grid built",
		zap.String("group", group),
		zap.Int("points", g.Size()),
		zap.Duration("took", time.Since(started)),
	)
	return g
}

// CountInBBox возвращает счётную оценку числа точек группы в прямоугольнике.
func (s *Set) CountInBBox(group string, b domain.BBox) int {
	return s.Ensure(group).CountInBBox(b)
}

// Nearest ищет ближайшую точку группы, расширяя охват по лестнице
// радиусов. Возвращает истинное расстояние по дуге большого круга в
// метрах и false, если в пределах последнего радиуса ничего нет.
func (s *Set) Nearest(group string, lng, lat float64) (float64, bool) {
	g := s.Ensure(group)

	for _, radius := range searchRadii {
		best := math.MaxFloat64
		for _, p := range g.PointsInBBox(boundsAround(lng, lat, radius)) {
			d := utils.HaversineMeters(lat, lng, p.Lat, p.Lng)
			if d <= radius && d < best {
				best = d
			}
		}
		if best < math.MaxFloat64 {
			return best, true
		}
	}
	return 0, false
}

// boundsAround строит прямоугольник, накрывающий круг радиуса radius
// метров вокруг точки.
func boundsAround(lng, lat, radius float64) domain.BBox {
	dLat := utils.MetersToLatDegrees(radius)
	dLng := utils.MetersToLngDegrees(radius, lat)
	return domain.BBox{
		MinLng: lng - dLng,
		MinLat: lat - dLat,
		MaxLng: lng + dLng,
		MaxLat: lat + dLat,
	}
}
