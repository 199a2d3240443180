package grid

import (
	"math"

	"github.com/poi-insight/internal/domain"
)

// DefaultCellSize — размер ячейки сетки в градусах по обеим осям.
const DefaultCellSize = 0.005

type cellKey struct {
	X int32
	Y int32
}

// Grid — хеш-сетка точек одной группы с ячейками фиксированного размера
// по долготе и широте. Запрос по прямоугольнику перечисляет только
// пересекаемые ячейки и отдаёт их содержимое целиком, без точной
// фильтрации: сетка служит счётным сигналом, а не точным членством.
type Grid struct {
	cell  float64
	cells map[cellKey][]domain.Point
	size  int
}

func newGrid(points []domain.Point, cell float64) *Grid {
	if cell <= 0 {
		cell = DefaultCellSize
	}
	g := &Grid{
		cell:  cell,
		cells: make(map[cellKey][]domain.Point),
		size:  len(points),
	}
	for _, p := range points {
		k := g.keyFor(p.Lng, p.Lat)
		g.cells[k] = append(g.cells[k], p)
	}
	return g
}

// Size возвращает общее число точек в сетке.
func (g *Grid) Size() int {
	return g.size
}

// PointsInBBox возвращает точки всех ячеек, пересекающих прямоугольник.
func (g *Grid) PointsInBBox(b domain.BBox) []domain.Point {
	var out []domain.Point
	g.scan(b, func(pts []domain.Point) {
		out = append(out, pts...)
	})
	return out
}

// CountInBBox возвращает суммарное число точек в ячейках, пересекающих
// прямоугольник.
func (g *Grid) CountInBBox(b domain.BBox) int {
	n := 0
	g.scan(b, func(pts []domain.Point) {
		n += len(pts)
	})
	return n
}

func (g *Grid) scan(b domain.BBox, visit func([]domain.Point)) {
	lo := g.keyFor(b.MinLng, b.MinLat)
	hi := g.keyFor(b.MaxLng, b.MaxLat)

	// For wide windows walking the occupied cells is cheaper than the
	// cartesian cell range.
	window := (int64(hi.X-lo.X) + 1) * (int64(hi.Y-lo.Y) + 1)
	if window > int64(len(g.cells)) {
		for k, pts := range g.cells {
			if k.X >= lo.X && k.X <= hi.X && k.Y >= lo.Y && k.Y <= hi.Y {
				visit(pts)
			}
		}
		return
	}

	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			if pts, ok := g.cells[cellKey{X: x, Y: y}]; ok {
				visit(pts)
			}
		}
	}
}

func (g *Grid) keyFor(lng, lat float64) cellKey {
	return cellKey{
		X: int32(math.Floor(lng / g.cell)),
		Y: int32(math.Floor(lat / g.cell)),
	}
}
