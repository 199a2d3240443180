package engine

import (
	"sort"

	"github.com/poi-insight/internal/domain"
)

// convexHull строит выпуклую оболочку точек методом монотонной цепи и
// возвращает замкнутое кольцо против часовой стрелки. Для вырожденного
// входа (меньше трёх различных точек, все точки на одной прямой)
// возвращает nil.
func convexHull(points []domain.Point) [][2]float64 {
	coords := make([][2]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, [2]float64{p.Lng, p.Lat})
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i][0] != coords[j][0] {
			return coords[i][0] < coords[j][0]
		}
		return coords[i][1] < coords[j][1]
	})

	uniq := coords[:0]
	for _, c := range coords {
		if len(uniq) == 0 || c != uniq[len(uniq)-1] {
			uniq = append(uniq, c)
		}
	}
	if len(uniq) < 3 {
		return nil
	}

	hull := make([][2]float64, 0, 2*len(uniq))
	for _, c := range uniq {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], c) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, c)
	}
	base := len(hull) + 1
	for i := len(uniq) - 2; i >= 0; i-- {
		c := uniq[i]
		for len(hull) >= base && cross(hull[len(hull)-2], hull[len(hull)-1], c) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, c)
	}

	// Обе цепи вместе завершаются исходной вершиной: кольцо замкнуто.
	if len(hull) < 4 {
		return nil
	}
	return hull
}

func cross(o, a, b [2]float64) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}
