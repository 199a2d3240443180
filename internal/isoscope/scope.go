package isoscope

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/poi-insight/internal/cluster"
	"github.com/poi-insight/internal/domain"
)

// buildConcurrency ограничивает число одновременных построений групп.
const buildConcurrency = 4

// ParseGeometry разбирает геометрию GeoJSON и принимает только Polygon и MultiPolygon.
func ParseGeometry(raw json.RawMessage) (geom.T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, eris.New("isoscope: empty geometry")
	}

	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return nil, eris.Wrap(err, "isoscope: decode geometry")
	}

	switch g.(type) {
	case *geom.Polygon, *geom.MultiPolygon:
		return g, nil
	default:
		return nil, eris.Errorf("isoscope: unsupported geometry type %T", g)
	}
}

// Scope хранит подмножества точек и кластерные индексы по группам,
// построенные для одного полигона достижимости. Новый полигон означает
// новый Scope; прежний вместе со всеми индексами отбрасывается целиком.
//
// Scope принадлежит одной горутине движка и не синхронизируется сам.
type Scope struct {
	polygons []*geom.Polygon
	bounds   domain.BBox
	empty    bool

	provider cluster.PointProvider
	opts     cluster.Options
	logger   *zap.Logger

	points  map[string][]domain.Point
	indexes map[string]*cluster.Index
}

// New строит охват для переданной геометрии. Непригодная геометрия
// (nil, без колец, незамкнутое внешнее кольцо) даёт пустой охват,
// отвечающий нулями на любые запросы, а не ошибку.
func New(g geom.T, provider cluster.PointProvider, opts cluster.Options, logger *zap.Logger) *Scope {
	s := &Scope{
		bounds:   domain.EmptyBBox(),
		provider: provider,
		opts:     opts,
		logger:   logger,
		points:   make(map[string][]domain.Point),
		indexes:  make(map[string]*cluster.Index),
	}

	s.polygons = usablePolygons(g)
	if len(s.polygons) == 0 {
		s.empty = true
		return s
	}

	for _, p := range s.polygons {
		b := p.Bounds()
		s.bounds.Extend(b.Min(0), b.Min(1))
		s.bounds.Extend(b.Max(0), b.Max(1))
	}
	return s
}

// Degenerate сообщает, оказалась ли геометрия непригодной.
func (s *Scope) Degenerate() bool {
	return s.empty
}

// Bounds возвращает охватывающий прямоугольник полигона.
func (s *Scope) Bounds() domain.BBox {
	return s.bounds
}

// Contains проверяет, лежит ли точка внутри полигона охвата.
func (s *Scope) Contains(lng, lat float64) bool {
	if s.empty || !s.bounds.Contains(lng, lat) {
		return false
	}
	c := geom.Coord{lng, lat}
	for _, p := range s.polygons {
		if polygonContains(p, c) {
			return true
		}
	}
	return false
}

// EnsureGroups строит недостающие подмножества точек и индексы для
// запрошенных групп. Уже построенные группы не пересчитываются, так что
// повторные запросы лишь расширяют охват.
func (s *Scope) EnsureGroups(ctx context.Context, groups []string) error {
	seen := make(map[string]struct{}, len(groups))
	var missing []string
	for _, g := range groups {
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		if _, ok := s.points[g]; !ok {
			missing = append(missing, g)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	started := time.Now()

	type build struct {
		points []domain.Point
		index  *cluster.Index
	}
	results := make([]build, len(missing))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(buildConcurrency)
	for i, group := range missing {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pts := s.filter(s.provider(group))
			results[i] = build{points: pts, index: cluster.NewIndex(pts, s.opts)}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return eris.Wrap(err, "isoscope: build group indexes")
	}

	total := 0
	for i, group := range missing {
		s.points[group] = results[i].points
		s.indexes[group] = results[i].index
		total += len(results[i].points)
	}

	s.logger.Debug("isochrone scope extended",
		zap.Strings("groups", missing),
		zap.Int("contained_points", total),
		zap.Duration("took", time.Since(started)),
	)
	return nil
}

// Points возвращает точки группы внутри полигона; nil, если группа не построена.
func (s *Scope) Points(group string) []domain.Point {
	return s.points[group]
}

// Index возвращает кластерный индекс группы внутри полигона.
func (s *Scope) Index(group string) (*cluster.Index, bool) {
	idx, ok := s.indexes[group]
	return idx, ok
}

// Counts возвращает число точек внутри полигона по каждой построенной группе.
func (s *Scope) Counts() map[string]int {
	counts := make(map[string]int, len(s.points))
	for group, pts := range s.points {
		counts[group] = len(pts)
	}
	return counts
}

// BuiltGroups возвращает отсортированный список уже построенных групп.
func (s *Scope) BuiltGroups() []string {
	groups := make([]string, 0, len(s.points))
	for g := range s.points {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// filter keeps only the points inside the polygon, bbox rejection first.
func (s *Scope) filter(points []domain.Point) []domain.Point {
	if s.empty {
		return nil
	}
	contained := make([]domain.Point, 0, len(points)/4)
	for _, p := range points {
		if !s.bounds.Contains(p.Lng, p.Lat) {
			continue
		}
		c := geom.Coord{p.Lng, p.Lat}
		for _, poly := range s.polygons {
			if polygonContains(poly, c) {
				contained = append(contained, p)
				break
			}
		}
	}
	return contained
}

// usablePolygons flattens a Polygon/MultiPolygon and drops members whose
// outer ring has fewer than four coordinates.
func usablePolygons(g geom.T) []*geom.Polygon {
	var polys []*geom.Polygon
	switch t := g.(type) {
	case *geom.Polygon:
		polys = append(polys, t)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			polys = append(polys, t.Polygon(i))
		}
	}

	usable := make([]*geom.Polygon, 0, len(polys))
	for _, p := range polys {
		if p == nil || p.NumLinearRings() == 0 {
			continue
		}
		if p.LinearRing(0).NumCoords() < 4 {
			continue
		}
		usable = append(usable, p)
	}
	return usable
}

// polygonContains tests the outer ring, then excludes holes.
func polygonContains(p *geom.Polygon, c geom.Coord) bool {
	outer := p.LinearRing(0)
	if !xy.IsPointInRing(outer.Layout(), c, outer.FlatCoords()) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		hole := p.LinearRing(i)
		if xy.IsPointInRing(hole.Layout(), c, hole.FlatCoords()) {
			return false
		}
	}
	return true
}
