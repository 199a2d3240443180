package cluster

import (
	"encoding/json"
	"math"

	"github.com/poi-insight/internal/domain"
)

// Options задают геометрию иерархии кластеров
type Options struct {
	MinZoom   int
	MaxZoom   int
	Radius    float64
	Extent    float64
	NodeSize  int
	MinPoints int
}

// DefaultOptions возвращает параметры по умолчанию
func DefaultOptions() Options {
	return Options{
		MinZoom:   0,
		MaxZoom:   16,
		Radius:    40,
		Extent:    512,
		NodeSize:  64,
		MinPoints: 2,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxZoom <= 0 {
		o.MaxZoom = d.MaxZoom
	}
	if o.Radius <= 0 {
		o.Radius = d.Radius
	}
	if o.Extent <= 0 {
		o.Extent = d.Extent
	}
	if o.NodeSize <= 0 {
		o.NodeSize = d.NodeSize
	}
	if o.MinPoints <= 0 {
		o.MinPoints = d.MinPoints
	}
	if o.MinZoom < 0 {
		o.MinZoom = 0
	}
	if o.MinZoom > o.MaxZoom {
		o.MinZoom = o.MaxZoom
	}
	return o
}

// Маркер "уровень ещё не обработан" для элементов деревьев
const zoomInfinity = math.MaxInt32

// treeItem — элемент дерева одного уровня: исходная точка или агрегат.
// Для точки source хранит индекс в наборе, для агрегата — кодированный
// идентификатор кластера.
type treeItem struct {
	x, y      float64
	zoom      int
	source    int
	parentID  int
	numPoints int
}

type tree struct {
	bush  *kdbush
	items []treeItem
}

func newTree(items []treeItem, nodeSize int) *tree {
	return &tree{bush: newKDBush(items, nodeSize), items: items}
}

// Node — один элемент результата запроса: либо агрегат с числом точек,
// либо исходная точка
type Node struct {
	Lng       float64
	Lat       float64
	Count     int
	ClusterID int
	Point     *domain.Point
}

// IsCluster сообщает, что узел является агрегатом
func (n Node) IsCluster() bool {
	return n.Point == nil
}

// MarshalJSON кодирует агрегат с полями cluster_id/point_count, а лист —
// свойствами исходной точки; наличие point_count различает их на проводе
func (n Node) MarshalJSON() ([]byte, error) {
	if n.IsCluster() {
		return json.Marshal(struct {
			Lng       float64 `json:"lng"`
			Lat       float64 `json:"lat"`
			ClusterID int     `json:"cluster_id"`
			Count     int     `json:"point_count"`
		}{n.Lng, n.Lat, n.ClusterID, n.Count})
	}
	return json.Marshal(n.Point)
}

// Index — неизменяемая иерархия кластеров над фиксированным набором точек.
// Деревья всех уровней строятся один раз при создании; один индекс отвечает
// на запросы при любом зуме. Индекс над пустым набором отвечает пустым
// результатом на любой запрос.
type Index struct {
	opts   Options
	points []domain.Point
	trees  []*tree
}

// NewIndex строит иерархию кластеров над набором точек
func NewIndex(points []domain.Point, opts Options) *Index {
	opts = opts.withDefaults()
	idx := &Index{opts: opts, points: points}
	idx.trees = make([]*tree, opts.MaxZoom+2)

	items := make([]treeItem, len(points))
	for i, p := range points {
		items[i] = treeItem{
			x:         lngX(p.Lng),
			y:         latY(p.Lat),
			zoom:      zoomInfinity,
			source:    i,
			parentID:  -1,
			numPoints: 1,
		}
	}
	idx.trees[opts.MaxZoom+1] = newTree(items, opts.NodeSize)

	// Каждый уровень строится жадным слиянием элементов уровня выше
	for z := opts.MaxZoom; z >= opts.MinZoom; z-- {
		idx.trees[z] = newTree(idx.cluster(idx.trees[z+1], z), opts.NodeSize)
	}
	return idx
}

// Size возвращает количество исходных точек индекса
func (idx *Index) Size() int {
	return len(idx.points)
}

// Query возвращает агрегаты и точки внутри прямоугольника на заданном зуме
func (idx *Index) Query(bbox domain.BBox, zoom int) []Node {
	t := idx.trees[idx.limitZoom(zoom)]

	minX := lngX(clampLng(bbox.MinLng))
	maxX := lngX(clampLng(bbox.MaxLng))
	// Ось Y проекции направлена вниз
	minY := latY(clampLat(bbox.MaxLat))
	maxY := latY(clampLat(bbox.MinLat))

	ids := t.bush.Range(minX, minY, maxX, maxY)
	nodes := make([]Node, 0, len(ids))
	for _, i := range ids {
		it := t.items[i]
		if it.numPoints > 1 {
			nodes = append(nodes, Node{
				Lng:       xLng(it.x),
				Lat:       yLat(it.y),
				Count:     it.numPoints,
				ClusterID: it.source,
			})
		} else {
			nodes = append(nodes, Node{
				Lng:   idx.points[it.source].Lng,
				Lat:   idx.points[it.source].Lat,
				Count: 1,
				Point: &idx.points[it.source],
			})
		}
	}
	return nodes
}

// ExpansionZoom возвращает минимальный зум, на котором кластер распадается.
// Для неизвестного идентификатора возвращает false вместо ошибки.
func (idx *Index) ExpansionZoom(clusterID int) (int, bool) {
	children, ok := idx.children(clusterID)
	if !ok {
		return 0, false
	}
	zoom := idx.originZoom(clusterID)
	for zoom <= idx.opts.MaxZoom && len(children) == 1 && children[0].numPoints > 1 {
		clusterID = children[0].source
		children, ok = idx.children(clusterID)
		if !ok {
			return 0, false
		}
		zoom = idx.originZoom(clusterID)
	}
	return zoom, true
}

// Leaves возвращает исходные точки кластера в стабильном порядке
func (idx *Index) Leaves(clusterID, limit, offset int) ([]domain.Point, bool) {
	if limit <= 0 {
		limit = len(idx.points)
	}
	var result []domain.Point
	if _, ok := idx.appendLeaves(&result, clusterID, limit, offset, 0); !ok {
		return nil, false
	}
	return result, true
}

// cluster собирает элементы уровня zoom из элементов уровня zoom+1,
// сливая соседей в пределах пиксельного радиуса во взвешенный центроид
func (idx *Index) cluster(t *tree, zoom int) []treeItem {
	r := idx.opts.Radius / (idx.opts.Extent * math.Exp2(float64(zoom)))
	var clusters []treeItem

	for i := range t.items {
		p := &t.items[i]
		if p.zoom <= zoom {
			continue
		}
		p.zoom = zoom

		neighborIDs := t.bush.Within(p.x, p.y, r)

		numPointsOrigin := p.numPoints
		numPoints := numPointsOrigin
		for _, nid := range neighborIDs {
			if b := &t.items[nid]; b.zoom > zoom {
				numPoints += b.numPoints
			}
		}

		if numPoints > numPointsOrigin && numPoints >= idx.opts.MinPoints {
			wx := p.x * float64(numPointsOrigin)
			wy := p.y * float64(numPointsOrigin)

			// Идентификатор кодирует позицию и зум происхождения
			id := (i << 5) + (zoom + 1) + len(idx.points)

			for _, nid := range neighborIDs {
				b := &t.items[nid]
				if b.zoom <= zoom {
					continue
				}
				b.zoom = zoom
				wx += b.x * float64(b.numPoints)
				wy += b.y * float64(b.numPoints)
				b.parentID = id
			}
			p.parentID = id

			clusters = append(clusters, treeItem{
				x:         wx / float64(numPoints),
				y:         wy / float64(numPoints),
				zoom:      zoomInfinity,
				source:    id,
				parentID:  -1,
				numPoints: numPoints,
			})
		} else {
			clusters = append(clusters, *p)

			if numPoints > 1 {
				for _, nid := range neighborIDs {
					b := &t.items[nid]
					if b.zoom <= zoom {
						continue
					}
					b.zoom = zoom
					clusters = append(clusters, *b)
				}
			}
		}
	}
	return clusters
}

// children возвращает элементы, из которых кластер был собран
func (idx *Index) children(clusterID int) ([]treeItem, bool) {
	if clusterID < len(idx.points) {
		return nil, false
	}

	originID := (clusterID - len(idx.points)) >> 5
	originZoom := idx.originZoom(clusterID)
	if originZoom < idx.opts.MinZoom+1 || originZoom > idx.opts.MaxZoom+1 {
		return nil, false
	}

	t := idx.trees[originZoom]
	if originID < 0 || originID >= len(t.items) {
		return nil, false
	}
	origin := t.items[originID]

	r := idx.opts.Radius / (idx.opts.Extent * math.Exp2(float64(originZoom-1)))
	ids := t.bush.Within(origin.x, origin.y, r)

	var children []treeItem
	for _, i := range ids {
		if t.items[i].parentID == clusterID {
			children = append(children, t.items[i])
		}
	}
	if len(children) == 0 {
		return nil, false
	}
	return children, true
}

func (idx *Index) appendLeaves(result *[]domain.Point, clusterID, limit, offset, skipped int) (int, bool) {
	children, ok := idx.children(clusterID)
	if !ok {
		return skipped, false
	}
	for _, child := range children {
		switch {
		case child.numPoints > 1:
			if skipped+child.numPoints <= offset {
				skipped += child.numPoints
			} else {
				skipped, ok = idx.appendLeaves(result, child.source, limit, offset, skipped)
				if !ok {
					return skipped, false
				}
			}
		case skipped < offset:
			skipped++
		default:
			*result = append(*result, idx.points[child.source])
		}
		if len(*result) == limit {
			break
		}
	}
	return skipped, true
}

// originZoom восстанавливает зум создания кластера из идентификатора
func (idx *Index) originZoom(clusterID int) int {
	return (clusterID - len(idx.points)) % 32
}

func (idx *Index) limitZoom(zoom int) int {
	return maxInt(idx.opts.MinZoom, minInt(zoom, idx.opts.MaxZoom+1))
}
