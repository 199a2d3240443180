package store

import (
	"sort"
	"strconv"

	"github.com/poi-insight/internal/classify"
	"github.com/poi-insight/internal/domain"
	"github.com/poi-insight/internal/pkg/utils"
)

// Ordered candidate field names tried during record extraction
var (
	lngFields  = []string{"lng", "lon", "longitude", "x"}
	latFields  = []string{"lat", "latitude", "y"}
	nameFields = []string{"name", "title", "label"}
	typeFields = []string{"type", "category", "class", "kind"}
	idFields   = []string{"id", "poi_id", "uid"}
)

// Store владеет полным классифицированным набором точек, разбитым по
// группам, с накопленными охватывающими прямоугольниками и счётчиками.
// После загрузки точки не изменяются; повторная загрузка заменяет
// содержимое целиком.
type Store struct {
	classifier *classify.Classifier
	coordSys   string

	points  []domain.Point
	byGroup map[string][]domain.Point
	bboxes  map[string]domain.BBox
	allBBox domain.BBox
	dropped int
}

// New создаёт пустое хранилище над классификатором.
// coordSys задаёт систему координат источника; преобразование в WGS84
// выполняется один раз при загрузке.
func New(classifier *classify.Classifier, coordSys string) *Store {
	return &Store{
		classifier: classifier,
		coordSys:   coordSys,
		byGroup:    make(map[string][]domain.Point),
		bboxes:     make(map[string]domain.BBox),
		allBBox:    domain.EmptyBBox(),
	}
}

// Ingest классифицирует записи и заменяет содержимое хранилища целиком.
// Записи без разбираемых координат и записи служебных групп отбрасываются
// молча. Возвращает количество точек по группам.
func (s *Store) Ingest(records []domain.RawRecord) map[string]int {
	points := make([]domain.Point, 0, len(records))
	byGroup := make(map[string][]domain.Point)
	bboxes := make(map[string]domain.BBox)
	allBBox := domain.EmptyBBox()
	dropped := 0

	for i, rec := range records {
		lng, lngOK := extractFloat(rec, lngFields)
		lat, latOK := extractFloat(rec, latFields)
		if !lngOK || !latOK || !utils.ValidateCoordinates(lat, lng) {
			dropped++
			continue
		}

		switch s.coordSys {
		case domain.CoordSysGCJ02:
			lat, lng = utils.GCJ02ToWGS84(lat, lng)
		case domain.CoordSysBD09:
			lat, lng = utils.BD09ToWGS84(lat, lng)
		}

		rawType, _ := extractString(rec, typeFields)
		group := s.classifier.Classify(rawType)
		if domain.IsReservedGroup(group) {
			dropped++
			continue
		}

		name, _ := extractString(rec, nameFields)
		id, ok := extractString(rec, idFields)
		if !ok || id == "" {
			id = "p" + strconv.Itoa(i)
		}

		p := domain.Point{ID: id, Name: name, Group: group, Lng: lng, Lat: lat}
		points = append(points, p)
		byGroup[group] = append(byGroup[group], p)

		bbox, seen := bboxes[group]
		if !seen {
			bbox = domain.EmptyBBox()
		}
		bbox.Extend(lng, lat)
		bboxes[group] = bbox
		allBBox.Extend(lng, lat)
	}

	s.points = points
	s.byGroup = byGroup
	s.bboxes = bboxes
	s.allBBox = allBBox
	s.dropped = dropped

	counts := make(map[string]int, len(byGroup))
	for group, pts := range byGroup {
		counts[group] = len(pts)
	}
	return counts
}

// PointsOf возвращает точки группы; псевдогруппа all возвращает весь набор
func (s *Store) PointsOf(group string) []domain.Point {
	if group == domain.GroupAll {
		return s.points
	}
	return s.byGroup[group]
}

// AllPoints возвращает весь набор точек
func (s *Store) AllPoints() []domain.Point {
	return s.points
}

// GroupBBox возвращает охватывающий прямоугольник группы
func (s *Store) GroupBBox(group string) (domain.BBox, bool) {
	if group == domain.GroupAll {
		return s.allBBox, len(s.points) > 0
	}
	bbox, ok := s.bboxes[group]
	return bbox, ok
}

// GroupCounts возвращает количество точек по группам
func (s *Store) GroupCounts() map[string]int {
	counts := make(map[string]int, len(s.byGroup))
	for group, pts := range s.byGroup {
		counts[group] = len(pts)
	}
	return counts
}

// Groups возвращает отсортированный список групп с точками
func (s *Store) Groups() []string {
	groups := make([]string, 0, len(s.byGroup))
	for group := range s.byGroup {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	return groups
}

// HasGroup проверяет наличие группы в наборе
func (s *Store) HasGroup(group string) bool {
	if group == domain.GroupAll {
		return len(s.points) > 0
	}
	_, ok := s.byGroup[group]
	return ok
}

// Total возвращает количество загруженных точек
func (s *Store) Total() int {
	return len(s.points)
}

// Dropped возвращает количество отброшенных записей последней загрузки
func (s *Store) Dropped() int {
	return s.dropped
}

// extractFloat пробует кандидатов по порядку и разбирает первое
// присутствующее значение как число
func extractFloat(rec domain.RawRecord, candidates []string) (float64, bool) {
	for _, key := range candidates {
		raw, ok := rec[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return v, true
		case float32:
			return float64(v), true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// extractString пробует кандидатов по порядку; числовые значения
// форматируются без потери значащих цифр
func extractString(rec domain.RawRecord, candidates []string) (string, bool) {
	for _, key := range candidates {
		raw, ok := rec[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case string:
			return v, true
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		case int:
			return strconv.Itoa(v), true
		case int64:
			return strconv.FormatInt(v, 10), true
		}
	}
	return "", false
}
