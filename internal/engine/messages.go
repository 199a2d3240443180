package engine

import (
	"encoding/json"

	"github.com/poi-insight/internal/cluster"
	"github.com/poi-insight/internal/domain"
	"github.com/poi-insight/internal/siteselect"
)

// Kind — вид сообщения протокола движка.
type Kind string

// Виды запросов.
const (
	KindInit           Kind = "INIT"
	KindBuildIndex     Kind = "BUILD_INDEX"
	KindQuery          Kind = "QUERY"
	KindExpand         Kind = "EXPAND"
	KindApplyIsochrone Kind = "APPLY_ISOCHRONE"
	KindClearIsochrone Kind = "CLEAR_ISOCHRONE"
	KindBBoxStats      Kind = "BBOX_STATS"
	KindSiteSelect     Kind = "SITE_SELECT"
	KindStats          Kind = "STATS"
)

// Виды ответов.
const (
	KindInitDone         Kind = "INIT_DONE"
	KindIndexReady       Kind = "INDEX_READY"
	KindQueryResult      Kind = "QUERY_RESULT"
	KindExpandResult     Kind = "EXPAND_RESULT"
	KindIsoIndexReady    Kind = "ISO_INDEX_READY"
	KindIsoCleared       Kind = "ISO_CLEARED"
	KindBBoxStatsResult  Kind = "BBOX_STATS_RESULT"
	KindSiteSelectResult Kind = "SITE_SELECT_RESULT"
	KindStatsResult      Kind = "STATS_RESULT"
	KindError            Kind = "ERROR"
)

// responseKind возвращает вид успешного ответа на запрос данного вида.
func (k Kind) responseKind() Kind {
	switch k {
	case KindInit:
		return KindInitDone
	case KindBuildIndex:
		return KindIndexReady
	case KindQuery:
		return KindQueryResult
	case KindExpand:
		return KindExpandResult
	case KindApplyIsochrone:
		return KindIsoIndexReady
	case KindClearIsochrone:
		return KindIsoCleared
	case KindBBoxStats:
		return KindBBoxStatsResult
	case KindSiteSelect:
		return KindSiteSelectResult
	case KindStats:
		return KindStatsResult
	}
	return KindError
}

// Request — конверт запроса. Payload разбирается по значению Kind.
type Request struct {
	Kind      Kind            `json:"kind" validate:"required"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Response — конверт ответа. RequestID всегда дословно повторяет
// идентификатор запроса, чтобы вызывающая сторона могла отбрасывать
// устаревшие ответы при быстрой смене вьюпорта.
type Response struct {
	Kind      Kind        `json:"kind"`
	RequestID string      `json:"request_id"`
	Payload   interface{} `json:"payload"`
}

// IsError сообщает, что ответ является ошибкой.
func (r Response) IsError() bool {
	return r.Kind == KindError
}

// ErrorPayload — тело ответа ERROR с видом исходного запроса.
type ErrorPayload struct {
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	SourceType string `json:"source_type"`
	Stack      string `json:"stack,omitempty"`
}

// InitRequest задаёт источники загрузки; пустые поля берутся из
// конфигурации движка.
type InitRequest struct {
	DatasetSource string `json:"dataset_source,omitempty"`
	RulesetSource string `json:"ruleset_source,omitempty"`
	CoordSys      string `json:"coord_sys,omitempty" validate:"omitempty,oneof=wgs84 gcj02 bd09"`
}

// InitDone — итог загрузки и классификации набора данных.
type InitDone struct {
	TotalCount     int                `json:"total_count"`
	PerGroupCounts map[string]int     `json:"per_group_counts"`
	RulesetMeta    domain.RulesetMeta `json:"ruleset_meta"`
	Generation     uint64             `json:"generation"`
	DroppedRecords int                `json:"dropped_records"`
}

// BuildIndexRequest просит заранее построить индексы перечисленных групп.
type BuildIndexRequest struct {
	Groups []string `json:"groups" validate:"required,min=1,dive,required"`
}

// IndexReady перечисляет группы, индексы которых готовы.
type IndexReady struct {
	Groups []string `json:"groups"`
}

// QueryRequest — запрос вьюпорта: агрегаты и точки групп внутри
// прямоугольника на заданном зуме.
type QueryRequest struct {
	BBox        domain.BBox `json:"bbox"`
	Zoom        float64     `json:"zoom" validate:"gte=0,lte=24"`
	Groups      []string    `json:"groups" validate:"required,min=1,dive,required"`
	IncludeHull bool        `json:"include_hull,omitempty"`
	UseIsoScope bool        `json:"use_iso_scope,omitempty"`
}

// ClusterHull — выпуклая оболочка точек одного агрегата.
type ClusterHull struct {
	ClusterID int          `json:"cluster_id"`
	Ring      [][2]float64 `json:"ring"`
}

// GroupQueryResult — результат запроса по одной группе.
type GroupQueryResult struct {
	Points []cluster.Node `json:"points"`
	Hulls  []ClusterHull  `json:"hulls,omitempty"`
}

// QueryResult — результаты запроса вьюпорта по группам.
type QueryResult struct {
	PerGroup map[string]GroupQueryResult `json:"per_group"`
}

// ExpandRequest спрашивает зум, на котором агрегат распадается.
type ExpandRequest struct {
	Group       string `json:"group" validate:"required"`
	ClusterID   int    `json:"cluster_id" validate:"gte=0"`
	UseIsoScope bool   `json:"use_iso_scope,omitempty"`
}

// ExpandResult несёт зум распада; null — кластер неизвестен индексу.
type ExpandResult struct {
	Zoom *int `json:"zoom"`
}

// ApplyIsochroneRequest активирует полигон достижимости для групп.
type ApplyIsochroneRequest struct {
	Polygon json.RawMessage `json:"polygon,omitempty"`
	Groups  []string        `json:"groups" validate:"required,min=1,dive,required"`
}

// IsoIndexReady — состояние изоохвата после построения.
type IsoIndexReady struct {
	CountsByGroup map[string]int            `json:"counts_by_group"`
	PointsByGroup map[string][]domain.Point `json:"points_by_group"`
	BuiltGroups   []string                  `json:"built_groups"`
}

// IsoCleared подтверждает сброс изоохвата.
type IsoCleared struct {
	Cleared bool `json:"cleared"`
}

// BBoxStatsRequest — запрос числа точек по группам внутри прямоугольника.
type BBoxStatsRequest struct {
	BBox domain.BBox `json:"bbox"`
}

// BBoxStatsResult — количество точек в прямоугольнике по группам.
type BBoxStatsResult struct {
	PoiTotal int            `json:"poi_total"`
	ByGroup  map[string]int `json:"by_group"`
}

// SiteSelectRequest — запрос ранжирования мест для целевой группы.
type SiteSelectRequest struct {
	BBox        domain.BBox `json:"bbox"`
	TargetGroup string      `json:"target_group" validate:"required"`
	TopN        int         `json:"top_n,omitempty" validate:"gte=0,lte=200"`
}

// SiteSelectResult — ранжированные кандидаты; пустой список для
// неизвестной или служебной целевой группы.
type SiteSelectResult struct {
	Results []siteselect.Result `json:"results"`
}

// StatsResult — снимок состояния движка для сервисных ручек.
type StatsResult struct {
	Ready      bool               `json:"ready"`
	UptimeSec  float64            `json:"uptime_sec"`
	Statistics *domain.Statistics `json:"statistics,omitempty"`
}
