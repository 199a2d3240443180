package siteselect

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/poi-insight/internal/domain"
	"github.com/poi-insight/internal/grid"
	"github.com/poi-insight/internal/pkg/utils"
)

// Веса метрик в итоговой оценке кандидата.
const (
	weightDemand      = 0.35
	weightAccess      = 0.20
	weightCompetition = 0.25
	weightSynergy     = 0.15
	weightCenter      = 0.05
)

// synergyGroups — дополняющие группы: их плотность рядом с кандидатом
// поднимает оценку синергии.
var synergyGroups = []string{
	domain.GroupRetail,
	domain.GroupFood,
	domain.GroupLife,
	domain.GroupEntertainment,
	domain.GroupTourism,
}

// Config задаёт параметры генерации кандидатов и сбора метрик.
type Config struct {
	// SpacingMeters — базовый шаг сетки кандидатов.
	SpacingMeters float64
	// MaxCandidates — потолок числа кандидатов; при превышении шаг
	// расширяется на sqrt(оценка/потолок).
	MaxCandidates int
	// MetricRadiusMeters — радиус сбора счётных метрик вокруг кандидата.
	MetricRadiusMeters float64
	// AccessCapMeters — предел расстояния до ближайшей точки доступа.
	AccessCapMeters float64
	// TopN — сколько кандидатов возвращать, когда запрос не задал своё N.
	TopN int
}

// DefaultConfig возвращает параметры подбора площадок по умолчанию.
func DefaultConfig() Config {
	return Config{
		SpacingMeters:      400,
		MaxCandidates:      900,
		MetricRadiusMeters: 800,
		AccessCapMeters:    5000,
		TopN:               10,
	}
}

// Metrics — нормализованные значения пяти метрик кандидата, каждое в [0,1].
type Metrics struct {
	Demand      float64 `json:"demand"`
	Access      float64 `json:"access"`
	Competition float64 `json:"competition"`
	Synergy     float64 `json:"synergy"`
	Center      float64 `json:"center"`
}

// RawCounts — сырые значения метрик до нормализации, для объяснимости.
type RawCounts struct {
	CompetitionCount int     `json:"competition_count"`
	DemandCount      int     `json:"demand_count"`
	SynergyCount     int     `json:"synergy_count"`
	AccessMeters     float64 `json:"access_distance_m"`
	CenterMeters     float64 `json:"center_distance_m"`
}

// Result — оценённый кандидат на размещение объекта.
type Result struct {
	Lng     float64   `json:"lng"`
	Lat     float64   `json:"lat"`
	Metrics Metrics   `json:"metrics"`
	Total   float64   `json:"total"`
	Raw     RawCounts `json:"debug_raw_counts"`
}

// Scorer ранжирует места для открытия объекта целевой группы внутри
// прямоугольника. Вызывающая сторона отвечает за валидацию входа:
// скоринг предполагает корректный, ограниченный по площади запрос.
type Scorer struct {
	cfg    Config
	logger *zap.Logger
}

// NewScorer создаёт скоринговый движок с заданными параметрами.
func NewScorer(cfg Config, logger *zap.Logger) *Scorer {
	def := DefaultConfig()
	if cfg.SpacingMeters <= 0 {
		cfg.SpacingMeters = def.SpacingMeters
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = def.MaxCandidates
	}
	if cfg.MetricRadiusMeters <= 0 {
		cfg.MetricRadiusMeters = def.MetricRadiusMeters
	}
	if cfg.AccessCapMeters <= 0 {
		cfg.AccessCapMeters = def.AccessCapMeters
	}
	if cfg.TopN <= 0 {
		cfg.TopN = def.TopN
	}
	return &Scorer{cfg: cfg, logger: logger}
}

type candidate struct {
	lng float64
	lat float64
}

type rawMetrics struct {
	competition float64
	demand      float64
	synergy     float64
	access      float64
	center      float64
}

// Rank генерирует сетку кандидатов внутри прямоугольника, собирает пять
// метрик по каждому, нормализует их по всему набору и возвращает topN
// лучших по взвешенной сумме. Пересчитывается полностью на каждый запрос.
func (s *Scorer) Rank(grids *grid.Set, targetGroup string, b domain.BBox, topN int) []Result {
	started := time.Now()

	cands := s.candidates(b)
	if len(cands) == 0 {
		return []Result{}
	}

	centerLng, centerLat := b.Center()

	// Transport points anchor the access metric when the dataset has any,
	// otherwise any point at all counts as access.
	accessGroup := domain.GroupAll
	if grids.Ensure(domain.GroupTransport).Size() > 0 {
		accessGroup = domain.GroupTransport
	}

	raws := make([]rawMetrics, len(cands))
	for i, c := range cands {
		rb := radiusBBox(c.lng, c.lat, s.cfg.MetricRadiusMeters)

		competition := grids.CountInBBox(targetGroup, rb)
		all := grids.CountInBBox(domain.GroupAll, rb)

		synergy := 0
		for _, g := range synergyGroups {
			synergy += grids.CountInBBox(g, rb)
		}

		access := s.cfg.AccessCapMeters
		if d, ok := grids.Nearest(accessGroup, c.lng, c.lat); ok && d < access {
			access = d
		}

		raws[i] = rawMetrics{
			competition: float64(competition),
			demand:      float64(all - competition),
			synergy:     float64(synergy),
			access:      access,
			center:      utils.HaversineMeters(c.lat, c.lng, centerLat, centerLng),
		}
	}

	results := s.score(cands, raws)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Total > results[j].Total
	})

	if topN <= 0 {
		topN = s.cfg.TopN
	}
	if len(results) > topN {
		results = results[:topN]
	}

	s.logger.Debug("site selection ranked",
		zap.String("target_group", targetGroup),
		zap.Int("candidates", len(cands)),
		zap.Int("returned", len(results)),
		zap.Duration("took", time.Since(started)),
	)
	return results
}

// candidates раскладывает равномерную сетку по прямоугольнику. Шаг
// расширяется, когда наивная сетка превысила бы потолок кандидатов;
// вырожденный прямоугольник сводится к единственному центроиду.
func (s *Scorer) candidates(b domain.BBox) []candidate {
	lngSpan := b.MaxLng - b.MinLng
	latSpan := b.MaxLat - b.MinLat
	if lngSpan <= 0 || latSpan <= 0 {
		lng, lat := b.Center()
		return []candidate{{lng: lng, lat: lat}}
	}

	_, centerLat := b.Center()

	spacing := s.cfg.SpacingMeters
	limit := float64(s.cfg.MaxCandidates)
	for i := 0; i < 4; i++ {
		est := s.estimate(b, centerLat, spacing)
		if est <= limit {
			break
		}
		spacing *= math.Sqrt(est / limit)
	}

	dLng := utils.MetersToLngDegrees(spacing, centerLat)
	dLat := utils.MetersToLatDegrees(spacing)

	out := make([]candidate, 0, s.cfg.MaxCandidates)
	for lat := b.MinLat; lat <= b.MaxLat; lat += dLat {
		for lng := b.MinLng; lng <= b.MaxLng; lng += dLng {
			out = append(out, candidate{lng: lng, lat: lat})
		}
	}
	return out
}

func (s *Scorer) estimate(b domain.BBox, centerLat, spacing float64) float64 {
	cols := (b.MaxLng-b.MinLng)/utils.MetersToLngDegrees(spacing, centerLat) + 1
	rows := (b.MaxLat-b.MinLat)/utils.MetersToLatDegrees(spacing) + 1
	return cols * rows
}

// score нормализует метрики по всему набору кандидатов и собирает итог.
// Конкуренция, доступ и удалённость от центра инвертируются: меньше —
// лучше. Метрика без разброса даёт всем кандидатам 0.5.
func (s *Scorer) score(cands []candidate, raws []rawMetrics) []Result {
	n := len(raws)
	column := func(pick func(rawMetrics) float64) []float64 {
		col := make([]float64, n)
		for i, r := range raws {
			col[i] = pick(r)
		}
		return col
	}

	demand := normalize(column(func(r rawMetrics) float64 { return r.demand }))
	access := normalize(column(func(r rawMetrics) float64 { return r.access }))
	competition := normalize(column(func(r rawMetrics) float64 { return r.competition }))
	synergy := normalize(column(func(r rawMetrics) float64 { return r.synergy }))
	center := normalize(column(func(r rawMetrics) float64 { return r.center }))

	results := make([]Result, n)
	for i := range results {
		m := Metrics{
			Demand:      demand[i],
			Access:      1 - access[i],
			Competition: 1 - competition[i],
			Synergy:     synergy[i],
			Center:      1 - center[i],
		}
		results[i] = Result{
			Lng:     cands[i].lng,
			Lat:     cands[i].lat,
			Metrics: m,
			Total: weightDemand*m.Demand +
				weightAccess*m.Access +
				weightCompetition*m.Competition +
				weightSynergy*m.Synergy +
				weightCenter*m.Center,
			Raw: RawCounts{
				CompetitionCount: int(raws[i].competition),
				DemandCount:      int(raws[i].demand),
				SynergyCount:     int(raws[i].synergy),
				AccessMeters:     raws[i].access,
				CenterMeters:     raws[i].center,
			},
		}
	}
	return results
}

// normalize приводит значения к [0,1] линейным min-max преобразованием.
func normalize(values []float64) []float64 {
	lo, hi := floats.Min(values), floats.Max(values)
	out := make([]float64, len(values))
	if hi-lo < 1e-12 {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	span := hi - lo
	for i, v := range values {
		out[i] = (v - lo) / span
	}
	return out
}

func radiusBBox(lng, lat, radius float64) domain.BBox {
	dLat := utils.MetersToLatDegrees(radius)
	dLng := utils.MetersToLngDegrees(radius, lat)
	return domain.BBox{
		MinLng: lng - dLng,
		MinLat: lat - dLat,
		MaxLng: lng + dLng,
		MaxLat: lat + dLat,
	}
}
