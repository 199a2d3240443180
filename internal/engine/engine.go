package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/poi-insight/internal/classify"
	"github.com/poi-insight/internal/cluster"
	"github.com/poi-insight/internal/domain"
	"github.com/poi-insight/internal/domain/repository"
	"github.com/poi-insight/internal/grid"
	"github.com/poi-insight/internal/isoscope"
	"github.com/poi-insight/internal/pkg/errors"
	"github.com/poi-insight/internal/pkg/validator"
	"github.com/poi-insight/internal/siteselect"
	"github.com/poi-insight/internal/store"
)

// Config собирает параметры движка и источники INIT по умолчанию.
type Config struct {
	Cluster      cluster.Options
	GridCellSize float64
	Site         siteselect.Config

	// HullMaxZoom — оболочки кластеров считаются на зумах строго ниже порога.
	HullMaxZoom int
	// HullMinPoints — минимальный размер агрегата, которому строится оболочка.
	HullMinPoints int
	// SiteBBoxLimitDegrees — максимальная сторона прямоугольника SITE_SELECT.
	SiteBBoxLimitDegrees float64
	// QueueSize — ёмкость канала запросов.
	QueueSize int
	// Defaults — источники INIT, когда запрос их не назвал.
	Defaults InitRequest
}

// DefaultConfig возвращает параметры движка по умолчанию.
func DefaultConfig() Config {
	return Config{
		Cluster:              cluster.DefaultOptions(),
		GridCellSize:         grid.DefaultCellSize,
		Site:                 siteselect.DefaultConfig(),
		HullMaxZoom:          15,
		HullMinPoints:        10,
		SiteBBoxLimitDegrees: 0.5,
		QueueSize:            64,
	}
}

type task struct {
	ctx   context.Context
	req   Request
	reply chan Response
}

// Engine — диспетчер запросов анализа. Все изменяемые структуры (хранилище
// точек, кластерные индексы, сетки, изоохват) принадлежат горутине Run;
// запросы обрабатываются строго по одному, поэтому загрузка данных и
// активация изоохвата никогда не наблюдаются в недостроенном виде.
type Engine struct {
	cfg      Config
	logger   *zap.Logger
	datasets repository.DatasetRepository
	rulesets repository.RulesetRepository

	tasks     chan task
	startedAt time.Time
	readyFlag atomic.Bool

	// Текущие классификатор и поколение, доступные читателям вне горутины Run.
	curClassifier atomic.Pointer[classify.Classifier]
	curGeneration atomic.Uint64

	// Состояние ниже доступно только из горутины Run.
	classifier  *classify.Classifier
	store       *store.Store
	clusters    *cluster.Manager
	grids       *grid.Set
	scope       *isoscope.Scope
	scopeRaw    []byte
	scorer      *siteselect.Scorer
	generation  uint64
	datasetMeta *domain.DatasetMeta
	rulesetMeta domain.RulesetMeta
	ingestedAt  time.Time
}

// New создаёт движок. Запросы ставятся в очередь сразу, но обрабатываются
// только после запуска Run.
func New(cfg Config, datasets repository.DatasetRepository, rulesets repository.RulesetRepository, logger *zap.Logger) *Engine {
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.HullMaxZoom <= 0 {
		cfg.HullMaxZoom = def.HullMaxZoom
	}
	if cfg.HullMinPoints <= 0 {
		cfg.HullMinPoints = def.HullMinPoints
	}
	if cfg.GridCellSize <= 0 {
		cfg.GridCellSize = def.GridCellSize
	}
	if cfg.SiteBBoxLimitDegrees <= 0 {
		cfg.SiteBBoxLimitDegrees = def.SiteBBoxLimitDegrees
	}

	eng := &Engine{
		cfg:       cfg,
		logger:    logger,
		datasets:  datasets,
		rulesets:  rulesets,
		tasks:     make(chan task, cfg.QueueSize),
		startedAt: time.Now(),
		scorer:    siteselect.NewScorer(cfg.Site, logger),
	}
	eng.curClassifier.Store(classify.NewBuiltin())
	return eng
}

// Run обрабатывает запросы до отмены контекста. Единственный потребитель
// канала задач; параллельного выполнения запросов не бывает.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("analysis engine started")
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("analysis engine stopped")
			return
		case t := <-e.tasks:
			t.reply <- e.process(t.ctx, t.req)
		}
	}
}

// Do отправляет запрос движку и ждёт ответ. Запрос без идентификатора
// получает его здесь; ответ несёт тот же идентификатор дословно.
func (e *Engine) Do(ctx context.Context, req Request) Response {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	t := task{ctx: ctx, req: req, reply: make(chan Response, 1)}
	select {
	case e.tasks <- t:
	case <-ctx.Done():
		return errorResponse(req, errors.ErrInternalServer.Code, "engine queue unavailable: "+ctx.Err().Error())
	}

	select {
	case resp := <-t.reply:
		return resp
	case <-ctx.Done():
		return errorResponse(req, errors.ErrInternalServer.Code, "request abandoned: "+ctx.Err().Error())
	}
}

// Ready сообщает, что набор данных загружен и запросы выполнимы.
func (e *Engine) Ready() bool {
	return e.readyFlag.Load()
}

// Classify прогоняет сырую строку категории через текущий набор правил.
// До первой инициализации действует встроенный набор.
func (e *Engine) Classify(raw string) classify.Classification {
	return e.curClassifier.Load().Explain(raw)
}

// Generation возвращает номер поколения загруженного набора данных.
// Ноль — набор ещё не загружался.
func (e *Engine) Generation() uint64 {
	return e.curGeneration.Load()
}

func (e *Engine) process(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			e.logger.Error("request handler panicked",
				zap.String("kind", string(req.Kind)),
				zap.String("request_id", req.RequestID),
				zap.Any("cause", r),
				zap.String("stack", stack),
			)
			resp = Response{
				Kind:      KindError,
				RequestID: req.RequestID,
				Payload: ErrorPayload{
					Code:       errors.ErrAnalysisFailed.Code,
					Message:    fmt.Sprintf("%v", r),
					SourceType: string(req.Kind),
					Stack:      stack,
				},
			}
		}
	}()

	started := time.Now()
	payload, err := e.dispatch(ctx, req)
	if err != nil {
		code := errors.ErrAnalysisFailed.Code
		var appErr *errors.AppError
		if eris.As(err, &appErr) {
			code = appErr.Code
		}
		e.logger.Warn("request failed",
			zap.String("kind", string(req.Kind)),
			zap.String("request_id", req.RequestID),
			zap.Error(err),
		)
		return errorResponse(req, code, err.Error())
	}

	e.logger.Debug("request served",
		zap.String("kind", string(req.Kind)),
		zap.String("request_id", req.RequestID),
		zap.Duration("took", time.Since(started)),
	)
	return Response{Kind: req.Kind.responseKind(), RequestID: req.RequestID, Payload: payload}
}

func (e *Engine) dispatch(ctx context.Context, req Request) (interface{}, error) {
	switch req.Kind {
	case KindInit:
		var p InitRequest
		if err := decodePayload(req.Payload, &p); err != nil {
			return nil, err
		}
		return e.handleInit(ctx, p)

	case KindBuildIndex:
		if err := e.requireReady(); err != nil {
			return nil, err
		}
		var p BuildIndexRequest
		if err := decodePayload(req.Payload, &p); err != nil {
			return nil, err
		}
		return e.handleBuildIndex(p)

	case KindQuery:
		if err := e.requireReady(); err != nil {
			return nil, err
		}
		var p QueryRequest
		if err := decodePayload(req.Payload, &p); err != nil {
			return nil, err
		}
		return e.handleQuery(ctx, p)

	case KindExpand:
		if err := e.requireReady(); err != nil {
			return nil, err
		}
		var p ExpandRequest
		if err := decodePayload(req.Payload, &p); err != nil {
			return nil, err
		}
		return e.handleExpand(ctx, p)

	case KindApplyIsochrone:
		if err := e.requireReady(); err != nil {
			return nil, err
		}
		var p ApplyIsochroneRequest
		if err := decodePayload(req.Payload, &p); err != nil {
			return nil, err
		}
		return e.handleApplyIsochrone(ctx, p)

	case KindClearIsochrone:
		if err := e.requireReady(); err != nil {
			return nil, err
		}
		return e.handleClearIsochrone()

	case KindBBoxStats:
		if err := e.requireReady(); err != nil {
			return nil, err
		}
		var p BBoxStatsRequest
		if err := decodePayload(req.Payload, &p); err != nil {
			return nil, err
		}
		return e.handleBBoxStats(p)

	case KindSiteSelect:
		if err := e.requireReady(); err != nil {
			return nil, err
		}
		var p SiteSelectRequest
		if err := decodePayload(req.Payload, &p); err != nil {
			return nil, err
		}
		return e.handleSiteSelect(p)

	case KindStats:
		return e.handleStats(), nil
	}

	return nil, errors.ErrInvalidRequest.WithReason(fmt.Sprintf("unknown request kind %q", req.Kind))
}

func (e *Engine) handleInit(ctx context.Context, p InitRequest) (*InitDone, error) {
	if p.DatasetSource == "" {
		p.DatasetSource = e.cfg.Defaults.DatasetSource
	}
	if p.RulesetSource == "" {
		p.RulesetSource = e.cfg.Defaults.RulesetSource
	}
	if p.CoordSys == "" {
		p.CoordSys = e.cfg.Defaults.CoordSys
	}
	if p.CoordSys == "" {
		p.CoordSys = domain.CoordSysWGS84
	}
	if p.DatasetSource == "" {
		return nil, errors.ErrDatasetError.WithReason("no dataset source configured")
	}

	// Любой сбой загрузки правил или непрошедшая проверка формы приводят
	// к встроенному набору, не к ошибке.
	clf := classify.NewBuiltin()
	meta := rulesetMetaOf(clf.Ruleset(), domain.RulesetSourceBuiltin)
	if p.RulesetSource != "" {
		rs, err := e.rulesets.FetchRuleset(ctx, p.RulesetSource)
		if err == nil && rs != nil {
			err = rs.Validate()
		}
		if err != nil || rs == nil {
			e.logger.Warn("external ruleset unusable, falling back to builtin",
				zap.String("source", p.RulesetSource),
				zap.Error(err),
			)
		} else {
			clf = classify.New(rs)
			meta = rulesetMetaOf(rs, domain.RulesetSourceExternal)
		}
	}

	records, dsMeta, err := e.datasets.FetchRecords(ctx, p.DatasetSource)
	if err != nil {
		// Прежнее состояние остаётся нетронутым: повторная загрузка либо
		// завершается целиком, либо не применяется вовсе.
		return nil, errors.ErrDatasetError.WithReason(err.Error())
	}

	st := store.New(clf, p.CoordSys)
	counts := st.Ingest(records)

	e.classifier = clf
	e.curClassifier.Store(clf)
	e.store = st
	e.generation++
	e.curGeneration.Store(e.generation)
	e.clusters = cluster.NewManager(e.pointsOf(st), e.cfg.Cluster, e.logger)
	e.grids = grid.NewSet(e.pointsOf(st), e.cfg.GridCellSize, e.logger)
	e.scope = nil
	e.scopeRaw = nil
	e.datasetMeta = dsMeta
	e.rulesetMeta = meta
	e.ingestedAt = time.Now()
	e.readyFlag.Store(true)

	e.logger.Info("dataset ingested",
		zap.String("source", p.DatasetSource),
		zap.String("coord_sys", p.CoordSys),
		zap.Int("points", st.Total()),
		zap.Int("dropped", st.Dropped()),
		zap.Uint64("generation", e.generation),
		zap.String("ruleset", meta.Name),
	)

	return &InitDone{
		TotalCount:     st.Total(),
		PerGroupCounts: counts,
		RulesetMeta:    meta,
		Generation:     e.generation,
		DroppedRecords: st.Dropped(),
	}, nil
}

func (e *Engine) handleBuildIndex(p BuildIndexRequest) (*IndexReady, error) {
	groups := dedupe(p.Groups)
	for _, g := range groups {
		e.clusters.Ensure(g)
	}
	return &IndexReady{Groups: groups}, nil
}

func (e *Engine) handleQuery(ctx context.Context, p QueryRequest) (*QueryResult, error) {
	zoom := int(math.Floor(p.Zoom))

	per := make(map[string]GroupQueryResult, len(p.Groups))
	for _, group := range dedupe(p.Groups) {
		idx, err := e.indexFor(ctx, group, p.UseIsoScope)
		if err != nil {
			return nil, err
		}

		entry := GroupQueryResult{Points: idx.Query(p.BBox, zoom)}
		if p.IncludeHull && zoom < e.cfg.HullMaxZoom {
			entry.Hulls = e.hullsOf(idx, entry.Points)
		}
		per[group] = entry
	}
	return &QueryResult{PerGroup: per}, nil
}

func (e *Engine) handleExpand(ctx context.Context, p ExpandRequest) (*ExpandResult, error) {
	idx, err := e.indexFor(ctx, p.Group, p.UseIsoScope)
	if err != nil {
		return nil, err
	}

	// Неизвестный кластер отвечает null, не ошибкой: вызывающая сторона
	// могла держать идентификатор из прежнего поколения индекса.
	zoom, ok := idx.ExpansionZoom(p.ClusterID)
	if !ok {
		return &ExpandResult{Zoom: nil}, nil
	}
	return &ExpandResult{Zoom: &zoom}, nil
}

func (e *Engine) handleApplyIsochrone(ctx context.Context, p ApplyIsochroneRequest) (*IsoIndexReady, error) {
	scope := e.scope
	if scope == nil || !bytes.Equal(e.scopeRaw, p.Polygon) {
		g, err := isoscope.ParseGeometry(p.Polygon)
		if err != nil {
			// Отсутствующая или непригодная геометрия даёт пустой охват
			// со всеми нулями, не ошибку.
			e.logger.Warn("unusable isochrone geometry", zap.Error(err))
			g = nil
		}
		scope = isoscope.New(g, e.pointsOf(e.store), e.cfg.Cluster, e.logger)
	}

	if err := scope.EnsureGroups(ctx, p.Groups); err != nil {
		return nil, err
	}

	// Прежний охват замещается только после успешного построения нового.
	e.scope = scope
	e.scopeRaw = append([]byte(nil), p.Polygon...)

	built := scope.BuiltGroups()
	points := make(map[string][]domain.Point, len(built))
	for _, g := range built {
		pts := scope.Points(g)
		if pts == nil {
			pts = []domain.Point{}
		}
		points[g] = pts
	}
	return &IsoIndexReady{
		CountsByGroup: scope.Counts(),
		PointsByGroup: points,
		BuiltGroups:   built,
	}, nil
}

func (e *Engine) handleClearIsochrone() (*IsoCleared, error) {
	if e.scope != nil {
		e.logger.Debug("isochrone scope cleared")
	}
	e.scope = nil
	e.scopeRaw = nil
	return &IsoCleared{Cleared: true}, nil
}

func (e *Engine) handleBBoxStats(p BBoxStatsRequest) (*BBoxStatsResult, error) {
	// Запрос на зуме за последним уровнем иерархии возвращает только
	// листья, то есть строгое попадание точек в прямоугольник.
	leafZoom := e.clusters.Options().MaxZoom + 1

	byGroup := make(map[string]int)
	total := 0
	for _, group := range e.store.Groups() {
		n := len(e.clusters.Ensure(group).Query(p.BBox, leafZoom))
		byGroup[group] = n
		total += n
	}
	return &BBoxStatsResult{PoiTotal: total, ByGroup: byGroup}, nil
}

func (e *Engine) handleSiteSelect(p SiteSelectRequest) (*SiteSelectResult, error) {
	if limit := e.cfg.SiteBBoxLimitDegrees; limit > 0 {
		if p.BBox.MaxLng-p.BBox.MinLng > limit || p.BBox.MaxLat-p.BBox.MinLat > limit {
			return nil, errors.ErrBBoxTooLarge.WithDetails(map[string]interface{}{
				"limit_degrees": limit,
			})
		}
	}

	// Неизвестная или служебная целевая группа - пустой список, не ошибка.
	if !e.isSelectableGroup(p.TargetGroup) {
		return &SiteSelectResult{Results: []siteselect.Result{}}, nil
	}

	return &SiteSelectResult{
		Results: e.scorer.Rank(e.grids, p.TargetGroup, p.BBox, p.TopN),
	}, nil
}

func (e *Engine) handleStats() *StatsResult {
	res := &StatsResult{
		Ready:     e.readyFlag.Load(),
		UptimeSec: time.Since(e.startedAt).Seconds(),
	}
	if e.store == nil {
		return res
	}

	counts := e.store.GroupCounts()
	groups := make(map[string]domain.GroupStats, len(counts))
	for g, c := range counts {
		b, _ := e.store.GroupBBox(g)
		groups[g] = domain.GroupStats{Count: c, BBox: b}
	}

	stats := &domain.Statistics{
		TotalPoints:    e.store.Total(),
		DroppedRecords: e.store.Dropped(),
		Groups:         groups,
		Generation:     e.generation,
		Ruleset:        e.rulesetMeta,
		IngestedAt:     e.ingestedAt,
	}
	if e.datasetMeta != nil {
		stats.DatasetSource = e.datasetMeta.Source
	}
	res.Statistics = stats
	return res
}

// indexFor возвращает индекс группы: охваченный полигоном, когда запрошен
// изоохват и он активен, иначе полный. Запрошенный при неактивном охвате
// запрос отвечает по полному набору.
func (e *Engine) indexFor(ctx context.Context, group string, scoped bool) (*cluster.Index, error) {
	if scoped && e.scope != nil {
		if err := e.scope.EnsureGroups(ctx, []string{group}); err != nil {
			return nil, err
		}
		if idx, ok := e.scope.Index(group); ok {
			return idx, nil
		}
	}
	return e.clusters.Ensure(group), nil
}

func (e *Engine) hullsOf(idx *cluster.Index, nodes []cluster.Node) []ClusterHull {
	var hulls []ClusterHull
	for _, n := range nodes {
		if !n.IsCluster() || n.Count < e.cfg.HullMinPoints {
			continue
		}
		leaves, ok := idx.Leaves(n.ClusterID, 0, 0)
		if !ok {
			continue
		}
		if ring := convexHull(leaves); ring != nil {
			hulls = append(hulls, ClusterHull{ClusterID: n.ClusterID, Ring: ring})
		}
	}
	return hulls
}

func (e *Engine) isSelectableGroup(group string) bool {
	if group == "" || group == domain.GroupAll || domain.IsReservedGroup(group) {
		return false
	}
	for _, g := range e.classifier.Ruleset().Groups {
		if g == group {
			return true
		}
	}
	return false
}

func (e *Engine) requireReady() error {
	if !e.readyFlag.Load() {
		return errors.ErrEngineNotReady
	}
	return nil
}

// pointsOf замыкает хранилище конкретного поколения, чтобы кэши индексов
// и сеток никогда не видели точки другого поколения.
func (e *Engine) pointsOf(st *store.Store) func(group string) []domain.Point {
	return func(group string) []domain.Point {
		if group == domain.GroupAll {
			return st.AllPoints()
		}
		return st.PointsOf(group)
	}
}

func decodePayload(raw json.RawMessage, dst interface{}) error {
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, dst); err != nil {
			return errors.ErrInvalidRequest.WithReason(err.Error())
		}
	}
	if err := validator.Validate(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError подбирает код протокола по первой непрошедшей проверке:
// порядок границ прямоугольника и диапазон зума имеют собственные коды.
func validationError(err error) error {
	if field, tag, ok := validator.FirstFailure(err); ok {
		switch {
		case tag == "bboxorder":
			return errors.ErrInvalidBBox.WithReason(err.Error())
		case field == "Zoom":
			return errors.ErrInvalidZoom.WithReason(err.Error())
		}
	}
	return errors.ErrInvalidRequest.WithReason(err.Error())
}

func errorResponse(req Request, code, message string) Response {
	return Response{
		Kind:      KindError,
		RequestID: req.RequestID,
		Payload: ErrorPayload{
			Code:       code,
			Message:    message,
			SourceType: string(req.Kind),
		},
	}
}

func rulesetMetaOf(rs *domain.ClassificationRuleset, source string) domain.RulesetMeta {
	return domain.RulesetMeta{
		Name:      rs.Name,
		Version:   rs.Version,
		Source:    source,
		Groups:    len(rs.Groups),
		Level1:    len(rs.Level1),
		Overrides: len(rs.Overrides),
	}
}

func dedupe(groups []string) []string {
	seen := make(map[string]struct{}, len(groups))
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}
