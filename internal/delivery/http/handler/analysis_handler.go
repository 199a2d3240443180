package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/poi-insight/internal/classify"
	"github.com/poi-insight/internal/engine"
	"github.com/poi-insight/internal/pkg/errors"
	"github.com/poi-insight/internal/pkg/utils"
)

// Engine — подмножество движка анализа, нужное HTTP-слою.
type Engine interface {
	Do(ctx context.Context, req engine.Request) engine.Response
	Ready() bool
	Classify(raw string) classify.Classification
}

// AnalysisHandler превращает HTTP-запросы в конверты протокола движка.
// Тело запроса уходит движку как есть: разбор и валидация полезной
// нагрузки выполняются там, а не в HTTP-слое.
type AnalysisHandler struct {
	eng    Engine
	logger *zap.Logger
}

// NewAnalysisHandler создает новый экземпляр AnalysisHandler
func NewAnalysisHandler(eng Engine, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		eng:    eng,
		logger: logger,
	}
}

// Init godoc
// @Summary Reload dataset and ruleset
// @Description Перезагружает набор данных и правила классификации из настроенных источников. Поколение данных увеличивается, прежние индексы и изоохват сбрасываются атомарно.
// @Tags Engine
// @Accept json
// @Produce json
// @Param request body engine.InitRequest false "Источники загрузки (пустые поля берутся из конфигурации)"
// @Success 200 {object} utils.SuccessResponse
// @Failure 502 {object} utils.ErrorResponse
// @Router /api/v1/engine/init [post]
func (h *AnalysisHandler) Init(c *fiber.Ctx) error {
	return h.dispatch(c, engine.KindInit)
}

// BuildIndexes godoc
// @Summary Prebuild cluster indexes
// @Description Строит кластерные индексы перечисленных групп заранее, чтобы первый запрос вьюпорта не платил за построение.
// @Tags Engine
// @Accept json
// @Produce json
// @Param request body engine.BuildIndexRequest true "Группы для построения"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/engine/indexes [post]
func (h *AnalysisHandler) BuildIndexes(c *fiber.Ctx) error {
	return h.dispatch(c, engine.KindBuildIndex)
}

// Query godoc
// @Summary Query map viewport
// @Description Возвращает агрегаты и точки запрошенных групп в прямоугольнике на заданном зуме, опционально с выпуклыми оболочками агрегатов.
// @Tags Map
// @Accept json
// @Produce json
// @Param request body engine.QueryRequest true "Вьюпорт и группы"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/map/query [post]
func (h *AnalysisHandler) Query(c *fiber.Ctx) error {
	return h.dispatch(c, engine.KindQuery)
}

// Expand godoc
// @Summary Get cluster expansion zoom
// @Description Возвращает зум, на котором агрегат распадается; null для неизвестного движку агрегата.
// @Tags Map
// @Accept json
// @Produce json
// @Param request body engine.ExpandRequest true "Группа и идентификатор агрегата"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/map/expand [post]
func (h *AnalysisHandler) Expand(c *fiber.Ctx) error {
	return h.dispatch(c, engine.KindExpand)
}

// ApplyIsochrone godoc
// @Summary Apply isochrone scope
// @Description Активирует полигон достижимости для перечисленных групп и возвращает попавшие в него точки. Вырожденная геометрия даёт пустой охват, не ошибку.
// @Tags Isochrone
// @Accept json
// @Produce json
// @Param request body engine.ApplyIsochroneRequest true "Полигон GeoJSON и группы"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/isochrone [post]
func (h *AnalysisHandler) ApplyIsochrone(c *fiber.Ctx) error {
	return h.dispatch(c, engine.KindApplyIsochrone)
}

// ClearIsochrone godoc
// @Summary Clear isochrone scope
// @Description Сбрасывает активный изоохват; последующие запросы снова видят полный набор.
// @Tags Isochrone
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/isochrone [delete]
func (h *AnalysisHandler) ClearIsochrone(c *fiber.Ctx) error {
	return h.dispatch(c, engine.KindClearIsochrone)
}

// BBoxStats godoc
// @Summary Count points in bounding box
// @Description Возвращает число точек по группам строго внутри прямоугольника.
// @Tags Stats
// @Accept json
// @Produce json
// @Param request body engine.BBoxStatsRequest true "Прямоугольник"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/stats/bbox [post]
func (h *AnalysisHandler) BBoxStats(c *fiber.Ctx) error {
	return h.dispatch(c, engine.KindBBoxStats)
}

// SiteSelect godoc
// @Summary Rank candidate sites
// @Description Ранжирует кандидатные места для целевой группы внутри прямоугольника по покрытию, конкуренции, попутным потокам и доступности.
// @Tags Analysis
// @Accept json
// @Produce json
// @Param request body engine.SiteSelectRequest true "Прямоугольник и целевая группа"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/site-selection [post]
func (h *AnalysisHandler) SiteSelect(c *fiber.Ctx) error {
	return h.dispatch(c, engine.KindSiteSelect)
}

// dispatch заворачивает тело запроса в конверт протокола и отправляет движку.
// Идентификатор запроса берётся из заголовка X-Request-ID, если клиент его
// прислал; иначе движок назначит свой.
func (h *AnalysisHandler) dispatch(c *fiber.Ctx, kind engine.Kind) error {
	req := engine.Request{
		Kind:      kind,
		RequestID: c.Get(fiber.HeaderXRequestID),
	}
	if body := c.Body(); len(body) > 0 {
		req.Payload = body
	}

	resp := h.eng.Do(c.Context(), req)
	if resp.IsError() {
		return sendEngineError(c, h.logger, resp)
	}

	return utils.SendSuccess(c, resp.Payload, &utils.Meta{
		RequestID: resp.RequestID,
	})
}

// sendEngineError переводит ответ ERROR в HTTP-статус по реестру кодов.
// Стек паники остаётся в журнале и наружу не уходит.
func sendEngineError(c *fiber.Ctx, logger *zap.Logger, resp engine.Response) error {
	p, ok := resp.Payload.(engine.ErrorPayload)
	if !ok {
		logger.Error("malformed error payload",
			zap.String("request_id", resp.RequestID))
		return utils.SendError(c, errors.ErrInternalServer)
	}

	tmpl, ok := errors.ByCode(p.Code)
	if !ok {
		tmpl = errors.ErrInternalServer
	}

	message := p.Message
	if message == "" {
		message = tmpl.Message
	}

	appErr := &errors.AppError{
		Code:       tmpl.Code,
		Message:    message,
		StatusCode: tmpl.StatusCode,
		Details: map[string]interface{}{
			"source_type": p.SourceType,
			"request_id":  resp.RequestID,
		},
	}
	return utils.SendError(c, appErr)
}
