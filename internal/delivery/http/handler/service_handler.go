package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/poi-insight/internal/classify"
	"github.com/poi-insight/internal/engine"
	"github.com/poi-insight/internal/pkg/errors"
	"github.com/poi-insight/internal/pkg/utils"
)

// ServiceHandler обрабатывает сервисные ручки: статистику, здоровье
// и отладку классификатора.
type ServiceHandler struct {
	eng    Engine
	logger *zap.Logger
}

// NewServiceHandler создает новый экземпляр ServiceHandler
func NewServiceHandler(eng Engine, logger *zap.Logger) *ServiceHandler {
	return &ServiceHandler{
		eng:    eng,
		logger: logger,
	}
}

// GetStatistics godoc
// @Summary Get engine statistics
// @Description Возвращает снимок состояния движка: готовность, аптайм, объём набора, счётчики групп, метаданные набора и правил.
// @Tags Stats
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Router /api/v1/stats [get]
func (h *ServiceHandler) GetStatistics(c *fiber.Ctx) error {
	resp := h.eng.Do(c.Context(), engine.Request{
		Kind:      engine.KindStats,
		RequestID: c.Get(fiber.HeaderXRequestID),
	})
	if resp.IsError() {
		return sendEngineError(c, h.logger, resp)
	}

	return utils.SendSuccess(c, resp.Payload, &utils.Meta{
		RequestID: resp.RequestID,
	})
}

// Health godoc
// @Summary Health check
// @Description Проверка живости процесса с флагом готовности набора данных.
// @Tags Service
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/health [get]
func (h *ServiceHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"ready":  h.eng.Ready(),
		"time":   time.Now(),
	})
}

// Classify godoc
// @Summary Classify a raw category string
// @Description Прогоняет сырую строку категории через текущий набор правил и показывает выигравший сегмент. Ручка для настройки правил.
// @Tags Service
// @Produce json
// @Param type query string true "Сырая строка категории"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/classify [get]
func (h *ServiceHandler) Classify(c *fiber.Ctx) error {
	raw := c.Query("type")
	if raw == "" {
		return utils.SendError(c, errors.ErrInvalidRequest.WithReason("query parameter 'type' is required"))
	}

	res := h.eng.Classify(raw)

	return utils.SendSuccess(c, fiber.Map{
		"input":      raw,
		"normalized": classify.Normalize(raw),
		"group":      res.Group,
		"matched":    res.Matched,
		"via":        res.Via,
	}, nil)
}
