package utils

import (
	stderrors "errors"

	"github.com/gofiber/fiber/v2"
	"github.com/poi-insight/internal/pkg/errors"
)

// SuccessResponse - конверт успешного ответа API
type SuccessResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// ErrorResponse - конверт ошибки API
type ErrorResponse struct {
	Error *errors.AppError `json:"error"`
}

// Meta - сведения об обработке запроса: идентификатор, поколение
// датасета движка и время выполнения.
type Meta struct {
	RequestID  string  `json:"request_id,omitempty"`
	Generation uint64  `json:"generation,omitempty"`
	Total      int     `json:"total,omitempty"`
	TimeMSec   float64 `json:"time_ms,omitempty"`
}

func SendSuccess(c *fiber.Ctx, data interface{}, meta *Meta) error {
	return c.JSON(SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

// SendError отвечает конвертом ошибки. AppError достаётся и из цепочки
// обёрнутых ошибок; всё прочее маскируется под 500, чтобы не светить
// внутренности наружу.
func SendError(c *fiber.Ctx, err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return c.Status(appErr.StatusCode).JSON(ErrorResponse{
			Error: appErr,
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: errors.ErrInternalServer,
	})
}
