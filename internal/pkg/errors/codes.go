package errors

import "net/http"

var (
	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrInvalidBBox = New(
		"INVALID_BBOX",
		"Invalid bounding box coordinates",
		http.StatusBadRequest,
	)

	ErrBBoxTooLarge = New(
		"BBOX_TOO_LARGE",
		"Bounding box exceeds the maximum allowed area",
		http.StatusBadRequest,
	)

	ErrInvalidZoom = New(
		"INVALID_ZOOM",
		"Invalid zoom level",
		http.StatusBadRequest,
	)

	ErrEngineNotReady = New(
		"ENGINE_NOT_READY",
		"Dataset is not loaded yet",
		http.StatusServiceUnavailable,
	)

	ErrDatasetError = New(
		"DATASET_ERROR",
		"Dataset source operation failed",
		http.StatusBadGateway,
	)

	ErrAnalysisFailed = New(
		"ANALYSIS_FAILED",
		"Analysis request failed",
		http.StatusInternalServerError,
	)

	ErrStreamError = New(
		"STREAM_ERROR",
		"Stream operation failed",
		http.StatusInternalServerError,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)

var registry = map[string]*AppError{
	ErrInvalidRequest.Code: ErrInvalidRequest,
	ErrInvalidBBox.Code:    ErrInvalidBBox,
	ErrBBoxTooLarge.Code:   ErrBBoxTooLarge,
	ErrInvalidZoom.Code:    ErrInvalidZoom,
	ErrEngineNotReady.Code: ErrEngineNotReady,
	ErrDatasetError.Code:   ErrDatasetError,
	ErrAnalysisFailed.Code: ErrAnalysisFailed,
	ErrStreamError.Code:    ErrStreamError,
	ErrInternalServer.Code: ErrInternalServer,
}

// ByCode возвращает зарегистрированную ошибку по строковому коду.
// Нужна на границах (HTTP, стримы), где код приходит в сериализованном виде.
func ByCode(code string) (*AppError, bool) {
	appErr, ok := registry[code]
	return appErr, ok
}
