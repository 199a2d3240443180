package validator

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/poi-insight/internal/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterStructValidation(validateBBox, domain.BBox{})
}

// Validate - валидация структуры
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// FirstFailure возвращает поле и тег первой непрошедшей проверки, чтобы
// вызывающая сторона могла подобрать код ошибки точнее общего.
func FirstFailure(err error) (field, tag string, ok bool) {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return "", "", false
	}
	return fields[0].Field(), fields[0].Tag(), true
}

// validateBBox проверяет порядок границ прямоугольника
func validateBBox(sl validator.StructLevel) {
	bbox := sl.Current().Interface().(domain.BBox)
	if bbox.MinLng > bbox.MaxLng {
		sl.ReportError(bbox.MinLng, "MinLng", "min_lng", "bboxorder", "")
	}
	if bbox.MinLat > bbox.MaxLat {
		sl.ReportError(bbox.MinLat, "MinLat", "min_lat", "bboxorder", "")
	}
}
