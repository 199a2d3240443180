package repository

import (
	"context"

	"github.com/poi-insight/internal/domain"
)

// DatasetRepository - интерфейс загрузки сырого набора точек
type DatasetRepository interface {
	// FetchRecords загружает записи набора из источника и нормализует
	// оба принимаемых формата (FeatureCollection, массив записей)
	FetchRecords(ctx context.Context, source string) ([]domain.RawRecord, *domain.DatasetMeta, error)
}
