package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/poi-insight/internal/domain"
	"github.com/poi-insight/internal/domain/repository"
)

// datasetRepository читает сырой набор точек из таблицы PostgreSQL.
// Ожидаемые колонки: id, name, raw_type, lng, lat. Колонка id может быть
// числовой или текстовой, драйвер приводит значение к строке при чтении.
type datasetRepository struct {
	db       *DB
	table    string
	rawTypes []string
	logger   *zap.Logger
}

// NewDatasetRepository создает источник набора данных поверх PostgreSQL.
// rawTypes ограничивает выборку по сырой категории; пустой список
// означает полную выборку таблицы.
func NewDatasetRepository(db *DB, table string, rawTypes []string, logger *zap.Logger) repository.DatasetRepository {
	return &datasetRepository{
		db:       db,
		table:    table,
		rawTypes: rawTypes,
		logger:   logger,
	}
}

// FetchRecords выгружает записи таблицы в слабо типизированном виде.
// NULL-значения колонок не попадают в запись: дальнейшая чистка
// (координаты, зарезервированные группы) выполняется на этапе приёма.
func (r *datasetRepository) FetchRecords(ctx context.Context, source string) ([]domain.RawRecord, *domain.DatasetMeta, error) {
	// Имя таблицы берётся только из конфигурации
	query := fmt.Sprintf(`SELECT id, name, raw_type, lng, lat FROM %s`, r.table)

	args := []interface{}{}
	if len(r.rawTypes) > 0 {
		query += ` WHERE raw_type = ANY($1)`
		args = append(args, pq.Array(r.rawTypes))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query dataset table",
			zap.String("table", r.table),
			zap.Error(err),
		)
		return nil, nil, eris.Wrapf(err, "dataset: query table %q", r.table)
	}
	defer rows.Close()

	var records []domain.RawRecord
	skipped := 0

	for rows.Next() {
		var (
			id      sql.NullString
			name    sql.NullString
			rawType sql.NullString
			lng     sql.NullFloat64
			lat     sql.NullFloat64
		)

		if err := rows.Scan(&id, &name, &rawType, &lng, &lat); err != nil {
			r.logger.Error("Failed to scan dataset row", zap.Error(err))
			skipped++
			continue
		}

		rec := domain.RawRecord{}
		if id.Valid {
			rec["id"] = id.String
		}
		if name.Valid {
			rec["name"] = name.String
		}
		if rawType.Valid {
			rec["type"] = rawType.String
		}
		if lng.Valid {
			rec["lng"] = lng.Float64
		}
		if lat.Valid {
			rec["lat"] = lat.Float64
		}
		records = append(records, rec)
	}

	// Обрыв соединения посреди выборки не должен выглядеть как успех
	// с усечённым набором
	if err := rows.Err(); err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: read rows of %q", r.table)
	}

	if skipped > 0 {
		r.logger.Warn("Dataset rows skipped",
			zap.String("table", r.table),
			zap.Int("skipped", skipped),
		)
	}

	r.logger.Debug("Dataset fetched from PostgreSQL",
		zap.String("table", r.table),
		zap.Int("records", len(records)),
	)

	meta := &domain.DatasetMeta{
		Source:  source,
		Format:  domain.DatasetFormatRecords,
		Records: len(records),
	}

	return records, meta, nil
}
