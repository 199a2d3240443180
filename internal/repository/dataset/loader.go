package dataset

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/poi-insight/internal/domain"
	"github.com/poi-insight/internal/domain/repository"
)

type loader struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewLoader создаёт загрузчик набора точек из HTTP-источника или файла.
// Формат документа определяется по содержимому, не по расширению.
func NewLoader(timeout time.Duration, logger *zap.Logger) repository.DatasetRepository {
	return &loader{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchRecords загружает документ и нормализует его к плоскому списку
// записей. Ошибка любого шага оставляет решение вызывающей стороне:
// движок при этом сохраняет прежнее поколение данных.
func (l *loader) FetchRecords(ctx context.Context, source string) ([]domain.RawRecord, *domain.DatasetMeta, error) {
	data, err := readSource(ctx, l.httpClient, source)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: read %q", source)
	}

	records, format, err := Normalize(data)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: normalize %q", source)
	}

	l.logger.Debug("dataset fetched",
		zap.String("source", source),
		zap.String("format", format),
		zap.Int("records", len(records)),
	)

	return records, &domain.DatasetMeta{
		Source:  source,
		Format:  format,
		Records: len(records),
	}, nil
}

// readSource читает документ по URL либо из файла локальной системы
func readSource(ctx context.Context, client *http.Client, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, eris.Wrap(err, "create request")
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "execute request")
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}
		return io.ReadAll(resp.Body)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, eris.Wrap(err, "read file")
	}
	return data, nil
}
