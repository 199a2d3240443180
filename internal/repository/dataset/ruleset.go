package dataset

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/poi-insight/internal/domain"
	"github.com/poi-insight/internal/domain/repository"
)

type rulesetLoader struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRulesetLoader создаёт загрузчик внешнего набора правил классификации
func NewRulesetLoader(timeout time.Duration, logger *zap.Logger) repository.RulesetRepository {
	return &rulesetLoader{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchRuleset загружает и разбирает набор правил. Проверку формы выполняет
// вызывающая сторона; непригодный набор приводит к встроенному, не к отказу.
func (l *rulesetLoader) FetchRuleset(ctx context.Context, source string) (*domain.ClassificationRuleset, error) {
	data, err := readSource(ctx, l.httpClient, source)
	if err != nil {
		return nil, eris.Wrapf(err, "ruleset: read %q", source)
	}

	var rs domain.ClassificationRuleset
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, eris.Wrapf(err, "ruleset: parse %q", source)
	}

	// Распространённое сокращение при ручном составлении: порядок групп
	// и есть приоритет
	if len(rs.Priority) == 0 {
		rs.Priority = rs.Groups
	}

	l.logger.Debug("ruleset fetched",
		zap.String("source", source),
		zap.String("name", rs.Name),
		zap.Int("level1_rules", len(rs.Level1)),
	)
	return &rs, nil
}
