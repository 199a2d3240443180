package repository

import (
	"context"

	"github.com/poi-insight/internal/domain"
)

// RulesetRepository - интерфейс загрузки внешнего набора правил классификации
type RulesetRepository interface {
	// FetchRuleset загружает и разбирает набор правил
	FetchRuleset(ctx context.Context, source string) (*domain.ClassificationRuleset, error)
}
