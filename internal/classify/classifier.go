package classify

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"

	"github.com/poi-insight/internal/domain"
)

// Classification представляет результат классификации с отладочной информацией
type Classification struct {
	Group   string `json:"group"`
	Matched string `json:"matched,omitempty"`
	Via     string `json:"via"`
}

// Match kinds
const (
	ViaLevel1   = "level1"
	ViaOverride = "override"
	ViaFallback = "fallback"
)

// Classifier сопоставляет сырую строку категории с канонической группой.
// Чистая функция над набором правил; не имеет состояния помимо правил.
type Classifier struct {
	ruleset  *domain.ClassificationRuleset
	priority map[string]int
}

// New создаёт классификатор над переданным набором правил.
// Набор считается прошедшим проверку формы.
func New(ruleset *domain.ClassificationRuleset) *Classifier {
	priority := make(map[string]int, len(ruleset.Priority))
	for i, group := range ruleset.Priority {
		priority[group] = i
	}
	return &Classifier{ruleset: ruleset, priority: priority}
}

// NewBuiltin создаёт классификатор над встроенным набором правил
func NewBuiltin() *Classifier {
	return New(BuiltinRuleset())
}

// Ruleset возвращает применённый набор правил
func (c *Classifier) Ruleset() *domain.ClassificationRuleset {
	return c.ruleset
}

// Classify возвращает каноническую группу для сырой строки категории.
// Всегда возвращает ровно одну группу; пустой или несопоставимый вход
// классифицируется в группу other.
func (c *Classifier) Classify(raw string) string {
	return c.Explain(raw).Group
}

// Explain классифицирует строку и сообщает выигравший сегмент и вид правила
func (c *Classifier) Explain(raw string) Classification {
	norm := Normalize(raw)
	if norm == "" {
		return Classification{Group: domain.GroupOther, Via: ViaFallback}
	}

	best := Classification{Group: domain.GroupOther, Via: ViaFallback}
	bestRank := c.rank(domain.GroupOther)

	for _, segment := range strings.Split(norm, "|") {
		levels := splitLevels(segment)
		if levels[0] == "" {
			continue
		}
		group, via := c.classifySegment(levels)
		if rank := c.rank(group); rank < bestRank {
			bestRank = rank
			best = Classification{Group: group, Matched: levels[0], Via: via}
		}
	}
	return best
}

// classifySegment определяет группу одного сегмента: сначала базовое
// сопоставление первого уровня, затем переопределения по подстрокам
// второго/третьего уровня
func (c *Classifier) classifySegment(levels [3]string) (string, string) {
	group, ok := c.ruleset.Level1[levels[0]]
	via := ViaLevel1
	if !ok {
		group, via = domain.GroupOther, ViaFallback
	}

	for _, rule := range c.ruleset.Overrides {
		if rule.Level1 != levels[0] {
			continue
		}
		for _, sub := range rule.Substrings {
			if sub == "" {
				continue
			}
			if strings.Contains(levels[1], sub) || strings.Contains(levels[2], sub) {
				return rule.Group, ViaOverride
			}
		}
	}
	return group, via
}

func (c *Classifier) rank(group string) int {
	if r, ok := c.priority[group]; ok {
		return r
	}
	return len(c.priority)
}

var parenthetical = regexp.MustCompile(`\([^)]*\)`)

// Normalize приводит сырую строку категории к канонической форме:
// полноширинные символы сворачиваются в ASCII, скобочные пометки удаляются,
// пробелы схлопываются, регистр понижается
func Normalize(raw string) string {
	s := width.Fold.String(raw)
	s = parenthetical.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}

// splitLevels разбирает сегмент на уровни L1/L2/L3; хвост после второго
// разделителя остаётся в третьем уровне
func splitLevels(segment string) [3]string {
	var levels [3]string
	parts := strings.SplitN(segment, ";", 3)
	for i := range parts {
		levels[i] = strings.TrimSpace(parts[i])
	}
	return levels
}
