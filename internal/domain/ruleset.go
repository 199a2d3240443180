package domain

import "github.com/rotisserie/eris"

// ClassificationRuleset представляет набор правил классификации сырых категорий.
// Level1 сопоставляет токен первого уровня с группой; Overrides переопределяют
// группу сегмента по подстрокам второго/третьего уровня; Priority задаёт полный
// порядок групп для разрешения многосегментных строк.
type ClassificationRuleset struct {
	Name      string            `json:"name,omitempty"`
	Version   string            `json:"version,omitempty"`
	Groups    []string          `json:"groups"`
	Level1    map[string]string `json:"level1"`
	Overrides []OverrideRule    `json:"overrides,omitempty"`
	Priority  []string          `json:"priority"`
}

// OverrideRule переопределяет группу сегмента, когда его первый уровень равен
// Level1 и второй или третий уровень содержит одну из подстрок
type OverrideRule struct {
	Level1     string   `json:"level1"`
	Substrings []string `json:"substrings"`
	Group      string   `json:"group"`
}

// Validate выполняет минимальную проверку формы набора правил
func (r *ClassificationRuleset) Validate() error {
	if len(r.Groups) == 0 {
		return eris.New("ruleset: empty group list")
	}
	if len(r.Level1) == 0 {
		return eris.New("ruleset: empty level1 map")
	}
	if len(r.Priority) == 0 {
		return eris.New("ruleset: empty priority list")
	}

	known := make(map[string]struct{}, len(r.Priority))
	for _, g := range r.Priority {
		known[g] = struct{}{}
	}
	for token, g := range r.Level1 {
		if _, ok := known[g]; !ok {
			return eris.Errorf("ruleset: level1 %q references group %q missing from priority list", token, g)
		}
	}
	for _, rule := range r.Overrides {
		if _, ok := known[rule.Group]; !ok {
			return eris.Errorf("ruleset: override %q references group %q missing from priority list", rule.Level1, rule.Group)
		}
	}
	return nil
}

// RulesetMeta представляет метаданные применённого набора правил
type RulesetMeta struct {
	Name      string `json:"name"`
	Version   string `json:"version,omitempty"`
	Source    string `json:"source"`
	Groups    int    `json:"groups"`
	Level1    int    `json:"level1_rules"`
	Overrides int    `json:"override_rules"`
}

// Ruleset sources
const (
	RulesetSourceBuiltin  = "builtin"
	RulesetSourceExternal = "external"
)
