package rules

import (
	"strings"

	"github.com/Veraticus/pennywise/internal/model"
)

// Matcher looks up a category by keyword substring over an expense's text.
type Matcher struct {
	table Table
}

// NewMatcher creates a matcher over the given table. Keywords are normalized
// once so Match does no allocation beyond building the search text.
func NewMatcher(table Table) *Matcher {
	return &Matcher{table: table.normalized()}
}

// Match returns the first category, in table order, with a keyword contained in
// the lower-cased title and description.
func (m *Matcher) Match(title, description string) (model.Category, bool) {
	text := searchText(title, description)

	for _, rule := range m.table {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(text, kw) {
				return rule.Category, true
			}
		}
	}

	return "", false
}

// Categories returns the categories covered by the table, in order.
func (m *Matcher) Categories() []model.Category {
	cats := make([]model.Category, len(m.table))
	for i, rule := range m.table {
		cats[i] = rule.Category
	}
	return cats
}

func searchText(title, description string) string {
	return strings.ToLower(title) + " " + strings.ToLower(description)
}
