// Package rules provides deterministic keyword-based expense categorization.
package rules

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Veraticus/pennywise/internal/model"
	"gopkg.in/yaml.v3"
)

// ErrInvalidTable is returned when a keyword table fails validation.
var ErrInvalidTable = errors.New("invalid keyword table")

// KeywordRule maps a category to the substrings that identify it.
type KeywordRule struct {
	Category model.Category `yaml:"category"`
	Keywords []string       `yaml:"keywords"`
}

// Table is an ordered list of keyword rules. Order decides ties.
type Table []KeywordRule

// DefaultTable returns the built-in keyword table.
func DefaultTable() Table {
	return Table{
		{Category: model.CategoryFood, Keywords: []string{
			"coffee", "starbucks", "mcdonalds", "burger", "pizza", "restaurant", "lunch", "dinner",
			"breakfast", "grocery", "market", "food", "whole foods", "trader joes",
		}},
		{Category: model.CategoryTravel, Keywords: []string{
			"uber", "lyft", "taxi", "flight", "airline", "hotel", "airbnb", "train", "bus", "subway",
			"fuel", "gas", "parking",
		}},
		{Category: model.CategoryRent, Keywords: []string{"rent", "lease", "mortgage"}},
		{Category: model.CategoryUtilities, Keywords: []string{
			"electric", "water", "internet", "wifi", "phone", "mobile", "bill", "utility",
		}},
		{Category: model.CategoryEntertainment, Keywords: []string{
			"movie", "cinema", "netflix", "spotify", "hulu", "concert", "ticket", "game", "steam",
			"playstation", "xbox",
		}},
		{Category: model.CategoryHealth, Keywords: []string{
			"doctor", "hospital", "pharmacy", "drug", "medicine", "dental", "gym", "fitness", "clinic",
		}},
		{Category: model.CategoryEducation, Keywords: []string{
			"course", "book", "tuition", "school", "university", "college", "udemy", "coursera", "learning",
		}},
		{Category: model.CategoryShopping, Keywords: []string{
			"amazon", "walmart", "target", "clothes", "shoe", "electronics", "apple", "store", "shop",
		}},
	}
}

// Validate checks every rule names a taxonomy member, appears once, and has
// non-blank keywords.
func (t Table) Validate(taxonomy model.Taxonomy) error {
	seen := make(map[model.Category]bool, len(t))
	for i, rule := range t {
		if !taxonomy.Contains(rule.Category) {
			return fmt.Errorf("%w: rule %d: unknown category %q", ErrInvalidTable, i, rule.Category)
		}
		if seen[rule.Category] {
			return fmt.Errorf("%w: rule %d: duplicate category %q", ErrInvalidTable, i, rule.Category)
		}
		seen[rule.Category] = true

		for _, kw := range rule.Keywords {
			if strings.TrimSpace(kw) == "" {
				return fmt.Errorf("%w: rule %d (%s): blank keyword", ErrInvalidTable, i, rule.Category)
			}
		}
	}
	return nil
}

// normalized returns a copy with lower-cased, trimmed keywords.
func (t Table) normalized() Table {
	out := make(Table, len(t))
	for i, rule := range t {
		keywords := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			keywords = append(keywords, strings.ToLower(strings.TrimSpace(kw)))
		}
		out[i] = KeywordRule{Category: rule.Category, Keywords: keywords}
	}
	return out
}

type tableFile struct {
	Rules Table `yaml:"rules"`
}

// ParseTable decodes a YAML keyword table of the form:
//
//	rules:
//	  - category: Food
//	    keywords: [coffee, pizza]
//
// Categories are canonicalized case-insensitively against the taxonomy.
func ParseTable(r io.Reader, taxonomy model.Taxonomy) (Table, error) {
	var file tableFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidTable)
		}
		return nil, fmt.Errorf("failed to decode keyword table: %w", err)
	}

	for i := range file.Rules {
		if canonical, ok := taxonomy.Lookup(string(file.Rules[i].Category)); ok {
			file.Rules[i].Category = canonical
		}
	}

	if err := file.Rules.Validate(taxonomy); err != nil {
		return nil, err
	}
	return file.Rules, nil
}

// LoadTable reads a keyword table from a YAML file.
func LoadTable(path string, taxonomy model.Taxonomy) (Table, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open keyword table: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseTable(f, taxonomy)
}
