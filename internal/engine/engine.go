// Package engine implements the categorization pipeline every expense passes
// through: explicit override, keyword rules, then the AI fallback.
package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
)

// Source records which stage produced a categorization decision.
type Source string

// Decision sources.
const (
	SourceOverride Source = "override"
	SourceRule     Source = "rule"
	SourceAI       Source = "ai"
	SourceDefault  Source = "default"
)

// Decision is a category together with the stage that chose it.
type Decision struct {
	Category model.Category
	Source   Source
}

// Config holds configuration options for the categorization engine.
type Config struct {
	Taxonomy model.Taxonomy
	// SweepWorkers bounds concurrent categorizations during a sweep.
	SweepWorkers int
	// StrictOverrides ignores overrides that are not taxonomy members instead of
	// storing them verbatim.
	StrictOverrides bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Taxonomy:     model.DefaultTaxonomy(),
		SweepWorkers: 4,
	}
}

// Engine orchestrates categorization. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	rules    RuleMatcher
	ai       AIClassifier
	logger   *slog.Logger
	taxonomy model.Taxonomy
	workers  int
	strict   bool
}

// New creates an engine. A nil AI classifier makes every unmatched expense Other.
func New(rules RuleMatcher, ai AIClassifier, cfg Config, logger *slog.Logger) *Engine {
	if len(cfg.Taxonomy) == 0 {
		cfg.Taxonomy = model.DefaultTaxonomy()
	}
	if cfg.SweepWorkers <= 0 {
		cfg.SweepWorkers = DefaultConfig().SweepWorkers
	}

	return &Engine{
		rules:    rules,
		ai:       ai,
		taxonomy: cfg.Taxonomy,
		workers:  cfg.SweepWorkers,
		strict:   cfg.StrictOverrides,
		logger:   common.OrDefault(logger),
	}
}

// Categorize returns the category for an expense. An override other than
// Uncategorized wins outright; otherwise keyword rules are tried before the AI.
func (e *Engine) Categorize(ctx context.Context, title, description string, override model.Category) model.Category {
	return e.Decide(ctx, title, description, override).Category
}

// Decide is Categorize with the deciding stage attached.
func (e *Engine) Decide(ctx context.Context, title, description string, override model.Category) Decision {
	if category, ok := e.resolveOverride(override); ok {
		return Decision{Category: category, Source: SourceOverride}
	}

	if e.rules != nil {
		if category, ok := e.rules.Match(title, description); ok {
			e.logger.Debug("expense matched keyword rule", "title", title, "category", category)
			return Decision{Category: category, Source: SourceRule}
		}
	}

	if e.ai != nil {
		category := e.ai.Classify(ctx, title, description)
		if e.taxonomy.Contains(category) {
			return Decision{Category: category, Source: SourceAI}
		}
		e.logger.Warn("AI classifier returned a category outside the taxonomy",
			"title", title,
			"category", category)
	}

	return Decision{Category: model.CategoryOther, Source: SourceDefault}
}

// CategorizeExpense fills in the expense's category, treating its current
// category as the override.
func (e *Engine) CategorizeExpense(ctx context.Context, expense *model.Expense) Decision {
	decision := e.Decide(ctx, expense.Title, expense.Description, expense.Category)
	expense.Category = decision.Category
	return decision
}

func (e *Engine) resolveOverride(override model.Category) (model.Category, bool) {
	trimmed := model.Category(strings.TrimSpace(string(override)))
	if trimmed == "" || trimmed == model.CategoryUncategorized {
		return "", false
	}

	if !e.strict {
		return override, true
	}

	canonical, ok := e.taxonomy.Lookup(string(trimmed))
	if !ok {
		e.logger.Warn("ignoring override outside the taxonomy", "override", override)
		return "", false
	}
	return canonical, true
}
