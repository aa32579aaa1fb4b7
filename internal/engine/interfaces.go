package engine

import (
	"context"

	"github.com/Veraticus/pennywise/internal/model"
)

// RuleMatcher is the deterministic first stage of categorization.
type RuleMatcher interface {
	Match(title, description string) (model.Category, bool)
}

// AIClassifier is the fallback stage. Implementations must always return a
// category and never block expense creation on failure.
type AIClassifier interface {
	Classify(ctx context.Context, title, description string) model.Category
}
