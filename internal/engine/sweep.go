package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/pennywise/internal/model"
	"golang.org/x/sync/errgroup"
)

// SweepResult summarizes a re-categorization pass. Updated holds copies of the
// changed expenses, in input order, for the caller to persist.
type SweepResult struct {
	Updated      []model.Expense
	UpdatedCount int
	Examined     int
	Failed       int
}

// ProgressFunc is called once per examined expense. Calls are serialized.
type ProgressFunc func(done, total int)

// Sweep re-runs categorization on every unresolved expense (Uncategorized or
// Other) and reports the ones whose category changed.
func (e *Engine) Sweep(ctx context.Context, expenses []model.Expense) (SweepResult, error) {
	return e.SweepWithProgress(ctx, expenses, nil)
}

// SweepWithProgress is Sweep with a progress callback. Categorizations run on a
// bounded worker pool. Cancellation is checked between items: a canceled sweep
// returns the updates completed so far together with the context error.
func (e *Engine) SweepWithProgress(ctx context.Context, expenses []model.Expense, progress ProgressFunc) (SweepResult, error) {
	candidates := make([]int, 0, len(expenses))
	for i := range expenses {
		if expenses[i].IsUnresolved() {
			candidates = append(candidates, i)
		}
	}

	result := SweepResult{Updated: []model.Expense{}}
	if len(candidates) == 0 {
		return result, nil
	}

	e.logger.Info("Starting re-categorization sweep",
		"total_expenses", len(expenses),
		"unresolved", len(candidates),
		"workers", e.workers)

	updated := make([]*model.Expense, len(expenses))
	var (
		mu       sync.Mutex
		examined int
		failed   int
	)

	finish := func(ok bool) {
		mu.Lock()
		defer mu.Unlock()
		examined++
		if !ok {
			failed++
		}
		if progress != nil {
			progress(examined, len(candidates))
		}
	}

	var g errgroup.Group
	g.SetLimit(e.workers)

	for _, idx := range candidates {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			changed, err := e.recategorize(ctx, expenses[idx])
			if err != nil {
				e.logger.Error("failed to re-categorize expense",
					"expense_id", expenses[idx].ID,
					"title", expenses[idx].Title,
					"error", err)
				finish(false)
				return nil
			}
			if changed != nil {
				updated[idx] = changed
			}
			finish(true)
			return nil
		})
	}

	_ = g.Wait()

	for _, exp := range updated {
		if exp != nil {
			result.Updated = append(result.Updated, *exp)
		}
	}
	result.UpdatedCount = len(result.Updated)
	result.Examined = examined
	result.Failed = failed

	e.logger.Info("Re-categorization sweep finished",
		"examined", result.Examined,
		"updated", result.UpdatedCount,
		"failed", result.Failed)

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("sweep interrupted: %w", err)
	}
	return result, nil
}

// recategorize returns a changed copy of the expense, or nil when the category
// is unchanged. A panic inside a stage is reported as an error for this item only.
func (e *Engine) recategorize(ctx context.Context, expense model.Expense) (changed *model.Expense, err error) {
	defer func() {
		if r := recover(); r != nil {
			changed = nil
			err = fmt.Errorf("categorization panicked: %v", r)
		}
	}()

	decision := e.Decide(ctx, expense.Title, expense.Description, "")
	// An interrupted AI call falls back to Other; that is not a classification.
	if ctx.Err() != nil && decision.Source != SourceRule && decision.Category == model.CategoryOther {
		return nil, nil
	}
	if decision.Category == expense.Category {
		return nil, nil
	}

	expense.Category = decision.Category
	expense.UpdatedAt = time.Now().UTC()
	return &expense, nil
}
